package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/perchhost/panel/internal/sftp"
)

type RemoteSftpHandler struct {
	auth *sftp.AuthService
}

func NewRemoteSftpHandler(auth *sftp.AuthService) *RemoteSftpHandler {
	return &RemoteSftpHandler{auth: auth}
}

// Authenticate handles POST /api/remote/sftp/auth
//
// The response body is a bare {error} for every failure class. Bad
// credentials are a 401 with one shared message; a valid credential
// pair for a server the user has no access to is a 403.
func (h *RemoteSftpHandler) Authenticate(c *gin.Context) {
	var req sftp.AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": sftp.ErrInvalidRequest.Error()})
		return
	}

	result, err := h.auth.Authenticate(req)
	if err != nil {
		switch {
		case errors.Is(err, sftp.ErrInvalidRequest), errors.Is(err, sftp.ErrInvalidUsername):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, sftp.ErrServerNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, sftp.ErrInvalidCredentials):
			// One message for every credential failure: no probing
			// which half was wrong.
			c.JSON(http.StatusUnauthorized, gin.H{"error": sftp.ErrInvalidCredentials.Error()})
		case errors.Is(err, sftp.ErrAccessDenied):
			c.JSON(http.StatusForbidden, gin.H{"error": sftp.ErrAccessDenied.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}
