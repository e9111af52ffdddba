package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestHandleAppErrorWritesStatusAndBody(t *testing.T) {
	tests := []struct {
		name       string
		appErr     *AppError
		wantStatus int
		wantBody   string
	}{
		{
			name:       "bad request",
			appErr:     NewBadRequestError("A destination node_id is required"),
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error": "A destination node_id is required", "code": "BAD_REQUEST"}`,
		},
		{
			name:       "not found",
			appErr:     NewNotFoundError("Server"),
			wantStatus: http.StatusNotFound,
			wantBody:   `{"error": "Server not found", "code": "NOT_FOUND"}`,
		},
		{
			name:       "unauthorized",
			appErr:     NewUnauthorizedError("Not authenticated"),
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error": "Not authenticated", "code": "UNAUTHORIZED"}`,
		},
		{
			name:       "forbidden",
			appErr:     NewForbiddenError("No permission"),
			wantStatus: http.StatusForbidden,
			wantBody:   `{"error": "No permission", "code": "FORBIDDEN"}`,
		},
		{
			name:       "internal hides the cause",
			appErr:     NewInternalError(errors.New("pq: connection refused")),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error": "Internal server error", "code": "INTERNAL_ERROR"}`,
		},
	}

	gin.SetMode(gin.TestMode)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/boom", func(c *gin.Context) {
				HandleAppError(c, tt.appErr)
			})

			req := httptest.NewRequest(http.MethodGet, "/boom", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestHandleAppErrorAborts(t *testing.T) {
	gin.SetMode(gin.TestMode)

	reached := false
	router := gin.New()
	router.GET("/guarded", func(c *gin.Context) {
		HandleAppError(c, NewForbiddenError("nope"))
	}, func(c *gin.Context) {
		reached = true
	})

	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, reached, "abort must stop the handler chain")
}
