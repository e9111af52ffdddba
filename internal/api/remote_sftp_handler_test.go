package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/perchhost/panel/internal/events"
	"github.com/perchhost/panel/internal/models"
	"github.com/perchhost/panel/internal/repository"
	"github.com/perchhost/panel/internal/sftp"
)

const sftpTestPassword = "correct horse battery staple"

type sftpUsers struct {
	users map[string]*models.User
}

func (f *sftpUsers) FindByUsername(username string) (*models.User, error) {
	user, ok := f.users[username]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

type sftpServers struct {
	servers map[string]*models.Server
}

func (f *sftpServers) FindByUUIDShort(uuidShort string) (*models.Server, error) {
	server, ok := f.servers[uuidShort]
	if !ok {
		return nil, repository.ErrServerNotFound
	}
	return server, nil
}

type sftpSubusers struct{}

func (f *sftpSubusers) PermissionsFor(userID, serverID uint) ([]string, error) {
	return nil, repository.ErrSubuserNotFound
}

// newSftpAuthRouter builds the handler over a real auth service. Owner
// "bob" owns server ab3x9z12; "mallory" exists but has no access to it.
func newSftpAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte(sftpTestPassword), bcrypt.MinCost)
	require.NoError(t, err)

	users := &sftpUsers{users: map[string]*models.User{
		"bob":     {ID: 3, UUID: "0b32a2a3-4f60-4c9b-a531-8e029f7e4b0a", Username: "bob", PasswordHash: string(hash)},
		"mallory": {ID: 4, UUID: "1c43b3b4-5a71-4dac-b642-9f13a8f5c1b2", Username: "mallory", PasswordHash: string(hash)},
	}}
	servers := &sftpServers{servers: map[string]*models.Server{
		"ab3x9z12": {ID: 10, UUID: "f6adbb10-11d4-4b35-a384-a056987ee10b", UUIDShort: "ab3x9z12", OwnerID: 3, NodeID: 1},
	}}

	auth := sftp.NewAuthService(users, servers, &sftpSubusers{}, events.NewBus())
	handler := NewRemoteSftpHandler(auth)

	router := gin.New()
	router.POST("/api/remote/sftp/auth", handler.Authenticate)
	return router
}

func postSftpAuth(router *gin.Engine, username, password string) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(map[string]string{
		"type":     sftp.AuthTypePassword,
		"username": username,
		"password": password,
		"ip":       "203.0.113.5",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/remote/sftp/auth", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSftpAuthGrantsOwner(t *testing.T) {
	router := newSftpAuthRouter(t)

	w := postSftpAuth(router, "bob.ab3x9z12", sftpTestPassword)

	require.Equal(t, http.StatusOK, w.Code)
	var result sftp.AuthResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "f6adbb10-11d4-4b35-a384-a056987ee10b", result.Server)
	assert.NotEmpty(t, result.Permissions)
}

// Bad credentials are a 401; a valid login without access to the
// requested server is a 403. The two bodies never leak which check
// failed beyond that split.
func TestSftpAuthStatusSplit(t *testing.T) {
	tests := []struct {
		name       string
		username   string
		password   string
		wantStatus int
		wantError  string
	}{
		{
			name:       "wrong password",
			username:   "bob.ab3x9z12",
			password:   "nope",
			wantStatus: http.StatusUnauthorized,
			wantError:  "invalid credentials",
		},
		{
			name:       "unknown user",
			username:   "eve.ab3x9z12",
			password:   sftpTestPassword,
			wantStatus: http.StatusUnauthorized,
			wantError:  "invalid credentials",
		},
		{
			name:       "valid login without access",
			username:   "mallory.ab3x9z12",
			password:   sftpTestPassword,
			wantStatus: http.StatusForbidden,
			wantError:  "access denied",
		},
		{
			name:       "malformed username",
			username:   "bob",
			password:   sftpTestPassword,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid username format",
		},
		{
			name:       "unknown server",
			username:   "bob.zzzzzzzz",
			password:   sftpTestPassword,
			wantStatus: http.StatusNotFound,
			wantError:  "server not found",
		},
	}

	router := newSftpAuthRouter(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postSftpAuth(router, tt.username, tt.password)

			assert.Equal(t, tt.wantStatus, w.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantError, body["error"])
		})
	}
}
