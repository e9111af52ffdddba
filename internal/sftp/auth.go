package sftp

import (
	"errors"
	"regexp"
	"strings"

	"github.com/perchhost/panel/internal/events"
	"github.com/perchhost/panel/internal/models"
	"github.com/perchhost/panel/internal/repository"
	"github.com/perchhost/panel/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

// Authentication types accepted on the SFTP endpoint.
const (
	AuthTypePassword  = "password"
	AuthTypePublicKey = "public_key"
)

// Auth failure classes. Handlers map these onto HTTP statuses; the
// response body stays a uniform {error} regardless of class so the agent
// cannot enumerate accounts.
var (
	ErrInvalidRequest     = errors.New("invalid request data")
	ErrInvalidUsername    = errors.New("invalid username format")
	ErrServerNotFound     = errors.New("server not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccessDenied       = errors.New("access denied")
)

var publicKeyPattern = regexp.MustCompile(`^(ssh-rsa|ssh-ed25519|ecdsa-sha2-nistp256|ecdsa-sha2-nistp384|ecdsa-sha2-nistp521)\s+[A-Za-z0-9+/=]+`)

// UserStore resolves panel users for authentication.
type UserStore interface {
	FindByUsername(username string) (*models.User, error)
}

// ServerStore resolves servers from their short UUID.
type ServerStore interface {
	FindByUUIDShort(uuidShort string) (*models.Server, error)
}

// SubuserStore resolves subuser capability lists.
type SubuserStore interface {
	PermissionsFor(userID, serverID uint) ([]string, error)
}

// AuthRequest is an SFTP authentication attempt relayed by an agent.
type AuthRequest struct {
	Type     string `json:"type" binding:"required"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	IP       string `json:"ip" binding:"required"`
}

// AuthResult is the grant returned to the agent: which server, which
// user, and what that user may do to the server's files.
type AuthResult struct {
	Server      string   `json:"server"`
	User        string   `json:"user"`
	Permissions []string `json:"permissions"`
}

// AuthService authenticates SFTP sessions on behalf of node agents and
// resolves the file permission set for the session.
type AuthService struct {
	users    UserStore
	servers  ServerStore
	subusers SubuserStore
	bus      events.Publisher
}

// NewAuthService creates an SFTP auth service.
func NewAuthService(users UserStore, servers ServerStore, subusers SubuserStore, bus events.Publisher) *AuthService {
	return &AuthService{users: users, servers: servers, subusers: subusers, bus: bus}
}

// Authenticate validates the credentials in req and returns the session
// grant. All credential failures collapse into ErrInvalidCredentials.
func (s *AuthService) Authenticate(req AuthRequest) (*AuthResult, error) {
	if req.Type != AuthTypePassword && req.Type != AuthTypePublicKey {
		return nil, ErrInvalidRequest
	}

	parsed, ok := ParseUsername(req.Username)
	if !ok {
		return nil, ErrInvalidUsername
	}

	server, err := s.servers.FindByUUIDShort(parsed.ServerID)
	if err != nil {
		if errors.Is(err, repository.ErrServerNotFound) {
			return nil, ErrServerNotFound
		}
		return nil, err
	}

	user, err := s.authenticateUser(parsed.Username, req.Password, req.Type)
	if err != nil {
		return nil, err
	}

	principal, err := s.resolvePrincipal(user, server)
	if err != nil {
		return nil, err
	}
	if !principal.IsOwner && !principal.IsAdmin && !principal.HasSubuser {
		return nil, ErrAccessDenied
	}

	permissions := ResolvePermissions(principal)

	s.bus.Publish(events.Event{
		Type:     events.EventSftpAuthenticated,
		ServerID: server.ID,
		UserID:   user.ID,
		Data: map[string]interface{}{
			"auth_type": req.Type,
			"ip":        req.IP,
		},
	})

	return &AuthResult{
		Server:      server.UUID,
		User:        user.UUID,
		Permissions: permissions,
	}, nil
}

func (s *AuthService) authenticateUser(username, password, authType string) (*models.User, error) {
	user, err := s.users.FindByUsername(username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// Banned users never authenticate, regardless of credentials.
	if user.Banned {
		return nil, ErrInvalidCredentials
	}

	switch authType {
	case AuthTypePassword:
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
			return nil, ErrInvalidCredentials
		}
	case AuthTypePublicKey:
		// Per-user key storage is not modeled; only the key format is
		// checked before the agent-side key match.
		if !validPublicKey(password) {
			return nil, ErrInvalidCredentials
		}
	}

	return user, nil
}

func (s *AuthService) resolvePrincipal(user *models.User, server *models.Server) (Principal, error) {
	principal := Principal{
		IsOwner: server.OwnerID == user.ID,
		IsAdmin: user.IsAdmin,
	}
	if principal.IsOwner || principal.IsAdmin {
		return principal, nil
	}

	perms, err := s.subusers.PermissionsFor(user.ID, server.ID)
	if err != nil {
		if errors.Is(err, repository.ErrSubuserNotFound) {
			return principal, nil
		}
		logger.Warn("Failed to load subuser permissions", map[string]interface{}{
			"user_id":   user.ID,
			"server_id": server.ID,
			"error":     err.Error(),
		})
		return principal, err
	}

	principal.HasSubuser = true
	principal.Subuser = perms
	return principal, nil
}

func validPublicKey(key string) bool {
	firstLine := key
	if idx := strings.IndexByte(key, '\n'); idx >= 0 {
		firstLine = key[:idx]
	}
	return publicKeyPattern.MatchString(strings.TrimSpace(firstLine))
}
