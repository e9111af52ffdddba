package wings

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenIssuer mints the short-lived JWTs the panel hands to agents, most
// notably the transfer token the destination node validates before
// accepting an incoming archive. Tokens are signed with the destination
// node's daemon secret (HS256), issued by the panel URL and addressed to
// the node URL.
type TokenIssuer struct {
	secret   []byte
	issuer   string
	audience string
	expiry   time.Duration
}

// NewTokenIssuer creates an issuer for one node.
func NewTokenIssuer(secret, panelURL, nodeURL string, expiry time.Duration) *TokenIssuer {
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &TokenIssuer{
		secret:   []byte(secret),
		issuer:   panelURL,
		audience: nodeURL,
		expiry:   expiry,
	}
}

// TransferToken mints a token whose subject is the transferring server's
// UUID. The destination agent extracts the UUID from the subject claim.
func (t *TokenIssuer) TransferToken(serverUUID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   serverUUID,
		Issuer:    t.issuer,
		Audience:  jwt.ClaimStrings{t.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.expiry)),
		ID:        uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}
