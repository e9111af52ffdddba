package sftp

import (
	"regexp"
	"strings"
)

// SFTP usernames carry the target server as a suffix: "bob.ab3x9z12" is
// user "bob" connecting to the server with short UUID "ab3x9z12". The
// suffix is always exactly eight alphanumerics.
var usernamePattern = regexp.MustCompile(`^(.+)\.([a-zA-Z0-9]{8})$`)

// ParsedUsername is the result of splitting an SFTP username.
type ParsedUsername struct {
	Username string
	ServerID string // short UUID, lowercased
}

// ParseUsername splits an SFTP username into the panel username and the
// server short UUID. Returns false when the format does not match.
func ParseUsername(raw string) (ParsedUsername, bool) {
	matches := usernamePattern.FindStringSubmatch(raw)
	if matches == nil {
		return ParsedUsername{}, false
	}
	return ParsedUsername{
		Username: matches[1],
		ServerID: strings.ToLower(matches[2]),
	}, true
}
