package sftp

// Agent-level file permission vocabulary. This is the only permission
// language the agent understands; panel capabilities are mapped down to
// it here.
const (
	PermRead        = "file.read"
	PermReadContent = "file.read-content"
	PermCreate      = "file.create"
	PermUpdate      = "file.update"
	PermDelete      = "file.delete"
)

// FullPermissions returns the complete five-permission set.
func FullPermissions() []string {
	return []string{PermRead, PermReadContent, PermCreate, PermUpdate, PermDelete}
}

// ReadOnlyPermissions returns the browse-only set granted as a fallback.
func ReadOnlyPermissions() []string {
	return []string{PermRead, PermReadContent}
}

// Principal describes what the resolver needs to know about the
// requesting user's relationship to the server.
type Principal struct {
	IsOwner    bool
	IsAdmin    bool
	HasSubuser bool     // a subuser link exists, even if its list is empty
	Subuser    []string // panel capability strings from the subuser link
}

// ResolvePermissions maps a principal's panel capabilities to the agent
// permission set. It is pure: no lookups, no side effects.
//
// Owners and admins get the full set. Subusers are mapped capability by
// capability; a wildcard grants everything, and a linked subuser whose
// list resolves to nothing still gets read-only rather than no access.
// Principals with no relationship at all also land on read-only, never
// on an empty set and never on silent full access.
func ResolvePermissions(p Principal) []string {
	if p.IsOwner || p.IsAdmin {
		return FullPermissions()
	}

	if !p.HasSubuser {
		return ReadOnlyPermissions()
	}

	var result []string
	seen := make(map[string]bool)
	grant := func(perms ...string) {
		for _, perm := range perms {
			if !seen[perm] {
				seen[perm] = true
				result = append(result, perm)
			}
		}
	}

	for _, capability := range p.Subuser {
		switch capability {
		case "*":
			return FullPermissions()
		case "files.read", "files.download":
			grant(PermRead, PermReadContent)
		case "files.write", "files.upload":
			grant(PermCreate, PermUpdate)
		case "files.delete":
			grant(PermDelete)
		}
	}

	if len(result) == 0 {
		return ReadOnlyPermissions()
	}
	return result
}
