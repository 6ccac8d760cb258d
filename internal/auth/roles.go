package auth

import "strings"

// Role is a caller role carried in the token's "role" claim.
type Role string

const (
	RoleViewer   Role = "viewer"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

// roleLadder lists roles from least to most privileged. Polling a report
// needs viewer, starting one needs operator.
var roleLadder = []Role{RoleViewer, RoleOperator, RoleAdmin}

// NormalizeRole parses a claim value, ignoring case and surrounding space.
func NormalizeRole(value string) (Role, bool) {
	candidate := Role(strings.ToLower(strings.TrimSpace(value)))
	if candidate.rank() < 0 {
		return "", false
	}
	return candidate, true
}

// RoleAtLeast reports whether role sits at or above required on the ladder.
// Unknown roles satisfy nothing.
func RoleAtLeast(role Role, required Role) bool {
	have := role.rank()
	return have >= 0 && have >= required.rank()
}

func (r Role) rank() int {
	for i, step := range roleLadder {
		if step == r {
			return i
		}
	}
	return -1
}
