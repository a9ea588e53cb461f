package access

import dErrors "rwaledger/pkg/domain-errors"

// Role is a named capability. Membership is many-to-many with accounts.
type Role string

const (
	// RoleDefaultAdmin administers every role, itself included.
	RoleDefaultAdmin Role = "DEFAULT_ADMIN"
	RoleAdmin        Role = "ADMIN"
	RoleMinter       Role = "MINTER"
	RoleCompliance   Role = "COMPLIANCE"
)

// AllRoles lists every role in bootstrap order.
var AllRoles = []Role{RoleDefaultAdmin, RoleAdmin, RoleMinter, RoleCompliance}

func (r Role) IsValid() bool {
	switch r {
	case RoleDefaultAdmin, RoleAdmin, RoleMinter, RoleCompliance:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// ParseRole validates a role name from external input.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown role %q", s)
	}
	return r, nil
}

// AdminOf returns the role whose members may grant and revoke r.
func AdminOf(Role) Role {
	return RoleDefaultAdmin
}
