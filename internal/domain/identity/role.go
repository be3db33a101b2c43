package identity

// Role represents a finance department role.
// The string values are the exact role names carried in session tokens
// and stored on user records by the production backend.
type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RoleDDFA         Role = "DDFA"
	RoleDFA          Role = "DFA"
	RolePayableStaff Role = "Payable Unit Staff"
	RolePayableHead  Role = "Payable Unit Head"
	RoleCPO          Role = "CPO"
	RoleAudit        Role = "Audit Unit"
)

// AllRoles lists every valid role
var AllRoles = []Role{
	RoleAdmin,
	RoleDDFA,
	RoleDFA,
	RolePayableStaff,
	RolePayableHead,
	RoleCPO,
	RoleAudit,
}

// IsValid checks if the role is one of the known roles
func (r Role) IsValid() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// String returns the string representation of Role
func (r Role) String() string {
	return string(r)
}

// IsAdmin returns true for the superuser role
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}
