package domain

// Role is the closed set of roles the authorization server issues. Anything
// outside this set is treated as no role at all.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleMedic   Role = "medic"
	RolePacient Role = "pacient"
)

// ParseRole maps a raw role claim onto the known set. Unknown or empty
// values return false; callers must treat that as unauthorised for every
// protected area rather than guessing.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleMedic, RolePacient:
		return Role(s), true
	default:
		return "", false
	}
}

// RoutePrefix returns the URL area owned by the role. Each protected
// prefix admits exactly one role.
func (r Role) RoutePrefix() string {
	switch r {
	case RoleAdmin:
		return "/admin"
	case RoleMedic:
		return "/medic"
	case RolePacient:
		return "/pacient"
	default:
		return ""
	}
}

// LandingPath is where a freshly authenticated user of this role lands.
func (r Role) LandingPath() string {
	switch r {
	case RoleAdmin:
		return "/admin/dashboard"
	case RoleMedic:
		return "/medic/appointments"
	case RolePacient:
		return "/pacient/home"
	default:
		// A session with no recognisable role still gets the least
		// privileged landing; the guard will bounce it from anywhere
		// it does not belong.
		return RolePacient.LandingPath()
	}
}

func (r Role) String() string { return string(r) }
