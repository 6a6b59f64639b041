package user

const (
	RoleAdmin = "admin"
	RoleHost  = "host"
)

// Actor is the acting operator as resolved by the auth provider.
type Actor struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanManageEvents reports whether the actor may open the event admin screens.
func (a Actor) CanManageEvents() bool {
	return a.Role == RoleAdmin || a.Role == RoleHost
}
