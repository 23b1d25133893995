package user

import (
	"bytes"
	"encoding/json"

	"github.com/go-playground/validator/v10"

	"github.com/KhalilH786/GTManager-sub001/core"
)

// Roles
const (
	RoleNone      Role = ""
	RoleAdmin     Role = "admin"
	RoleManager   Role = "manager"
	RoleTeacher   Role = "teacher"
	RolePrincipal Role = "principal"
)

// Landing pages
const (
	PathDashboard = "/dashboard"
	PathTasks     = "/tasks"
)

var (
	AllRoles = []Role{RoleAdmin, RoleManager, RoleTeacher, RolePrincipal}

	Roles = []RoleInfo{
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Manager", Value: RoleManager},
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Principal", Value: RolePrincipal},
	}

	jsonNull = []byte("null")
)

// Role is the single role held by a user. The empty Role is encoded as JSON null.
// Values read from a profile document are kept verbatim, known or not.
type Role string

func (r Role) String() string { return string(r) }

// IsKnown reports whether r is one of AllRoles.
func (r Role) IsKnown() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

func (r Role) MarshalJSON() ([]byte, error) {
	if r == RoleNone {
		return jsonNull, nil
	}
	return json.Marshal(string(r))
}

func (r *Role) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		*r = RoleNone
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*r = Role(s)
	return nil
}

// LandingPath returns the page a signed-in user with this role is sent to.
func LandingPath(r Role) string {
	if r == RoleManager {
		return PathDashboard
	}
	return PathTasks
}

type RoleInfo struct {
	Name  string `json:"name"`
	Value Role   `json:"value"`
}

// User is the resolved user record. ID is the identity provider uid.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	PhotoURL string `json:"photoURL,omitempty"`
}

func (u User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u User) IsManager() bool { return u.Role == RoleManager }

// UpdateProfile defines what a user may change on their own profile.
type UpdateProfile struct {
	Name     string `json:"name" validate:"omitempty,notblank,max=255"`
	PhotoURL string `json:"photoURL" validate:"omitempty,url"`
}

func (up *UpdateProfile) Validate(validate *validator.Validate) error {
	up.Name = core.CleanString(up.Name)
	up.PhotoURL = core.CleanString(up.PhotoURL)
	return validate.Struct(up)
}

// NewUser contains information needed to provision a new account and its profile.
type NewUser struct {
	Name            string `json:"name" validate:"required,notblank"`
	Email           string `json:"email" validate:"required,email"`
	Role            Role   `json:"role" validate:"omitempty,role"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	return validate.Struct(nu)
}
