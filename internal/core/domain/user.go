package domain

import "time"

// UserRole is the application-wide role of a user.
type UserRole string

const (
	RoleEmployee  UserRole = "EMPLOYEE"
	RoleHOD       UserRole = "HOD"
	RoleFinance   UserRole = "FINANCE"
	RoleAdmin     UserRole = "ADMIN"
	RoleSuperUser UserRole = "SUPERUSER"
)

// IsValid reports whether r is a known user role.
func (r UserRole) IsValid() bool {
	switch r {
	case RoleEmployee, RoleHOD, RoleFinance, RoleAdmin, RoleSuperUser:
		return true
	}
	return false
}

// SeesAllRecords reports whether the role may read every requisition.
func (r UserRole) SeesAllRecords() bool {
	return r == RoleFinance || r == RoleAdmin || r == RoleSuperUser
}

// User represents a user of the application in the domain.
type User struct {
	UserID       string   `json:"userID"` // Primary Key (e.g., UUID)
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Role         UserRole `json:"role"`
	Department   string   `json:"department"`
	PasswordHash string   `json:"-"`
	IsActive     bool     `json:"isActive"`
	AuditFields
	DeletedAt *time.Time `json:"deletedAt,omitempty"` // Used for soft delete

	RefreshTokenHash       string     `json:"-"`
	RefreshTokenExpiryTime *time.Time `json:"-"`
}

// Identity returns the claims-level view of u.
func (u *User) Identity() Identity {
	return Identity{
		UserID:     u.UserID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role,
		Department: u.Department,
	}
}

// Identity is the set of claims the auth layer vouches for on each request.
type Identity struct {
	UserID     string
	Name       string
	Email      string
	Role       UserRole
	Department string
}
