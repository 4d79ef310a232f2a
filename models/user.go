package models

import "time"

const UserTable = "lager_users"

// Roles. admin and staff are equivalent for authorization purposes.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
	RoleUser  = "user"
)

// User covers borrowers and administrators alike. Barcode and the
// username/password pair are both optional: a borrower scanned in by barcode
// may never log in, and a pre-created user may claim a password on first
// login.
type User struct {
	ID        string  `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string  `gorm:"size:255;not null;index" json:"name"`
	Role      string  `gorm:"size:20;not null;default:'user'" json:"role"`
	Barcode   *string `gorm:"size:120;uniqueIndex" json:"barcode,omitempty"`
	ClassYear *string `gorm:"size:40;index" json:"classYear,omitempty"`

	Username     *string `gorm:"size:255;uniqueIndex" json:"username,omitempty"`
	PasswordHash *string `gorm:"size:255" json:"-"`

	Email string `gorm:"size:255" json:"email,omitempty"`
	Phone string `gorm:"size:45" json:"phone,omitempty"`
	Notes string `gorm:"type:text" json:"notes,omitempty"`

	LastSeenAt *time.Time `gorm:"index" json:"lastSeenAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (User) TableName() string { return UserTable }

// IsAdmin reports whether the user holds an admin-equivalent role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin || u.Role == RoleStaff }

// PublicUser is the borrower identity exposed on unauthenticated routes:
// no contact info, no credentials.
type PublicUser struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Role      string  `json:"role"`
	Barcode   *string `json:"barcode,omitempty"`
	ClassYear *string `json:"classYear,omitempty"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Role: u.Role, Barcode: u.Barcode, ClassYear: u.ClassYear}
}
