package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the access level of an account.
type Role string

const (
	RoleClient Role = "CLIENT"
	RoleAdmin  Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleClient || r == RoleAdmin
}

// User представляє обліковий запис у системі.
// Роль змінюється лише явною адміністративною дією (cmd/admin).
type User struct {
	ID        string `gorm:"primaryKey" json:"id"` // UUID
	Username  string `gorm:"uniqueIndex;not null" json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      Role   `gorm:"type:varchar(10);not null;default:CLIENT" json:"role"`
}

// IsAdmin reports whether the user holds the ADMIN role.
// A nil user is never an admin.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// BeforeCreate це хук GORM, який викликається перед створенням запису.
// Він генерує новий UUID для користувача, якщо ID ще не встановлено,
// і виставляє роль CLIENT за замовчуванням.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.Role == "" {
		u.Role = RoleClient
	}
	return
}
