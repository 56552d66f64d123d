package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Username         string    `gorm:"uniqueIndex;size:150;not null" json:"username"`
	Email            string    `gorm:"uniqueIndex;size:254;not null" json:"email"`
	FirstName        string    `gorm:"size:150;not null;default:''" json:"first_name"`
	LastName         string    `gorm:"size:150;not null;default:''" json:"last_name"`
	Bio              string    `gorm:"type:text;not null;default:''" json:"bio"`
	Role             Role      `gorm:"type:varchar(9);not null;default:'user'" json:"role"`
	ConfirmationCode string    `gorm:"size:255;not null;default:''" json:"-"` // never rendered
	IsSuperuser      bool      `gorm:"not null;default:false" json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// BeforeCreate hook defaults the role before the row is written, so Role.Value
// never sees the zero value.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.Role == "" {
		u.Role = RoleUser
	}
	return
}

func (User) TableName() string {
	return "users"
}

// IsAdmin, IsModerator and IsUser partition the role set: exactly one is
// true for any stored account.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsModerator() bool {
	return u.Role == RoleModerator
}

func (u *User) IsUser() bool {
	return u.Role == RoleUser
}
