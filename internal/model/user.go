package model

import (
	"time"
)

type UserRole string

const (
	Student  UserRole = "student"
	Lecturer UserRole = "lecturer"
	Admin    UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Name     string   `gorm:"size:100;not null" json:"name"`
	Username *string  `gorm:"size:50;uniqueIndex" json:"username,omitempty"`
	Email    string   `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password string   `gorm:"size:100;not null" json:"-"`
	Role     UserRole `gorm:"size:20;default:'student'" json:"role"`
	// lecturers need an admin's approval before authoring quizzes
	Approved bool      `gorm:"default:false" json:"approved"`
	Avatar   string    `gorm:"size:255" json:"avatar"`
	LastSeen time.Time `json:"lastSeen"`
}

func (User) TableName() string {
	return "users"
}

// Ban marks a user as locked out. One active ban per user.
type Ban struct {
	BaseModel
	UserID   uint      `gorm:"uniqueIndex;not null" json:"userId"`
	AdminID  uint      `gorm:"not null" json:"adminId"`
	Reason   string    `gorm:"size:500" json:"reason"`
	BannedAt time.Time `gorm:"not null" json:"bannedAt"`
	User     User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Ban) TableName() string {
	return "bans"
}
