package models

import (
	"time"
)

// Role IDs seeded by the schema migration. Route guards and the review
// authorization gate reference these directly.
const (
	RoleStudent = 1
	RoleFaculty = 2
	RoleHOD     = 3
	RoleDean    = 4
	RoleAdmin   = 5
)

type User struct {
	UserID       int        `gorm:"primaryKey;column:user_id" json:"user_id"`
	UserFname    string     `gorm:"column:user_fname" json:"user_fname"`
	UserLname    string     `gorm:"column:user_lname" json:"user_lname"`
	Email        string     `gorm:"column:email;unique" json:"email"`
	Password     string     `gorm:"column:password" json:"-"`
	RoleID       int        `gorm:"column:role_id" json:"role_id"`
	DepartmentID int        `gorm:"column:department_id" json:"department_id"`
	RollNumber   *string    `gorm:"column:roll_number" json:"roll_number,omitempty"`
	Phone        *string    `gorm:"column:phone" json:"phone,omitempty"`
	CreateAt     *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt     *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt     *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`

	// Relations
	Role       Role       `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	Department Department `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
}

type Role struct {
	RoleID   int        `gorm:"primaryKey;column:role_id" json:"role_id"`
	Role     string     `gorm:"column:role" json:"role"`
	CreateAt *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

type Department struct {
	DepartmentID   int        `gorm:"primaryKey;column:department_id" json:"department_id"`
	DepartmentName string     `gorm:"column:department_name" json:"department_name"`
	Code           string     `gorm:"column:code" json:"code"`
	HeadUserID     *int       `gorm:"column:head_user_id" json:"head_user_id,omitempty"`
	CreateAt       *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt       *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt       *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

// TableName overrides
func (User) TableName() string {
	return "users"
}

func (Role) TableName() string {
	return "roles"
}

func (Department) TableName() string {
	return "departments"
}

// FullName returns the display name used in notifications and emails.
func (u *User) FullName() string {
	if u.UserFname == "" {
		return u.UserLname
	}
	if u.UserLname == "" {
		return u.UserFname
	}
	return u.UserFname + " " + u.UserLname
}
