package models

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type User struct {
	BaseUUIDModel
	Login       string  `gorm:"type:varchar(255);uniqueIndex;not null" json:"login"`
	Email       *string `gorm:"type:varchar(255)"                      json:"email"`
	DisplayName string  `gorm:"type:varchar(255)"                      json:"displayName"`
	Password    string  `gorm:"type:varchar(255);not null"             json:"-"`
}

func (User) TableName() string {
	return "users"
}

// BeforeCreate stores the bcrypt hash in place of a plain password.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.Password == "" {
		return nil
	}

	if _, err := bcrypt.Cost([]byte(u.Password)); err == nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hash)
	return nil
}

func (u User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}

// NormalizeLogin is the canonical form a login is stored and looked up in.
func NormalizeLogin(login string) string {
	return strings.ToLower(strings.TrimSpace(login))
}

type LoginRequest struct {
	Login    string `json:"login"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Login       string  `json:"login"       validate:"required,max=255"`
	Password    string  `json:"password"    validate:"required,min=8,max=72"`
	Email       *string `json:"email"       validate:"omitempty,email"`
	DisplayName string  `json:"displayName" validate:"max=255"`
}
