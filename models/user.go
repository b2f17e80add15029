package models

import (
	"context"
	"errors"
	"time"

	"github.com/boxworkshq/boxtrack_backend/config"
	"github.com/boxworkshq/boxtrack_backend/utils"
	"gorm.io/gorm"
)

// User is a dashboard operator. The password gate is deliberately simple:
// the engine behind it is the interesting part.
type User struct {
	ID       int    `gorm:"primaryKey" json:"id"`
	Username string `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Name     string `gorm:"size:128" json:"name"`
	Password string `gorm:"size:128" json:"-"`
	IsActive *bool  `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

var errInvalidCredentials = errors.New("invalid username or password")

// Login verifies credentials and returns a signed session token.
func Login(ctx context.Context, username string, password string) (string, error) {
	db := config.GetDB()

	var user User
	if err := db.WithContext(ctx).Where("username = ?", username).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", errInvalidCredentials
		}
		return "", utils.NewPersistenceError("Login", err)
	}
	if user.IsActive != nil && !*user.IsActive {
		return "", errInvalidCredentials
	}
	if err := utils.ComparePassword(user.Password, password); err != nil {
		return "", errInvalidCredentials
	}

	return utils.JwtGenerate(user.ID, user.Username)
}

// CreateDefaultUser provisions the given operator account if it does not
// exist yet. Used by the seeder.
func CreateDefaultUser(tx *gorm.DB, ctx context.Context, username string, name string, password string) (*User, error) {
	var existing User
	err := tx.WithContext(ctx).Where("username = ?", username).Take(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := User{
		Username: username,
		Name:     name,
		Password: hashed,
		IsActive: utils.NewTrue(),
	}
	if err := tx.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
