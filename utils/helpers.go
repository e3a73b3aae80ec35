package utils

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/Mala4505/tanbeeh-dashboard-backend/models"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

var Validate = validator.New()

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword compares a password with its hash
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// IsValidRole reports whether role is one of the known staff roles
func IsValidRole(role string) bool {
	switch role {
	case models.RoleAdmin, models.RolePrefect, models.RoleDeputyPrefect,
		models.RoleMasool, models.RoleMuaddib, models.RoleLajnatMember:
		return true
	}
	return false
}

// GenerateRandomString produces a hex string of length n
func GenerateRandomString(n int) (string, error) {
	bytes := make([]byte, (n+1)/2)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes)[:n], nil
}
