// Package auth owns user credentials and authenticated sessions: who can
// log in, and which live session maps to which user and role.
package auth

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/clinical-records/internal"
	"github.com/frahmantamala/clinical-records/internal/rbac"
)

// User is the domain view of an account. The password hash never leaves
// the repository layer.
type User struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Role        rbac.Role  `json:"role"`
	FullName    string     `json:"full_name"`
	Email       string     `json:"email,omitempty"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

type ServiceAPI interface {
	Login(dto LoginDTO) (string, *User, error)
	Logout(token string) error
	Validate(token string) (*internal.SessionInfo, error)
	Authorize(sess *internal.SessionInfo, action rbac.Action, resource rbac.Resource) (bool, error)

	CreateUser(sess *internal.SessionInfo, dto CreateUserDTO) (*User, error)
	ListUsers(sess *internal.SessionInfo) ([]*User, error)
	SetActive(sess *internal.SessionInfo, userID int64, active bool) error
	ChangePassword(sess *internal.SessionInfo, dto ChangePasswordDTO) error
}

// RepositoryAPI is the credential store contract. Users are never
// deleted, only deactivated.
type RepositoryAPI interface {
	Create(user *User, passwordHash string) error
	GetByUsername(username string) (*User, string, error)
	GetByID(id int64) (*User, string, error)
	List() ([]*User, error)
	SetActive(id int64, active bool) error
	UpdatePassword(id int64, passwordHash string) error
	UpdateLastLogin(id int64, at time.Time) error
}

func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
