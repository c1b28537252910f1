package store

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/clinical-records/internal"
	"github.com/frahmantamala/clinical-records/internal/auth"
	datamodel "github.com/frahmantamala/clinical-records/internal/core/datamodel/user"
	"github.com/frahmantamala/clinical-records/internal/rbac"
)

// UserRepository implements auth.RepositoryAPI using GORM.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) auth.RepositoryAPI {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *auth.User, passwordHash string) error {
	row := datamodel.User{
		Username:     user.Username,
		PasswordHash: passwordHash,
		Role:         string(user.Role),
		FullName:     user.FullName,
		Email:        user.Email,
		IsActive:     user.IsActive,
		CreatedAt:    time.Now(),
	}

	if err := r.db.Create(&row).Error; err != nil {
		if isDuplicate(err) {
			return internal.ErrDuplicateUser
		}
		return err
	}

	user.ID = row.ID
	user.CreatedAt = row.CreatedAt
	return nil
}

func (r *UserRepository) GetByUsername(username string) (*auth.User, string, error) {
	var row datamodel.User
	err := r.db.Where("username = ?", username).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", internal.ErrUserNotFound
		}
		return nil, "", err
	}
	return toDomain(&row), row.PasswordHash, nil
}

func (r *UserRepository) GetByID(id int64) (*auth.User, string, error) {
	var row datamodel.User
	err := r.db.Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", internal.ErrUserNotFound
		}
		return nil, "", err
	}
	return toDomain(&row), row.PasswordHash, nil
}

func (r *UserRepository) List() ([]*auth.User, error) {
	var rows []datamodel.User
	if err := r.db.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	users := make([]*auth.User, 0, len(rows))
	for i := range rows {
		users = append(users, toDomain(&rows[i]))
	}
	return users, nil
}

func (r *UserRepository) SetActive(id int64, active bool) error {
	return r.db.Model(&datamodel.User{}).
		Where("id = ?", id).
		Update("is_active", active).Error
}

func (r *UserRepository) UpdatePassword(id int64, passwordHash string) error {
	return r.db.Model(&datamodel.User{}).
		Where("id = ?", id).
		Update("password_hash", passwordHash).Error
}

func (r *UserRepository) UpdateLastLogin(id int64, at time.Time) error {
	return r.db.Model(&datamodel.User{}).
		Where("id = ?", id).
		Update("last_login_at", at).Error
}

func toDomain(row *datamodel.User) *auth.User {
	return &auth.User{
		ID:          row.ID,
		Username:    row.Username,
		Role:        rbac.Role(row.Role),
		FullName:    row.FullName,
		Email:       row.Email,
		IsActive:    row.IsActive,
		CreatedAt:   row.CreatedAt,
		LastLoginAt: row.LastLoginAt,
	}
}

// isDuplicate covers both the gorm translated error and the raw driver
// message for the sqlite and postgres backends.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
