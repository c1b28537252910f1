package user

import "time"

// User is the credential row. Accounts are never deleted, only
// deactivated, so audit entries stay attributable.
type User struct {
	ID           int64      `gorm:"primaryKey"`
	Username     string     `gorm:"column:username;uniqueIndex;not null"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	Role         string     `gorm:"column:role;not null"`
	FullName     string     `gorm:"column:full_name"`
	Email        string     `gorm:"column:email"`
	IsActive     bool       `gorm:"column:is_active;default:true"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
}

func (User) TableName() string { return "users" }
