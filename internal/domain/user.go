package domain

import "time"

// User представляет зарегистрированного пользователя сервиса.
type User struct {
	ID           int64     `gorm:"primaryKey;column:id" json:"id"`
	Username     string    `gorm:"column:username;not null;uniqueIndex" json:"username"`
	Email        string    `gorm:"column:email;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"column:password_hash;not null" json:"-"`
	IsActive     bool      `gorm:"column:is_active;default:true" json:"is_active"`
	IsAdmin      bool      `gorm:"column:is_admin;default:false" json:"is_admin"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`

	// Relationships
	Links    []Link    `gorm:"foreignKey:OwnerID" json:"-"`
	Projects []Project `gorm:"foreignKey:OwnerID" json:"-"`
}

// TableName возвращает название таблицы для GORM
func (User) TableName() string {
	return "users"
}
