package domain

import "time"

// Project группирует ссылки пользователя.
type Project struct {
	ID          int64     `gorm:"primaryKey;column:id" json:"id"`
	Name        string    `gorm:"column:name;not null;index" json:"name"`
	Description *string   `gorm:"column:description;type:text" json:"description,omitempty"`
	OwnerID     int64     `gorm:"column:owner_id;not null;index" json:"owner_id"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`

	// Relationships
	Links []Link `gorm:"foreignKey:ProjectID" json:"-"`
}

// TableName возвращает название таблицы для GORM
func (Project) TableName() string {
	return "projects"
}
