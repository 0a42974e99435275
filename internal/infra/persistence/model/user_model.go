package model

import (
	"time"

	"github.com/google/uuid"
)

// UserModel mirrors the 'users' table. PostgreSQL generates UUIDs via
// uuid_generate_v7(). The unique index on email is what turns a concurrent
// first login into a detectable conflict instead of a duplicate row.
type UserModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	Email           string    `gorm:"type:varchar(255);unique;not null"`
	Provider        string    `gorm:"type:varchar(50);not null"`
	ProfileImageURL *string   `gorm:"type:text"`
	Gender          *string   `gorm:"type:varchar(50)"`
	AgeRange        *string   `gorm:"type:varchar(50)"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName explicitly sets the table name for GORM.
func (UserModel) TableName() string {
	return "users"
}
