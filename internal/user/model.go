package user

import (
	"time"

	"gorm.io/gorm"
)

// User is soft-deleted only: Active=false makes it invisible to every
// read path, but the row stays so old memories remain attributable.
type User struct {
	ID           uint64 `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Name         string `gorm:"not null"`

	Birthday     *string `gorm:"type:varchar(4)"` // MMDD
	Solar        bool    `gorm:"not null;default:true"`
	BirthdayOpen bool    `gorm:"not null;default:true"`

	PushToken *string `gorm:"type:text"`
	Push      bool    `gorm:"not null;default:true"`

	ProfileImageKey *string `gorm:"type:text"`

	// PrivateRoomID is nil only between the two signup phases; after
	// signup it always points at the room this user exclusively owns.
	PrivateRoomID *uint64 `gorm:"index"`

	Active    bool      `gorm:"not null;default:true;index"`
	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

// Active scopes a query to live users. Table-qualified so it composes
// with joins.
func Active(db *gorm.DB) *gorm.DB {
	return db.Where("users.active = ?", true)
}
