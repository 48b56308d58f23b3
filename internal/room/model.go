package room

import (
	"time"

	"gorm.io/gorm"
)

// Room is either a private room (Opened=false, exactly one member, the
// owner, referenced by that user's PrivateRoomID) or a shared room.
// Private rooms never show up in listing queries.
type Room struct {
	ID      uint64 `gorm:"primaryKey"`
	Name    string `gorm:"not null"`
	OwnerID uint64 `gorm:"index;not null"`
	Opened  bool   `gorm:"not null;default:false"`

	Active    bool      `gorm:"not null;default:true;index"`
	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

// Member is one (room, user) membership row.
type Member struct {
	ID     uint64 `gorm:"primaryKey"`
	RoomID uint64 `gorm:"not null;uniqueIndex:uq_room_members"`
	UserID uint64 `gorm:"not null;uniqueIndex:uq_room_members"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
}

func Active(db *gorm.DB) *gorm.DB {
	return db.Where("rooms.active = ?", true)
}
