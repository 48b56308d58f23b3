package memory

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Memory is a shared calendar entry. It outlives any single room: only
// removal from the writer's private room soft-deletes it.
type Memory struct {
	ID       uint64 `gorm:"primaryKey"`
	WriterID uint64 `gorm:"index;not null"`

	Name     string `gorm:"not null"`
	Contents string `gorm:"type:text;not null;default:''"`
	Place    string `gorm:"not null;default:''"`

	StartDate time.Time `gorm:"not null"`
	EndDate   time.Time `gorm:"not null"`

	FirstAlarm  *time.Time `gorm:"type:timestamptz"`
	SecondAlarm *time.Time `gorm:"type:timestamptz"`

	BgColor string `gorm:"not null;default:''"`

	// hashtags extracted from Contents
	Tags pq.StringArray `gorm:"type:text[];not null;default:'{}'"`

	Active    bool      `gorm:"not null;default:true;index"`
	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

// RoomLink is one (memory, room) sharing edge.
type RoomLink struct {
	ID       uint64 `gorm:"primaryKey"`
	MemoryID uint64 `gorm:"not null;uniqueIndex:uq_memory_rooms"`
	RoomID   uint64 `gorm:"not null;uniqueIndex:uq_memory_rooms"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
}

func (RoomLink) TableName() string { return "memory_rooms" }

type AttendanceStatus string

const (
	Attend  AttendanceStatus = "ATTEND"
	Absence AttendanceStatus = "ABSENCE"
)

func (s AttendanceStatus) Valid() bool {
	return s == Attend || s == Absence
}

// Attendance is the lazily created (user, memory) edge. No row means
// undecided, not absent.
type Attendance struct {
	ID       uint64           `gorm:"primaryKey"`
	MemoryID uint64           `gorm:"not null;uniqueIndex:uq_user_memories"`
	UserID   uint64           `gorm:"not null;uniqueIndex:uq_user_memories"`
	Status   AttendanceStatus `gorm:"type:varchar(16);not null"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (Attendance) TableName() string { return "user_memories" }

func Active(db *gorm.DB) *gorm.DB {
	return db.Where("memories.active = ?", true)
}
