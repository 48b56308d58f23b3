package db

import (
	"fmt"

	"github.com/KDS-OurMemory/Server-sub001/internal/friend"
	"github.com/KDS-OurMemory/Server-sub001/internal/jobs"
	"github.com/KDS-OurMemory/Server-sub001/internal/memory"
	"github.com/KDS-OurMemory/Server-sub001/internal/notice"
	"github.com/KDS-OurMemory/Server-sub001/internal/room"
	"github.com/KDS-OurMemory/Server-sub001/internal/user"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	// Tables
	if err := gdb.AutoMigrate(
		&user.User{},
		&friend.Friend{},
		&room.Room{},
		&room.Member{},
		&memory.Memory{},
		&memory.RoomLink{},
		&memory.Attendance{},
		&notice.Notice{},
		&jobs.Job{},
	); err != nil {
		return err
	}

	// Unique pair constraints. These turn racing double-inserts
	// (two simultaneous friend requests, duplicate membership or
	// sharing links) into caught constraint violations instead of
	// silent duplication.
	stmts := []string{
		`create unique index if not exists uq_friends_pair on friends(user_id, friend_id);`,
		`create unique index if not exists uq_room_members on room_members(room_id, user_id);`,
		`create unique index if not exists uq_memory_rooms on memory_rooms(memory_id, room_id);`,
		`create unique index if not exists uq_user_memories on user_memories(memory_id, user_id);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	// Tag filter (GIN for text[])
	if err := gdb.Exec(`create index if not exists idx_memories_tags on memories using gin (tags);`).Error; err != nil {
		return err
	}

	// Helpful indexes
	stmts = []string{
		`create index if not exists idx_room_members_user on room_members(user_id);`,
		`create index if not exists idx_memory_rooms_room on memory_rooms(room_id);`,
		`create index if not exists idx_notices_user_read on notices(user_id, read);`,
		`create index if not exists idx_jobs_due on jobs(status, run_at);`,
		`create index if not exists idx_jobs_lock on jobs(status, locked_at);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}
