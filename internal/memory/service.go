package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/KDS-OurMemory/Server-sub001/internal/fault"
	"github.com/KDS-OurMemory/Server-sub001/internal/notify"
	"github.com/KDS-OurMemory/Server-sub001/internal/room"
	"github.com/KDS-OurMemory/Server-sub001/internal/user"
)

var (
	ErrNotFound          = fmt.Errorf("memory: %w", fault.NotFound)
	ErrWriterDeactivated = fmt.Errorf("memory writer deactivated: %w", fault.StateConflict)
	ErrNotWriter         = fmt.Errorf("not the memory writer: %w", fault.StateConflict)
	ErrNotIncludedInRoom = fmt.Errorf("memory not included in room: %w", fault.ReferentialViolation)
	ErrShareTarget       = fmt.Errorf("share target: %w", fault.NotFound)
	ErrPrivateRoom       = fmt.Errorf("room is private: %w", fault.StateConflict)
	ErrBadShareMode      = fmt.Errorf("share mode: %w", fault.StateConflict)
	ErrBadAttendance     = fmt.Errorf("attendance status: %w", fault.StateConflict)
	ErrMissingHome       = fmt.Errorf("writer has no private room: %w", fault.Internal)
)

type Service struct {
	DB       *gorm.DB
	Log      *zap.SugaredLogger
	Notifier notify.Notifier
}

type CreateInput struct {
	Name        string
	Contents    string
	Place       string
	StartDate   time.Time
	EndDate     time.Time
	FirstAlarm  *time.Time
	SecondAlarm *time.Time
	BgColor     string

	// TargetRoomID, when non-zero, additionally shares the memory into
	// that room at creation time.
	TargetRoomID uint64
}

// Create persists a memory, links it to the writer's private room
// unconditionally, and optionally into one target room. Returns the
// room the memory was "added to" for client bookkeeping: the target
// room when given, the private room otherwise.
func (s *Service) Create(ctx context.Context, writerID uint64, in CreateInput) (*Memory, uint64, error) {
	var (
		m           *Memory
		addedRoomID uint64
		writer      *user.User
		notifyIDs   []uint64
		roomName    string
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		writer, err = user.GetTx(tx, writerID)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				return ErrWriterDeactivated
			}
			return err
		}
		if writer.PrivateRoomID == nil {
			s.Log.Errorw("active user without private room", "user", writerID)
			return ErrMissingHome
		}

		m = &Memory{
			WriterID:    writerID,
			Name:        in.Name,
			Contents:    in.Contents,
			Place:       in.Place,
			StartDate:   in.StartDate,
			EndDate:     in.EndDate,
			FirstAlarm:  in.FirstAlarm,
			SecondAlarm: in.SecondAlarm,
			BgColor:     in.BgColor,
			Tags:        pq.StringArray(ExtractTags(in.Contents)),
		}
		if err := tx.Create(m).Error; err != nil {
			return err
		}

		if err := LinkRoomTx(tx, m.ID, *writer.PrivateRoomID); err != nil {
			return err
		}
		addedRoomID = *writer.PrivateRoomID

		if in.TargetRoomID != 0 && in.TargetRoomID != *writer.PrivateRoomID {
			r, err := room.GetTx(tx, in.TargetRoomID)
			if err != nil {
				return err
			}
			private, err := room.IsPrivateTx(tx, r.ID)
			if err != nil {
				return err
			}
			if private {
				// someone else's private room; never a share target
				return ErrPrivateRoom
			}
			if err := LinkRoomTx(tx, m.ID, r.ID); err != nil {
				return err
			}
			addedRoomID = r.ID
			roomName = r.Name

			members, err := room.MembersTx(tx, r.ID)
			if err != nil {
				return err
			}
			for _, mem := range members {
				if mem.UserID != writerID {
					notifyIDs = append(notifyIDs, mem.UserID)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	for _, id := range notifyIDs {
		s.Notifier.Notify(ctx, id, "New memory",
			fmt.Sprintf("%s added %q to %q.", writer.Name, m.Name, roomName), nil)
	}
	return m, addedRoomID, nil
}

type ShareMode string

const (
	// one new two-person room per target user
	ShareUsers ShareMode = "USERS"
	// a single new room containing all target users
	ShareUserGroup ShareMode = "USER_GROUP"
	// direct links into existing rooms
	ShareRooms ShareMode = "ROOMS"
)

// Share links a memory into more rooms. All-or-nothing: one bad target
// aborts the whole call with no links created.
func (s *Service) Share(ctx context.Context, memoryID, actorID uint64, mode ShareMode, targets []uint64) error {
	var (
		actor     *user.User
		m         *Memory
		notifyIDs []uint64
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		actor, err = user.GetTx(tx, actorID)
		if err != nil {
			return err
		}
		m, err = GetTx(tx, memoryID)
		if err != nil {
			return err
		}

		switch mode {
		case ShareUsers:
			for _, targetID := range targets {
				target, err := user.GetTx(tx, targetID)
				if err != nil {
					if errors.Is(err, user.ErrNotFound) {
						return ErrShareTarget
					}
					return err
				}
				r, _, err := room.CreateTx(tx, actorID, room.CreateInput{
					Name:    actor.Name + ", " + target.Name,
					Opened:  false,
					Members: []uint64{targetID},
				})
				if err != nil {
					return err
				}
				if err := LinkRoomTx(tx, m.ID, r.ID); err != nil {
					return err
				}
				notifyIDs = append(notifyIDs, targetID)
			}

		case ShareUserGroup:
			for _, targetID := range targets {
				if _, err := user.GetTx(tx, targetID); err != nil {
					if errors.Is(err, user.ErrNotFound) {
						return ErrShareTarget
					}
					return err
				}
			}
			r, _, err := room.CreateTx(tx, actorID, room.CreateInput{
				Name:    actor.Name + "'s group",
				Opened:  false,
				Members: targets,
			})
			if err != nil {
				return err
			}
			if err := LinkRoomTx(tx, m.ID, r.ID); err != nil {
				return err
			}
			notifyIDs = append(notifyIDs, targets...)

		case ShareRooms:
			for _, roomID := range targets {
				r, err := room.GetTx(tx, roomID)
				if err != nil {
					return err
				}
				private, err := room.IsPrivateTx(tx, r.ID)
				if err != nil {
					return err
				}
				if private {
					return ErrPrivateRoom
				}
				if err := LinkRoomTx(tx, m.ID, r.ID); err != nil {
					return err
				}
				members, err := room.MembersTx(tx, r.ID)
				if err != nil {
					return err
				}
				for _, mem := range members {
					if mem.UserID != actorID {
						notifyIDs = append(notifyIDs, mem.UserID)
					}
				}
			}

		default:
			return ErrBadShareMode
		}
		return nil
	})
	if err != nil {
		return err
	}

	seen := map[uint64]struct{}{}
	for _, id := range notifyIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		s.Notifier.Notify(ctx, id, "Memory shared",
			fmt.Sprintf("%s shared %q with you.", actor.Name, m.Name), nil)
	}
	return nil
}

// SetAttendance upserts the (user, memory) attendance row: the first
// call creates it, later calls overwrite the status.
func (s *Service) SetAttendance(ctx context.Context, memoryID, userID uint64, st AttendanceStatus) error {
	if !st.Valid() {
		return ErrBadAttendance
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := GetTx(tx, memoryID); err != nil {
			return err
		}
		if _, err := user.GetTx(tx, userID); err != nil {
			return err
		}

		a := Attendance{MemoryID: memoryID, UserID: userID, Status: st}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "memory_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"status":     st,
				"updated_at": time.Now(),
			}),
		}).Create(&a).Error
	})
}

// Find loads a memory in a room context. Attendance is restricted to
// members of the viewing room; with roomID 0 (private context) all
// rows are returned.
func (s *Service) Find(ctx context.Context, memoryID, roomID uint64) (*Memory, []Attendance, error) {
	db := s.DB.WithContext(ctx)

	m, err := GetTx(db, memoryID)
	if err != nil {
		return nil, nil, err
	}

	var attends []Attendance
	q := db.Model(&Attendance{}).Where("user_memories.memory_id = ?", memoryID)
	if roomID != 0 {
		linked, err := linkedTx(db, memoryID, roomID)
		if err != nil {
			return nil, nil, err
		}
		if !linked {
			return nil, nil, ErrNotIncludedInRoom
		}
		q = q.Joins("join room_members on room_members.user_id = user_memories.user_id").
			Where("room_members.room_id = ?", roomID)
	}
	if err := q.Order("user_memories.id asc").Find(&attends).Error; err != nil {
		return nil, nil, err
	}
	return m, attends, nil
}

// FindAll lists the active memories reachable from any active room the
// user belongs to, the private room included.
func (s *Service) FindAll(ctx context.Context, userID uint64) ([]Memory, error) {
	var out []Memory
	err := s.DB.WithContext(ctx).Model(&Memory{}).Scopes(Active).
		Distinct("memories.*").
		Joins("join memory_rooms on memory_rooms.memory_id = memories.id").
		Joins("join rooms on rooms.id = memory_rooms.room_id and rooms.active = true").
		Joins("join room_members on room_members.room_id = rooms.id").
		Where("room_members.user_id = ?", userID).
		Order("memories.start_date asc").
		Find(&out).Error
	return out, err
}

type UpdateInput struct {
	Name        *string
	Contents    *string
	Place       *string
	StartDate   *time.Time
	EndDate     *time.Time
	FirstAlarm  *time.Time
	SecondAlarm *time.Time
	BgColor     *string
}

// Update edits memory fields; only the writer may edit.
func (s *Service) Update(ctx context.Context, memoryID, actorID uint64, in UpdateInput) (*Memory, error) {
	var out *Memory
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := GetTx(tx, memoryID)
		if err != nil {
			return err
		}
		if m.WriterID != actorID {
			return ErrNotWriter
		}

		updates := map[string]any{}
		if in.Name != nil {
			updates["name"] = *in.Name
		}
		if in.Contents != nil {
			updates["contents"] = *in.Contents
			updates["tags"] = pq.StringArray(ExtractTags(*in.Contents))
		}
		if in.Place != nil {
			updates["place"] = *in.Place
		}
		if in.StartDate != nil {
			updates["start_date"] = *in.StartDate
		}
		if in.EndDate != nil {
			updates["end_date"] = *in.EndDate
		}
		if in.FirstAlarm != nil {
			updates["first_alarm"] = *in.FirstAlarm
		}
		if in.SecondAlarm != nil {
			updates["second_alarm"] = *in.SecondAlarm
		}
		if in.BgColor != nil {
			updates["bg_color"] = *in.BgColor
		}
		if len(updates) > 0 {
			if err := tx.Model(m).Updates(updates).Error; err != nil {
				return err
			}
		}
		out = m
		return nil
	})
	return out, err
}

// Delete removes a memory from one room context. In the acting user's
// private room the memory is purged outright and disappears from every
// room it was shared to; in any other room only that one link is
// removed and the memory stays alive elsewhere.
func (s *Service) Delete(ctx context.Context, memoryID, actorID, roomID uint64) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		actor, err := user.GetTx(tx, actorID)
		if err != nil {
			return err
		}
		m, err := GetTx(tx, memoryID)
		if err != nil {
			return err
		}

		if actor.PrivateRoomID != nil && roomID == *actor.PrivateRoomID {
			// only removal from the writer's own private room purges
			if m.WriterID != actorID {
				return ErrNotWriter
			}
			return purgeTx(tx, m.ID)
		}

		linked, err := linkedTx(tx, memoryID, roomID)
		if err != nil {
			return err
		}
		if !linked {
			return ErrNotIncludedInRoom
		}
		return tx.Where("memory_id = ? and room_id = ?", memoryID, roomID).
			Delete(&RoomLink{}).Error
	})
}

// GetTx resolves an active memory inside the caller's transaction.
func GetTx(tx *gorm.DB, id uint64) (*Memory, error) {
	var m Memory
	err := tx.Scopes(Active).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func LinkRoomTx(tx *gorm.DB, memoryID, roomID uint64) error {
	return tx.Create(&RoomLink{MemoryID: memoryID, RoomID: roomID}).Error
}

func linkedTx(tx *gorm.DB, memoryID, roomID uint64) (bool, error) {
	var n int64
	err := tx.Model(&RoomLink{}).
		Where("memory_id = ? and room_id = ?", memoryID, roomID).
		Count(&n).Error
	return n > 0, err
}

// purgeTx soft-deletes one memory and drops its attendance rows.
// Sharing links stay behind as orphaned-but-invisible rows; every
// memory read filters on Active.
func purgeTx(tx *gorm.DB, memoryID uint64) error {
	if err := tx.Where("memory_id = ?", memoryID).Delete(&Attendance{}).Error; err != nil {
		return err
	}
	return tx.Model(&Memory{}).Where("id = ?", memoryID).Update("active", false).Error
}

// PurgeHomedTx soft-deletes every memory the owner homed in the given
// private room. This is the private-room deletion cascade; shared-room
// deletion never touches memory rows, and a foreign memory somehow
// linked to the room is left alone.
func PurgeHomedTx(tx *gorm.DB, privateRoomID, ownerID uint64) error {
	var ids []uint64
	err := tx.Model(&RoomLink{}).
		Joins("join memories on memories.id = memory_rooms.memory_id").
		Where("memory_rooms.room_id = ? and memories.writer_id = ?", privateRoomID, ownerID).
		Pluck("memory_rooms.memory_id", &ids).Error
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := purgeTx(tx, id); err != nil {
			return err
		}
	}
	return nil
}
