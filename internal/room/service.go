package room

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KDS-OurMemory/Server-sub001/internal/fault"
	"github.com/KDS-OurMemory/Server-sub001/internal/notify"
	"github.com/KDS-OurMemory/Server-sub001/internal/user"
)

var (
	ErrNotFound       = fmt.Errorf("room: %w", fault.NotFound)
	ErrMemberNotFound = fmt.Errorf("room member: %w", fault.NotFound)
	ErrAlreadyOwner   = fmt.Errorf("already owner: %w", fault.StateConflict)
	ErrOwnerIsMember  = fmt.Errorf("owner must remain a member: %w", fault.ReferentialViolation)
)

type Service struct {
	DB       *gorm.DB
	Log      *zap.SugaredLogger
	Notifier notify.Notifier
}

type CreateInput struct {
	Name    string
	Opened  bool
	Members []uint64 // additional member ids, owner excluded
}

// Create allocates a shared room. Every requested member must resolve
// to an active user; one bad id aborts the whole creation so a partial
// room is never visible.
func (s *Service) Create(ctx context.Context, ownerID uint64, in CreateInput) (*Room, error) {
	var (
		r     *Room
		added []uint64
		owner *user.User
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		owner, err = user.GetTx(tx, ownerID)
		if err != nil {
			return err
		}
		r, added, err = CreateTx(tx, ownerID, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, id := range added {
		s.Notifier.Notify(ctx, id, "New room",
			fmt.Sprintf("%s added you to %q.", owner.Name, r.Name), nil)
	}
	return r, nil
}

// CreateTx allocates a room with its owner membership and resolves
// every extra member, all inside the caller's transaction.
func CreateTx(tx *gorm.DB, ownerID uint64, in CreateInput) (*Room, []uint64, error) {
	r := &Room{Name: in.Name, OwnerID: ownerID, Opened: in.Opened}
	if err := tx.Create(r).Error; err != nil {
		return nil, nil, err
	}
	if err := AddMemberTx(tx, r.ID, ownerID); err != nil {
		return nil, nil, err
	}

	var added []uint64
	for _, id := range in.Members {
		if id == ownerID {
			continue
		}
		if _, err := user.GetTx(tx, id); err != nil {
			if errors.Is(err, user.ErrNotFound) {
				return nil, nil, ErrMemberNotFound
			}
			return nil, nil, err
		}
		if err := AddMemberTx(tx, r.ID, id); err != nil {
			return nil, nil, err
		}
		added = append(added, id)
	}
	return r, added, nil
}

// CreatePrivateTx allocates the single-member private room created
// once per signup. The caller stores the returned id on the user row.
func CreatePrivateTx(tx *gorm.DB, owner *user.User) (*Room, error) {
	r := &Room{Name: owner.Name, OwnerID: owner.ID, Opened: false}
	if err := tx.Create(r).Error; err != nil {
		return nil, err
	}
	if err := AddMemberTx(tx, r.ID, owner.ID); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) Find(ctx context.Context, roomID uint64) (*Room, []user.User, error) {
	r, err := GetTx(s.DB.WithContext(ctx), roomID)
	if err != nil {
		return nil, nil, err
	}

	var members []user.User
	err = s.DB.WithContext(ctx).Model(&user.User{}).Scopes(user.Active).
		Joins("join room_members on room_members.user_id = users.id").
		Where("room_members.room_id = ?", roomID).
		Order("users.id asc").
		Find(&members).Error
	if err != nil {
		return nil, nil, err
	}
	return r, members, nil
}

// FindAll lists the active rooms the user belongs to. Private rooms are
// excluded: they are reachable only through the owner's PrivateRoomID.
func (s *Service) FindAll(ctx context.Context, userID uint64) ([]Room, error) {
	var out []Room
	err := s.DB.WithContext(ctx).Model(&Room{}).Scopes(Active).
		Joins("join room_members on room_members.room_id = rooms.id").
		Where("room_members.user_id = ?", userID).
		Where("rooms.id not in (select private_room_id from users where private_room_id is not null)").
		Order("rooms.id desc").
		Find(&out).Error
	return out, err
}

type UpdateInput struct {
	Name   *string
	Opened *bool
}

func (s *Service) Update(ctx context.Context, roomID uint64, in UpdateInput) (*Room, error) {
	var out *Room
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := GetTx(tx, roomID)
		if err != nil {
			return err
		}

		updates := map[string]any{}
		if in.Name != nil {
			updates["name"] = *in.Name
		}
		if in.Opened != nil {
			updates["opened"] = *in.Opened
		}
		if len(updates) > 0 {
			if err := tx.Model(r).Updates(updates).Error; err != nil {
				return err
			}
		}
		out = r
		return nil
	})
	return out, err
}

// RecommendOwner reassigns the room owner to an explicit candidate.
func (s *Service) RecommendOwner(ctx context.Context, roomID, candidateID uint64) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := GetTx(tx, roomID)
		if err != nil {
			return err
		}
		return TransferOwnershipTx(tx, r, candidateID)
	})
}

// TransferOwnershipTx moves ownership to the candidate, or to the first
// remaining member other than the current owner when candidateID is 0.
// Explicit handoff and deletion-forced handoff share this one path so
// the owner-in-members invariant is written once.
func TransferOwnershipTx(tx *gorm.DB, r *Room, candidateID uint64) error {
	if candidateID == 0 {
		var m Member
		err := tx.Where("room_id = ? and user_id <> ?", r.ID, r.OwnerID).
			Order("id asc").First(&m).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		if err != nil {
			return err
		}
		candidateID = m.UserID
	} else {
		if candidateID == r.OwnerID {
			return ErrAlreadyOwner
		}
		ok, err := IsMemberTx(tx, r.ID, candidateID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrMemberNotFound
		}
	}

	if err := tx.Model(r).Update("owner_id", candidateID).Error; err != nil {
		return err
	}
	return nil
}

// GetTx resolves an active room inside the caller's transaction.
func GetTx(tx *gorm.DB, roomID uint64) (*Room, error) {
	var r Room
	err := tx.Scopes(Active).Where("id = ?", roomID).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// IsPrivateTx reports whether the room is some user's private room.
// Private rooms are never valid sharing targets.
func IsPrivateTx(tx *gorm.DB, roomID uint64) (bool, error) {
	var n int64
	err := tx.Model(&user.User{}).
		Where("private_room_id = ?", roomID).
		Count(&n).Error
	return n > 0, err
}

func AddMemberTx(tx *gorm.DB, roomID, userID uint64) error {
	return tx.Create(&Member{RoomID: roomID, UserID: userID}).Error
}

// RemoveMemberTx drops a membership row. Removing the current owner
// while other members remain would break owner-in-members; callers
// must transfer ownership first.
func RemoveMemberTx(tx *gorm.DB, r *Room, userID uint64) error {
	if r.OwnerID == userID {
		var others int64
		err := tx.Model(&Member{}).
			Where("room_id = ? and user_id <> ?", r.ID, userID).
			Count(&others).Error
		if err != nil {
			return err
		}
		if others > 0 {
			return ErrOwnerIsMember
		}
	}
	return tx.Where("room_id = ? and user_id = ?", r.ID, userID).Delete(&Member{}).Error
}

func IsMemberTx(tx *gorm.DB, roomID, userID uint64) (bool, error) {
	var n int64
	err := tx.Model(&Member{}).
		Where("room_id = ? and user_id = ?", roomID, userID).
		Count(&n).Error
	return n > 0, err
}

// MembersTx lists membership rows in insertion order; the deterministic
// order backs the arbitrary-successor pick on ownership handoff.
func MembersTx(tx *gorm.DB, roomID uint64) ([]Member, error) {
	var out []Member
	err := tx.Where("room_id = ?", roomID).Order("id asc").Find(&out).Error
	return out, err
}

// OfUserTx lists every active room the user belongs to, private room
// included. Lifecycle cleanup iterates this.
func OfUserTx(tx *gorm.DB, userID uint64) ([]Room, error) {
	var out []Room
	err := tx.Model(&Room{}).Scopes(Active).
		Joins("join room_members on room_members.room_id = rooms.id").
		Where("room_members.user_id = ?", userID).
		Order("rooms.id asc").
		Find(&out).Error
	return out, err
}

// DeactivateTx soft-deletes the room row only; cascades are the
// lifecycle coordinator's concern.
func DeactivateTx(tx *gorm.DB, roomID uint64) error {
	return tx.Model(&Room{}).Where("id = ?", roomID).Update("active", false).Error
}
