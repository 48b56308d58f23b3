package friend

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KDS-OurMemory/Server-sub001/internal/fault"
	"github.com/KDS-OurMemory/Server-sub001/internal/notice"
	"github.com/KDS-OurMemory/Server-sub001/internal/notify"
	"github.com/KDS-OurMemory/Server-sub001/internal/user"
)

// Every precondition violation is a distinct, named error so callers
// can render distinct messages. None of them are retryable: they are
// genuine state conflicts, not transient faults.
var (
	ErrEdgeNotFound     = fmt.Errorf("friend edge: %w", fault.NotFound)
	ErrAlreadyRequested = fmt.Errorf("friend request already pending: %w", fault.AlreadyInRelation)
	ErrAlreadyAccepted  = fmt.Errorf("friend request already accepted: %w", fault.AlreadyInRelation)
	ErrAlreadyFriend    = fmt.Errorf("already friend: %w", fault.AlreadyInRelation)
	ErrNotRequested     = fmt.Errorf("no pending request: %w", fault.StateConflict)
	ErrBlocked          = fmt.Errorf("blocked by target: %w", fault.StateConflict)
	ErrStatus           = fmt.Errorf("friend status: %w", fault.StateConflict)
	ErrSelf             = fmt.Errorf("self relation: %w", fault.StateConflict)
	ErrInternal         = fmt.Errorf("friend: %w", fault.Internal)
)

type Service struct {
	DB       *gorm.DB
	Log      *zap.SugaredLogger
	Notifier notify.Notifier
}

// edgeTx loads one directed edge; (nil, nil) when it does not exist.
func edgeTx(tx *gorm.DB, userID, friendID uint64) (*Friend, error) {
	var f Friend
	err := tx.Where("user_id = ? and friend_id = ?", userID, friendID).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Request creates my WAIT edge toward the target and, unless the target
// has blocked me, the target's REQUESTED_BY edge plus an inbox notice.
// A blocked request silently stops after my own edge: the target never
// learns about it.
func (s *Service) Request(ctx context.Context, userID, targetID uint64) (*Friend, error) {
	if userID == targetID {
		return nil, ErrSelf
	}

	var (
		mine      *Friend
		requester *user.User
		notified  bool
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		requester, err = user.GetTx(tx, userID)
		if err != nil {
			return err
		}
		if _, err = user.GetTx(tx, targetID); err != nil {
			return err
		}

		existing, err := edgeTx(tx, userID, targetID)
		if err != nil {
			return err
		}
		if existing != nil {
			switch existing.Status {
			case StatusWait:
				return ErrAlreadyRequested
			case StatusFriend, StatusRequestedBy:
				return ErrAlreadyAccepted
			default:
				return ErrStatus
			}
		}

		mine = &Friend{UserID: userID, FriendID: targetID, Status: StatusWait}
		if err := tx.Create(mine).Error; err != nil {
			return err
		}

		theirs, err := edgeTx(tx, targetID, userID)
		if err != nil {
			return err
		}
		if theirs != nil {
			if theirs.Status == StatusBlock {
				// keep my WAIT edge, write nothing on their side
				return nil
			}
			return ErrAlreadyAccepted
		}

		their := Friend{UserID: targetID, FriendID: userID, Status: StatusRequestedBy}
		if err := tx.Create(&their).Error; err != nil {
			return err
		}
		if err := notice.CreateFriendRequestTx(tx, targetID, userID); err != nil {
			return err
		}
		notified = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if notified {
		s.Notifier.Notify(ctx, targetID, "Friend request",
			fmt.Sprintf("%s sent you a friend request.", requester.Name), nil)
	}
	return mine, nil
}

// Cancel withdraws my pending request. My edge is deleted
// unconditionally once its precondition holds; the target's
// REQUESTED_BY edge and the unread inbox notice go with it, but a
// BLOCK on their side is left untouched.
func (s *Service) Cancel(ctx context.Context, userID, targetID uint64) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		mine, err := edgeTx(tx, userID, targetID)
		if err != nil {
			return err
		}
		switch {
		case mine == nil:
			return ErrStatus
		case mine.Status == StatusFriend || mine.Status == StatusBlock:
			return ErrAlreadyFriend
		case mine.Status != StatusWait:
			return ErrStatus
		}

		theirs, err := edgeTx(tx, targetID, userID)
		if err != nil {
			return err
		}
		switch {
		case theirs == nil:
			return ErrStatus
		case theirs.Status == StatusRequestedBy:
			if err := tx.Delete(theirs).Error; err != nil {
				return err
			}
			if err := notice.DeleteFriendRequestTx(tx, targetID, userID); err != nil {
				return err
			}
		case theirs.Status == StatusBlock:
			// target blocked me after my request; their edge stays
		case theirs.Status == StatusFriend:
			return ErrAlreadyFriend
		default:
			return ErrStatus
		}

		return tx.Delete(mine).Error
	})
}

// Accept completes the handshake: my REQUESTED_BY edge and the
// requester's WAIT edge both become FRIEND, and my request notice is
// marked read.
func (s *Service) Accept(ctx context.Context, userID, requesterID uint64) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		mine, err := edgeTx(tx, userID, requesterID)
		if err != nil {
			return err
		}
		if mine == nil || mine.Status != StatusRequestedBy {
			return ErrNotRequested
		}

		theirs, err := edgeTx(tx, requesterID, userID)
		if err != nil {
			return err
		}
		if theirs == nil || theirs.Status != StatusWait {
			return ErrNotRequested
		}

		if err := tx.Model(mine).Update("status", StatusFriend).Error; err != nil {
			return err
		}
		if err := tx.Model(theirs).Update("status", StatusFriend).Error; err != nil {
			return err
		}
		return notice.MarkFriendRequestReadTx(tx, userID, requesterID)
	})
}

// ReAdd restores my side of a friendship I deleted earlier while the
// other party kept theirs.
func (s *Service) ReAdd(ctx context.Context, userID, targetID uint64) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		theirs, err := edgeTx(tx, targetID, userID)
		if err != nil {
			return err
		}
		switch {
		case theirs == nil:
			return ErrStatus
		case theirs.Status == StatusBlock:
			return ErrBlocked
		case theirs.Status != StatusFriend:
			return ErrStatus
		}

		mine, err := edgeTx(tx, userID, targetID)
		if err != nil {
			return err
		}
		if mine != nil {
			// re-add is only reachable when my side is gone
			s.Log.Errorw("re-add found existing edge",
				"user", userID, "target", targetID, "status", mine.Status)
			return ErrInternal
		}

		return tx.Create(&Friend{UserID: userID, FriendID: targetID, Status: StatusFriend}).Error
	})
}

// PatchStatus overwrites my edge's status only. WAIT and REQUESTED_BY
// are handshake states and cannot be set directly.
func (s *Service) PatchStatus(ctx context.Context, userID, targetID uint64, st Status) error {
	if !st.Valid() || st == StatusWait || st == StatusRequestedBy {
		return ErrStatus
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		mine, err := edgeTx(tx, userID, targetID)
		if err != nil {
			return err
		}
		if mine == nil {
			return ErrEdgeNotFound
		}
		return tx.Model(mine).Update("status", st).Error
	})
}

// Delete removes my edge only; the other party's edge is never touched.
func (s *Service) Delete(ctx context.Context, userID, targetID uint64) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		mine, err := edgeTx(tx, userID, targetID)
		if err != nil {
			return err
		}
		if mine == nil {
			return ErrEdgeNotFound
		}
		if mine.Status != StatusFriend && mine.Status != StatusBlock {
			return ErrStatus
		}
		return tx.Delete(mine).Error
	})
}

// DeleteAllEdgesTx removes every edge touching the user, both
// directions, with no state-machine preconditions. Used by the
// lifecycle coordinator on user deletion.
func DeleteAllEdgesTx(tx *gorm.DB, userID uint64) error {
	return tx.Where("user_id = ? or friend_id = ?", userID, userID).Delete(&Friend{}).Error
}

// Info is one row of the friends projection.
type Info struct {
	User   user.User
	Status Status
}

// Friends lists the users my edges point at, with my edge status.
// Pure projection: never mutates, skips edges to deactivated users.
func (s *Service) Friends(ctx context.Context, userID uint64) ([]Info, error) {
	var edges []Friend
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id asc").
		Find(&edges).Error
	if err != nil {
		return nil, err
	}

	out := make([]Info, 0, len(edges))
	for _, e := range edges {
		u, err := user.GetTx(s.DB.WithContext(ctx), e.FriendID)
		if errors.Is(err, user.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, Info{User: *u, Status: e.Status})
	}
	return out, nil
}

// Filter narrows FindUsers. Zero values mean "no restriction".
type Filter struct {
	UserID uint64
	Name   string
}

// Relation is a user search hit annotated with my edge status toward
// them; nil status means no edge, i.e. no relation rather than an error.
type Relation struct {
	User   user.User
	Status *Status
}

// FindUsers searches active users and annotates each hit with my edge
// status. De-duplicated by construction (unique user rows).
func (s *Service) FindUsers(ctx context.Context, userID uint64, f Filter) ([]Relation, error) {
	q := s.DB.WithContext(ctx).Model(&user.User{}).Scopes(user.Active)
	if f.UserID != 0 {
		q = q.Where("id = ?", f.UserID)
	}
	if f.Name != "" {
		q = q.Where("name = ?", f.Name)
	}

	var users []user.User
	if err := q.Order("id asc").Find(&users).Error; err != nil {
		return nil, err
	}

	out := make([]Relation, 0, len(users))
	for _, u := range users {
		e, err := edgeTx(s.DB.WithContext(ctx), userID, u.ID)
		if err != nil {
			return nil, err
		}
		r := Relation{User: u}
		if e != nil {
			st := e.Status
			r.Status = &st
		}
		out = append(out, r)
	}
	return out, nil
}
