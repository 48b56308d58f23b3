// Package lifecycle orchestrates the cross-entity cascades. No entity
// owns these flows, so they live in one coordinator that sequences the
// identity, friend, room and memory stores inside a single transaction
// per compound operation: a concurrent reader never observes a
// half-applied cascade.
package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KDS-OurMemory/Server-sub001/internal/fault"
	"github.com/KDS-OurMemory/Server-sub001/internal/friend"
	"github.com/KDS-OurMemory/Server-sub001/internal/memory"
	"github.com/KDS-OurMemory/Server-sub001/internal/notice"
	"github.com/KDS-OurMemory/Server-sub001/internal/room"
	"github.com/KDS-OurMemory/Server-sub001/internal/user"
)

var ErrEmailTaken = fmt.Errorf("email already used: %w", fault.AlreadyInRelation)

type Coordinator struct {
	DB  *gorm.DB
	Log *zap.SugaredLogger
}

type SignUpInput struct {
	Email        string
	PasswordHash string
	Name         string
	Birthday     *string
	Solar        bool
	BirthdayOpen bool
	PushToken    *string
}

// SignUp creates the user row, the private room, and backfills the
// private-room pointer in one transaction, so a crash can never leave
// an active user without a private room.
func (c *Coordinator) SignUp(ctx context.Context, in SignUpInput) (userID, privateRoomID uint64, err error) {
	err = c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u := &user.User{
			Email:        in.Email,
			PasswordHash: in.PasswordHash,
			Name:         in.Name,
			Birthday:     in.Birthday,
			Solar:        in.Solar,
			BirthdayOpen: in.BirthdayOpen,
			PushToken:    in.PushToken,
			Active:       true,
			Push:         true,
		}
		if err := user.CreateTx(tx, u); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrEmailTaken
			}
			return err
		}

		r, err := room.CreatePrivateTx(tx, u)
		if err != nil {
			return err
		}
		if err := user.SetPrivateRoomTx(tx, u.ID, r.ID); err != nil {
			return err
		}

		userID, privateRoomID = u.ID, r.ID
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	c.Log.Infow("signed up", "user", userID, "privateRoom", privateRoomID)
	return userID, privateRoomID, nil
}

// DeleteUser runs the departure cascade: friend edges first, then every
// room the user belongs to (ownership handoff, membership removal,
// private-room purge), and only then the soft delete. The order
// matters: the cleanup reads filter on Active and would miss an
// already-deactivated user.
func (c *Coordinator) DeleteUser(ctx context.Context, userID uint64) error {
	err := c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := user.GetTx(tx, userID)
		if err != nil {
			return err
		}

		if err := friend.DeleteAllEdgesTx(tx, userID); err != nil {
			return err
		}
		if err := notice.DeleteForUserTx(tx, userID); err != nil {
			return err
		}

		rooms, err := room.OfUserTx(tx, userID)
		if err != nil {
			return err
		}
		for i := range rooms {
			r := &rooms[i]

			if u.PrivateRoomID != nil && r.ID == *u.PrivateRoomID {
				if err := room.RemoveMemberTx(tx, r, userID); err != nil {
					return err
				}
				if err := deleteRoomTx(tx, r.ID, userID); err != nil {
					return err
				}
				continue
			}

			if r.OwnerID == userID {
				members, err := room.MembersTx(tx, r.ID)
				if err != nil {
					return err
				}
				if len(members) > 1 {
					if err := room.TransferOwnershipTx(tx, r, 0); err != nil {
						return err
					}
				}
			}

			if err := room.RemoveMemberTx(tx, r, userID); err != nil {
				return err
			}

			// deactivate a room nobody is left in
			remaining, err := room.MembersTx(tx, r.ID)
			if err != nil {
				return err
			}
			if len(remaining) == 0 {
				if err := room.DeactivateTx(tx, r.ID); err != nil {
					return err
				}
			}
		}

		return user.SoftDeleteTx(tx, userID)
	})
	if err != nil {
		return err
	}
	c.Log.Infow("deleted user", "user", userID)
	return nil
}

// DeleteRoom deactivates a room. Deleting one's private room is the
// one path that purges memories: every memory homed there disappears
// from every room it was shared to. Shared-room deletion never touches
// memory rows; the room just drops out of all room-scoped queries.
func (c *Coordinator) DeleteRoom(ctx context.Context, roomID, actorID uint64) error {
	return c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		actor, err := user.GetTx(tx, actorID)
		if err != nil {
			return err
		}
		if _, err := room.GetTx(tx, roomID); err != nil {
			return err
		}

		if actor.PrivateRoomID != nil && roomID == *actor.PrivateRoomID {
			return deleteRoomTx(tx, roomID, actorID)
		}
		return deleteRoomTx(tx, roomID, 0)
	})
}

// deleteRoomTx deactivates a room. privateOwnerID is non-zero only when
// the room is that user's private room, which triggers the memory purge.
func deleteRoomTx(tx *gorm.DB, roomID, privateOwnerID uint64) error {
	if privateOwnerID != 0 {
		if err := memory.PurgeHomedTx(tx, roomID, privateOwnerID); err != nil {
			return err
		}
	}
	return room.DeactivateTx(tx, roomID)
}

// ExitRoom removes the user from a room without deleting it. An owner
// leaving a room with other members hands ownership off first, so
// owner-in-members holds at every observable point; candidateID 0
// picks the first remaining member. Exiting one's private room is
// equivalent to deleting it.
func (c *Coordinator) ExitRoom(ctx context.Context, roomID, userID, candidateID uint64) error {
	return c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := user.GetTx(tx, userID)
		if err != nil {
			return err
		}
		r, err := room.GetTx(tx, roomID)
		if err != nil {
			return err
		}

		ok, err := room.IsMemberTx(tx, roomID, userID)
		if err != nil {
			return err
		}
		if !ok {
			return room.ErrMemberNotFound
		}

		if u.PrivateRoomID != nil && roomID == *u.PrivateRoomID {
			if err := deleteRoomTx(tx, roomID, userID); err != nil {
				return err
			}
			return room.RemoveMemberTx(tx, r, userID)
		}

		if r.OwnerID == userID {
			members, err := room.MembersTx(tx, roomID)
			if err != nil {
				return err
			}
			if len(members) > 1 {
				if err := room.TransferOwnershipTx(tx, r, candidateID); err != nil {
					return err
				}
			}
		}

		if err := room.RemoveMemberTx(tx, r, userID); err != nil {
			return err
		}

		// deactivate a room nobody is left in
		remaining, err := room.MembersTx(tx, roomID)
		if err != nil {
			return err
		}
		if len(remaining) == 0 {
			return room.DeactivateTx(tx, roomID)
		}
		return nil
	})
}
