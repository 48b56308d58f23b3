package user

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KDS-OurMemory/Server-sub001/internal/fault"
)

var ErrNotFound = fmt.Errorf("user: %w", fault.NotFound)

// Service is a pure keyed store over users. No cascading logic lives
// here; compound operations belong to the lifecycle coordinator.
type Service struct {
	DB  *gorm.DB
	Log *zap.SugaredLogger
}

func (s *Service) Get(ctx context.Context, id uint64) (*User, error) {
	return GetTx(s.DB.WithContext(ctx), id)
}

// GetTx resolves an active user inside the caller's transaction.
func GetTx(tx *gorm.DB, id uint64) (*User, error) {
	var u User
	err := tx.Scopes(Active).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := s.DB.WithContext(ctx).Scopes(Active).Where("email = ?", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

type UpdateInput struct {
	Name         *string
	Birthday     *string
	Solar        *bool
	BirthdayOpen *bool
	Push         *bool
}

func (s *Service) UpdateProfile(ctx context.Context, id uint64, in UpdateInput) (*User, error) {
	var out *User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := GetTx(tx, id)
		if err != nil {
			return err
		}

		updates := map[string]any{}
		if in.Name != nil {
			updates["name"] = *in.Name
		}
		if in.Birthday != nil {
			updates["birthday"] = *in.Birthday
		}
		if in.Solar != nil {
			updates["solar"] = *in.Solar
		}
		if in.BirthdayOpen != nil {
			updates["birthday_open"] = *in.BirthdayOpen
		}
		if in.Push != nil {
			updates["push"] = *in.Push
		}
		if len(updates) == 0 {
			out = u
			return nil
		}

		if err := tx.Model(u).Updates(updates).Error; err != nil {
			return err
		}
		out = u
		return nil
	})
	return out, err
}

func (s *Service) SetPushToken(ctx context.Context, id uint64, token string) error {
	res := s.DB.WithContext(ctx).Model(&User{}).
		Scopes(Active).Where("id = ?", id).
		Update("push_token", token)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) SetProfileImage(ctx context.Context, id uint64, key *string) error {
	res := s.DB.WithContext(ctx).Model(&User{}).
		Scopes(Active).Where("id = ?", id).
		Update("profile_image_key", key)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateTx inserts a new user row. Part of the two-phase signup; the
// lifecycle coordinator runs both phases in one transaction.
func CreateTx(tx *gorm.DB, u *User) error {
	return tx.Create(u).Error
}

// SetPrivateRoomTx backfills the private-room pointer created in the
// second signup phase.
func SetPrivateRoomTx(tx *gorm.DB, id, roomID uint64) error {
	res := tx.Model(&User{}).Where("id = ?", id).Update("private_room_id", roomID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDeleteTx flips Active off. Must run after all friend and room
// cleanup: those reads filter on Active and would miss the user.
func SoftDeleteTx(tx *gorm.DB, id uint64) error {
	res := tx.Model(&User{}).Where("id = ? and active = ?", id, true).Update("active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
