// Package notice is the per-user inbox. Friend requests drop a notice
// for the target; cancel removes it, accept marks it read.
package notice

import (
	"context"
	"strconv"
	"time"

	"gorm.io/gorm"
)

type Type string

const (
	TypeFriendRequest Type = "FRIEND_REQUEST"
)

type Notice struct {
	ID     uint64 `gorm:"primaryKey"`
	UserID uint64 `gorm:"index;not null"`
	Type   Type   `gorm:"type:varchar(32);not null"`

	// Value carries the notice payload; for FRIEND_REQUEST it is the
	// requester's user id.
	Value string `gorm:"type:text;not null"`

	Read      bool      `gorm:"not null;default:false"`
	Active    bool      `gorm:"not null;default:true;index"`
	CreatedAt time.Time `gorm:"not null;default:now()"`
}

func Active(db *gorm.DB) *gorm.DB {
	return db.Where("notices.active = ?", true)
}

type Service struct {
	DB *gorm.DB
}

func (s *Service) List(ctx context.Context, userID uint64) ([]Notice, error) {
	var out []Notice
	err := s.DB.WithContext(ctx).Scopes(Active).
		Where("user_id = ?", userID).
		Order("id desc").
		Find(&out).Error
	return out, err
}

func (s *Service) MarkRead(ctx context.Context, userID, noticeID uint64) error {
	return s.DB.WithContext(ctx).Model(&Notice{}).
		Scopes(Active).
		Where("id = ? and user_id = ?", noticeID, userID).
		Update("read", true).Error
}

// CreateFriendRequestTx drops an inbox notice for the request target.
func CreateFriendRequestTx(tx *gorm.DB, targetID, requesterID uint64) error {
	n := Notice{
		UserID: targetID,
		Type:   TypeFriendRequest,
		Value:  strconv.FormatUint(requesterID, 10),
	}
	return tx.Create(&n).Error
}

// DeleteFriendRequestTx removes the unread request notice a cancel
// leaves dangling. Already-read notices stay.
func DeleteFriendRequestTx(tx *gorm.DB, targetID, requesterID uint64) error {
	return tx.Where(
		"user_id = ? and type = ? and value = ? and read = ?",
		targetID, TypeFriendRequest, strconv.FormatUint(requesterID, 10), false,
	).Delete(&Notice{}).Error
}

// DeleteForUserTx clears the departing user's inbox and withdraws the
// friend-request notices they left in other inboxes, so no notice keeps
// a dangling requester id after the departure cascade.
func DeleteForUserTx(tx *gorm.DB, userID uint64) error {
	if err := tx.Where("user_id = ?", userID).Delete(&Notice{}).Error; err != nil {
		return err
	}
	return tx.Where("type = ? and value = ?",
		TypeFriendRequest, strconv.FormatUint(userID, 10),
	).Delete(&Notice{}).Error
}

// MarkFriendRequestReadTx marks the accepting user's request notice read.
func MarkFriendRequestReadTx(tx *gorm.DB, targetID, requesterID uint64) error {
	return tx.Model(&Notice{}).
		Where("user_id = ? and type = ? and value = ?",
			targetID, TypeFriendRequest, strconv.FormatUint(requesterID, 10)).
		Update("read", true).Error
}
