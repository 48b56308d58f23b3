package friend

import "time"

// Status of a single directed edge. A friendship between A and B is up
// to two independent rows, (A->B) and (B->A); the pair is usually
// complementary (WAIT/REQUESTED_BY, FRIEND/FRIEND) but may legitimately
// diverge, e.g. A->B WAIT while B->A BLOCK.
type Status string

const (
	StatusWait        Status = "WAIT"
	StatusRequestedBy Status = "REQUESTED_BY"
	StatusFriend      Status = "FRIEND"
	StatusBlock       Status = "BLOCK"
)

func (s Status) Valid() bool {
	switch s {
	case StatusWait, StatusRequestedBy, StatusFriend, StatusBlock:
		return true
	}
	return false
}

// Friend is one directed edge. Edges are hard-deleted, not soft-deleted:
// deleting my edge never touches the other party's edge.
type Friend struct {
	ID       uint64 `gorm:"primaryKey"`
	UserID   uint64 `gorm:"not null;uniqueIndex:uq_friends_pair"`
	FriendID uint64 `gorm:"not null;uniqueIndex:uq_friends_pair"`
	Status   Status `gorm:"type:varchar(16);not null"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}
