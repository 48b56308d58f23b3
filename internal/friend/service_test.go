package friend_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KDS-OurMemory/Server-sub001/internal/friend"
	"github.com/KDS-OurMemory/Server-sub001/internal/notice"
	"github.com/KDS-OurMemory/Server-sub001/internal/testdb"
	"github.com/KDS-OurMemory/Server-sub001/internal/user"
)

type recordingNotifier struct {
	targets []uint64
}

func (n *recordingNotifier) Notify(_ context.Context, userID uint64, _, _ string, _ map[string]string) {
	n.targets = append(n.targets, userID)
}

func seedUser(t *testing.T, gdb *gorm.DB, name string) uint64 {
	t.Helper()
	u := user.User{
		Email:        fmt.Sprintf("%s@example.com", name),
		PasswordHash: "x",
		Name:         name,
		Active:       true,
		Push:         true,
	}
	require.NoError(t, gdb.Create(&u).Error)
	return u.ID
}

func bootstrap(t *testing.T) (*friend.Service, *recordingNotifier, *gorm.DB) {
	t.Helper()
	gdb := testdb.Open(t)
	n := &recordingNotifier{}
	return &friend.Service{DB: gdb, Log: zap.NewNop().Sugar(), Notifier: n}, n, gdb
}

func edgeStatus(t *testing.T, gdb *gorm.DB, userID, friendID uint64) (friend.Status, bool) {
	t.Helper()
	e, err := friend.EdgeTx(gdb, userID, friendID)
	require.NoError(t, err)
	if e == nil {
		return "", false
	}
	return e.Status, true
}

func TestRequestCreatesHandshake(t *testing.T) {
	svc, n, gdb := bootstrap(t)
	ctx := context.Background()
	a := seedUser(t, gdb, "alice")
	b := seedUser(t, gdb, "bob")

	mine, err := svc.Request(ctx, a, b)
	require.NoError(t, err)
	require.Equal(t, friend.StatusWait, mine.Status)

	st, ok := edgeStatus(t, gdb, b, a)
	require.True(t, ok)
	require.Equal(t, friend.StatusRequestedBy, st)

	// one inbox notice for the target
	var notices []notice.Notice
	require.NoError(t, gdb.Where("user_id = ?", b).Find(&notices).Error)
	require.Len(t, notices, 1)
	require.Equal(t, notice.TypeFriendRequest, notices[0].Type)
	require.False(t, notices[0].Read)

	// one notification to the target
	require.Equal(t, []uint64{b}, n.targets)
}

func TestRequestAgainstBlock(t *testing.T) {
	svc, n, gdb := bootstrap(t)
	ctx := context.Background()
	a := seedUser(t, gdb, "alice")
	b := seedUser(t, gdb, "bob")

	require.NoError(t, gdb.Create(&friend.Friend{UserID: b, FriendID: a, Status: friend.StatusBlock}).Error)

	mine, err := svc.Request(ctx, a, b)
	require.NoError(t, err)
	require.Equal(t, friend.StatusWait, mine.Status)

	// their BLOCK edge untouched, no notice, no notification
	st, ok := edgeStatus(t, gdb, b, a)
	require.True(t, ok)
	require.Equal(t, friend.StatusBlock, st)

	var count int64
	require.NoError(t, gdb.Model(&notice.Notice{}).Where("user_id = ?", b).Count(&count).Error)
	require.Zero(t, count)
	require.Empty(t, n.targets)
}

func TestRequestDuplicate(t *testing.T) {
	svc, _, gdb := bootstrap(t)
	ctx := context.Background()
	a := seedUser(t, gdb, "alice")
	b := seedUser(t, gdb, "bob")

	_, err := svc.Request(ctx, a, b)
	require.NoError(t, err)

	_, err = svc.Request(ctx, a, b)
	require.ErrorIs(t, err, friend.ErrAlreadyRequested)
}

func TestRequestSelf(t *testing.T) {
	svc, _, gdb := bootstrap(t)
	a := seedUser(t, gdb, "alice")

	_, err := svc.Request(context.Background(), a, a)
	require.ErrorIs(t, err, friend.ErrSelf)
}

func TestAcceptHandshake(t *testing.T) {
	svc, _, gdb := bootstrap(t)
	ctx := context.Background()
	a := seedUser(t, gdb, "alice")
	b := seedUser(t, gdb, "bob")

	_, err := svc.Request(ctx, a, b)
	require.NoError(t, err)
	require.NoError(t, svc.Accept(ctx, b, a))

	stA, _ := edgeStatus(t, gdb, a, b)
	stB, _ := edgeStatus(t, gdb, b, a)
	require.Equal(t, friend.StatusFriend, stA)
	require.Equal(t, friend.StatusFriend, stB)

	// both sides see each other as FRIEND
	for _, pair := range [][2]uint64{{a, b}, {b, a}} {
		infos, err := svc.Friends(ctx, pair[0])
		require.NoError(t, err)
		require.Len(t, infos, 1)
		require.Equal(t, pair[1], infos[0].User.ID)
		require.Equal(t, friend.StatusFriend, infos[0].Status)
	}

	// the request notice is marked read
	var n notice.Notice
	require.NoError(t, gdb.Where("user_id = ?", b).First(&n).Error)
	require.True(t, n.Read)
}

func TestAcceptWithoutRequest(t *testing.T) {
	svc, _, gdb := bootstrap(t)
	a := seedUser(t, gdb, "alice")
	b := seedUser(t, gdb, "bob")

	require.ErrorIs(t, svc.Accept(context.Background(), b, a), friend.ErrNotRequested)
}

func TestCancelRemovesBothPendingEdges(t *testing.T) {
	svc, _, gdb := bootstrap(t)
	ctx := context.Background()
	a := seedUser(t, gdb, "alice")
	b := seedUser(t, gdb, "bob")

	_, err := svc.Request(ctx, a, b)
	require.NoError(t, err)
	require.NoError(t, svc.Cancel(ctx, a, b))

	_, ok := edgeStatus(t, gdb, a, b)
	require.False(t, ok)
	_, ok = edgeStatus(t, gdb, b, a)
	require.False(t, ok)

	var count int64
	require.NoError(t, gdb.Model(&notice.Notice{}).Where("user_id = ?", b).Count(&count).Error)
	require.Zero(t, count)
}

func TestCancelAfterAccept(t *testing.T) {
	svc, _, gdb := bootstrap(t)
	ctx := context.Background()
	a := seedUser(t, gdb, "alice")
	b := seedUser(t, gdb, "bob")

	_, err := svc.Request(ctx, a, b)
	require.NoError(t, err)
	require.NoError(t, svc.Accept(ctx, b, a))

	require.ErrorIs(t, svc.Cancel(ctx, a, b), friend.ErrAlreadyFriend)
}

func TestDeleteIsAsymmetric(t *testing.T) {
	svc, _, gdb := bootstrap(t)
	ctx := context.Background()
	a := seedUser(t, gdb, "alice")
	b := seedUser(t, gdb, "bob")

	_, err := svc.Request(ctx, a, b)
	require.NoError(t, err)
	require.NoError(t, svc.Accept(ctx, b, a))

	require.NoError(t, svc.Delete(ctx, a, b))

	_, ok := edgeStatus(t, gdb, a, b)
	require.False(t, ok)

	// the other party's edge is untouched
	st, ok := edgeStatus(t, gdb, b, a)
	require.True(t, ok)
	require.Equal(t, friend.StatusFriend, st)
}

func TestDeletePendingEdge(t *testing.T) {
	svc, _, gdb := bootstrap(t)
	ctx := context.Background()
	a := seedUser(t, gdb, "alice")
	b := seedUser(t, gdb, "bob")

	_, err := svc.Request(ctx, a, b)
	require.NoError(t, err)

	// WAIT edges are cancelled, not deleted
	require.ErrorIs(t, svc.Delete(ctx, a, b), friend.ErrStatus)
}

func TestReAddRestoresMySide(t *testing.T) {
	svc, _, gdb := bootstrap(t)
	ctx := context.Background()
	a := seedUser(t, gdb, "alice")
	b := seedUser(t, gdb, "bob")

	_, err := svc.Request(ctx, a, b)
	require.NoError(t, err)
	require.NoError(t, svc.Accept(ctx, b, a))
	require.NoError(t, svc.Delete(ctx, a, b))

	require.NoError(t, svc.ReAdd(ctx, a, b))

	st, ok := edgeStatus(t, gdb, a, b)
	require.True(t, ok)
	require.Equal(t, friend.StatusFriend, st)
}

func TestReAddBlocked(t *testing.T) {
	svc, _, gdb := bootstrap(t)
	a := seedUser(t, gdb, "alice")
	b := seedUser(t, gdb, "bob")

	require.NoError(t, gdb.Create(&friend.Friend{UserID: b, FriendID: a, Status: friend.StatusBlock}).Error)
	require.ErrorIs(t, svc.ReAdd(context.Background(), a, b), friend.ErrBlocked)
}

func TestPatchStatusRejectsHandshakeStates(t *testing.T) {
	svc, _, gdb := bootstrap(t)
	ctx := context.Background()
	a := seedUser(t, gdb, "alice")
	b := seedUser(t, gdb, "bob")

	_, err := svc.Request(ctx, a, b)
	require.NoError(t, err)
	require.NoError(t, svc.Accept(ctx, b, a))

	require.ErrorIs(t, svc.PatchStatus(ctx, a, b, friend.StatusWait), friend.ErrStatus)
	require.ErrorIs(t, svc.PatchStatus(ctx, a, b, friend.StatusRequestedBy), friend.ErrStatus)

	require.NoError(t, svc.PatchStatus(ctx, a, b, friend.StatusBlock))
	st, _ := edgeStatus(t, gdb, a, b)
	require.Equal(t, friend.StatusBlock, st)

	// the other side is untouched by a patch
	st, _ = edgeStatus(t, gdb, b, a)
	require.Equal(t, friend.StatusFriend, st)
}

func TestFindUsersAnnotatesRelation(t *testing.T) {
	svc, _, gdb := bootstrap(t)
	ctx := context.Background()
	a := seedUser(t, gdb, "alice")
	b := seedUser(t, gdb, "bob")
	c := seedUser(t, gdb, "carol")

	_, err := svc.Request(ctx, a, b)
	require.NoError(t, err)

	rels, err := svc.FindUsers(ctx, a, friend.Filter{UserID: b})
	require.NoError(t, err)
	require.Len(t, rels, 1)
	require.NotNil(t, rels[0].Status)
	require.Equal(t, friend.StatusWait, *rels[0].Status)

	// no edge means nil status, not an error
	rels, err = svc.FindUsers(ctx, a, friend.Filter{UserID: c})
	require.NoError(t, err)
	require.Len(t, rels, 1)
	require.Nil(t, rels[0].Status)
}
