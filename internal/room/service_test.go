package room_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KDS-OurMemory/Server-sub001/internal/room"
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

func bootstrap(t *testing.T) (*room.Service, *recordingNotifier, *gorm.DB) {
	t.Helper()
	gdb := testdb.Open(t)
	n := &recordingNotifier{}
	return &room.Service{DB: gdb, Log: zap.NewNop().Sugar(), Notifier: n}, n, gdb
}

func TestCreateAddsOwnerAndMembers(t *testing.T) {
	svc, n, gdb := bootstrap(t)
	ctx := context.Background()
	o := seedUser(t, gdb, "owner")
	m1 := seedUser(t, gdb, "m1")
	m2 := seedUser(t, gdb, "m2")

	r, err := svc.Create(ctx, o, room.CreateInput{Name: "trip", Opened: true, Members: []uint64{m1, m2}})
	require.NoError(t, err)
	require.Equal(t, o, r.OwnerID)

	_, members, err := svc.Find(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, members, 3)

	// added members are notified, the owner is not
	require.ElementsMatch(t, []uint64{m1, m2}, n.targets)
}

func TestCreateUnknownMemberAborts(t *testing.T) {
	svc, _, gdb := bootstrap(t)
	ctx := context.Background()
	o := seedUser(t, gdb, "owner")

	_, err := svc.Create(ctx, o, room.CreateInput{Name: "trip", Members: []uint64{9999}})
	require.ErrorIs(t, err, room.ErrMemberNotFound)

	// no partial room
	var count int64
	require.NoError(t, gdb.Model(&room.Room{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestRecommendOwner(t *testing.T) {
	svc, _, gdb := bootstrap(t)
	ctx := context.Background()
	o := seedUser(t, gdb, "owner")
	m1 := seedUser(t, gdb, "m1")
	outsider := seedUser(t, gdb, "outsider")

	r, err := svc.Create(ctx, o, room.CreateInput{Name: "trip", Members: []uint64{m1}})
	require.NoError(t, err)

	require.ErrorIs(t, svc.RecommendOwner(ctx, r.ID, o), room.ErrAlreadyOwner)
	require.ErrorIs(t, svc.RecommendOwner(ctx, r.ID, outsider), room.ErrMemberNotFound)

	require.NoError(t, svc.RecommendOwner(ctx, r.ID, m1))
	got, _, err := svc.Find(ctx, r.ID)
	require.NoError(t, err)
	require.Equal(t, m1, got.OwnerID)
}

func TestRemoveMemberGuardsOwner(t *testing.T) {
	svc, _, gdb := bootstrap(t)
	ctx := context.Background()
	o := seedUser(t, gdb, "owner")
	m1 := seedUser(t, gdb, "m1")

	r, err := svc.Create(ctx, o, room.CreateInput{Name: "trip", Members: []uint64{m1}})
	require.NoError(t, err)

	// dropping the owner while another member remains would break
	// owner-in-members
	require.ErrorIs(t, room.RemoveMemberTx(gdb, r, o), room.ErrOwnerIsMember)

	require.NoError(t, room.RemoveMemberTx(gdb, r, m1))
}

func TestFindAllSkipsPrivateRooms(t *testing.T) {
	svc, _, gdb := bootstrap(t)
	ctx := context.Background()

	u := user.User{Email: "alice@example.com", PasswordHash: "x", Name: "alice", Active: true}
	require.NoError(t, gdb.Create(&u).Error)

	private, err := room.CreatePrivateTx(gdb, &u)
	require.NoError(t, err)
	require.NoError(t, user.SetPrivateRoomTx(gdb, u.ID, private.ID))

	shared, err := svc.Create(ctx, u.ID, room.CreateInput{Name: "book club", Opened: true})
	require.NoError(t, err)

	rooms, err := svc.FindAll(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	require.Equal(t, shared.ID, rooms[0].ID)
}
