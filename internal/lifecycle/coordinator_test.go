package lifecycle

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KDS-OurMemory/Server-sub001/internal/friend"
	"github.com/KDS-OurMemory/Server-sub001/internal/memory"
	"github.com/KDS-OurMemory/Server-sub001/internal/notice"
	"github.com/KDS-OurMemory/Server-sub001/internal/room"
	"github.com/KDS-OurMemory/Server-sub001/internal/testdb"
	"github.com/KDS-OurMemory/Server-sub001/internal/user"
)

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, uint64, string, string, map[string]string) {}

type fixture struct {
	db       *gorm.DB
	coord    *Coordinator
	users    *user.Service
	friends  *friend.Service
	rooms    *room.Service
	memories *memory.Service
}

func bootstrap(t *testing.T) *fixture {
	t.Helper()
	gdb := testdb.Open(t)
	log := zap.NewNop().Sugar()
	return &fixture{
		db:       gdb,
		coord:    &Coordinator{DB: gdb, Log: log},
		users:    &user.Service{DB: gdb, Log: log},
		friends:  &friend.Service{DB: gdb, Log: log, Notifier: nopNotifier{}},
		rooms:    &room.Service{DB: gdb, Log: log, Notifier: nopNotifier{}},
		memories: &memory.Service{DB: gdb, Log: log, Notifier: nopNotifier{}},
	}
}

func (f *fixture) signUp(t *testing.T, name string) (userID, privateRoomID uint64) {
	t.Helper()
	userID, privateRoomID, err := f.coord.SignUp(context.Background(), SignUpInput{
		Email:        fmt.Sprintf("%s@example.com", name),
		PasswordHash: "x",
		Name:         name,
	})
	require.NoError(t, err)
	return userID, privateRoomID
}

func (f *fixture) createMemory(t *testing.T, writerID, targetRoomID uint64, name string) *memory.Memory {
	t.Helper()
	m, _, err := f.memories.Create(context.Background(), writerID, memory.CreateInput{
		Name:         name,
		StartDate:    time.Now(),
		EndDate:      time.Now().Add(time.Hour),
		TargetRoomID: targetRoomID,
	})
	require.NoError(t, err)
	return m
}

func TestSignUpPrivateRoomInvariant(t *testing.T) {
	f := bootstrap(t)
	ctx := context.Background()

	uid, prid := f.signUp(t, "alice")

	u, err := f.users.Get(ctx, uid)
	require.NoError(t, err)
	require.NotNil(t, u.PrivateRoomID)
	require.Equal(t, prid, *u.PrivateRoomID)

	r, members, err := f.rooms.Find(ctx, prid)
	require.NoError(t, err)
	require.Equal(t, uid, r.OwnerID)
	require.False(t, r.Opened)
	require.Len(t, members, 1)
	require.Equal(t, uid, members[0].ID)

	// private rooms never show up in listings
	rooms, err := f.rooms.FindAll(ctx, uid)
	require.NoError(t, err)
	require.Empty(t, rooms)
}

func TestSignUpDuplicateEmail(t *testing.T) {
	f := bootstrap(t)
	f.signUp(t, "alice")

	_, _, err := f.coord.SignUp(context.Background(), SignUpInput{
		Email:        "alice@example.com",
		PasswordHash: "x",
		Name:         "alice again",
	})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestMemoryDefaultsToPrivateRoom(t *testing.T) {
	f := bootstrap(t)
	uid, prid := f.signUp(t, "alice")

	m := f.createMemory(t, uid, 0, "dinner")

	var links []memory.RoomLink
	require.NoError(t, f.db.Where("memory_id = ?", m.ID).Find(&links).Error)
	require.Len(t, links, 1)
	require.Equal(t, prid, links[0].RoomID)
}

func TestDeleteUserTransfersOwnership(t *testing.T) {
	f := bootstrap(t)
	ctx := context.Background()
	o, _ := f.signUp(t, "owner")
	m1, _ := f.signUp(t, "m1")
	m2, _ := f.signUp(t, "m2")

	shared, err := f.rooms.Create(ctx, o, room.CreateInput{
		Name: "trip", Opened: true, Members: []uint64{m1, m2},
	})
	require.NoError(t, err)

	_, err = f.friends.Request(ctx, o, m1)
	require.NoError(t, err)
	require.NoError(t, f.friends.Accept(ctx, m1, o))

	require.NoError(t, f.coord.DeleteUser(ctx, o))

	// ownership moved to the first remaining member, deterministically
	r, members, err := f.rooms.Find(ctx, shared.ID)
	require.NoError(t, err)
	require.Equal(t, m1, r.OwnerID)
	require.Len(t, members, 2)
	for _, m := range members {
		require.NotEqual(t, o, m.ID)
	}

	// friend edges on both sides are gone
	var edges int64
	require.NoError(t, f.db.Model(&friend.Friend{}).
		Where("user_id = ? or friend_id = ?", o, o).Count(&edges).Error)
	require.Zero(t, edges)

	// the user is invisible afterwards
	_, err = f.users.Get(ctx, o)
	require.ErrorIs(t, err, user.ErrNotFound)
}

func TestDeleteUserDeactivatesSoloRooms(t *testing.T) {
	f := bootstrap(t)
	ctx := context.Background()
	a, _ := f.signUp(t, "alice")

	solo, err := f.rooms.Create(ctx, a, room.CreateInput{Name: "solo", Opened: true})
	require.NoError(t, err)

	require.NoError(t, f.coord.DeleteUser(ctx, a))

	// no active empty room with a deactivated owner is left behind
	_, _, err = f.rooms.Find(ctx, solo.ID)
	require.ErrorIs(t, err, room.ErrNotFound)
}

func TestDeleteUserPrunesNotices(t *testing.T) {
	f := bootstrap(t)
	ctx := context.Background()
	a, _ := f.signUp(t, "alice")
	b, _ := f.signUp(t, "bob")
	c, _ := f.signUp(t, "carol")

	// alice has an inbox notice from bob and left one in carol's inbox
	_, err := f.friends.Request(ctx, b, a)
	require.NoError(t, err)
	_, err = f.friends.Request(ctx, a, c)
	require.NoError(t, err)

	require.NoError(t, f.coord.DeleteUser(ctx, a))

	var count int64
	require.NoError(t, f.db.Model(&notice.Notice{}).Where("user_id = ?", a).Count(&count).Error)
	require.Zero(t, count)

	// carol's inbox no longer references the departed requester
	require.NoError(t, f.db.Model(&notice.Notice{}).Where("user_id = ?", c).Count(&count).Error)
	require.Zero(t, count)
}

func TestDeleteUserPurgesPrivateMemories(t *testing.T) {
	f := bootstrap(t)
	ctx := context.Background()
	uid, _ := f.signUp(t, "alice")

	m := f.createMemory(t, uid, 0, "solo plan")

	require.NoError(t, f.coord.DeleteUser(ctx, uid))

	var got memory.Memory
	require.NoError(t, f.db.Where("id = ?", m.ID).First(&got).Error)
	require.False(t, got.Active)
}

func TestDeleteSharedRoomLeavesMemoryAlive(t *testing.T) {
	f := bootstrap(t)
	ctx := context.Background()
	a, prid := f.signUp(t, "alice")
	b, _ := f.signUp(t, "bob")

	shared, err := f.rooms.Create(ctx, a, room.CreateInput{
		Name: "weekend", Opened: true, Members: []uint64{b},
	})
	require.NoError(t, err)

	m := f.createMemory(t, a, shared.ID, "bbq")

	require.NoError(t, f.coord.DeleteRoom(ctx, shared.ID, a))

	// memory stays active and reachable through the private room
	var got memory.Memory
	require.NoError(t, f.db.Where("id = ?", m.ID).First(&got).Error)
	require.True(t, got.Active)

	var links int64
	require.NoError(t, f.db.Model(&memory.RoomLink{}).
		Where("memory_id = ? and room_id = ?", m.ID, prid).Count(&links).Error)
	require.EqualValues(t, 1, links)

	// the room itself is gone from reads
	_, _, err = f.rooms.Find(ctx, shared.ID)
	require.ErrorIs(t, err, room.ErrNotFound)
}

func TestDeletePrivateRoomPurgesEverywhere(t *testing.T) {
	f := bootstrap(t)
	ctx := context.Background()
	a, prid := f.signUp(t, "alice")
	b, _ := f.signUp(t, "bob")

	shared, err := f.rooms.Create(ctx, a, room.CreateInput{
		Name: "weekend", Opened: true, Members: []uint64{b},
	})
	require.NoError(t, err)

	m := f.createMemory(t, a, shared.ID, "bbq")

	require.NoError(t, f.coord.DeleteRoom(ctx, prid, a))

	// purged everywhere, the shared room included
	_, _, err = f.memories.Find(ctx, m.ID, shared.ID)
	require.ErrorIs(t, err, memory.ErrNotFound)
}

func TestExitRoomOwnerHandsOff(t *testing.T) {
	f := bootstrap(t)
	ctx := context.Background()
	o, _ := f.signUp(t, "owner")
	m1, _ := f.signUp(t, "m1")
	m2, _ := f.signUp(t, "m2")

	shared, err := f.rooms.Create(ctx, o, room.CreateInput{
		Name: "club", Opened: true, Members: []uint64{m1, m2},
	})
	require.NoError(t, err)

	require.NoError(t, f.coord.ExitRoom(ctx, shared.ID, o, m2))

	r, members, err := f.rooms.Find(ctx, shared.ID)
	require.NoError(t, err)
	require.Equal(t, m2, r.OwnerID)
	require.Len(t, members, 2)
}

func TestExitRoomLastMemberDeactivates(t *testing.T) {
	f := bootstrap(t)
	ctx := context.Background()
	a, _ := f.signUp(t, "alice")

	shared, err := f.rooms.Create(ctx, a, room.CreateInput{Name: "solo", Opened: true})
	require.NoError(t, err)

	require.NoError(t, f.coord.ExitRoom(ctx, shared.ID, a, 0))

	_, _, err = f.rooms.Find(ctx, shared.ID)
	require.ErrorIs(t, err, room.ErrNotFound)
}

func TestExitRoomNonMember(t *testing.T) {
	f := bootstrap(t)
	ctx := context.Background()
	a, _ := f.signUp(t, "alice")
	b, _ := f.signUp(t, "bob")

	shared, err := f.rooms.Create(ctx, a, room.CreateInput{Name: "solo", Opened: true})
	require.NoError(t, err)

	require.ErrorIs(t, f.coord.ExitRoom(ctx, shared.ID, b, 0), room.ErrMemberNotFound)
}
