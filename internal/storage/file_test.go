package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macfarley/dream-weaver-backend/internal"
)

func newTestFileStorage(t *testing.T) (*FileStorage, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewFileStorage(
		filepath.Join(dir, "users.json"),
		filepath.Join(dir, "bedrooms.json"),
		filepath.Join(dir, "sessions.json"),
		internal.NewNopLogger(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, dir
}

func testSession(id, userID string, createdAt time.Time) *internal.SleepSession {
	return &internal.SleepSession{
		ID:        id,
		UserID:    userID,
		BedroomID: "b1",
		WakeUps:   []internal.WakeUp{},
		CreatedAt: createdAt,
	}
}

func TestFileStorage_UserRoundTrip(t *testing.T) {
	s, _ := newTestFileStorage(t)
	ctx := context.Background()

	user := &internal.User{ID: "u1", Username: "dreamer", PasswordHash: "x", Role: internal.RoleUser, JoinedAt: time.Now()}
	require.NoError(t, s.CreateUser(ctx, user))

	got, err := s.GetUserByUsername(ctx, "dreamer")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)

	_, err = s.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.CreateUser(ctx, &internal.User{ID: "u2", Username: "dreamer"})
	assert.Error(t, err)
}

func TestFileStorage_SessionsNewestFirst(t *testing.T) {
	s, _ := newTestFileStorage(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		id := string(rune('a' + i))
		require.NoError(t, s.CreateSession(ctx, testSession(id, "u1", base.AddDate(0, 0, i))))
	}

	all, err := s.ListSessionsByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, all, 7)
	assert.Equal(t, "g", all[0].ID)
	assert.Equal(t, "a", all[6].ID)

	recent, err := s.FindRecentSessionsByUser(ctx, "u1", 5)
	require.NoError(t, err)
	require.Len(t, recent, 5)
	assert.Equal(t, "g", recent[0].ID)
	assert.Equal(t, "c", recent[4].ID)
}

func TestFileStorage_AppendWakeUp(t *testing.T) {
	s, _ := newTestFileStorage(t)
	ctx := context.Background()

	require.NoError(t, s.CreateSession(ctx, testSession("s1", "u1", time.Now())))

	updated, err := s.AppendWakeUp(ctx, "s1", internal.WakeUp{SleepQuality: 7, AwakenAt: time.Now()})
	require.NoError(t, err)
	require.Len(t, updated.WakeUps, 1)

	updated, err = s.AppendWakeUp(ctx, "s1", internal.WakeUp{SleepQuality: 9, FinishedSleeping: true, AwakenAt: time.Now()})
	require.NoError(t, err)
	require.Len(t, updated.WakeUps, 2)
	assert.Equal(t, 7, updated.WakeUps[0].SleepQuality)
	assert.Equal(t, 9, updated.WakeUps[1].SleepQuality)

	_, err = s.AppendWakeUp(ctx, "missing", internal.WakeUp{SleepQuality: 5})
	assert.ErrorIs(t, err, ErrNotFound)

	// The returned session is a copy; mutating it must not touch the store.
	updated.WakeUps[0].SleepQuality = 1
	stored, err := s.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 7, stored.WakeUps[0].SleepQuality)
}

func TestFileStorage_PersistsAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	usersFile := filepath.Join(dir, "users.json")
	bedroomsFile := filepath.Join(dir, "bedrooms.json")
	sessionsFile := filepath.Join(dir, "sessions.json")
	ctx := context.Background()

	s, err := NewFileStorage(usersFile, bedroomsFile, sessionsFile, internal.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, s.CreateUser(ctx, &internal.User{ID: "u1", Username: "dreamer", PasswordHash: "hash123", JoinedAt: time.Now()}))
	require.NoError(t, s.CreateBedroom(ctx, &internal.Bedroom{ID: "b1", OwnerID: "u1", Name: "Main", CreatedAt: time.Now()}))
	sess := testSession("s1", "u1", time.Now())
	require.NoError(t, s.CreateSession(ctx, sess))
	_, err = s.AppendWakeUp(ctx, "s1", internal.WakeUp{SleepQuality: 6, AwakenAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, s.Close()) // flushes

	reloaded, err := NewFileStorage(usersFile, bedroomsFile, sessionsFile, internal.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = reloaded.Close() })

	user, err := reloaded.GetUserByUsername(ctx, "dreamer")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "hash123", user.PasswordHash)

	got, err := reloaded.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got.WakeUps, 1)
	assert.Equal(t, 6, got.WakeUps[0].SleepQuality)

	count, err := reloaded.CountSessionsByBedroom(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestFileStorage_BedroomDelete(t *testing.T) {
	s, _ := newTestFileStorage(t)
	ctx := context.Background()

	require.NoError(t, s.CreateBedroom(ctx, &internal.Bedroom{ID: "b1", OwnerID: "u1", CreatedAt: time.Now()}))
	require.NoError(t, s.DeleteBedroom(ctx, "b1"))
	assert.ErrorIs(t, s.DeleteBedroom(ctx, "b1"), ErrNotFound)
}

func TestFileStorage_AppendWakeUpDuringSave(t *testing.T) {
	s, _ := newTestFileStorage(t)
	ctx := context.Background()

	require.NoError(t, s.CreateSession(ctx, testSession("s1", "u1", time.Now())))

	// Appends mutate the stored session's wake_ups slice; flushing must
	// snapshot it rather than marshal the shared slice concurrently.
	const appends = 200
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < appends; i++ {
			_, err := s.AppendWakeUp(ctx, "s1", internal.WakeUp{SleepQuality: 5, AwakenAt: time.Now()})
			assert.NoError(t, err)
		}
	}()
	for i := 0; i < 50; i++ {
		assert.NoError(t, s.saveSessions())
	}
	wg.Wait()
	require.NoError(t, s.saveSessions())

	got, err := s.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, got.WakeUps, appends)

	sessions, err := decodeFile[internal.SleepSession](s.sessionsFile)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Len(t, sessions[0].WakeUps, appends)
}

func TestFileStorage_FlushLeavesNoTempFiles(t *testing.T) {
	s, dir := newTestFileStorage(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, &internal.User{ID: "u1", Username: "dreamer", JoinedAt: time.Now()}))
	require.NoError(t, s.CreateSession(ctx, testSession("s1", "u1", time.Now())))
	require.NoError(t, s.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-")
	}

	sessions, err := decodeFile[internal.SleepSession](filepath.Join(dir, "sessions.json"))
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}
