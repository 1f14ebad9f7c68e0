package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"parkspot-backend/internal/apperr"
	"parkspot-backend/internal/db"
	"parkspot-backend/internal/model"
)

// newTestStore opens a fresh in-memory SQLite database with the full
// schema. Each test gets its own named database so state never leaks.
func newTestStore(t *testing.T) Store {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))

	t.Cleanup(func() {
		sqlDB, err := gormDB.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return NewGormStore(gormDB)
}

func newRecord(userID string, createdAt time.Time) *model.ParkingRecord {
	return &model.ParkingRecord{
		ID:         uuid.NewString(),
		UserID:     userID,
		Level:      "2",
		SlotNumber: "47",
		Latitude:   1.2345,
		Longitude:  3.4567,
		Elevation:  10.0,
		CreatedAt:  createdAt,
	}
}

func TestSaveThenList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := newRecord("user-a", time.Now().UTC())
	require.NoError(t, s.SaveRecord(ctx, rec))

	records, err := s.ListRecords(ctx, "user-a")
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0]
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "2", got.Level)
	assert.Equal(t, "47", got.SlotNumber)
	assert.Equal(t, 1.2345, got.Latitude)
	assert.Equal(t, 3.4567, got.Longitude)
	assert.Equal(t, 10.0, got.Elevation)
	assert.Nil(t, got.LeftAt, "a freshly saved record must not be departed")
}

func TestListOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	r1 := newRecord("user-a", base)
	r2 := newRecord("user-a", base.Add(10*time.Minute))
	r3 := newRecord("user-a", base.Add(20*time.Minute))
	// Insert out of order on purpose.
	for _, r := range []*model.ParkingRecord{r2, r1, r3} {
		require.NoError(t, s.SaveRecord(ctx, r))
	}

	records, err := s.ListRecords(ctx, "user-a")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, r3.ID, records[0].ID)
	assert.Equal(t, r2.ID, records[1].ID)
	assert.Equal(t, r1.ID, records[2].ID)
}

func TestListScopedToUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRecord(ctx, newRecord("user-a", time.Now().UTC())))
	require.NoError(t, s.SaveRecord(ctx, newRecord("user-b", time.Now().UTC())))

	records, err := s.ListRecords(ctx, "user-a")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "user-a", records[0].UserID)

	empty, err := s.ListRecords(ctx, "user-c")
	require.NoError(t, err)
	assert.Empty(t, empty, "no records is a valid, non-error result")
}

func TestMarkDepartedIsOneWay(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := newRecord("user-a", time.Now().UTC())
	require.NoError(t, s.SaveRecord(ctx, rec))

	first := time.Now().UTC().Truncate(time.Second)
	updated, err := s.MarkDeparted(ctx, rec.ID, first)
	require.NoError(t, err)
	require.NotNil(t, updated.LeftAt)
	assert.WithinDuration(t, first, *updated.LeftAt, time.Second)

	// All other fields untouched.
	assert.Equal(t, rec.Level, updated.Level)
	assert.Equal(t, rec.SlotNumber, updated.SlotNumber)
	assert.Equal(t, rec.Latitude, updated.Latitude)

	// A second call must not move the timestamp.
	again, err := s.MarkDeparted(ctx, rec.ID, first.Add(time.Hour))
	require.NoError(t, err)
	require.NotNil(t, again.LeftAt)
	assert.WithinDuration(t, first, *again.LeftAt, time.Second)
}

func TestMarkDepartedUnknownID(t *testing.T) {
	s := newTestStore(t)

	_, err := s.MarkDeparted(context.Background(), "no-such-record", time.Now().UTC())
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

func TestDeleteRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := newRecord("user-a", time.Now().UTC())
	keep := newRecord("user-a", time.Now().UTC())
	require.NoError(t, s.SaveRecord(ctx, rec))
	require.NoError(t, s.SaveRecord(ctx, keep))

	require.NoError(t, s.DeleteRecord(ctx, rec.ID))

	records, err := s.ListRecords(ctx, "user-a")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, keep.ID, records[0].ID)

	err = s.DeleteRecord(ctx, rec.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err), "deleting twice must report a missing record")
}

func TestProfileLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &model.Profile{
		UserID:       uuid.NewString(),
		Name:         "Alice",
		Email:        "alice@example.com",
		PasswordHash: "$2a$10$fakefakefakefakefakefake",
	}
	require.NoError(t, s.CreateProfile(ctx, p))

	byEmail, err := s.ProfileByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, p.UserID, byEmail.UserID)

	_, err = s.ProfileByEmail(ctx, "nobody@example.com")
	assert.True(t, apperr.IsNotFound(err))

	updated, err := s.UpdateProfile(ctx, p.UserID, "Alice B", "alice.b@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice B", updated.Name)
	assert.Equal(t, "alice.b@example.com", updated.Email)

	// The store reflects the update on a fresh read.
	byID, err := s.ProfileByID(ctx, p.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Alice B", byID.Name)

	_, err = s.UpdateProfile(ctx, "no-such-user", "X", "x@example.com")
	assert.True(t, apperr.IsNotFound(err))
}

func TestSubscriptions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sub := &model.PushSubscription{
		Endpoint:  "https://example.com/push/1",
		UserID:    "user-a",
		P256DH:    "key",
		Auth:      "auth",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.UpsertSubscription(ctx, sub))

	// Re-registering the same endpoint replaces the keys.
	sub.P256DH = "rotated"
	require.NoError(t, s.UpsertSubscription(ctx, sub))

	subs, err := s.SubscriptionsForUser(ctx, "user-a")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "rotated", subs[0].P256DH)

	require.NoError(t, s.DeleteSubscription(ctx, sub.Endpoint))
	subs, err = s.SubscriptionsForUser(ctx, "user-a")
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestRecordsDueReminder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	old := newRecord("user-a", now.Add(-13*time.Hour))
	fresh := newRecord("user-a", now.Add(-time.Hour))
	departed := newRecord("user-a", now.Add(-20*time.Hour))
	require.NoError(t, s.SaveRecord(ctx, old))
	require.NoError(t, s.SaveRecord(ctx, fresh))
	require.NoError(t, s.SaveRecord(ctx, departed))
	_, err := s.MarkDeparted(ctx, departed.ID, now)
	require.NoError(t, err)

	due, err := s.RecordsDueReminder(ctx, now.Add(-12*time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, old.ID, due[0].ID)

	// Once reminded, the record drops out of the sweep.
	require.NoError(t, s.MarkReminded(ctx, old.ID, now))
	due, err = s.RecordsDueReminder(ctx, now.Add(-12*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due)

	// Marking twice is a no-op.
	require.NoError(t, s.MarkReminded(ctx, old.ID, now))
}
