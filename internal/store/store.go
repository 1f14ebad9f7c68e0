package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"parkspot-backend/internal/apperr"
	"parkspot-backend/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	// DB exposes the underlying handle for workers and migrations.
	DB() *gorm.DB

	SaveRecord(ctx context.Context, rec *model.ParkingRecord) error
	ListRecords(ctx context.Context, userID string) ([]model.ParkingRecord, error)
	GetRecord(ctx context.Context, id string) (*model.ParkingRecord, error)
	MarkDeparted(ctx context.Context, id string, now time.Time) (*model.ParkingRecord, error)
	DeleteRecord(ctx context.Context, id string) error

	CreateProfile(ctx context.Context, p *model.Profile) error
	ProfileByEmail(ctx context.Context, email string) (*model.Profile, error)
	ProfileByID(ctx context.Context, userID string) (*model.Profile, error)
	UpdateProfile(ctx context.Context, userID, name, email string) (*model.Profile, error)

	UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error
	SubscriptionByEndpoint(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	SubscriptionsForUser(ctx context.Context, userID string) ([]model.PushSubscription, error)

	RecordsDueReminder(ctx context.Context, cutoff time.Time) ([]model.ParkingRecord, error)
	MarkReminded(ctx context.Context, recordID string, at time.Time) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB { return s.db }

// SaveRecord inserts one parking record with LeftAt unset. A single
// insert, so a failure leaves no partial state.
func (s *gormStore) SaveRecord(ctx context.Context, rec *model.ParkingRecord) error {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return apperr.Store("failed to save parking record", err)
	}
	return nil
}

// ListRecords returns all records owned by userID, most recent first.
// An empty slice is a valid, non-error result.
func (s *gormStore) ListRecords(ctx context.Context, userID string) ([]model.ParkingRecord, error) {
	var records []model.ParkingRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, apperr.Store("failed to list parking records", err)
	}
	return records, nil
}

func (s *gormStore) GetRecord(ctx context.Context, id string) (*model.ParkingRecord, error) {
	var rec model.ParkingRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("parking record not found")
	}
	if err != nil {
		return nil, apperr.Store("failed to fetch parking record", err)
	}
	return &rec, nil
}

// MarkDeparted sets LeftAt for exactly one record. LeftAt is a one-way
// transition: the update only applies while it is still unset, so a
// second call leaves the original timestamp in place and succeeds.
func (s *gormStore) MarkDeparted(ctx context.Context, id string, now time.Time) (*model.ParkingRecord, error) {
	res := s.db.WithContext(ctx).
		Model(&model.ParkingRecord{}).
		Where("id = ? AND left_at IS NULL", id).
		Update("left_at", now)
	if res.Error != nil {
		return nil, apperr.Store("failed to mark record departed", res.Error)
	}
	// Zero rows means either already departed or missing; GetRecord
	// distinguishes the two.
	return s.GetRecord(ctx, id)
}

// DeleteRecord removes exactly one record. No soft-delete, no tombstone.
func (s *gormStore) DeleteRecord(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&model.ParkingRecord{}, "id = ?", id)
	if res.Error != nil {
		return apperr.Store("failed to delete parking record", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("parking record not found")
	}
	return nil
}

func (s *gormStore) CreateProfile(ctx context.Context, p *model.Profile) error {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return apperr.Store("failed to create profile", err)
	}
	return nil
}

func (s *gormStore) ProfileByEmail(ctx context.Context, email string) (*model.Profile, error) {
	var p model.Profile
	err := s.db.WithContext(ctx).First(&p, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("profile not found")
	}
	if err != nil {
		return nil, apperr.Store("failed to fetch profile", err)
	}
	return &p, nil
}

func (s *gormStore) ProfileByID(ctx context.Context, userID string) (*model.Profile, error) {
	var p model.Profile
	err := s.db.WithContext(ctx).First(&p, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("profile not found")
	}
	if err != nil {
		return nil, apperr.Store("failed to fetch profile", err)
	}
	return &p, nil
}

// UpdateProfile overwrites name and email for the matching profile and
// returns the updated row.
func (s *gormStore) UpdateProfile(ctx context.Context, userID, name, email string) (*model.Profile, error) {
	res := s.db.WithContext(ctx).
		Model(&model.Profile{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{"name": name, "email": email})
	if res.Error != nil {
		return nil, apperr.Store("failed to update profile", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("profile not found")
	}
	return s.ProfileByID(ctx, userID)
}

// UpsertSubscription creates or replaces a push subscription keyed by
// its endpoint.
func (s *gormStore) UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth"}),
	}).Create(sub).Error
	if err != nil {
		return apperr.Store("failed to save push subscription", err)
	}
	return nil
}

func (s *gormStore) SubscriptionByEndpoint(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).First(&sub, "endpoint = ?", endpoint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("subscription not found")
	}
	if err != nil {
		return nil, apperr.Store("failed to fetch push subscription", err)
	}
	return &sub, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error; err != nil {
		return apperr.Store("failed to delete push subscription", err)
	}
	return nil
}

func (s *gormStore) SubscriptionsForUser(ctx context.Context, userID string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&subs).Error; err != nil {
		return nil, apperr.Store("failed to list push subscriptions", err)
	}
	return subs, nil
}

// RecordsDueReminder returns still-parked records created before cutoff
// that have not been reminded yet.
func (s *gormStore) RecordsDueReminder(ctx context.Context, cutoff time.Time) ([]model.ParkingRecord, error) {
	var records []model.ParkingRecord
	err := s.db.WithContext(ctx).
		Where("left_at IS NULL AND created_at < ?", cutoff).
		Where("id NOT IN (?)", s.db.Model(&model.Reminder{}).Select("record_id")).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, apperr.Store("failed to query records due reminder", err)
	}
	return records, nil
}

// MarkReminded records that a reminder was delivered. Re-marking the
// same record is a no-op.
func (s *gormStore) MarkReminded(ctx context.Context, recordID string, at time.Time) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "record_id"}},
		DoNothing: true,
	}).Create(&model.Reminder{RecordID: recordID, SentAt: at}).Error
	if err != nil {
		return apperr.Store("failed to mark reminder sent", err)
	}
	return nil
}
