package kvstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry is the database row backing one key.
type Entry struct {
	Key       string    `gorm:"primaryKey;size:512" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for Entry.
func (Entry) TableName() string {
	return "kv_entries"
}

// GormStore implements Store backed by a kv_entries table.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// GetJSON reads the value at key into dest.
func (s *GormStore) GetJSON(ctx context.Context, key string, dest any) error {
	var entry Entry
	if err := s.db.WithContext(ctx).First(&entry, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return unmarshalValue([]byte(entry.Value), dest)
}

// SetJSON writes value at key, replacing any existing value.
func (s *GormStore) SetJSON(ctx context.Context, key string, value any) error {
	data, err := marshalValue(value)
	if err != nil {
		return err
	}

	entry := Entry{Key: key, Value: string(data)}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}

// GetJSONList reads the JSON array at key into dest.
func (s *GormStore) GetJSONList(ctx context.Context, key string, dest any) error {
	return s.GetJSON(ctx, key, dest)
}

// SetJSONList writes values as a JSON array at key.
func (s *GormStore) SetJSONList(ctx context.Context, key string, values any) error {
	return s.SetJSON(ctx, key, values)
}

// Remove deletes the value at key.
func (s *GormStore) Remove(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Delete(&Entry{}, "key = ?", key).Error
}

// Ensure GormStore implements Store.
var _ Store = (*GormStore)(nil)
