package db

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bourse-pos/bourse/internal/models"
)

// GetSyncMeta retrieves a sync metadata value.
func (db *DB) GetSyncMeta(key string) (string, error) {
	var meta models.SyncMeta
	err := db.First(&meta, "key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return meta.Value, nil
}

// SetSyncMeta sets a sync metadata value.
func (db *DB) SetSyncMeta(key, value string) error {
	meta := models.SyncMeta{Key: key, Value: value}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&meta).Error
}

// GetAllSyncMeta retrieves all sync metadata.
func (db *DB) GetAllSyncMeta() (map[string]string, error) {
	var metas []models.SyncMeta
	if err := db.Find(&metas).Error; err != nil {
		return nil, err
	}

	result := make(map[string]string)
	for _, meta := range metas {
		result[meta.Key] = meta.Value
	}
	return result, nil
}

// DeleteSyncMeta deletes a sync metadata entry.
func (db *DB) DeleteSyncMeta(key string) error {
	return db.Delete(&models.SyncMeta{}, "key = ?", key).Error
}

// GetOrCreateTrackingID returns the persistent telemetry ID, creating one if
// it doesn't exist. On any error, it falls back to a per-session ID.
func (db *DB) GetOrCreateTrackingID() string {
	id, err := db.GetSyncMeta(models.SyncMetaTrackingID)
	if err == nil && id != "" {
		return id
	}

	id = uuid.New().String()
	if err != nil {
		return id
	}
	// Even if save fails, the generated ID serves this session
	_ = db.SetSyncMeta(models.SyncMetaTrackingID, id)
	return id
}
