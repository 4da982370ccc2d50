package models

import "time"

// SyncMeta stores small durable scalars as key-value pairs.
type SyncMeta struct {
	Key       string    `gorm:"primaryKey;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (SyncMeta) TableName() string {
	return "sync_meta"
}

// Common sync meta keys.
const (
	SyncMetaSchemaVersion      = "schema_version"
	SyncMetaLastCatalogRefresh = "last_catalog_refresh"
	SyncMetaCatalogEdition     = "catalog_edition"
	SyncMetaCatalogSize        = "catalog_size"
	SyncMetaLastSync           = "last_sync"
	SyncMetaLastSyncError      = "last_sync_error"
	SyncMetaTrackingID         = "tracking_id"
)

// CurrentSchemaVersion is written on first open.
const CurrentSchemaVersion = "1"
