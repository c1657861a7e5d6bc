package models

import "time"

// SyncCursor stores the last block the log watcher fully reconciled
type SyncCursor struct {
	Name        string `gorm:"type:varchar(64);primaryKey"`
	BlockNumber int64  `gorm:"not null;default:0"`
	UpdatedAt   time.Time
}

func (SyncCursor) TableName() string {
	return "sync_cursors"
}
