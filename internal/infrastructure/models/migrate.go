package models

import "gorm.io/gorm"

// All lists every model owned by the indexer, in migration order
func All() []interface{} {
	return []interface{}{
		&CreatorProfile{},
		&Tip{},
		&SyncCursor{},
	}
}

// AutoMigrate creates or updates the indexer tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(All()...)
}
