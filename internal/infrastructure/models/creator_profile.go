package models

import (
	"time"
)

// CreatorProfile mirrors the contract's creatorProfiles entry.
// "exists" is reserved in SQL, hence the exists_on_chain column.
type CreatorProfile struct {
	Address           string `gorm:"type:varchar(42);primaryKey"`
	Username          string `gorm:"type:varchar(255);not null;default:''"`
	Bio               string `gorm:"type:text;not null;default:''"`
	AvatarURI         string `gorm:"column:avatar_uri;type:text;not null;default:''"`
	Socials           string `gorm:"type:jsonb;not null;default:'[]'"`
	TotalTipsReceived string `gorm:"type:varchar(78);not null;default:'0'"`
	TipCount          int64  `gorm:"not null;default:0"`
	ExistsOnChain     bool   `gorm:"column:exists_on_chain;not null;default:false;index"`
	SyncedAt          *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (CreatorProfile) TableName() string {
	return "creator_profiles"
}
