package models

import "time"

// Tip is one observed TipSent event. TxHash holds the synthetic tip-<index>
// key when the notification carried no transaction hash.
type Tip struct {
	TxHash          string  `gorm:"type:varchar(100);primaryKey"`
	TipIndex        *string `gorm:"type:varchar(78);index"`
	FromAddress     string  `gorm:"type:varchar(42);not null;index"`
	ToAddress       string  `gorm:"type:varchar(42);not null;index"`
	Amount          string  `gorm:"type:varchar(78);not null"`
	Token           *string `gorm:"type:varchar(42);index"`
	Message         string  `gorm:"type:text;not null;default:''"`
	Timestamp       int64   `gorm:"not null;index"`
	TimestampSource string  `gorm:"type:varchar(16);not null"`
	BlockNumber     int64   `gorm:"not null;default:0"`
	CreatedAt       time.Time
}

func (Tip) TableName() string {
	return "tips"
}
