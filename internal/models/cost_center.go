package models

import "time"

type CostCenter struct {
	ID          uint   `gorm:"primaryKey"`
	Code        string `gorm:"size:20;uniqueIndex;not null"`
	Description string `gorm:"size:100;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
