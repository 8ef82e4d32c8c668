package models

import "time"

// AuditLog is an append-only record of a privileged action.
type AuditLog struct {
	ID        uint64 `gorm:"primaryKey"`
	Username  string `gorm:"size:100;index"`
	Message   string `gorm:"size:1024;not null"`
	Timestamp time.Time
}
