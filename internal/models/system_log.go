package models

import (
	"time"

	"gorm.io/datatypes"
)

// SystemLog stores ERROR+ log records when the store runs on a SQL backend.
type SystemLog struct {
	ID         string         `gorm:"size:36;primaryKey" json:"id"`
	Timestamp  time.Time      `gorm:"not null;index" json:"timestamp"`
	Level      string         `gorm:"size:10;not null;index" json:"level"`
	Message    string         `gorm:"type:text" json:"message"`
	RequestID  string         `gorm:"size:64;index" json:"requestId"`
	UserID     *string        `gorm:"size:36" json:"userId"`
	Method     string         `gorm:"size:10" json:"method"`
	Path       string         `gorm:"size:255" json:"path"`
	Collection string         `gorm:"size:64" json:"collection"`
	Error      string         `gorm:"type:text" json:"error"`
	Extra      datatypes.JSON `json:"extra"`
	CreatedAt  time.Time      `json:"createdAt"`
}
