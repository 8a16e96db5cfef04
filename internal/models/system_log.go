package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SystemLog stores ERROR+ log records so failures can be queried after the fact.
type SystemLog struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Timestamp time.Time      `gorm:"not null;index" json:"timestamp"`
	Level     string         `gorm:"size:10;not null;index" json:"level"`
	Message   string         `gorm:"type:text" json:"message"`
	TraceID   string         `gorm:"size:36;index" json:"trace_id"`
	UserID    *string        `gorm:"size:36;index" json:"user_id"`
	Action    string         `gorm:"size:100" json:"action"`
	Provider  string         `gorm:"size:20" json:"provider"`
	ReportID  *string        `gorm:"size:36" json:"report_id"`
	Error     string         `gorm:"type:text" json:"error"`
	LatencyMs int            `json:"latency_ms"`
	Extra     datatypes.JSON `json:"extra"`
	CreatedAt time.Time      `json:"created_at"`
}

// All lists every model owned by the service, in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&RefreshToken{},
		&Credential{},
		&DailyReport{},
		&SystemLog{},
	}
}
