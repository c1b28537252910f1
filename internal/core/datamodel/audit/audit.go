package audit

import "time"

// Entry is one audit row. The table is append-only at the API boundary:
// no update or delete path exists anywhere above the driver.
type Entry struct {
	ID int64 `gorm:"primaryKey"`
	// Seq is the gap-free monotonic sequence that gives the trail a total
	// order for compliance reconstruction.
	Seq        int64     `gorm:"column:seq;uniqueIndex;not null"`
	Timestamp  time.Time `gorm:"column:timestamp;index;not null"`
	UserID     *int64    `gorm:"column:user_id;index"`
	Role       string    `gorm:"column:role"`
	Action     string    `gorm:"column:action;index;not null"`
	Resource   string    `gorm:"column:resource"`
	ResourceID string    `gorm:"column:resource_id"`
	Outcome    string    `gorm:"column:outcome;not null"`
	Reason     string    `gorm:"column:reason"`
}

func (Entry) TableName() string { return "audit_logs" }
