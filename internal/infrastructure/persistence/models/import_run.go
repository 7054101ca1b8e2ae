package models

import (
	"time"
)

// ImportRunStatus represents the lifecycle state of a batch run.
type ImportRunStatus string

const (
	RunStatusRunning   ImportRunStatus = "running"
	RunStatusCompleted ImportRunStatus = "completed"
	RunStatusFailed    ImportRunStatus = "failed"
)

// ImportRunModel records one batch import run for auditing. It lives outside
// the per-batch transaction so a run row survives even when the batch itself
// fails.
type ImportRunModel struct {
	BaseModel
	Source        string          `gorm:"column:source;type:varchar(255)" json:"source"`
	Status        ImportRunStatus `gorm:"column:status;type:varchar(20);not null;default:'running'" json:"status"`
	TotalCount    int             `gorm:"column:totalCount;not null;default:0" json:"totalCount"`
	ImportedCount int             `gorm:"column:importedCount;not null;default:0" json:"importedCount"`
	FailedCount   int             `gorm:"column:failedCount;not null;default:0" json:"failedCount"`
	SkippedCount  int             `gorm:"column:skippedCount;not null;default:0" json:"skippedCount"`
	Error         string          `gorm:"column:error;type:text" json:"error,omitempty"`
	StartedAt     time.Time       `gorm:"column:startedAt" json:"startedAt"`
	CompletedAt   *time.Time      `gorm:"column:completedAt" json:"completedAt,omitempty"`
}

// TableName returns the table name for GORM
func (ImportRunModel) TableName() string {
	return TableImportRuns
}
