package store

import "time"

// ScanRecord is one completed or failed processing run. History is
// informational only; jobs never resume from it.
type ScanRecord struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	DocumentID   string    `gorm:"index" json:"document_id"`
	DocumentName string    `json:"document_name"`
	DocumentType string    `json:"document_type"`
	Model        string    `json:"model"`
	Status       string    `gorm:"index" json:"status"` // completed, failed, cancelled
	ErrorKind    string    `json:"error_kind,omitempty"`
	Pages        int       `json:"pages"`
	CostValue    float64   `json:"cost_value"`
	CostCurrency string    `json:"cost_currency"`
	DurationMS   int64     `json:"duration_ms"`
	CompletedAt  time.Time `gorm:"index" json:"completed_at"`
	CreatedAt    time.Time `json:"created_at"`
}

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)
