package domain

import (
	"time"

	"github.com/google/uuid"
)

// ParseOutcome classifies how a dispatch ended
type ParseOutcome string

const (
	OutcomeResolved ParseOutcome = "resolved"
	OutcomeNoMatch  ParseOutcome = "no_match"
	OutcomeDisabled ParseOutcome = "disabled"
	OutcomeFailed   ParseOutcome = "failed"
)

// ParseRecord is one persisted dispatch outcome
type ParseRecord struct {
	ID        string       `json:"id" gorm:"primaryKey"`
	URL       string       `json:"url" gorm:"index"`
	Platform  string       `json:"platform,omitempty" gorm:"index"`
	Title     string       `json:"title,omitempty"`
	Outcome   ParseOutcome `json:"outcome" gorm:"not null;index"`
	Error     string       `json:"error,omitempty"`
	Contents  int          `json:"contents"`
	LatencyMS int64        `json:"latency_ms"`
	CreatedAt time.Time    `json:"created_at" gorm:"autoCreateTime"`
}

// NewParseRecord creates a history record for a dispatched URL
func NewParseRecord(url string, outcome ParseOutcome) *ParseRecord {
	return &ParseRecord{
		ID:        uuid.New().String(),
		URL:       url,
		Outcome:   outcome,
		CreatedAt: time.Now(),
	}
}

// HistoryRepository defines the interface for parse-history persistence
type HistoryRepository interface {
	// Create stores a new record
	Create(record *ParseRecord) error

	// FindRecent returns the latest records, newest first
	FindRecent(limit int) ([]*ParseRecord, error)

	// FindByPlatform returns the latest records of one platform
	FindByPlatform(platform string, limit int) ([]*ParseRecord, error)

	// Count returns the total number of records
	Count() (int64, error)

	// GetStats returns aggregate outcome counts
	GetStats() (*ParseStats, error)
}

// ParseStats represents aggregate dispatch statistics
type ParseStats struct {
	Total    int64 `json:"total"`
	Resolved int64 `json:"resolved"`
	NoMatch  int64 `json:"no_match"`
	Disabled int64 `json:"disabled"`
	Failed   int64 `json:"failed"`
}
