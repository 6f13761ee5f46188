package infrastructure

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yourusername/link-resolve-go/internal/domain"
)

// SQLiteHistoryRepository implements HistoryRepository using SQLite
type SQLiteHistoryRepository struct {
	db *gorm.DB
}

// NewSQLiteHistoryRepository creates a new SQLite history repository
func NewSQLiteHistoryRepository(dbPath string) (*SQLiteHistoryRepository, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.ParseRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteHistoryRepository{db: db}, nil
}

// Create stores a new parse record
func (r *SQLiteHistoryRepository) Create(record *domain.ParseRecord) error {
	return r.db.Create(record).Error
}

// FindRecent returns the latest records, newest first
func (r *SQLiteHistoryRepository) FindRecent(limit int) ([]*domain.ParseRecord, error) {
	var records []*domain.ParseRecord
	err := r.db.Order("created_at DESC").Limit(limit).Find(&records).Error
	return records, err
}

// FindByPlatform returns the latest records of one platform
func (r *SQLiteHistoryRepository) FindByPlatform(platform string, limit int) ([]*domain.ParseRecord, error) {
	var records []*domain.ParseRecord
	err := r.db.Where("platform = ?", platform).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// Count returns the total number of records
func (r *SQLiteHistoryRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&domain.ParseRecord{}).Count(&count).Error
	return count, err
}

// GetStats returns aggregate outcome counts
func (r *SQLiteHistoryRepository) GetStats() (*domain.ParseStats, error) {
	stats := &domain.ParseStats{}

	if err := r.db.Model(&domain.ParseRecord{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	outcomeCounts := []struct {
		Outcome domain.ParseOutcome
		Count   int64
	}{}

	if err := r.db.Model(&domain.ParseRecord{}).
		Select("outcome, count(*) as count").
		Group("outcome").
		Scan(&outcomeCounts).Error; err != nil {
		return nil, err
	}

	for _, oc := range outcomeCounts {
		switch oc.Outcome {
		case domain.OutcomeResolved:
			stats.Resolved = oc.Count
		case domain.OutcomeNoMatch:
			stats.NoMatch = oc.Count
		case domain.OutcomeDisabled:
			stats.Disabled = oc.Count
		case domain.OutcomeFailed:
			stats.Failed = oc.Count
		}
	}

	return stats, nil
}

// Close closes the database connection
func (r *SQLiteHistoryRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
