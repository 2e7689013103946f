package history

import (
	"context"
	"fmt"

	"inventory-monitor/core/database"
	"inventory-monitor/core/inventory"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
	insertBatch  = 200
)

// Filter narrows a history query. Zero values match everything.
type Filter struct {
	Scope  *inventory.ScopeID
	Kind   inventory.ChangeKind
	ItemID uint32
	Limit  int
}

// Service reads and writes change records.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates a new history service.
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Migrate creates or updates the inventory_changes table.
func (s *Service) Migrate() error {
	if err := s.db.AutoMigrate(&ChangeRecord{}); err != nil {
		return fmt.Errorf("failed to migrate %s: %w", TableName, err)
	}
	return nil
}

// Record stores the changes of batch. Initial batches are not stored.
func (s *Service) Record(ctx context.Context, batch inventory.Batch) (int, error) {
	if batch.Initial || len(batch.Changes) == 0 {
		return 0, nil
	}
	records := make([]ChangeRecord, 0, len(batch.Changes))
	for _, c := range batch.Changes {
		records = append(records, NewRecord(batch, c))
	}
	if err := s.db.WithContext(ctx).CreateInBatches(&records, insertBatch).Error; err != nil {
		return 0, fmt.Errorf("failed to store batch %d: %w", batch.ID, err)
	}
	return len(records), nil
}

// List returns the most recent records matching f, newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]ChangeRecord, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	q := s.db.WithContext(ctx).Model(&ChangeRecord{})
	if f.Scope != nil {
		q = q.Where("scope = ?", f.Scope.String())
	}
	if f.Kind != "" {
		q = q.Where("kind = ?", string(f.Kind))
	}
	if f.ItemID != 0 {
		q = q.Where("item_id = ?", f.ItemID)
	}

	var records []ChangeRecord
	if err := q.Order("id DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return records, nil
}

// LastBatchID returns the highest stored batch id, or 0 for an empty table.
func (s *Service) LastBatchID(ctx context.Context) (uint64, error) {
	var last uint64
	err := s.db.WithContext(ctx).Model(&ChangeRecord{}).
		Select("COALESCE(MAX(batch_id), 0)").
		Scan(&last).Error
	if err != nil {
		return 0, fmt.Errorf("failed to read last batch id: %w", err)
	}
	return last, nil
}

// CheckSchema returns the model columns missing from the database table.
func (s *Service) CheckSchema() ([]string, error) {
	return database.MissingColumns(s.db, TableName, Columns...)
}
