package store

import (
	"fmt"

	"trade-journal-go/internal/models"

	"gorm.io/gorm"
)

// TradeStore persists trade records, keyed by the auto-incrementing id
// the database assigns on creation. Transient fields (live price, PnL,
// pair snapshot) are tagged gorm:"-" on the model and never reach disk.
type TradeStore struct {
	db *gorm.DB
}

// NewTradeStore creates a trade store on top of an open database.
func NewTradeStore(db *gorm.DB) *TradeStore {
	return &TradeStore{db: db}
}

// GetAll returns every trade, oldest first.
func (s *TradeStore) GetAll() ([]models.Trade, error) {
	var trades []models.Trade
	if err := s.db.Order("id asc").Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to load trades: %w", err)
	}
	return trades, nil
}

// Get returns one trade by id.
func (s *TradeStore) Get(id uint) (*models.Trade, error) {
	var trade models.Trade
	if err := s.db.First(&trade, id).Error; err != nil {
		return nil, fmt.Errorf("failed to load trade %d: %w", id, err)
	}
	return &trade, nil
}

// Add inserts a trade and returns the generated id.
func (s *TradeStore) Add(trade *models.Trade) (uint, error) {
	if err := s.db.Create(trade).Error; err != nil {
		return 0, fmt.Errorf("failed to add trade: %w", err)
	}
	return trade.ID, nil
}

// Update writes the persistent fields of an existing trade.
func (s *TradeStore) Update(trade *models.Trade) error {
	if trade.ID == 0 {
		return fmt.Errorf("cannot update trade without id")
	}
	if err := s.db.Save(trade).Error; err != nil {
		return fmt.Errorf("failed to update trade %d: %w", trade.ID, err)
	}
	return nil
}

// Delete removes a trade by id.
func (s *TradeStore) Delete(id uint) error {
	if err := s.db.Delete(&models.Trade{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete trade %d: %w", id, err)
	}
	return nil
}

// BulkAdd inserts trades in one transaction; either all rows are stored
// or none are. Row-level validation belongs to the importer, not here.
func (s *TradeStore) BulkAdd(trades []models.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for i := range trades {
			if err := tx.Create(&trades[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to bulk-add trades: %w", err)
	}
	return nil
}

// BulkUpdate saves trades in one transaction.
func (s *TradeStore) BulkUpdate(trades []models.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for i := range trades {
			if trades[i].ID == 0 {
				return fmt.Errorf("cannot update trade without id")
			}
			if err := tx.Save(&trades[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to bulk-update trades: %w", err)
	}
	return nil
}

// BulkDelete removes trades by id in one transaction.
func (s *TradeStore) BulkDelete(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.db.Delete(&models.Trade{}, ids).Error; err != nil {
		return fmt.Errorf("failed to bulk-delete trades: %w", err)
	}
	return nil
}
