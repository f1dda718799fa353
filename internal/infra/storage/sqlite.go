package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"hlview/internal/hl"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// FillRecord mirrors one upstream fill, cached per wallet. Fills are
// immutable historical records; the cache only shortcuts repeated
// userFills round-trips, it never backs session state.
type FillRecord struct {
	Wallet    string `gorm:"primaryKey"`
	TID       int64  `gorm:"primaryKey;column:tid"`
	Seq       int    `gorm:"index"` // upstream ordering, most recent first
	Time      int64
	Coin      string
	Side      string
	Px        string
	Sz        string
	OID       int64 `gorm:"column:oid"`
	Fee       string
	FeeCoin   string
	FetchedAt time.Time
}

// Storage is the SQLite-backed fills cache.
type Storage struct {
	db *gorm.DB
}

// NewStorage opens (or creates) the cache database at path. An empty
// path resolves to the user config directory.
func NewStorage(path string) (*Storage, error) {
	dbPath := path
	if dbPath == "" {
		var err error
		dbPath, err = defaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create DB directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&FillRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

func defaultDBPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "hlview", "data", "fills.db"), nil
}

// ReplaceWalletFills swaps the wallet's cached fills for a fresh fetch.
func (s *Storage) ReplaceWalletFills(wallet string, fills []hl.Fill) error {
	now := time.Now()
	records := make([]FillRecord, 0, len(fills))
	for i, f := range fills {
		records = append(records, FillRecord{
			Wallet:    wallet,
			TID:       f.TID,
			Seq:       i,
			Time:      f.Time,
			Coin:      f.Coin,
			Side:      f.Side,
			Px:        f.Px,
			Sz:        f.Sz,
			OID:       f.OID,
			Fee:       f.Fee,
			FeeCoin:   f.FeeCoin,
			FetchedAt: now,
		})
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("wallet = ?", wallet).Delete(&FillRecord{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.CreateInBatches(records, 200).Error
	})
}

// CachedFills returns the wallet's fills if a fetch newer than ttl is
// cached, preserving upstream order. The second return is false on a
// miss or a stale cache.
func (s *Storage) CachedFills(wallet string, ttl time.Duration) ([]hl.Fill, bool) {
	var records []FillRecord
	err := s.db.Where("wallet = ?", wallet).Order("seq asc").Find(&records).Error
	if err != nil || len(records) == 0 {
		return nil, false
	}
	if time.Since(records[0].FetchedAt) > ttl {
		return nil, false
	}

	fills := make([]hl.Fill, 0, len(records))
	for _, r := range records {
		fills = append(fills, hl.Fill{
			Time:    r.Time,
			Coin:    r.Coin,
			Side:    r.Side,
			Px:      r.Px,
			Sz:      r.Sz,
			OID:     r.OID,
			TID:     r.TID,
			Fee:     r.Fee,
			FeeCoin: r.FeeCoin,
		})
	}
	return fills, true
}

// PurgeWallet drops a wallet's cached fills.
func (s *Storage) PurgeWallet(wallet string) error {
	return s.db.Where("wallet = ?", wallet).Delete(&FillRecord{}).Error
}
