package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/vesaa/zmtalon/internal/models"
)

// tokenRow is the single row holding the current pair.
type tokenRow struct {
	ID           uint   `gorm:"primaryKey"`
	AccessToken  string `gorm:"not null"`
	RefreshToken string `gorm:"not null"`
	UpdatedAt    time.Time
}

func (tokenRow) TableName() string { return "zm_tokens" }

const tokenRowID = 1

// SQLStore persists the pair in a SQLite database through GORM. Both tokens
// live in one row, so every Save is a single atomic upsert.
type SQLStore struct {
	db *gorm.DB
}

// OpenSQLStore opens (or creates) the database at path and runs AutoMigrate.
func OpenSQLStore(path string) (*SQLStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("opening token database: %w", err)
	}
	if err := db.AutoMigrate(&tokenRow{}); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Load returns the stored pair, or ErrNoTokens when the row is absent.
func (s *SQLStore) Load(ctx context.Context) (models.TokenPair, error) {
	var row tokenRow
	err := s.db.WithContext(ctx).First(&row, tokenRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.TokenPair{}, ErrNoTokens
	}
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("loading token row: %w", err)
	}

	pair := models.TokenPair{AccessToken: row.AccessToken, RefreshToken: row.RefreshToken}
	if pair.Empty() {
		return models.TokenPair{}, fmt.Errorf("%w: incomplete token row", ErrNoTokens)
	}
	return pair, nil
}

// Save upserts the pair.
func (s *SQLStore) Save(ctx context.Context, pair models.TokenPair) error {
	if pair.Empty() {
		return errors.New("refusing to store an incomplete token pair")
	}
	row := tokenRow{
		ID:           tokenRowID,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		UpdatedAt:    time.Now(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"access_token", "refresh_token", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("saving token row: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
