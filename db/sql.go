package db

import (
	"bitbnb/hosting-api/model"
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLStore keeps records in a relational database through gorm. It is used
// for small deployments that don't run MongoDB.
type SQLStore struct {
	DB *gorm.DB
}

// NewSQL opens a sqlite or postgres database and migrates the records table
func NewSQL(driver, dsn string) (*SQLStore, error) {
	var dialector gorm.Dialector

	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database, %w", driver, err)
	}

	if driver == "sqlite" {
		// sqlite only allows a single writer
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	err = db.AutoMigrate(model.Record{})
	if err != nil {
		return nil, fmt.Errorf("failed to automigrate tables, %w", err)
	}

	return &SQLStore{DB: db}, nil
}

func (s *SQLStore) Insert(ctx context.Context, r *model.Record) error {
	err := s.DB.WithContext(ctx).Create(r).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return persistErr(fmt.Errorf("%w: %s", ErrDuplicateShortID, r.ShortID))
		}

		return persistErr(err)
	}

	return nil
}

func (s *SQLStore) FindByShortID(ctx context.Context, shortID string) (*model.Record, error) {
	var r model.Record

	err := s.DB.
		WithContext(ctx).
		Where("short_id = ?", shortID).
		First(&r).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to find record, %w", err)
	}

	return &r, nil
}

func (s *SQLStore) ListByUsername(ctx context.Context, username string, page, limit int) ([]model.Record, error) {
	records := []model.Record{}

	err := s.DB.
		WithContext(ctx).
		Where("username = ?", username).
		Order("created_at desc").
		Order("id desc").
		Offset(page * limit).
		Limit(limit).
		Find(&records).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to list records, %w", err)
	}

	return records, nil
}

func (s *SQLStore) Close(context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}
