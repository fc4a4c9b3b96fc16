package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const openTimeout = 30 * time.Second

// Setting is one stored key-value row
type Setting struct {
	ID        string `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Value     string
}

// GormKV stores values in a relational settings table
type GormKV struct {
	dbType string
	open   gorm.Dialector
	db     *gorm.DB
	logger logger.Interface
}

// NewGormKV prepares a backend for postgres, mysql or sqlite. Call Start to connect.
func NewGormKV(dbType, dbConn string, debug bool) (*GormKV, error) {
	var open gorm.Dialector
	switch dbType {
	case "postgres":
		open = postgres.Open(dbConn)
	case "mysql":
		open = mysql.Open(dbConn)
	case "sqlite":
		open = sqlite.Open(dbConn)
	default:
		return nil, fmt.Errorf("store: unknown db type: %s", dbType)
	}
	l := logger.Default.LogMode(logger.Silent)
	if debug {
		l = logger.Default.LogMode(logger.Warn)
	}
	return &GormKV{
		dbType: dbType,
		open:   open,
		logger: l,
	}, nil
}

// Start opens the connection and migrates the settings table
func (s *GormKV) Start(ctx context.Context) error {
	// Open in a goroutine so a stuck dial can time out
	ctx, cancel := context.WithTimeout(ctx, openTimeout)
	defer cancel()
	errC := make(chan error, 1)
	go func() {
		db, err := gorm.Open(s.open, &gorm.Config{
			Logger: s.logger,
		})
		if err != nil {
			errC <- fmt.Errorf("store: failed to open database: %w", err)
			return
		}
		s.db = db
		errC <- nil
	}()
	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("store: timed out opening database: %w", ctx.Err())
		}
		return ctx.Err()
	case err := <-errC:
		if err != nil {
			return err
		}
	}

	if s.dbType == "sqlite" {
		// A single connection keeps ":memory:" databases shared and serializes writers
		sqlDB, err := s.db.DB()
		if err != nil {
			return fmt.Errorf("store: failed to get sql db: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := s.db.WithContext(ctx).AutoMigrate(&Setting{}); err != nil {
		return fmt.Errorf("store: failed to migrate: %w", err)
	}
	return nil
}

func (s *GormKV) Get(ctx context.Context, key string) (string, bool, error) {
	var v Setting
	if err := s.db.WithContext(ctx).First(&v, "id = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("store: failed to get setting %s: %w", key, err)
	}
	return v.Value, true, nil
}

func (s *GormKV) Set(ctx context.Context, key, value string) error {
	if err := s.db.WithContext(ctx).Save(&Setting{ID: key, Value: value}).Error; err != nil {
		return fmt.Errorf("store: failed to set setting %s: %w", key, err)
	}
	return nil
}

func (s *GormKV) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Delete(&Setting{ID: key}, "id = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("store: failed to delete setting %s: %w", key, err)
	}
	return nil
}

func (s *GormKV) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("store: failed to get sql db: %w", err)
	}
	return sqlDB.Close()
}
