package db

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Sqlite stores scan results in a sqlite file.
type Sqlite struct {
	Path string
	// rows per INSERT when saving regions
	BatchSize int

	store
}

// NewSqlite creates a new Sqlite database.
func NewSqlite(path string, batchSize int) (Database, error) {
	if path == "" {
		return nil, fmt.Errorf("'path' is required")
	}
	return &Sqlite{
		Path:      path,
		BatchSize: batchSize,
	}, nil
}

// dsn enables foreign keys so region rows follow their image.
func (s *Sqlite) dsn() string {
	sep := "?"
	if strings.Contains(s.Path, "?") {
		sep = "&"
	}
	return s.Path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Connect opens the sqlite file, creating it and its tables if needed.
func (s *Sqlite) Connect() (err error) {
	s.db, err = gorm.Open(sqlite.Open(s.dsn()), &gorm.Config{
		CreateBatchSize:        s.BatchSize,
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to open sqlite database %s: %w", s.Path, err)
	}
	return s.migrate()
}
