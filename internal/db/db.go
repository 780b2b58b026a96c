// Package db provides a database interface and implementations.
package db

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/blacktop/ibis/internal/model"
)

// Database is the interface that wraps the basic database operations.
type Database interface {
	// Connect connects to the database.
	Connect() error

	// Save stores the image and its regions.
	// It overwrites any previous entry with the same hash.
	Save(img *model.Image) error

	// Get returns the image for the given hash.
	// It returns model.ErrNotFound if the hash does not exist.
	Get(sha string) (*model.Image, error)

	// List returns every image of the given app, or all images if app is
	// empty, ordered by path.
	List(app string) ([]*model.Image, error)

	// Delete removes the image for the given hash.
	// It returns model.ErrNotFound if the hash does not exist.
	Delete(sha string) error

	// Close closes the database.
	Close() error
}

// New picks the database implementation from the URL: postgres:// URLs use
// Postgres, *.gob paths the in-memory store and anything else sqlite.
func New(url string, batchSize int) (Database, error) {
	switch {
	case url == "":
		return nil, fmt.Errorf("database url is required")
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return NewPostgres(url)
	case filepath.Ext(url) == ".gob":
		return NewInMemory(url)
	default:
		return NewSqlite(url, batchSize)
	}
}
