package db

import (
	"encoding/gob"
	"os"
	"sort"

	"github.com/blacktop/ibis/internal/model"
	"github.com/pkg/errors"
)

// Memory is a database that stores data in memory and persists it to a gob
// file on Close.
type Memory struct {
	Images map[string]*model.Image
	Path   string
}

// NewInMemory creates a new in-memory database.
func NewInMemory(path string) (Database, error) {
	if path == "" {
		return nil, errors.New("'path' is required")
	}
	return &Memory{
		Images: make(map[string]*model.Image),
		Path:   path,
	}, nil
}

// Connect loads the gob file, if there is one.
func (m *Memory) Connect() error {
	f, err := os.Open(m.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "failed to open database")
	}
	defer f.Close()
	if err := gob.NewDecoder(f).Decode(&m.Images); err != nil {
		return errors.Wrapf(err, "failed to decode %s", m.Path)
	}
	return nil
}

// Save sets the value for the image hash.
// It overwrites any previous value for that hash.
func (m *Memory) Save(img *model.Image) error {
	m.Images[img.SHA256] = img
	return nil
}

// Get returns the image for the given hash.
// It returns ErrNotFound if the hash does not exist.
func (m *Memory) Get(sha string) (*model.Image, error) {
	img, exists := m.Images[sha]
	if !exists {
		return nil, model.ErrNotFound
	}
	return img, nil
}

func (m *Memory) List(app string) ([]*model.Image, error) {
	imgs := []*model.Image{}
	for _, img := range m.Images {
		if app == "" || img.App == app {
			imgs = append(imgs, img)
		}
	}
	sort.Slice(imgs, func(i, j int) bool {
		return imgs[i].Path < imgs[j].Path
	})
	return imgs, nil
}

// Delete removes the image for the given hash.
// It returns ErrNotFound if the hash does not exist.
func (m *Memory) Delete(sha string) error {
	if _, exists := m.Images[sha]; !exists {
		return model.ErrNotFound
	}
	delete(m.Images, sha)
	return nil
}

// Close writes the database to its gob file.
func (m *Memory) Close() error {
	f, err := os.Create(m.Path)
	if err != nil {
		return errors.Wrap(err, "failed to create database")
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(m.Images)
}
