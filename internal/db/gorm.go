package db

import (
	"errors"
	"fmt"

	"github.com/blacktop/ibis/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// store holds the queries shared by the gorm backed databases.
type store struct {
	db *gorm.DB
}

func (s *store) migrate() error {
	return s.db.AutoMigrate(&model.Image{}, &model.Region{})
}

// Save sets the value for the image hash.
// It overwrites any previous value (and regions) for that hash.
func (s *store) Save(img *model.Image) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("image_sha256 = ?", img.SHA256).Delete(&model.Region{}).Error; err != nil {
			return fmt.Errorf("failed to delete old regions: %w", err)
		}
		for i := range img.Regions {
			img.Regions[i].ID = 0
			img.Regions[i].ImageSHA256 = img.SHA256
		}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(img).Error; err != nil {
			return fmt.Errorf("failed to save image %s: %w", img.Path, err)
		}
		return nil
	})
}

// Get returns the image for the given hash.
// It returns ErrNotFound if the hash does not exist.
func (s *store) Get(sha string) (*model.Image, error) {
	var img model.Image
	if err := s.db.Preload("Regions").Where("sha256 = ?", sha).First(&img).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &img, nil
}

func (s *store) List(app string) ([]*model.Image, error) {
	var imgs []*model.Image
	q := s.db.Preload("Regions").Order("path")
	if app != "" {
		q = q.Where("app = ?", app)
	}
	if err := q.Find(&imgs).Error; err != nil {
		return nil, err
	}
	return imgs, nil
}

// Delete removes the image for the given hash.
// It returns ErrNotFound if the hash does not exist.
func (s *store) Delete(sha string) error {
	result := s.db.Select("Regions").Delete(&model.Image{SHA256: sha})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Close closes the database.
func (s *store) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
