// Package model contains the scan result models for the database.
package model

import (
	"errors"
	"time"

	"github.com/blacktop/ibis/pkg/iboot"
)

var ErrNotFound = errors.New("no image found")

// Image is the model for a scanned firmware file.
type Image struct {
	SHA256    string    `gorm:"column:sha256;primaryKey" json:"sha256"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`

	Path    string   `gorm:"index" json:"path"`
	Size    int64    `json:"size"`
	App     string   `gorm:"index" json:"app,omitempty"`
	Version string   `json:"version,omitempty"`
	Major   int      `gorm:"index" json:"major,omitempty"`
	Target  string   `gorm:"index" json:"target,omitempty"`
	Error   string   `json:"error,omitempty"`
	Regions []Region `gorm:"foreignKey:ImageSHA256;constraint:OnDelete:CASCADE" json:"regions,omitempty"`
}

// Region is a resolved memory region of an Image.
type Region struct {
	ID          uint    `gorm:"primaryKey" json:"-"`
	ImageSHA256 string  `gorm:"column:image_sha256;index;not null" json:"-"`
	Name        string  `json:"name"`
	Start       uint64  `json:"start"`
	End         uint64  `json:"end"`
	FileOffset  *uint64 `json:"offset"`
}

// NewImage converts an analysis result into its database model. Either ctx
// or err may be set; a layout failure after a successful identification keeps
// both.
func NewImage(path, sha string, size int64, ctx *iboot.Context, layout *iboot.Layout, err error) *Image {
	img := &Image{
		SHA256: sha,
		Path:   path,
		Size:   size,
	}
	if ctx != nil {
		img.App = ctx.App.String()
		img.Version = ctx.Version.String()
		img.Major = ctx.Version.Major()
		img.Target = ctx.Target
	}
	if layout != nil {
		for _, nr := range layout.Regions() {
			img.Regions = append(img.Regions, Region{
				ImageSHA256: sha,
				Name:        nr.Name,
				Start:       nr.Start,
				End:         nr.End,
				FileOffset:  nr.FileOffset,
			})
		}
	}
	if err != nil {
		img.Error = err.Error()
	}
	return img
}

// Identified reports whether the image was recognized as an iBoot family binary.
func (i *Image) Identified() bool {
	return i.App != ""
}

// Named converts the stored region back into a layout region.
func (r Region) Named() iboot.NamedRegion {
	return iboot.NamedRegion{
		Name:   r.Name,
		Region: iboot.Region{Start: r.Start, End: r.End, FileOffset: r.FileOffset},
	}
}
