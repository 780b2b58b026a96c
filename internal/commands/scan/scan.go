// Package scan contains the batch analysis commands.
package scan

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/apex/log"
	"github.com/blacktop/ibis/internal/model"
	"github.com/blacktop/ibis/internal/utils"
	"github.com/blacktop/ibis/pkg/iboot"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/sync/errgroup"
)

// Config is the scan command configuration.
type Config struct {
	// directory to scan (recursively)
	Dir string `json:"dir,omitempty"`
	// number of files analyzed at once
	Parallel int `json:"parallel,omitempty"`
	// base name glob patterns to skip
	Exclude []string `json:"exclude,omitempty"`
	// only identify the files (skip layout detection)
	IdentifyOnly bool `json:"identify_only,omitempty"`
	// show the progress bar (when using the CLI)
	Progress bool `json:"progress,omitempty"`
	// layout detection options
	Options []iboot.Option `json:"-"`
}

// Result is the outcome of analyzing one file.
type Result struct {
	Path    string
	SHA256  string
	Size    int64
	Context *iboot.Context
	Layout  *iboot.Layout
	Err     error
}

// Image converts the result to its database model.
func (r *Result) Image() *model.Image {
	return model.NewImage(r.Path, r.SHA256, r.Size, r.Context, r.Layout, r.Err)
}

// Walk returns every regular file under dir, skipping base names that match
// an exclude pattern.
func Walk(dir string, exclude []string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	var paths []string
	if err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		for _, pattern := range exclude {
			if ok, _ := filepath.Match(pattern, d.Name()); ok {
				log.WithField("path", path).Debug("Skipping excluded file")
				return nil
			}
		}
		paths = append(paths, path)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	return paths, nil
}

// Analyze hashes, identifies and (unless identifyOnly) lays out one file.
// Analysis failures are recorded in the result, not returned.
func Analyze(path string, identifyOnly bool, opts ...iboot.Option) *Result {
	r := &Result{Path: path}

	r.SHA256, r.Err = utils.Sha256(path)
	if r.Err != nil {
		return r
	}

	src, err := iboot.Open(path)
	if err != nil {
		r.Err = err
		return r
	}
	defer src.Close()
	r.Size = src.Size()

	r.Context, r.Err = iboot.DetectContext(src)
	if r.Err != nil || identifyOnly {
		return r
	}
	r.Layout, r.Err = iboot.DetectLayout(r.Context, src, opts...)
	return r
}

// Run analyzes every file under conf.Dir with a bounded worker pool. The
// results are sorted by path. Only walking the directory or cancellation
// fail the run.
func Run(ctx context.Context, conf *Config) ([]*Result, error) {
	paths, err := Walk(conf.Dir, conf.Exclude)
	if err != nil {
		return nil, err
	}
	log.WithField("files", len(paths)).Debug("Scanning")
	if len(paths) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scan interrupted: %w", err)
	}

	var out io.Writer
	if conf.Progress {
		out = os.Stderr
	}
	p := mpb.NewWithContext(ctx,
		mpb.WithOutput(out),
		mpb.WithWidth(60),
		mpb.WithRefreshRate(180*time.Millisecond),
	)
	bar := p.New(int64(len(paths)),
		mpb.BarStyle().Lbound("[").Filler("=").Tip(">").Padding("-").Rbound("|"),
		mpb.PrependDecorators(
			decor.Name("\tscanning "),
			decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.OnComplete(decor.AverageETA(decor.ET_STYLE_GO), "✅ "),
			decor.Name(" ] "),
			decor.Percentage(),
		),
	)

	parallel := max(conf.Parallel, 1)
	results := make([]*Result, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = Analyze(path, conf.IdentifyOnly, conf.Options...)
			bar.Increment()
			return nil
		})
	}
	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		bar.Abort(false)
		p.Wait()
		return nil, fmt.Errorf("scan interrupted: %w", err)
	}
	p.Wait()

	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})
	return results, nil
}
