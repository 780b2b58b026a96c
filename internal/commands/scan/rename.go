package scan

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/apex/log"
	"github.com/blacktop/ibis/internal/utils"
)

// Rename moves an identified file to its canonical name in the same
// directory.
type Rename struct {
	From string
	To   string
}

// CanonicalName is {app}-{version}-{target}-{sha256[:7]}.
func CanonicalName(r *Result) (string, error) {
	if r.Context == nil {
		return "", fmt.Errorf("%s was not identified", r.Path)
	}
	return fmt.Sprintf("%s-%s-%s-%s",
		r.Context.App,
		r.Context.Version,
		r.Context.Target,
		utils.ShortHash(r.SHA256),
	), nil
}

// PlanRenames returns the renames for every identified result that is not
// already canonically named.
func PlanRenames(results []*Result) []Rename {
	var renames []Rename
	for _, r := range results {
		if r == nil {
			continue
		}
		name, err := CanonicalName(r)
		if err != nil {
			log.WithError(r.Err).WithField("path", r.Path).Debug("Skipping unidentified file")
			continue
		}
		if filepath.Base(r.Path) == name {
			continue
		}
		renames = append(renames, Rename{
			From: r.Path,
			To:   filepath.Join(filepath.Dir(r.Path), name),
		})
	}
	return renames
}

// ApplyRenames performs the renames, refusing to overwrite an existing file.
// With dryRun set nothing is touched.
func ApplyRenames(renames []Rename, dryRun bool) error {
	for _, rn := range renames {
		log.Infof("%s -> %s", filepath.Base(rn.From), filepath.Base(rn.To))
		if dryRun {
			continue
		}
		if _, err := os.Stat(rn.To); err == nil {
			return fmt.Errorf("failed to rename %s: %s already exists", rn.From, rn.To)
		}
		if err := os.Rename(rn.From, rn.To); err != nil {
			return fmt.Errorf("failed to rename %s: %w", rn.From, err)
		}
	}
	return nil
}
