package scan

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/blacktop/ibis/pkg/iboot"
)

// Coverage maps app to major version to the targets seen for it.
type Coverage struct {
	targets map[iboot.App]map[int][]string
}

// NewCoverage aggregates the identified results. Unidentified files are
// ignored.
func NewCoverage(results []*Result) *Coverage {
	c := &Coverage{targets: make(map[iboot.App]map[int][]string)}
	for _, r := range results {
		if r == nil || r.Context == nil {
			continue
		}
		byMajor, ok := c.targets[r.Context.App]
		if !ok {
			byMajor = make(map[int][]string)
			c.targets[r.Context.App] = byMajor
		}
		major := r.Context.Version.Major()
		if !slices.Contains(byMajor[major], r.Context.Target) {
			byMajor[major] = append(byMajor[major], r.Context.Target)
			slices.Sort(byMajor[major])
		}
	}
	return c
}

// Apps returns the apps seen, in App order.
func (c *Coverage) Apps() []iboot.App {
	var apps []iboot.App
	for _, app := range []iboot.App{iboot.ROM, iboot.IBoot, iboot.AVPBooter} {
		if _, ok := c.targets[app]; ok {
			apps = append(apps, app)
		}
	}
	return apps
}

// Majors returns every major version seen, for any app, ascending.
func (c *Coverage) Majors() []int {
	var majors []int
	for _, byMajor := range c.targets {
		for major := range byMajor {
			if !slices.Contains(majors, major) {
				majors = append(majors, major)
			}
		}
	}
	slices.Sort(majors)
	return majors
}

// Targets returns the sorted targets seen for app at major.
func (c *Coverage) Targets(app iboot.App, major int) []string {
	return c.targets[app][major]
}

// WriteCSV writes one row per major version with a column per app; each
// cell lists that app's targets one per line.
func (c *Coverage) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	apps := c.Apps()
	header := []string{"Version"}
	for _, app := range apps {
		header = append(header, app.String())
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write coverage header: %w", err)
	}

	for _, major := range c.Majors() {
		row := []string{strconv.Itoa(major)}
		for _, app := range apps {
			row = append(row, strings.Join(c.Targets(app, major), "\n"))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write coverage row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
