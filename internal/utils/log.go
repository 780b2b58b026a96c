// Package utils holds small CLI helpers shared by the ibis commands.
package utils

import (
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
)

var normalPadding = cli.Default.Padding

// Indent runs f with the cli handler padding raised to level.
func Indent(f func(s string), level int) func(string) {
	return func(s string) {
		cli.Default.Padding = normalPadding * level
		f(s)
		cli.Default.Padding = normalPadding
	}
}

// Warnings logs each plan warning indented under the current entry.
func Warnings(msgs []string) {
	for _, msg := range msgs {
		Indent(log.Warn, 2)(msg)
	}
}

// Pad returns length spaces.
func Pad(length int) string {
	if length <= 0 {
		return ""
	}
	return fmt.Sprintf("%*s", length, "")
}

// EnsureDir creates dir (and parents) if it does not exist.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
