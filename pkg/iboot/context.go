// Package iboot identifies raw 64-bit SecureROM and iBoot images and recovers
// their TEXT, CONST, DATA and BSS regions from the embedded layout table.
package iboot

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	BannerOffset = 0x200
	BannerSize   = 0x40
	TagOffset    = 0x280
	TagSize      = 0x40
)

var bannerRE = regexp.MustCompile(`(\w+) for (\w+),`)

// App is an iBoot family application.
type App uint8

const (
	ROM App = iota + 1
	IBoot
	AVPBooter
)

// appNames maps the banner's leading word to its App; stage and variant
// aliases fold into their parent.
var appNames = map[string]App{
	"SecureROM":   ROM,
	"iBoot":       IBoot,
	"iBootStage2": IBoot,
	"iBSS":        IBoot,
	"iBEC":        IBoot,
	"AVPBooter":   AVPBooter,
}

// ParseApp returns the App a banner word names.
func ParseApp(name string) (App, error) {
	if app, ok := appNames[name]; ok {
		return app, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedApp, name)
}

func (a App) String() string {
	switch a {
	case ROM:
		return "SecureROM"
	case IBoot:
		return "iBoot"
	case AVPBooter:
		return "AVPBooter"
	default:
		return fmt.Sprintf("App(%d)", a)
	}
}

// IsIBoot reports whether a is iBoot proper (any stage).
func (a App) IsIBoot() bool {
	return a == IBoot
}

// Version is a dotted numeric build version, e.g. 13822.42.2.
type Version struct {
	parts []int
}

// ParseVersion parses the version out of a build tag such as
// "iBoot-3332.0.0.1.23".
func ParseVersion(tag string) (Version, error) {
	fields := strings.Split(tag, "-")
	if len(fields) < 2 || fields[1] == "" {
		return Version{}, fmt.Errorf("%w: %q", ErrTagParse, tag)
	}
	var parts []int
	for _, p := range strings.Split(fields[1], ".") {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Version{}, fmt.Errorf("%w: %q: %v", ErrTagParse, tag, err)
		}
		parts = append(parts, n)
	}
	if parts[0] <= 0 {
		return Version{}, fmt.Errorf("%w: %q: non-positive major version", ErrTagParse, tag)
	}
	return Version{parts: parts}, nil
}

// Major returns the first version component.
func (v Version) Major() int {
	if len(v.parts) == 0 {
		return 0
	}
	return v.parts[0]
}

// Parts returns a copy of all version components.
func (v Version) Parts() []int {
	return append([]int(nil), v.parts...)
}

func (v Version) String() string {
	s := make([]string, len(v.parts))
	for i, p := range v.parts {
		s[i] = strconv.Itoa(p)
	}
	return strings.Join(s, ".")
}

// Context identifies a firmware image.
type Context struct {
	App     App
	Version Version
	Target  string
}

func parseBanner(banner string) (app, target string, err error) {
	m := bannerRE.FindStringSubmatch(banner)
	if m == nil {
		return "", "", fmt.Errorf("%w: %q", ErrBannerParse, banner)
	}
	return m[1], m[2], nil
}

// NewContext builds a Context from the banner and build tag strings.
func NewContext(banner, tag string) (*Context, error) {
	name, target, err := parseBanner(banner)
	if err != nil {
		return nil, err
	}
	app, err := ParseApp(name)
	if err != nil {
		return nil, err
	}
	version, err := ParseVersion(tag)
	if err != nil {
		return nil, err
	}
	return &Context{
		App:     app,
		Version: version,
		Target:  target,
	}, nil
}

// DetectContext reads the banner and build tag from the image header.
func DetectContext(src Source) (*Context, error) {
	banner, err := ReadCString(src, BannerOffset, BannerSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read banner: %w", err)
	}
	tag, err := ReadCString(src, TagOffset, TagSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read tag: %w", err)
	}
	return NewContext(banner, tag)
}

func (c *Context) String() string {
	return fmt.Sprintf("%s/%s/%s", c.App, c.Version, c.Target)
}
