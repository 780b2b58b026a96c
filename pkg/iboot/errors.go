package iboot

import "errors"

var (
	// ErrUnsupportedVersion is returned when the major version has no known layout strategy.
	ErrUnsupportedVersion = errors.New("unsupported version")
	// ErrUnsupportedApp is returned when the banner names an unknown firmware family.
	ErrUnsupportedApp = errors.New("unsupported app")
	// ErrBannerParse is returned when the banner is not of the form "X for Y, ...".
	ErrBannerParse = errors.New("failed to parse banner")
	// ErrTagParse is returned when the build tag does not carry a "name-major.minor..." version.
	ErrTagParse = errors.New("failed to parse tag")
	// ErrAnalysis is returned when a boundary heuristic comes up empty.
	ErrAnalysis = errors.New("analysis failed")
	// ErrMalformedRegion is returned by Layout.Validate for an empty or inverted region.
	ErrMalformedRegion = errors.New("malformed region")
	// ErrMalformedLayout is returned by Layout.Validate for out of order or overlapping regions.
	ErrMalformedLayout = errors.New("malformed layout")
	// ErrInvalidString is returned when a header string is not valid UTF-8.
	ErrInvalidString = errors.New("invalid string")
)
