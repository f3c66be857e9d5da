//go:build !(linux || darwin)

package medium

import "fmt"

func openSegment(locator string, _ Mode) (Backend, error) {
	return nil, fmt.Errorf("medium: shared memory not supported on this platform (%q): %w",
		locator, ErrResourceUnavailable)
}

func createSegment(locator string, _ int64) (Backend, error) {
	return nil, fmt.Errorf("medium: shared memory not supported on this platform (%q): %w",
		locator, ErrResourceUnavailable)
}
