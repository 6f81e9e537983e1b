package stream

import (
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrInvalidRange marks a Range header that is malformed or unsupported;
	// callers serve the whole file.
	ErrInvalidRange = errors.New("invalid range")
	// ErrRangeNotSatisfiable marks a well-formed range that starts past EOF.
	ErrRangeNotSatisfiable = errors.New("range not satisfiable")
)

// ParseByteRange parses a single "bytes=start-end" range against size and
// returns the inclusive window. Suffix ranges ("bytes=-N") are supported,
// an end past EOF is clamped, multi-range values are rejected.
func ParseByteRange(value string, size int64) (int64, int64, error) {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(strings.ToLower(value), "bytes=") {
		return 0, 0, ErrInvalidRange
	}

	set := strings.TrimSpace(value[len("bytes="):])
	if set == "" || strings.Contains(set, ",") {
		return 0, 0, ErrInvalidRange
	}

	startStr, endStr, found := strings.Cut(set, "-")
	if !found {
		return 0, 0, ErrInvalidRange
	}
	startStr = strings.TrimSpace(startStr)
	endStr = strings.TrimSpace(endStr)

	if startStr == "" {
		if endStr == "" {
			return 0, 0, ErrInvalidRange
		}
		suffix, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || suffix <= 0 {
			return 0, 0, ErrInvalidRange
		}
		if size <= 0 {
			return 0, 0, ErrRangeNotSatisfiable
		}
		if suffix > size {
			suffix = size
		}
		return size - suffix, size - 1, nil
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return 0, 0, ErrInvalidRange
	}

	end := size - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < start {
			return 0, 0, ErrInvalidRange
		}
	}

	if start >= size {
		return 0, 0, ErrRangeNotSatisfiable
	}
	if end >= size {
		end = size - 1
	}
	return start, end, nil
}
