package cache

import "errors"

// ErrInvalidConfig is returned by New when the byte bounds are not
// both positive, or when max_entry_bytes exceeds max_total_bytes.
var ErrInvalidConfig = errors.New("cache: max_total_bytes and max_entry_bytes must be positive, entry bound must not exceed total bound")
