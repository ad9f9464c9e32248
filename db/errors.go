package db

import (
	"fmt"

	"recipeshare/common"
)

var (
	ErrNotFound     = fmt.Errorf("document not found: %w", common.ErrNotFound)
	ErrDuplicateKey = fmt.Errorf("duplicate key: %w", common.ErrConflict)
	// ErrStale is returned by versioned saves when the stored document moved on.
	ErrStale = fmt.Errorf("document was modified concurrently: %w", common.ErrConflict)
)
