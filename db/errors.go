/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package db

import (
	"errors"
	"fmt"
	"log"
)

// ErrUnknown is the single failure status of the database layer. Every error
// returned by this package and by the backends wraps it, so callers only
// ever need errors.Is(err, ErrUnknown). Details go to the log.
var ErrUnknown = errors.New("db: unknown error")

// ErrStaleRevision is returned when a revisioned update or delete matched no
// row, i.e. somebody else changed (or removed) the row since it was read.
var ErrStaleRevision = fmt.Errorf("%w: stale revision", ErrUnknown)

// Errorf logs the diagnostic and returns it wrapped around ErrUnknown.
// Backends use it so that the log line and the returned error agree.
func Errorf(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	log.Printf("db: %s", msg)
	return fmt.Errorf("%w: %s", ErrUnknown, msg)
}
