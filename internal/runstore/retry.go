package runstore

import (
	"errors"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	busyMaxAttempts = 5
	busyBaseWait    = 10 * time.Millisecond
)

// retryOnBusy runs fn up to busyMaxAttempts times, backing off
// exponentially while SQLite reports the database as busy or locked.
func retryOnBusy(fn func() error) error {
	var err error
	for attempt := 0; attempt < busyMaxAttempts; attempt++ {
		if err = fn(); err == nil || !isBusy(err) {
			return err
		}
		if attempt < busyMaxAttempts-1 {
			time.Sleep(busyBaseWait << attempt)
		}
	}
	return err
}

func isBusy(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code() & 0xff
		return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
