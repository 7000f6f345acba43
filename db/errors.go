package db

import (
	"strings"

	"github.com/propscout/propscout/errors"
)

// ErrDatabaseClosed is returned by stores used after shutdown closed the
// database.
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed reports whether err means the connection is gone, either
// as ErrDatabaseClosed or as the raw database/sql error.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDatabaseClosed) {
		return true
	}
	return strings.Contains(err.Error(), "database is closed")
}
