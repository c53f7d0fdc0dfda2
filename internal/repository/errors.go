// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow the service layer to tell
// "nothing matched" apart from a unique-key collision and from
// infrastructure failures, which are returned unwrapped.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when no row matches the lookup or the
// conditional update.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert collides with a unique key
// (username, email, category name or slug).
var ErrConflict = errors.New("conflict")

// MySQL server error numbers mapped by isDuplicate.
const (
	mysqlDupEntry = 1062
)

// isDuplicate reports whether err is a MySQL duplicate-key error.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDupEntry
}
