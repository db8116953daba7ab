// Package sheet is the tabular store port: named sheets of ordered rows with
// 1-based row/column addressing, the shape the persistence layer and the
// read/search API work against. Two backends implement it, SQLite and
// Postgres.
package sheet

import (
	"context"

	"github.com/nhigh-tools/deadline-cli/internal/model"
)

// Width is the fixed column count of an event row.
const Width = model.RowWidth

// Store addresses sheets by name.
type Store interface {
	// GetSheet returns the named sheet, or nil if it does not exist.
	GetSheet(ctx context.Context, name string) (Sheet, error)

	// CreateSheet creates the named sheet. Creating an existing sheet is an
	// error.
	CreateSheet(ctx context.Context, name string) (Sheet, error)

	// EnsureSheet returns the named sheet, creating it if absent.
	EnsureSheet(ctx context.Context, name string) (Sheet, error)

	// Migrate creates the backing tables.
	Migrate(ctx context.Context) error

	Close() error
}

// Sheet is one ordered grid of rows. Rows and columns are 1-based.
type Sheet interface {
	Name() string

	// LastRow returns the highest occupied row number, 0 for an empty sheet.
	LastRow(ctx context.Context) (int, error)

	// ReadRange returns a numRows x numCols grid starting at (row, col).
	// Cells without data are empty strings.
	ReadRange(ctx context.Context, row, col, numRows, numCols int) ([][]string, error)

	// WriteRange writes the grid starting at (row, col), overwriting the
	// covered cells and preserving the rest of each row.
	WriteRange(ctx context.Context, row, col int, grid [][]string) error

	// DeleteRow removes the row and shifts every row below it up by one.
	DeleteRow(ctx context.Context, row int) error
}
