// Package universe holds the shared table of historical closing prices that
// every portfolio individual selects its assets from.
package universe

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrRaggedRows is returned when rows of the price table differ in length
	ErrRaggedRows = errors.New("price rows have inconsistent lengths")

	// ErrColumnOutOfRange is returned when a projection names a column the table does not have
	ErrColumnOutOfRange = errors.New("column position out of range")

	// ErrInsufficientHistory is returned by Validate when fewer than 2 rows are present
	ErrInsufficientHistory = errors.New("universe needs at least 2 rows of prices")

	// ErrTooFewAssets is returned by Validate when fewer than 2 columns are present
	ErrTooFewAssets = errors.New("universe needs at least 2 asset columns")
)

// Universe is an immutable price table: one row per time step in chronological
// order, one column per asset addressed by its 0-based position.
type Universe struct {
	prices  *mat.Dense
	symbols []string
	version string
}

// New builds a universe from row-major prices. symbols is optional; when given it
// must name every column.
func New(rows [][]float64, symbols []string) (*Universe, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty price table: %w", ErrInsufficientHistory)
	}

	cols := len(rows[0])
	if cols == 0 {
		return nil, fmt.Errorf("empty price row: %w", ErrTooFewAssets)
	}

	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d columns, expected %d: %w", i, len(row), cols, ErrRaggedRows)
		}
		data = append(data, row...)
	}

	if symbols != nil && len(symbols) != cols {
		return nil, fmt.Errorf("got %d symbols for %d columns", len(symbols), cols)
	}

	return &Universe{
		prices:  mat.NewDense(len(rows), cols, data),
		symbols: copySymbols(symbols),
		version: uuid.NewString(),
	}, nil
}

// FromDense wraps a copy of m.
func FromDense(m *mat.Dense, symbols []string) *Universe {
	return &Universe{
		prices:  mat.DenseCopyOf(m),
		symbols: copySymbols(symbols),
		version: uuid.NewString(),
	}
}

// Rows returns the number of time steps.
func (u *Universe) Rows() int {
	r, _ := u.prices.Dims()
	return r
}

// Cols returns the number of assets.
func (u *Universe) Cols() int {
	_, c := u.prices.Dims()
	return c
}

// At returns the price of asset col at time step row.
func (u *Universe) At(row, col int) float64 {
	return u.prices.At(row, col)
}

// Symbols returns the column symbols, or nil when the universe is unlabelled.
func (u *Universe) Symbols() []string {
	return copySymbols(u.symbols)
}

// Version identifies this table instance. Two universes built from identical
// prices still carry different versions.
func (u *Universe) Version() string {
	return u.version
}

// Columns returns a fresh rows×len(idx) matrix holding the requested columns in
// the order given.
func (u *Universe) Columns(idx []int) (*mat.Dense, error) {
	rows, cols := u.prices.Dims()
	if len(idx) == 0 {
		return nil, fmt.Errorf("projection needs at least one column")
	}

	out := mat.NewDense(rows, len(idx), nil)
	col := make([]float64, rows)
	for j, c := range idx {
		if c < 0 || c >= cols {
			return nil, fmt.Errorf("column %d of %d: %w", c, cols, ErrColumnOutOfRange)
		}
		mat.Col(col, c, u.prices)
		out.SetCol(j, col)
	}

	return out, nil
}

// Validate checks the minimum shape the statistics need. Registration never calls it.
func (u *Universe) Validate() error {
	if u.Rows() < 2 {
		return fmt.Errorf("%d rows: %w", u.Rows(), ErrInsufficientHistory)
	}
	if u.Cols() < 2 {
		return fmt.Errorf("%d columns: %w", u.Cols(), ErrTooFewAssets)
	}
	return nil
}

func copySymbols(symbols []string) []string {
	if symbols == nil {
		return nil
	}
	return append([]string(nil), symbols...)
}
