package sheet

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS sheets (
	name       TEXT PRIMARY KEY,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS sheet_rows (
	id      TEXT PRIMARY KEY,
	sheet   TEXT NOT NULL REFERENCES sheets(name),
	row_num INTEGER NOT NULL,
	c1      TEXT NOT NULL DEFAULT '',
	c2      TEXT NOT NULL DEFAULT '',
	c3      TEXT NOT NULL DEFAULT '',
	c4      TEXT NOT NULL DEFAULT '',
	c5      TEXT NOT NULL DEFAULT '',
	UNIQUE(sheet, row_num)
);

CREATE INDEX IF NOT EXISTS idx_sheet_rows_sheet ON sheet_rows(sheet, row_num);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetSheet(ctx context.Context, name string) (Sheet, error) {
	var found string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM sheets WHERE name = ?`, name).Scan(&found)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get sheet %s", name)
	}
	return &sqliteSheet{db: s.db, name: name}, nil
}

func (s *SQLiteStore) CreateSheet(ctx context.Context, name string) (Sheet, error) {
	_, err := s.db.ExecContext(ctx, `INSERT INTO sheets (name) VALUES (?)`, name)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: create sheet %s", name)
	}
	return &sqliteSheet{db: s.db, name: name}, nil
}

func (s *SQLiteStore) EnsureSheet(ctx context.Context, name string) (Sheet, error) {
	_, err := s.db.ExecContext(ctx, `INSERT INTO sheets (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: ensure sheet %s", name)
	}
	return &sqliteSheet{db: s.db, name: name}, nil
}

type sqliteSheet struct {
	db   *sql.DB
	name string
}

func (sh *sqliteSheet) Name() string {
	return sh.name
}

func (sh *sqliteSheet) LastRow(ctx context.Context) (int, error) {
	var last int
	err := sh.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(row_num), 0) FROM sheet_rows WHERE sheet = ?`, sh.name,
	).Scan(&last)
	return last, eris.Wrapf(err, "sqlite: last row of %s", sh.name)
}

func (sh *sqliteSheet) ReadRange(ctx context.Context, row, col, numRows, numCols int) ([][]string, error) {
	if err := checkRange(row, col, numRows, numCols); err != nil {
		return nil, err
	}

	grid := emptyGrid(numRows, numCols)

	rows, err := sh.db.QueryContext(ctx,
		`SELECT row_num, c1, c2, c3, c4, c5 FROM sheet_rows
		 WHERE sheet = ? AND row_num >= ? AND row_num < ?
		 ORDER BY row_num`,
		sh.name, row, row+numRows,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: read range of %s", sh.name)
	}
	defer rows.Close()

	for rows.Next() {
		var rowNum int
		cells := make([]string, Width)
		if err := rows.Scan(&rowNum, &cells[0], &cells[1], &cells[2], &cells[3], &cells[4]); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan row")
		}
		fillGridRow(grid[rowNum-row], cells, col, numCols)
	}
	return grid, eris.Wrap(rows.Err(), "sqlite: read range iterate")
}

func (sh *sqliteSheet) WriteRange(ctx context.Context, row, col int, grid [][]string) error {
	if err := checkRange(row, col, len(grid), gridWidth(grid)); err != nil {
		return err
	}

	tx, err := sh.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin write")
	}
	defer tx.Rollback()

	for i, cells := range grid {
		rowNum := row + i

		existing := make([]string, Width)
		err := tx.QueryRowContext(ctx,
			`SELECT c1, c2, c3, c4, c5 FROM sheet_rows WHERE sheet = ? AND row_num = ?`,
			sh.name, rowNum,
		).Scan(&existing[0], &existing[1], &existing[2], &existing[3], &existing[4])
		if err != nil && err != sql.ErrNoRows {
			return eris.Wrap(err, "sqlite: read existing row")
		}

		merged := mergeCells(existing, cells, col)
		_, err = tx.ExecContext(ctx,
			`INSERT INTO sheet_rows (id, sheet, row_num, c1, c2, c3, c4, c5)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(sheet, row_num) DO UPDATE SET
			   c1 = excluded.c1, c2 = excluded.c2, c3 = excluded.c3,
			   c4 = excluded.c4, c5 = excluded.c5`,
			uuid.New().String(), sh.name, rowNum,
			merged[0], merged[1], merged[2], merged[3], merged[4],
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: write row %d of %s", rowNum, sh.name)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit write")
}

func (sh *sqliteSheet) DeleteRow(ctx context.Context, row int) error {
	if row < 1 {
		return eris.Errorf("sheet: invalid row %d", row)
	}

	tx, err := sh.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin delete")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM sheet_rows WHERE sheet = ? AND row_num = ?`, sh.name, row,
	); err != nil {
		return eris.Wrapf(err, "sqlite: delete row %d of %s", row, sh.name)
	}

	// Shift the rows below up by one. The two-step sign flip keeps the
	// (sheet, row_num) uniqueness constraint satisfied mid-update.
	if _, err := tx.ExecContext(ctx,
		`UPDATE sheet_rows SET row_num = -(row_num - 1) WHERE sheet = ? AND row_num > ?`,
		sh.name, row,
	); err != nil {
		return eris.Wrap(err, "sqlite: shift rows")
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE sheet_rows SET row_num = -row_num WHERE sheet = ? AND row_num < 0`,
		sh.name,
	); err != nil {
		return eris.Wrap(err, "sqlite: unflip rows")
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit delete")
}

// shared grid helpers

func checkRange(row, col, numRows, numCols int) error {
	if row < 1 || col < 1 || numRows < 0 || numCols < 0 || col+numCols-1 > Width {
		return eris.Errorf("sheet: invalid range row=%d col=%d rows=%d cols=%d", row, col, numRows, numCols)
	}
	return nil
}

func emptyGrid(numRows, numCols int) [][]string {
	grid := make([][]string, numRows)
	for i := range grid {
		grid[i] = make([]string, numCols)
	}
	return grid
}

// fillGridRow copies cells[col-1 : col-1+numCols] into dst.
func fillGridRow(dst, cells []string, col, numCols int) {
	for j := 0; j < numCols; j++ {
		dst[j] = cells[col-1+j]
	}
}

// mergeCells overlays incoming onto existing starting at 1-based col.
func mergeCells(existing, incoming []string, col int) []string {
	merged := make([]string, Width)
	copy(merged, existing)
	for j, v := range incoming {
		if col-1+j < Width {
			merged[col-1+j] = v
		}
	}
	return merged
}

func gridWidth(grid [][]string) int {
	w := 0
	for _, r := range grid {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}
