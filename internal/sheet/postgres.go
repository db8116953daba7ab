package sheet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it in
// tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS sheets (
	name       TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
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

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) GetSheet(ctx context.Context, name string) (Sheet, error) {
	var found string
	err := s.pool.QueryRow(ctx, `SELECT name FROM sheets WHERE name = $1`, name).Scan(&found)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get sheet %s", name)
	}
	return &postgresSheet{pool: s.pool, name: name}, nil
}

func (s *PostgresStore) CreateSheet(ctx context.Context, name string) (Sheet, error) {
	_, err := s.pool.Exec(ctx, `INSERT INTO sheets (name) VALUES ($1)`, name)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: create sheet %s", name)
	}
	return &postgresSheet{pool: s.pool, name: name}, nil
}

func (s *PostgresStore) EnsureSheet(ctx context.Context, name string) (Sheet, error) {
	_, err := s.pool.Exec(ctx, `INSERT INTO sheets (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: ensure sheet %s", name)
	}
	return &postgresSheet{pool: s.pool, name: name}, nil
}

type postgresSheet struct {
	pool Pool
	name string
}

func (sh *postgresSheet) Name() string {
	return sh.name
}

func (sh *postgresSheet) LastRow(ctx context.Context) (int, error) {
	var last int
	err := sh.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(row_num), 0) FROM sheet_rows WHERE sheet = $1`, sh.name,
	).Scan(&last)
	return last, eris.Wrapf(err, "postgres: last row of %s", sh.name)
}

func (sh *postgresSheet) ReadRange(ctx context.Context, row, col, numRows, numCols int) ([][]string, error) {
	if err := checkRange(row, col, numRows, numCols); err != nil {
		return nil, err
	}

	grid := emptyGrid(numRows, numCols)

	rows, err := sh.pool.Query(ctx,
		`SELECT row_num, c1, c2, c3, c4, c5 FROM sheet_rows
		 WHERE sheet = $1 AND row_num >= $2 AND row_num < $3
		 ORDER BY row_num`,
		sh.name, row, row+numRows,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: read range of %s", sh.name)
	}
	defer rows.Close()

	for rows.Next() {
		var rowNum int
		cells := make([]string, Width)
		if err := rows.Scan(&rowNum, &cells[0], &cells[1], &cells[2], &cells[3], &cells[4]); err != nil {
			return nil, eris.Wrap(err, "postgres: scan row")
		}
		fillGridRow(grid[rowNum-row], cells, col, numCols)
	}
	return grid, eris.Wrap(rows.Err(), "postgres: read range iterate")
}

func (sh *postgresSheet) WriteRange(ctx context.Context, row, col int, grid [][]string) error {
	if err := checkRange(row, col, len(grid), gridWidth(grid)); err != nil {
		return err
	}

	for i, cells := range grid {
		rowNum := row + i

		existing := make([]string, Width)
		err := sh.pool.QueryRow(ctx,
			`SELECT c1, c2, c3, c4, c5 FROM sheet_rows WHERE sheet = $1 AND row_num = $2`,
			sh.name, rowNum,
		).Scan(&existing[0], &existing[1], &existing[2], &existing[3], &existing[4])
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return eris.Wrap(err, "postgres: read existing row")
		}

		merged := mergeCells(existing, cells, col)
		_, err = sh.pool.Exec(ctx,
			`INSERT INTO sheet_rows (id, sheet, row_num, c1, c2, c3, c4, c5)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (sheet, row_num) DO UPDATE SET
			   c1 = EXCLUDED.c1, c2 = EXCLUDED.c2, c3 = EXCLUDED.c3,
			   c4 = EXCLUDED.c4, c5 = EXCLUDED.c5`,
			uuid.New().String(), sh.name, rowNum,
			merged[0], merged[1], merged[2], merged[3], merged[4],
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: write row %d of %s", rowNum, sh.name)
		}
	}

	return nil
}

func (sh *postgresSheet) DeleteRow(ctx context.Context, row int) error {
	if row < 1 {
		return eris.Errorf("sheet: invalid row %d", row)
	}

	if _, err := sh.pool.Exec(ctx,
		`DELETE FROM sheet_rows WHERE sheet = $1 AND row_num = $2`, sh.name, row,
	); err != nil {
		return eris.Wrapf(err, "postgres: delete row %d of %s", row, sh.name)
	}

	// Two-step sign flip keeps (sheet, row_num) unique while shifting.
	if _, err := sh.pool.Exec(ctx,
		`UPDATE sheet_rows SET row_num = -(row_num - 1) WHERE sheet = $1 AND row_num > $2`,
		sh.name, row,
	); err != nil {
		return eris.Wrap(err, "postgres: shift rows")
	}
	if _, err := sh.pool.Exec(ctx,
		`UPDATE sheet_rows SET row_num = -row_num WHERE sheet = $1 AND row_num < 0`,
		sh.name,
	); err != nil {
		return eris.Wrap(err, "postgres: unflip rows")
	}

	return nil
}
