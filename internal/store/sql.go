package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lacquerai/blocksmith/internal/block"
	"github.com/lacquerai/blocksmith/internal/tutorial"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS block_definitions (
		block_name    TEXT PRIMARY KEY,
		block_type    TEXT NOT NULL,
		category      TEXT NOT NULL DEFAULT '',
		colour        TEXT NOT NULL DEFAULT '',
		definition    TEXT NOT NULL,
		code_template TEXT NOT NULL DEFAULT '',
		checkbox_mode TEXT NOT NULL DEFAULT '',
		position      INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS tutorials (
		id       TEXT PRIMARY KEY,
		title    TEXT NOT NULL,
		document TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0
	)`,
}

// SQLStore keeps block definitions and tutorials in SQLite or PostgreSQL
type SQLStore struct {
	db     *sql.DB
	driver string
}

var _ Store = (*SQLStore)(nil)

// OpenSQL connects to a database. driver is sqlite or postgres.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	switch driver {
	case DriverSQLite:
		if dsn == "" {
			dsn = "./blocksmith.db"
		}
	case DriverPostgres:
		if dsn == "" {
			return nil, fmt.Errorf("postgres store: database connection required (set database.dsn)")
		}
	default:
		return nil, fmt.Errorf("unsupported SQL driver: %s", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s store: failed to open database: %w", driver, err)
	}

	if driver == DriverSQLite {
		// a single connection keeps :memory: databases shared
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s store: failed to connect: %w", driver, err)
	}

	log.Debug().Str("driver", driver).Msg("Connected to block store")

	return &SQLStore{db: db, driver: driver}, nil
}

// Migrate creates the tables if they do not exist
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s store: migration failed: %w", s.driver, err)
		}
	}
	return nil
}

// DB exposes the underlying connection pool
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// ListBlocks returns every block definition ordered by position and name
func (s *SQLStore) ListBlocks(ctx context.Context) ([]block.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT block_name, block_type, category, colour, definition, code_template, checkbox_mode
		FROM block_definitions ORDER BY position, block_name`)
	if err != nil {
		return nil, fmt.Errorf("%s store: list blocks failed: %w", s.driver, err)
	}
	defer rows.Close()

	var records []block.Record
	for rows.Next() {
		var (
			rec        block.Record
			kind, mode string
			definition string
		)
		if err := rows.Scan(&rec.BlockName, &kind, &rec.Category, &rec.Colour, &definition, &rec.CodeTemplate, &mode); err != nil {
			return nil, fmt.Errorf("%s store: scan block failed: %w", s.driver, err)
		}
		rec.BlockType = block.Kind(kind)
		rec.CheckboxMode = block.CheckboxMode(mode)
		rec.Definition = json.RawMessage(definition)
		records = append(records, rec)
	}

	return records, rows.Err()
}

// SaveBlock inserts or replaces a block definition
func (s *SQLStore) SaveBlock(ctx context.Context, rec block.Record, position int) error {
	if rec.BlockName == "" {
		return fmt.Errorf("block_name is required")
	}
	if len(rec.Definition) == 0 {
		return fmt.Errorf("block %s: definition is required", rec.BlockName)
	}

	query := s.rebind(`INSERT INTO block_definitions
		(block_name, block_type, category, colour, definition, code_template, checkbox_mode, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (block_name) DO UPDATE SET
			block_type = excluded.block_type,
			category = excluded.category,
			colour = excluded.colour,
			definition = excluded.definition,
			code_template = excluded.code_template,
			checkbox_mode = excluded.checkbox_mode,
			position = excluded.position`)

	_, err := s.db.ExecContext(ctx, query,
		rec.BlockName, string(rec.BlockType), rec.Category, rec.Colour,
		string(rec.Definition), rec.CodeTemplate, string(rec.CheckboxMode), position)
	if err != nil {
		return fmt.Errorf("%s store: save block %s failed: %w", s.driver, rec.BlockName, err)
	}
	return nil
}

// DeleteBlock removes a block definition
func (s *SQLStore) DeleteBlock(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM block_definitions WHERE block_name = ?`), name)
	if err != nil {
		return fmt.Errorf("%s store: delete block %s failed: %w", s.driver, name, err)
	}
	return nil
}

// ListTutorials returns every tutorial ordered by position and id
func (s *SQLStore) ListTutorials(ctx context.Context) ([]*tutorial.Tutorial, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, document FROM tutorials ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("%s store: list tutorials failed: %w", s.driver, err)
	}
	defer rows.Close()

	var tutorials []*tutorial.Tutorial
	for rows.Next() {
		var id, document string
		if err := rows.Scan(&id, &document); err != nil {
			return nil, fmt.Errorf("%s store: scan tutorial failed: %w", s.driver, err)
		}

		t, err := tutorial.ParseJSON([]byte(document))
		if err != nil {
			return nil, fmt.Errorf("tutorial %s: %w", id, err)
		}
		tutorials = append(tutorials, t)
	}

	return tutorials, rows.Err()
}

// SaveTutorial inserts or replaces a tutorial
func (s *SQLStore) SaveTutorial(ctx context.Context, t *tutorial.Tutorial, position int) error {
	if err := t.Validate(); err != nil {
		return err
	}

	document, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode tutorial %s: %w", t.ID, err)
	}

	query := s.rebind(`INSERT INTO tutorials (id, title, document, position)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			document = excluded.document,
			position = excluded.position`)

	if _, err := s.db.ExecContext(ctx, query, t.ID, t.Title, string(document), position); err != nil {
		return fmt.Errorf("%s store: save tutorial %s failed: %w", s.driver, t.ID, err)
	}
	return nil
}

// Close releases the database connection
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	return rebindDollar(query)
}

func rebindDollar(query string) string {
	var out strings.Builder
	out.Grow(len(query) + 8)

	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			out.WriteString("$" + strconv.Itoa(n))
			continue
		}
		out.WriteRune(r)
	}
	return out.String()
}
