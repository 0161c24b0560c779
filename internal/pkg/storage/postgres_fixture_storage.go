package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/oskarlindgren/valuebets/internal/pkg/config"
	"github.com/oskarlindgren/valuebets/internal/pkg/models"
)

// Ensure PostgresFixtureStorage implements FixtureStore
var _ FixtureStore = (*PostgresFixtureStorage)(nil)

const fixtureTable = "bets"

// undefinedColumnCode is the postgres error class for "column does not
// exist", raised when the record carries a field the table predates.
const undefinedColumnCode = pq.ErrorCode("42703")

// PostgresFixtureStorage stores seen BetRecords in PostgreSQL.
type PostgresFixtureStorage struct {
	db *sql.DB
}

// NewPostgresFixtureStorage opens a connection and makes sure the fixture
// table exists.
func NewPostgresFixtureStorage(cfg *config.PostgresConfig) (*PostgresFixtureStorage, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	storage := &PostgresFixtureStorage{db: db}

	if err := storage.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

func (s *PostgresFixtureStorage) initSchema(ctx context.Context) error {
	columns := (&models.BetRecord{}).Columns()

	defs := make([]string, 0, len(columns))
	for _, col := range columns {
		if col.Name == "id" {
			defs = append(defs, "id TEXT PRIMARY KEY")
			continue
		}
		defs = append(defs, fmt.Sprintf("%s %s", col.Name, columnType(col.Value)))
	}

	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", fixtureTable, strings.Join(defs, ", "))
	_, err := s.db.ExecContext(ctx, query)
	return err
}

// LookupIdentities returns the identities from the given set that already
// exist in the store.
func (s *PostgresFixtureStorage) LookupIdentities(ctx context.Context, identities []string) (map[string]struct{}, error) {
	if len(identities) == 0 {
		return nil, fmt.Errorf("identity lookup requires at least one identity")
	}

	query := fmt.Sprintf("SELECT id FROM %s WHERE id = ANY($1)", fixtureTable)
	rows, err := s.db.QueryContext(ctx, query, pq.Array(identities))
	if err != nil {
		return nil, fmt.Errorf("failed to query identities: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan identity: %w", err)
		}
		seen[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read identities: %w", err)
	}

	return seen, nil
}

// InsertRecords appends the records to the fixture table. An insert that
// fails because the table is missing a column the record carries (schema
// drift after a model change) self-heals: the missing columns are added
// with types inferred from the in-memory values, and the insert is retried
// exactly once. A second failure is returned to the caller.
func (s *PostgresFixtureStorage) InsertRecords(ctx context.Context, records []models.BetRecord) error {
	if len(records) == 0 {
		return nil
	}

	err := s.insertAll(ctx, records)
	if err == nil {
		return nil
	}
	if !isUndefinedColumn(err) {
		return err
	}

	slog.Warn("Fixture table is missing columns, altering schema", "error", err)
	if healErr := s.addMissingColumns(ctx, records[0]); healErr != nil {
		return fmt.Errorf("failed to heal fixture schema: %w", healErr)
	}

	if err := s.insertAll(ctx, records); err != nil {
		return fmt.Errorf("insert failed after schema heal: %w", err)
	}
	return nil
}

// insertAll writes the batch inside a single transaction. Nothing is
// committed unless every record goes in: a partially committed batch would
// be treated as seen by the next cycle's dedup and its notifications lost.
func (s *PostgresFixtureStorage) insertAll(ctx context.Context, records []models.BetRecord) error {
	columns := records[0].Columns()

	names := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, col := range columns {
		names[i] = col.Name
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) DO NOTHING",
		fixtureTable, strings.Join(names, ", "), strings.Join(placeholders, ", "),
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin insert transaction: %w", err)
	}

	for i := range records {
		cols := records[i].Columns()
		values := make([]interface{}, len(cols))
		for j, col := range cols {
			values[j] = normalizeValue(col.Value)
		}
		if _, err := tx.ExecContext(ctx, query, values...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert record %s: %w", records[i].Identity, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit insert transaction: %w", err)
	}
	return nil
}

// addMissingColumns compares the record's columns against the live table
// and adds whatever the table lacks.
func (s *PostgresFixtureStorage) addMissingColumns(ctx context.Context, record models.BetRecord) error {
	existing, err := s.tableColumns(ctx)
	if err != nil {
		return err
	}

	for _, col := range record.Columns() {
		if _, ok := existing[col.Name]; ok {
			continue
		}
		colType := columnType(col.Value)
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s", fixtureTable, col.Name, colType)
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to add column %s: %w", col.Name, err)
		}
		slog.Info("Added fixture table column", "column", col.Name, "type", colType)
	}
	return nil
}

func (s *PostgresFixtureStorage) tableColumns(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT column_name FROM information_schema.columns WHERE table_name = $1", fixtureTable)
	if err != nil {
		return nil, fmt.Errorf("failed to read table columns: %w", err)
	}
	defer rows.Close()

	columns := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan column name: %w", err)
		}
		columns[name] = struct{}{}
	}
	return columns, rows.Err()
}

// Close closes the database connection.
func (s *PostgresFixtureStorage) Close() error {
	return s.db.Close()
}

func isUndefinedColumn(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == undefinedColumnCode
	}
	return false
}

// columnType maps a runtime value to the column type it is persisted as.
// Booleans are stored as integers and timestamps as text, matching the
// legacy table layout the store may be pointed at.
func columnType(value interface{}) string {
	switch value.(type) {
	case int, int32, int64:
		return "BIGINT"
	case float32, float64:
		return "DOUBLE PRECISION"
	case bool:
		return "INTEGER"
	case time.Time:
		return "TEXT"
	default:
		return "TEXT"
	}
}

// normalizeValue converts values to the shape the column type expects.
func normalizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case bool:
		if v {
			return 1
		}
		return 0
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	default:
		return value
	}
}
