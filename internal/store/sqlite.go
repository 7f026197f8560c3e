package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/dropaudit/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It serves local and
// single-node deployments where running Postgres is not worth the trouble.
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
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS collections (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS collection_addresses (
	collection_id TEXT NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
	address       TEXT NOT NULL,
	PRIMARY KEY (collection_id, address)
);

CREATE TABLE IF NOT EXISTS comparison_audits (
	id             TEXT PRIMARY KEY,
	eligible_file  TEXT NOT NULL,
	minted_file    TEXT,
	collection_id  TEXT,
	total_eligible INTEGER NOT NULL,
	total_minted   INTEGER NOT NULL,
	remaining      INTEGER NOT NULL,
	invalid_count  INTEGER NOT NULL DEFAULT 0,
	result         TEXT,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_collection_addresses_collection ON collection_addresses(collection_id);
CREATE INDEX IF NOT EXISTS idx_comparison_audits_created_at ON comparison_audits(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateCollection(ctx context.Context, name, description string) (*model.Collection, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO collections (id, name, description, created_at) VALUES (?, ?, ?, ?)`,
		id, name, description, now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: collections.name") {
			return nil, eris.Wrapf(ErrDuplicateName, "%q", name)
		}
		return nil, eris.Wrap(err, "sqlite: insert collection")
	}

	return &model.Collection{
		ID:          id,
		Name:        name,
		Description: description,
		CreatedAt:   now,
	}, nil
}

func (s *SQLiteStore) GetCollection(ctx context.Context, id string) (*model.Collection, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, created_at,
		        (SELECT count(*) FROM collection_addresses a WHERE a.collection_id = c.id)
		 FROM collections c WHERE id = ?`,
		id,
	)

	var c model.Collection
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.AddressCount)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "collection %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get collection")
	}
	return &c, nil
}

func (s *SQLiteStore) ListCollections(ctx context.Context) ([]model.Collection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, created_at,
		        (SELECT count(*) FROM collection_addresses a WHERE a.collection_id = c.id)
		 FROM collections c ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list collections")
	}
	defer rows.Close()

	var out []model.Collection
	for rows.Next() {
		var c model.Collection
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.AddressCount); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan collection")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list collections iterate")
}

func (s *SQLiteStore) DeleteCollection(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM collections WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete collection %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "collection %s", id)
	}
	return nil
}

func (s *SQLiteStore) AddAddresses(ctx context.Context, collectionID string, addresses []string) (int, error) {
	if len(addresses) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin add addresses")
	}
	defer tx.Rollback() //nolint:errcheck

	added := 0
	for _, addr := range addresses {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO collection_addresses (collection_id, address) VALUES (?, ?)`,
			collectionID, addr,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert member %s", addr)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: rows affected")
		}
		added += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit add addresses")
	}
	return added, nil
}

func (s *SQLiteStore) RemoveAddress(ctx context.Context, collectionID, address string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM collection_addresses WHERE collection_id = ? AND address = ?`,
		collectionID, address,
	)
	return eris.Wrap(err, "sqlite: remove member")
}

func (s *SQLiteStore) ListAddresses(ctx context.Context, collectionID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT address FROM collection_addresses WHERE collection_id = ? ORDER BY address`,
		collectionID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list members")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan member")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list members iterate")
}

func (s *SQLiteStore) CountAddresses(ctx context.Context, collectionID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM collection_addresses WHERE collection_id = ?`,
		collectionID,
	).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count members")
}

func (s *SQLiteStore) SaveComparison(ctx context.Context, audit *model.ComparisonAudit) (*model.ComparisonAudit, error) {
	saved := *audit
	saved.ID = uuid.New().String()
	saved.CreatedAt = time.Now().UTC()

	resultJSON, err := json.Marshal(saved.Result)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal comparison result")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO comparison_audits
		 (id, eligible_file, minted_file, collection_id, total_eligible, total_minted, remaining, invalid_count, result, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		saved.ID, saved.EligibleFile, sqlNullable(saved.MintedFile), sqlNullable(saved.CollectionID),
		saved.TotalEligible, saved.TotalMinted, saved.Remaining, saved.InvalidCount,
		string(resultJSON), saved.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert comparison audit")
	}
	return &saved, nil
}

func (s *SQLiteStore) GetComparison(ctx context.Context, id string) (*model.ComparisonAudit, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, eligible_file, minted_file, collection_id, total_eligible, total_minted, remaining, invalid_count, result, created_at
		 FROM comparison_audits WHERE id = ?`,
		id,
	)

	var (
		a              model.ComparisonAudit
		minted, collID sql.NullString
		resultJSON     sql.NullString
	)
	err := row.Scan(&a.ID, &a.EligibleFile, &minted, &collID, &a.TotalEligible, &a.TotalMinted, &a.Remaining, &a.InvalidCount, &resultJSON, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "comparison %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get comparison")
	}

	a.MintedFile = minted.String
	a.CollectionID = collID.String
	if resultJSON.Valid && resultJSON.String != "null" {
		a.Result = &model.ComparisonResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), a.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal comparison result")
		}
	}
	return &a, nil
}

func (s *SQLiteStore) ListComparisons(ctx context.Context, limit int) ([]model.ComparisonAudit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, eligible_file, minted_file, collection_id, total_eligible, total_minted, remaining, invalid_count, created_at
		 FROM comparison_audits ORDER BY created_at DESC LIMIT ?`,
		clampLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list comparisons")
	}
	defer rows.Close()

	var out []model.ComparisonAudit
	for rows.Next() {
		var (
			a              model.ComparisonAudit
			minted, collID sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.EligibleFile, &minted, &collID, &a.TotalEligible, &a.TotalMinted, &a.Remaining, &a.InvalidCount, &a.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan comparison audit")
		}
		a.MintedFile = minted.String
		a.CollectionID = collID.String
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list comparisons iterate")
}

// sqlNullable maps "" to NULL for optional text columns.
func sqlNullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
