package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/dropaudit/internal/db"
	"github.com/sells-group/dropaudit/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_member":  `INSERT INTO collection_addresses (collection_id, address) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
	"count_members":  `SELECT count(*) FROM collection_addresses WHERE collection_id = $1`,
	"get_collection": `SELECT id, name, description, created_at, (SELECT count(*) FROM collection_addresses a WHERE a.collection_id = c.id) FROM collections c WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS collections (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
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
	result         JSONB,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_collection_addresses_collection ON collection_addresses(collection_id);
CREATE INDEX IF NOT EXISTS idx_comparison_audits_created_at ON comparison_audits(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_comparison_audits_collection ON comparison_audits(collection_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateCollection(ctx context.Context, name, description string) (*model.Collection, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO collections (id, name, description, created_at) VALUES ($1, $2, $3, $4)`,
		id, name, description, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, eris.Wrapf(ErrDuplicateName, "%q", name)
		}
		return nil, eris.Wrap(err, "postgres: insert collection")
	}

	return &model.Collection{
		ID:          id,
		Name:        name,
		Description: description,
		CreatedAt:   now,
	}, nil
}

func (s *PostgresStore) GetCollection(ctx context.Context, id string) (*model.Collection, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, description, created_at,
		        (SELECT count(*) FROM collection_addresses a WHERE a.collection_id = c.id)
		 FROM collections c WHERE id = $1`,
		id,
	)

	var c model.Collection
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.AddressCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "collection %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get collection")
	}
	return &c, nil
}

func (s *PostgresStore) ListCollections(ctx context.Context) ([]model.Collection, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, description, created_at,
		        (SELECT count(*) FROM collection_addresses a WHERE a.collection_id = c.id)
		 FROM collections c ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list collections")
	}
	defer rows.Close()

	var out []model.Collection
	for rows.Next() {
		var c model.Collection
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.AddressCount); err != nil {
			return nil, eris.Wrap(err, "postgres: scan collection")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list collections iterate")
}

func (s *PostgresStore) DeleteCollection(ctx context.Context, id string) error {
	// Memberships go with the collection via ON DELETE CASCADE.
	tag, err := s.pool.Exec(ctx, `DELETE FROM collections WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete collection %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "collection %s", id)
	}
	return nil
}

func (s *PostgresStore) AddAddresses(ctx context.Context, collectionID string, addresses []string) (int, error) {
	if len(addresses) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin add addresses")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	added := 0
	for _, addr := range addresses {
		tag, err := tx.Exec(ctx,
			`INSERT INTO collection_addresses (collection_id, address) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			collectionID, addr,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: insert member %s", addr)
		}
		added += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit add addresses")
	}
	return added, nil
}

func (s *PostgresStore) RemoveAddress(ctx context.Context, collectionID, address string) error {
	// Idempotent: removing an absent member is not an error.
	_, err := s.pool.Exec(ctx,
		`DELETE FROM collection_addresses WHERE collection_id = $1 AND address = $2`,
		collectionID, address,
	)
	return eris.Wrap(err, "postgres: remove member")
}

func (s *PostgresStore) ListAddresses(ctx context.Context, collectionID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT address FROM collection_addresses WHERE collection_id = $1 ORDER BY address`,
		collectionID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list members")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, eris.Wrap(err, "postgres: scan member")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list members iterate")
}

func (s *PostgresStore) CountAddresses(ctx context.Context, collectionID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM collection_addresses WHERE collection_id = $1`,
		collectionID,
	).Scan(&n)
	return n, eris.Wrap(err, "postgres: count members")
}

func (s *PostgresStore) SaveComparison(ctx context.Context, audit *model.ComparisonAudit) (*model.ComparisonAudit, error) {
	saved := *audit
	saved.ID = uuid.New().String()
	saved.CreatedAt = time.Now().UTC()

	resultJSON, err := json.Marshal(saved.Result)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal comparison result")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO comparison_audits
		 (id, eligible_file, minted_file, collection_id, total_eligible, total_minted, remaining, invalid_count, result, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		saved.ID, saved.EligibleFile, nullable(saved.MintedFile), nullable(saved.CollectionID),
		saved.TotalEligible, saved.TotalMinted, saved.Remaining, saved.InvalidCount,
		resultJSON, saved.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert comparison audit")
	}
	return &saved, nil
}

func (s *PostgresStore) GetComparison(ctx context.Context, id string) (*model.ComparisonAudit, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, eligible_file, minted_file, collection_id, total_eligible, total_minted, remaining, invalid_count, result, created_at
		 FROM comparison_audits WHERE id = $1`,
		id,
	)

	a, err := scanAudit(row, true)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "comparison %s", id)
	}
	return a, err
}

func (s *PostgresStore) ListComparisons(ctx context.Context, limit int) ([]model.ComparisonAudit, error) {
	// The list view omits the full result blob; fetch one audit for that.
	rows, err := s.pool.Query(ctx,
		`SELECT id, eligible_file, minted_file, collection_id, total_eligible, total_minted, remaining, invalid_count, created_at
		 FROM comparison_audits ORDER BY created_at DESC LIMIT $1`,
		clampLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list comparisons")
	}
	defer rows.Close()

	var out []model.ComparisonAudit
	for rows.Next() {
		a, err := scanAudit(rows, false)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list comparisons iterate")
}

// helpers

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// nullable maps "" to NULL for optional text columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type scannable interface {
	Scan(dest ...any) error
}

func scanAudit(row scannable, withResult bool) (*model.ComparisonAudit, error) {
	var (
		a              model.ComparisonAudit
		minted, collID *string
		resultJSON     []byte
	)

	dest := []any{&a.ID, &a.EligibleFile, &minted, &collID, &a.TotalEligible, &a.TotalMinted, &a.Remaining, &a.InvalidCount}
	if withResult {
		dest = append(dest, &resultJSON)
	}
	dest = append(dest, &a.CreatedAt)

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "postgres: scan comparison audit")
	}

	if minted != nil {
		a.MintedFile = *minted
	}
	if collID != nil {
		a.CollectionID = *collID
	}
	if len(resultJSON) > 0 && string(resultJSON) != "null" {
		a.Result = &model.ComparisonResult{}
		if err := json.Unmarshal(resultJSON, a.Result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal comparison result")
		}
	}
	return &a, nil
}
