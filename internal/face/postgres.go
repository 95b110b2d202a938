package face

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/verivote/verivote/pkg/identity"
)

// Schema is the SQL DDL for the face_profiles table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment. The seq
// column preserves enrollment order for deterministic tie-breaking.
const Schema = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS face_profiles (
    voter_id    TEXT PRIMARY KEY,
    descriptor  vector(128) NOT NULL,
    name        TEXT NOT NULL DEFAULT '',
    age         TEXT NOT NULL DEFAULT '',
    gender      TEXT NOT NULL DEFAULT '',
    address     TEXT NOT NULL DEFAULT '',
    seq         BIGSERIAL,
    enrolled_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_face_profiles_seq ON face_profiles(seq);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Compile-time interface checks.
var (
	_ Store           = (*PostgresStore)(nil)
	_ NearestNeighbor = (*PostgresStore)(nil)
)

// PostgresStore is a [Store] backed by PostgreSQL with the pgvector
// extension. Descriptors live in a vector(128) column, so [Nearest] resolves
// with a single `<->` (L2) ordered scan on the database side instead of
// pulling every profile over the wire.
type PostgresStore struct {
	db DB
}

// NewPostgresStore creates a [PostgresStore] over an existing connection or
// pool. The caller is responsible for running [PostgresStore.Migrate] before
// issuing queries and for registering pgvector types on the connection (see
// [Connect]).
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Connect establishes a pgx pool against dsn with pgvector types registered
// on every connection, runs [PostgresStore.Migrate], and returns the store.
func Connect(ctx context.Context, dsn string) (*PostgresStore, *pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("face: parse dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("face: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("face: ping: %w", err)
	}

	store := NewPostgresStore(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store, pool, nil
}

// Migrate executes the [Schema] DDL, creating the face_profiles table and the
// vector extension if they do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("face: migrate: %w", err)
	}
	return nil
}

// Add implements [Store.Add].
func (s *PostgresStore) Add(ctx context.Context, p BiometricProfile) error {
	const query = `
		INSERT INTO face_profiles (voter_id, descriptor, name, age, gender, address)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING enrolled_at`

	id := identity.NormalizeVoterID(p.VoterID)
	err := s.db.QueryRow(ctx, query,
		id, toVector(p.Descriptor), p.Name, p.Age, p.Gender, p.Address,
	).Scan(&p.EnrolledAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("%w: %q", ErrDuplicateVoter, id)
		}
		return fmt.Errorf("face: insert profile: %w", err)
	}
	return nil
}

// List implements [Store.List]. Profiles are returned in enrollment order.
func (s *PostgresStore) List(ctx context.Context) ([]BiometricProfile, error) {
	const query = `
		SELECT voter_id, descriptor, name, age, gender, address, enrolled_at
		FROM face_profiles
		ORDER BY seq`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("face: list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []BiometricProfile
	for rows.Next() {
		p, err := scanProfile(rows.Scan)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("face: list profiles: %w", err)
	}
	return profiles, nil
}

// Reset implements [Store.Reset].
func (s *PostgresStore) Reset(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, `TRUNCATE face_profiles`); err != nil {
		return fmt.Errorf("face: reset: %w", err)
	}
	return nil
}

// Nearest implements [NearestNeighbor] with a pgvector `<->` ordered scan.
// Ties at equal distance resolve to the earliest enrolled profile.
func (s *PostgresStore) Nearest(ctx context.Context, descriptor []float64) (BiometricProfile, float64, bool, error) {
	const query = `
		SELECT voter_id, descriptor, name, age, gender, address, enrolled_at,
		       descriptor <-> $1 AS distance
		FROM face_profiles
		ORDER BY distance, seq
		LIMIT 1`

	var (
		p        BiometricProfile
		vec      pgvector.Vector
		distance float64
	)
	err := s.db.QueryRow(ctx, query, toVector(descriptor)).Scan(
		&p.VoterID, &vec, &p.Name, &p.Age, &p.Gender, &p.Address, &p.EnrolledAt, &distance,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return BiometricProfile{}, 0, false, nil
	}
	if err != nil {
		return BiometricProfile{}, 0, false, fmt.Errorf("face: nearest: %w", err)
	}
	p.Descriptor = fromVector(vec)
	return p, distance, true, nil
}

// Ping probes database connectivity; used by the readiness checker.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, `SELECT 1`); err != nil {
		return fmt.Errorf("face: ping: %w", err)
	}
	return nil
}

func scanProfile(scan func(dest ...any) error) (BiometricProfile, error) {
	var (
		p   BiometricProfile
		vec pgvector.Vector
	)
	if err := scan(&p.VoterID, &vec, &p.Name, &p.Age, &p.Gender, &p.Address, &p.EnrolledAt); err != nil {
		return BiometricProfile{}, fmt.Errorf("face: scan profile: %w", err)
	}
	p.Descriptor = fromVector(vec)
	return p, nil
}

func toVector(d []float64) pgvector.Vector {
	f32 := make([]float32, len(d))
	for i, v := range d {
		f32[i] = float32(v)
	}
	return pgvector.NewVector(f32)
}

func fromVector(v pgvector.Vector) []float64 {
	f32 := v.Slice()
	d := make([]float64, len(f32))
	for i, x := range f32 {
		d[i] = float64(x)
	}
	return d
}

// isDuplicateKeyError checks whether a PostgreSQL error is a unique-violation
// (SQLSTATE 23505).
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
