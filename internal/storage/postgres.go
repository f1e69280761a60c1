package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/macfarley/dream-weaver-backend/internal"
)

type PostgresStorage struct {
	pool   *pgxpool.Pool
	logger internal.Logger
}

func NewPostgresStorage(dsn string, logger internal.Logger) (*PostgresStorage, error) {
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		logger.Errorf("storage: failed to connect to postgres: %v", err)
		return nil, err
	}
	s := &PostgresStorage{pool: pool, logger: logger}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (p *PostgresStorage) Close() error {
	p.pool.Close()
	return nil
}

func (p *PostgresStorage) ensureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role          TEXT NOT NULL DEFAULT 'user',
			joined_at     TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS bedrooms (
			id          TEXT PRIMARY KEY,
			owner_id    TEXT NOT NULL REFERENCES users(id),
			name        TEXT NOT NULL,
			bed_type    TEXT NOT NULL,
			temperature INT NOT NULL,
			light_level TEXT NOT NULL,
			noise_level TEXT NOT NULL,
			notes       TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS sleep_sessions (
			id              TEXT PRIMARY KEY,
			user_id         TEXT NOT NULL REFERENCES users(id),
			bedroom_id      TEXT NOT NULL REFERENCES bedrooms(id),
			cuddle_buddy    TEXT NOT NULL DEFAULT 'none',
			sleepy_thoughts TEXT NOT NULL DEFAULT '',
			wake_ups        JSONB NOT NULL DEFAULT '[]',
			created_at      TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_user_created
			ON sleep_sessions (user_id, created_at DESC);
	`)
	if err != nil {
		p.logger.Errorf("storage: failed to ensure schema: %v", err)
	}
	return err
}

// --- UserRepository ---

func (p *PostgresStorage) CreateUser(ctx context.Context, user *internal.User) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO users (id, username, password_hash, role, joined_at) VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Username, user.PasswordHash, user.Role, user.JoinedAt)
	if err != nil {
		p.logger.Errorf("storage: failed to insert user: %v", err)
	}
	return err
}

func (p *PostgresStorage) GetUserByID(ctx context.Context, id string) (*internal.User, error) {
	return p.scanUser(p.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, role, joined_at FROM users WHERE id = $1`, id))
}

func (p *PostgresStorage) GetUserByUsername(ctx context.Context, username string) (*internal.User, error) {
	return p.scanUser(p.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, role, joined_at FROM users WHERE username = $1`, username))
}

func (p *PostgresStorage) scanUser(row pgx.Row) (*internal.User, error) {
	var u internal.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		p.logger.Errorf("storage: failed to scan user: %v", err)
		return nil, err
	}
	return &u, nil
}

func (p *PostgresStorage) UpdateUser(ctx context.Context, user *internal.User) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE users SET username = $2, password_hash = $3, role = $4 WHERE id = $1`,
		user.ID, user.Username, user.PasswordHash, user.Role)
	if err != nil {
		p.logger.Errorf("storage: failed to update user: %v", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- BedroomRepository ---

func (p *PostgresStorage) CreateBedroom(ctx context.Context, b *internal.Bedroom) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO bedrooms (id, owner_id, name, bed_type, temperature, light_level, noise_level, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		b.ID, b.OwnerID, b.Name, b.BedType, b.Temperature, b.LightLevel, b.NoiseLevel, b.Notes, b.CreatedAt)
	if err != nil {
		p.logger.Errorf("storage: failed to insert bedroom: %v", err)
	}
	return err
}

func (p *PostgresStorage) GetBedroom(ctx context.Context, id string) (*internal.Bedroom, error) {
	var b internal.Bedroom
	err := p.pool.QueryRow(ctx,
		`SELECT id, owner_id, name, bed_type, temperature, light_level, noise_level, notes, created_at
		 FROM bedrooms WHERE id = $1`, id).
		Scan(&b.ID, &b.OwnerID, &b.Name, &b.BedType, &b.Temperature, &b.LightLevel, &b.NoiseLevel, &b.Notes, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		p.logger.Errorf("storage: failed to scan bedroom: %v", err)
		return nil, err
	}
	return &b, nil
}

func (p *PostgresStorage) ListBedrooms(ctx context.Context, ownerID string) ([]internal.Bedroom, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, owner_id, name, bed_type, temperature, light_level, noise_level, notes, created_at
		 FROM bedrooms WHERE owner_id = $1 ORDER BY created_at`, ownerID)
	if err != nil {
		p.logger.Errorf("storage: failed to query bedrooms: %v", err)
		return nil, err
	}
	defer rows.Close()

	var bedrooms []internal.Bedroom
	for rows.Next() {
		var b internal.Bedroom
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.Name, &b.BedType, &b.Temperature, &b.LightLevel, &b.NoiseLevel, &b.Notes, &b.CreatedAt); err != nil {
			p.logger.Errorf("storage: failed to scan bedroom: %v", err)
			return nil, err
		}
		bedrooms = append(bedrooms, b)
	}
	return bedrooms, rows.Err()
}

func (p *PostgresStorage) UpdateBedroom(ctx context.Context, b *internal.Bedroom) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE bedrooms SET name = $2, bed_type = $3, temperature = $4, light_level = $5, noise_level = $6, notes = $7
		 WHERE id = $1`,
		b.ID, b.Name, b.BedType, b.Temperature, b.LightLevel, b.NoiseLevel, b.Notes)
	if err != nil {
		p.logger.Errorf("storage: failed to update bedroom: %v", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStorage) DeleteBedroom(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM bedrooms WHERE id = $1`, id)
	if err != nil {
		p.logger.Errorf("storage: failed to delete bedroom: %v", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- SessionRepository ---

const sessionColumns = `id, user_id, bedroom_id, cuddle_buddy, sleepy_thoughts, wake_ups, created_at`

func (p *PostgresStorage) CreateSession(ctx context.Context, s *internal.SleepSession) error {
	wakeUps, err := json.Marshal(s.WakeUps)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO sleep_sessions (`+sessionColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.UserID, s.BedroomID, s.CuddleBuddy, s.SleepyThoughts, wakeUps, s.CreatedAt)
	if err != nil {
		p.logger.Errorf("storage: failed to insert session: %v", err)
	}
	return err
}

func (p *PostgresStorage) GetSession(ctx context.Context, id string) (*internal.SleepSession, error) {
	return p.scanSession(p.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sleep_sessions WHERE id = $1`, id))
}

func (p *PostgresStorage) ListSessionsByUser(ctx context.Context, userID string) ([]internal.SleepSession, error) {
	return p.querySessions(ctx,
		`SELECT `+sessionColumns+` FROM sleep_sessions WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (p *PostgresStorage) FindRecentSessionsByUser(ctx context.Context, userID string, limit int) ([]internal.SleepSession, error) {
	return p.querySessions(ctx,
		`SELECT `+sessionColumns+` FROM sleep_sessions WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
}

// AppendWakeUp pushes onto the JSONB array in a single statement, so
// concurrent appends to the same session cannot lose writes.
func (p *PostgresStorage) AppendWakeUp(ctx context.Context, sessionID string, wakeUp internal.WakeUp) (*internal.SleepSession, error) {
	payload, err := json.Marshal(wakeUp)
	if err != nil {
		return nil, err
	}
	return p.scanSession(p.pool.QueryRow(ctx,
		`UPDATE sleep_sessions SET wake_ups = wake_ups || $2::jsonb WHERE id = $1 RETURNING `+sessionColumns,
		sessionID, payload))
}

func (p *PostgresStorage) CountSessionsByBedroom(ctx context.Context, bedroomID string) (int, error) {
	var count int
	err := p.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM sleep_sessions WHERE bedroom_id = $1`, bedroomID).Scan(&count)
	if err != nil {
		p.logger.Errorf("storage: failed to count sessions: %v", err)
		return 0, err
	}
	return count, nil
}

func (p *PostgresStorage) querySessions(ctx context.Context, query string, args ...interface{}) ([]internal.SleepSession, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		p.logger.Errorf("storage: failed to query sessions: %v", err)
		return nil, err
	}
	defer rows.Close()

	var sessions []internal.SleepSession
	for rows.Next() {
		s, err := p.scanSessionRow(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

func (p *PostgresStorage) scanSession(row pgx.Row) (*internal.SleepSession, error) {
	s, err := p.scanSessionRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

func (p *PostgresStorage) scanSessionRow(row pgx.Row) (*internal.SleepSession, error) {
	var s internal.SleepSession
	var wakeUps []byte
	err := row.Scan(&s.ID, &s.UserID, &s.BedroomID, &s.CuddleBuddy, &s.SleepyThoughts, &wakeUps, &s.CreatedAt)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			p.logger.Errorf("storage: failed to scan session: %v", err)
		}
		return nil, err
	}
	if err := json.Unmarshal(wakeUps, &s.WakeUps); err != nil {
		p.logger.Errorf("storage: corrupt wake_ups payload for session %s: %v", s.ID, err)
		return nil, err
	}
	if s.WakeUps == nil {
		s.WakeUps = []internal.WakeUp{}
	}
	return &s, nil
}

// --- Compile-time assertions ---
var _ UserRepository = (*PostgresStorage)(nil)
var _ BedroomRepository = (*PostgresStorage)(nil)
var _ SessionRepository = (*PostgresStorage)(nil)
