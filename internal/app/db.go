package app

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/oauth2"

	"ignite-call/internal/availability"
)

//go:embed migrations/*.sql
var migrations embed.FS

const uniqueViolation = "23505"

// Store is the PostgreSQL implementation of Repository.
type Store struct {
	pool *pgxpool.Pool
}

var _ Repository = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// OpenPool connects to databaseURL and verifies the connection.
func OpenPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// Migrate applies the embedded schema files in name order. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		sql, err := migrations.ReadFile(name)
		if err != nil {
			return err
		}
		if _, err := s.pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) CreateUser(ctx context.Context, u *User) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, username, name) VALUES ($1,$2,$3) RETURNING created_at`,
		u.ID, u.Username, u.Name,
	).Scan(&u.CreatedAt)
	if isUniqueViolation(err) {
		return ErrUsernameTaken
	}
	return err
}

const userColumns = `id, username, name, bio, COALESCE(email,''), COALESCE(avatar_url,''), created_at`

func (s *Store) UserByUsername(ctx context.Context, username string) (*User, error) {
	return s.scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

func (s *Store) UserByID(ctx context.Context, id string) (*User, error) {
	return s.scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *Store) scanUser(row pgx.Row) (*User, error) {
	u := &User{}
	err := row.Scan(&u.ID, &u.Username, &u.Name, &u.Bio, &u.Email, &u.AvatarURL, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Store) UpdateBio(ctx context.Context, userID, bio string) error {
	res, err := s.pool.Exec(ctx, `UPDATE users SET bio = $1 WHERE id = $2`, bio, userID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) LookupUserID(ctx context.Context, username string) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx, `SELECT id FROM users WHERE username = $1`, username).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", availability.ErrUserNotFound
	}
	return id, err
}

func (s *Store) FindTimeInterval(ctx context.Context, userID string, weekDay int) (*availability.TimeInterval, error) {
	iv := &availability.TimeInterval{}
	err := s.pool.QueryRow(ctx,
		`SELECT week_day, time_start_in_minutes, time_end_in_minutes
		 FROM user_time_intervals WHERE user_id = $1 AND week_day = $2 LIMIT 1`,
		userID, weekDay,
	).Scan(&iv.WeekDay, &iv.StartMinutes, &iv.EndMinutes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return iv, nil
}

func (s *Store) ListTimeIntervals(ctx context.Context, userID string) ([]availability.TimeInterval, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT week_day, time_start_in_minutes, time_end_in_minutes
		 FROM user_time_intervals WHERE user_id = $1 ORDER BY week_day`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []availability.TimeInterval
	for rows.Next() {
		var iv availability.TimeInterval
		if err := rows.Scan(&iv.WeekDay, &iv.StartMinutes, &iv.EndMinutes); err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	return out, rows.Err()
}

// ReplaceTimeIntervals swaps the user's whole weekly configuration in one transaction.
func (s *Store) ReplaceTimeIntervals(ctx context.Context, userID string, intervals []availability.TimeInterval) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM user_time_intervals WHERE user_id = $1`, userID); err != nil {
		return err
	}
	for _, iv := range intervals {
		_, err = tx.Exec(ctx,
			`INSERT INTO user_time_intervals (user_id, week_day, time_start_in_minutes, time_end_in_minutes)
			 VALUES ($1,$2,$3,$4)`,
			userID, iv.WeekDay, iv.StartMinutes, iv.EndMinutes,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// ListSchedulingDates returns booking instants in [from, to], both inclusive.
func (s *Store) ListSchedulingDates(ctx context.Context, userID string, from, to time.Time) ([]time.Time, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT date FROM schedulings
		 WHERE user_id = $1 AND date >= $2 AND date <= $3
		 ORDER BY date`, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) CreateScheduling(ctx context.Context, sc *Scheduling) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO schedulings (id, user_id, date, name, email, observations)
		 VALUES ($1,$2,$3,$4,$5,$6) RETURNING created_at`,
		sc.ID, sc.UserID, sc.Date, sc.Name, sc.Email, sc.Observations,
	).Scan(&sc.CreatedAt)
	if isUniqueViolation(err) {
		return ErrSlotTaken
	}
	return err
}

// CalendarToken returns the user's Google credentials, or nil when no calendar is linked.
func (s *Store) CalendarToken(ctx context.Context, userID string) (*oauth2.Token, error) {
	var (
		access    *string
		refresh   *string
		expiresAt *int64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT access_token, refresh_token, expires_at
		 FROM accounts WHERE user_id = $1 AND provider = 'google' LIMIT 1`, userID,
	).Scan(&access, &refresh, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if access == nil && refresh == nil {
		return nil, nil
	}

	tok := &oauth2.Token{TokenType: "Bearer"}
	if access != nil {
		tok.AccessToken = *access
	}
	if refresh != nil {
		tok.RefreshToken = *refresh
	}
	if expiresAt != nil {
		tok.Expiry = time.Unix(*expiresAt, 0)
	}
	return tok, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
