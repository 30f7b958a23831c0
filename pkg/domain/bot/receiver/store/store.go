package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/napryag/tg_physio_bot/pkg/repository/model"
	"github.com/napryag/tg_physio_bot/pkg/utils/errs"
)

// pgxPool is the subset of *pgxpool.Pool the repo uses.
type pgxPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

type PGRepo struct{ pool pgxPool }

func NewRepo(ctx context.Context, dsn string) (*PGRepo, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errs.New("open postgres pool").Wrap(err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errs.New("ping postgres").Wrap(err)
	}
	return &PGRepo{pool: pool}, nil
}

// NewRepoWithPool allows injecting mocks for tests.
func NewRepoWithPool(pool pgxPool) *PGRepo {
	return &PGRepo{pool: pool}
}

func (r *PGRepo) Close() { r.pool.Close() }

// Ping reports whether postgres answers.
func (r *PGRepo) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return errs.New("ping postgres").Wrap(err)
	}
	return nil
}

const schema = `
	CREATE TABLE IF NOT EXISTS app_user (
		id         BIGSERIAL PRIMARY KEY,
		tg_user_id BIGINT UNIQUE NOT NULL,
		tg_chat_id BIGINT NOT NULL,
		username   TEXT,
		first_name TEXT,
		last_name  TEXT,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE TABLE IF NOT EXISTS user_session (
		user_id    BIGINT PRIMARY KEY,
		state      TEXT NOT NULL,
		payload    JSONB NOT NULL DEFAULT '{}',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
`

// EnsureSchema creates the tables when missing.
func (r *PGRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return errs.New("ensure schema").Wrap(err)
	}
	return nil
}

func (r *PGRepo) UpsertUser(ctx context.Context, u model.User) (int64, error) {
	q := `
		INSERT INTO app_user (tg_user_id, tg_chat_id, username, first_name, last_name)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (tg_user_id) DO UPDATE
		   SET tg_chat_id = EXCLUDED.tg_chat_id,
		       username   = COALESCE(EXCLUDED.username, app_user.username),
		       first_name = COALESCE(EXCLUDED.first_name, app_user.first_name),
		       last_name  = COALESCE(EXCLUDED.last_name, app_user.last_name),
		       updated_at = now()
		RETURNING id;
	`
	var id int64
	if err := r.pool.QueryRow(ctx, q, u.TgUserID, u.TgChatID, u.Username, u.FirstName, u.LastName).Scan(&id); err != nil {
		return 0, errs.New("upsert user").Arg("tg_user_id", u.TgUserID).Wrap(err)
	}
	return id, nil
}

func (r *PGRepo) LoadSession(ctx context.Context, userID int64) (*model.SessionData, error) {
	var s model.SessionData
	var payload []byte
	err := r.pool.QueryRow(ctx, `SELECT state, payload FROM user_session WHERE user_id=$1`, userID).Scan(&s.State, &payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &model.SessionData{State: model.SessionAnonymous}, nil
		}
		return nil, errs.New("load session").Arg("user", userID).Wrap(err)
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &s.Payload); err != nil {
			return nil, errs.New("decode session payload").Arg("user", userID).Wrap(err)
		}
	}
	return &s, nil
}

func (r *PGRepo) SaveSession(ctx context.Context, userID int64, s model.SessionData) error {
	pb, err := json.Marshal(s.Payload)
	if err != nil {
		return errs.New("encode session payload").Arg("user", userID).Wrap(err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO user_session (user_id, state, payload, updated_at)
		VALUES ($1,$2,$3,now())
		ON CONFLICT (user_id) DO UPDATE
		   SET state=EXCLUDED.state, payload=EXCLUDED.payload, updated_at=now()
	`, userID, s.State, pb)
	if err != nil {
		return errs.New("save session").Arg("user", userID).Wrap(err)
	}
	return nil
}
