package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/napryag/tg_physio_bot/pkg/repository/model"
	"github.com/napryag/tg_physio_bot/pkg/utils/errs"
)

const keyPrefix = "physio:"

// RedisRepo keeps sessions as JSON values that expire after ttl of inactivity.
type RedisRepo struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRepo(ctx context.Context, client *redis.Client, ttl time.Duration) (*RedisRepo, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errs.New("ping redis").Wrap(err)
	}
	return &RedisRepo{client: client, ttl: ttl}, nil
}

// Ping reports whether redis answers.
func (r *RedisRepo) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return errs.New("ping redis").Wrap(err)
	}
	return nil
}

func sessionKey(userID int64) string { return fmt.Sprintf("%ssession:%d", keyPrefix, userID) }
func userKey(tgUserID int64) string  { return fmt.Sprintf("%suser:%d", keyPrefix, tgUserID) }

type redisUser struct {
	TgUserID  int64   `json:"tg_user_id"`
	TgChatID  int64   `json:"tg_chat_id"`
	Username  *string `json:"username,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
}

// UpsertUser stores the Telegram profile; the Telegram id doubles as row id.
func (r *RedisRepo) UpsertUser(ctx context.Context, u model.User) (int64, error) {
	b, err := json.Marshal(redisUser{
		TgUserID:  u.TgUserID,
		TgChatID:  u.TgChatID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	})
	if err != nil {
		return 0, errs.New("encode user").Wrap(err)
	}
	if err := r.client.Set(ctx, userKey(u.TgUserID), b, 0).Err(); err != nil {
		return 0, errs.New("upsert user").Arg("tg_user_id", u.TgUserID).Wrap(err)
	}
	return u.TgUserID, nil
}

type redisSession struct {
	State   string            `json:"state"`
	Payload model.AuthPayload `json:"payload"`
}

func (r *RedisRepo) LoadSession(ctx context.Context, userID int64) (*model.SessionData, error) {
	b, err := r.client.Get(ctx, sessionKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &model.SessionData{State: model.SessionAnonymous}, nil
		}
		return nil, errs.New("load session").Arg("user", userID).Wrap(err)
	}
	var rs redisSession
	if err := json.Unmarshal(b, &rs); err != nil {
		return nil, errs.New("decode session payload").Arg("user", userID).Wrap(err)
	}
	return &model.SessionData{State: rs.State, Payload: rs.Payload}, nil
}

func (r *RedisRepo) SaveSession(ctx context.Context, userID int64, s model.SessionData) error {
	if s.State != model.SessionAuthenticated {
		if err := r.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
			return errs.New("clear session").Arg("user", userID).Wrap(err)
		}
		return nil
	}
	b, err := json.Marshal(redisSession{State: s.State, Payload: s.Payload})
	if err != nil {
		return errs.New("encode session payload").Arg("user", userID).Wrap(err)
	}
	if err := r.client.Set(ctx, sessionKey(userID), b, r.ttl).Err(); err != nil {
		return errs.New("save session").Arg("user", userID).Wrap(err)
	}
	return nil
}
