package store

import (
	"context"
	"sync"

	"github.com/napryag/tg_physio_bot/pkg/repository/model"
)

// MemoryRepo keeps sessions in process; they are lost on restart.
type MemoryRepo struct {
	mu       sync.RWMutex
	users    map[int64]model.User
	sessions map[int64]model.SessionData
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		users:    make(map[int64]model.User),
		sessions: make(map[int64]model.SessionData),
	}
}

func (r *MemoryRepo) UpsertUser(_ context.Context, u model.User) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.ID = u.TgUserID
	r.users[u.TgUserID] = u
	return u.ID, nil
}

func (r *MemoryRepo) LoadSession(_ context.Context, userID int64) (*model.SessionData, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.sessions[userID]; ok {
		return &s, nil
	}
	return &model.SessionData{State: model.SessionAnonymous}, nil
}

func (r *MemoryRepo) SaveSession(_ context.Context, userID int64, s model.SessionData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[userID] = s
	return nil
}
