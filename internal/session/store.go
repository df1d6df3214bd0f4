package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Store keeps sessions in memory. A session idle for longer than the TTL is
// dropped together with any composite bytes it holds.
type Store struct {
	deps  Deps
	ttl   time.Duration
	cache *cache.Cache
}

func NewStore(deps Deps, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	cleanup := ttl / 2
	if cleanup < time.Minute {
		cleanup = time.Minute
	}
	return &Store{deps: deps, ttl: ttl, cache: cache.New(ttl, cleanup)}
}

// Create starts a new session and runs its Init.
func (st *Store) Create(ctx context.Context) *Session {
	s := New(uuid.NewString(), st.deps)
	st.cache.Set(s.ID(), s, st.ttl)
	s.Init(ctx)
	return s
}

// Get returns a live session and pushes its expiry forward.
func (st *Store) Get(id string) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	v, ok := st.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	st.cache.Set(id, v, st.ttl)
	return v.(*Session), nil
}

func (st *Store) Delete(id string) {
	st.cache.Delete(id)
}

func (st *Store) Len() int {
	return st.cache.ItemCount()
}
