package chat

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// Store keeps sessions in memory until they expire.
type Store struct {
	cache *cache.Cache

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewStore expires sessions ttl after their last Save.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{cache: cache.New(ttl, 10*time.Minute), locks: map[string]*sessionLock{}}
}

// Lock serializes read-modify-write cycles on one session ID. Call the
// returned func to release it.
func (s *Store) Lock(id string) (unlock func()) {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sessionLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		if l.refs--; l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

func (s *Store) Save(session *Session) {
	s.cache.Set(session.ID, session, cache.DefaultExpiration)
}

func (s *Store) Get(id string) (*Session, bool) {
	if x, found := s.cache.Get(id); found {
		return x.(*Session), true
	}
	return nil, false
}

func (s *Store) Delete(id string) {
	s.cache.Delete(id)
}

// Len counts stored sessions, including expired ones not yet purged.
func (s *Store) Len() int { return s.cache.ItemCount() }
