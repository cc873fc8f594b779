package secret

import "sync"

// Store keeps sensitive variables such as database passwords out of
// process descriptions and .env files.
type Store interface {
	// Set stores a secret value under the given key.
	Set(key string, value []byte) error

	// Get retrieves the secret value for the given key.
	// Returns an empty slice and nil error if the key does not exist.
	Get(key string) ([]byte, error)

	// Delete removes the secret for the given key.
	Delete(key string) error
}

// Lookup adapts a Store to variable resolution. Missing keys and read
// errors both resolve to "not found" so later sources get a chance.
func Lookup(s Store) func(name string) (string, bool) {
	return func(name string) (string, bool) {
		v, err := s.Get(name)
		if err != nil || len(v) == 0 {
			return "", false
		}
		return string(v), true
	}
}

// MemoryStore is a Store backed by a map.
type MemoryStore struct {
	mu sync.Mutex
	m  map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: map[string][]byte{}}
}

func (s *MemoryStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryStore) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m[key], nil
}

func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}
