package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/manifold-ai/manifold/core/ai"
)

// Store is the cache backend used by [Caching]. Implementations must be safe
// for concurrent use. Get returns found=false for missing or expired keys.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Caching serves repeated generate calls from the store instead of the
// downstream adapter. The key is a deterministic hash of the provider, model,
// messages and sampling options, so identical requests hit regardless of
// which model instance issued them. Streams bypass the cache entirely.
//
// Store errors are swallowed: a failing cache backend degrades to
// pass-through rather than failing the call.
func Caching(store Store, ttl time.Duration) Middleware {
	return Middleware{
		WrapGenerate: func(next GenerateFunc, model ai.LanguageModel) GenerateFunc {
			return func(ctx context.Context, request *ai.Request) (*ai.Response, error) {
				key := CacheKey(model.ProviderID(), model.ModelID(), request)

				if cached, found, err := store.Get(ctx, key); err == nil && found {
					var response ai.Response
					if err := json.Unmarshal(cached, &response); err == nil {
						return &response, nil
					}
				}

				response, err := next(ctx, request)
				if err != nil {
					return nil, err
				}

				if encoded, err := json.Marshal(response); err == nil {
					_ = store.Set(ctx, key, encoded, ttl)
				}
				return response, nil
			}
		},
	}
}

// CacheKey computes the deterministic cache key for a request against a
// specific provider and model. JSON marshaling sorts map keys, so requests
// that differ only in map iteration order produce the same key.
func CacheKey(providerID, modelID string, request *ai.Request) string {
	payload, err := json.Marshal(struct {
		Provider string         `json:"provider"`
		Model    string         `json:"model"`
		Messages []ai.Message   `json:"messages"`
		Options  ai.CallOptions `json:"options"`
	}{providerID, modelID, request.Messages, request.Options})
	if err != nil {
		// Unmarshalable options (e.g. a channel in ProviderOptions) fall
		// back to an unstable key so the call still goes through.
		payload = fmt.Appendf(nil, "%s/%s/%+v", providerID, modelID, request)
	}

	digest := sha256.Sum256(payload)
	return hex.EncodeToString(digest[:])
}

// MemoryStore is the default in-process cache backend: a mutex-guarded map
// with per-entry expiry checked on read.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value   []byte
	expires time.Time // zero means no expiry
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]memoryEntry{}}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if !entry.expires.IsZero() && time.Now().After(entry.expires) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expires = time.Now().Add(ttl)
	}

	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
	return nil
}
