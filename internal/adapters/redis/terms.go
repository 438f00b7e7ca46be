package redisad

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"review_blocks/internal/domain"
)

// CachedTermStore puts a cache in front of a TermStore. Only found terms
// are cached; cache failures fall back to the store.
type CachedTermStore struct {
	next  domain.TermStore
	cache domain.Cache
	ttl   time.Duration
}

func NewCachedTermStore(next domain.TermStore, cache domain.Cache, ttl time.Duration) *CachedTermStore {
	return &CachedTermStore{next: next, cache: cache, ttl: ttl}
}

func (s *CachedTermStore) GetTerm(ctx context.Context, taxonomy string, id int64) (domain.Term, error) {
	key := domain.TermCacheKey(taxonomy, id)
	var t domain.Term
	if ok, err := s.cache.Get(ctx, key, &t); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("term cache read failed")
	} else if ok {
		return t, nil
	}

	t, err := s.next.GetTerm(ctx, taxonomy, id)
	if err != nil {
		return domain.Term{}, err
	}
	if err := s.cache.Set(ctx, key, t, int(s.ttl.Seconds())); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("term cache write failed")
	}
	return t, nil
}

// Invalidate drops a cached term after it was rewritten.
func (s *CachedTermStore) Invalidate(ctx context.Context, taxonomy string, id int64) error {
	return s.cache.Del(ctx, domain.TermCacheKey(taxonomy, id))
}
