package middlewarectx

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/render"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/salon-redemption-ledger/internal/http/response"
)

// LimiterStore хранит лимитеры частоты запросов по акторам.
// Конструируется один раз композиционным корнем и сам чистит
// неиспользуемые записи; глобального изменяемого состояния нет.
type LimiterStore struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	done     chan struct{}
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiterStore создаёт LimiterStore и запускает фоновую очистку.
func NewLimiterStore(limit rate.Limit, burst int, ttl time.Duration) *LimiterStore {
	s := &LimiterStore{
		limiters: make(map[string]*limiterEntry),
		limit:    limit,
		burst:    burst,
		ttl:      ttl,
		done:     make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

// Allow сообщает, пропускает ли лимитер запрос с данным ключом.
func (s *LimiterStore) Allow(key string) bool {
	s.mu.Lock()
	entry, ok := s.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.limiters[key] = entry
	}
	entry.lastSeen = time.Now()
	s.mu.Unlock()
	return entry.limiter.Allow()
}

// Stop останавливает фоновую очистку.
func (s *LimiterStore) Stop() {
	close(s.done)
}

func (s *LimiterStore) cleanupLoop() {
	ticker := time.NewTicker(s.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-s.ttl)
			s.mu.Lock()
			for key, entry := range s.limiters {
				if entry.lastSeen.Before(cutoff) {
					delete(s.limiters, key)
				}
			}
			s.mu.Unlock()
		}
	}
}

// RateLimitMiddleware ограничивает частоту запросов по актору из контекста;
// для неаутентифицированных запросов ключом служит адрес клиента.
func RateLimitMiddleware(log *slog.Logger, store *LimiterStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.RemoteAddr
			if actorID, ok := ActorID(r.Context()); ok {
				key = strconv.Itoa(actorID)
			}
			if !store.Allow(key) {
				log.Error("too many requests", slog.String("key", key))
				w.WriteHeader(http.StatusTooManyRequests)
				render.JSON(w, r, response.Error("too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
