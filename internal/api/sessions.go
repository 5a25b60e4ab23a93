package api

import (
	"context"
	"regexp"
	"sync"
	"time"

	"github.com/example/lakehouse-shop/internal/domain/cart"
	"github.com/example/lakehouse-shop/internal/domain/catalog"
	"github.com/example/lakehouse-shop/internal/domain/checkout"
	"github.com/example/lakehouse-shop/internal/gateway"
	"github.com/example/lakehouse-shop/internal/infrastructure/store"
	"github.com/example/lakehouse-shop/internal/projection"
	"go.uber.org/zap"
)

const (
	SessionHeader  = "X-Session-ID"
	DefaultSession = "default"
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Session is one shopper: a cart over its own slots, the views rendered
// from it, and its checkout flow.
type Session struct {
	ID        string
	Cart      *cart.Store
	Projector *projection.Projector
	Flow      *checkout.Flow
}

type SessionConfig struct {
	Catalog  *catalog.Catalog
	Store    store.KeyValueStore
	Gateway  checkout.Gateway
	Delivery gateway.Delivery
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Sessions creates sessions on first use and keeps them for the process lifetime
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*Session
	cfg      SessionConfig
}

func NewSessions(cfg SessionConfig) *Sessions {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Sessions{sessions: make(map[string]*Session), cfg: cfg}
}

// ValidSessionID reports whether id can be used as a storage namespace
func ValidSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

func (s *Sessions) Get(ctx context.Context, id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		return sess
	}

	logger := s.cfg.Logger.With(zap.String("session", id))
	kv := store.Namespaced(s.cfg.Store, "session/"+id)

	c := cart.NewStore(ctx, s.cfg.Catalog, kv, cart.WithLogger(logger.Named("cart")))
	projector := projection.NewProjector(logger.Named("projection"))
	projector.Attach(c)
	flow := checkout.NewFlow(c, s.cfg.Gateway,
		checkout.WithDelivery(s.cfg.Delivery),
		checkout.WithClock(s.cfg.Clock),
		checkout.WithLogger(logger.Named("checkout")))

	sess := &Session{ID: id, Cart: c, Projector: projector, Flow: flow}
	s.sessions[id] = sess
	logger.Info("session created", zap.Int("items", c.ItemCount()))
	return sess
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
