package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/example/lakehouse-shop/internal/domain/catalog"
	"github.com/example/lakehouse-shop/internal/infrastructure/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrPersist = errors.New("failed to persist cart")

// Line is one (item, quantity) pairing. Quantity is always >= 1.
type Line struct {
	Item     catalog.Item `json:"product"`
	Quantity int          `json:"quantity"`
}

// Subtotal returns price * quantity
func (l Line) Subtotal() decimal.Decimal {
	return l.Item.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Snapshot is an immutable copy of the cart at one point in time
type Snapshot struct {
	Lines []Line
}

func (s Snapshot) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range s.Lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

func (s Snapshot) ItemCount() int {
	count := 0
	for _, line := range s.Lines {
		count += line.Quantity
	}
	return count
}

func (s Snapshot) IsEmpty() bool { return len(s.Lines) == 0 }

// Store owns the cart lines and mirrors them to a key-value slot after
// every mutation.
type Store struct {
	mu          sync.RWMutex
	commitMu    sync.Mutex // orders snapshot, write and notify across mutations
	catalog     *catalog.Catalog
	kv          store.KeyValueStore
	key         string
	lines       []Line
	subscribers []func(Snapshot)
	logger      *zap.Logger
}

type Option func(*Store)

// WithKey overrides the storage slot (defaults to store.CartKey)
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// NewStore creates a store and loads any saved cart from kv. Load problems
// never fail construction; the cart simply starts empty.
func NewStore(ctx context.Context, c *catalog.Catalog, kv store.KeyValueStore, opts ...Option) *Store {
	s := &Store{
		catalog: c,
		kv:      kv,
		key:     store.CartKey,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lines = s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) []Line {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.logger.Error("Error loading cart from storage", zap.String("key", s.key), zap.Error(err))
		return nil
	}
	if !ok || raw == "" {
		return nil
	}

	lines, dropped, err := decodeLines(raw, s.catalog)
	if err != nil {
		s.logger.Error("Error parsing saved cart, starting empty", zap.String("key", s.key), zap.Error(err))
		return nil
	}
	if dropped > 0 {
		s.logger.Debug("Dropped invalid saved cart entries", zap.Int("dropped", dropped))
	}
	return lines
}

// AddItem adds one unit of itemID. Unknown ids are logged and ignored.
func (s *Store) AddItem(ctx context.Context, itemID int) error {
	item, ok := s.catalog.Get(itemID)
	if !ok {
		s.logger.Warn("Product not found", zap.Int("item_id", itemID))
		return nil
	}

	s.mu.Lock()
	if idx := s.indexOf(itemID); idx >= 0 {
		s.lines[idx].Quantity++
	} else {
		s.lines = append(s.lines, Line{Item: item, Quantity: 1})
	}
	s.mu.Unlock()

	return s.commit(ctx)
}

// RemoveItem deletes the line for itemID if present
func (s *Store) RemoveItem(ctx context.Context, itemID int) error {
	s.mu.Lock()
	if idx := s.indexOf(itemID); idx >= 0 {
		s.lines = append(s.lines[:idx], s.lines[idx+1:]...)
	}
	s.mu.Unlock()

	return s.commit(ctx)
}

// SetQuantity replaces the quantity of an existing line. A quantity of
// zero or less removes the line; an absent itemID is a no-op.
func (s *Store) SetQuantity(ctx context.Context, itemID, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(ctx, itemID)
	}

	s.mu.Lock()
	idx := s.indexOf(itemID)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	s.lines[idx].Quantity = quantity
	s.mu.Unlock()

	return s.commit(ctx)
}

// Clear empties the cart and removes its slot
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.lines = nil
	s.mu.Unlock()

	return s.commitWith(ctx, s.drop)
}

func (s *Store) Total() decimal.Decimal { return s.Snapshot().Total() }

func (s *Store) ItemCount() int { return s.Snapshot().ItemCount() }

func (s *Store) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lines) == 0
}

func (s *Store) Lines() []Line { return s.Snapshot().Lines }

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lines := make([]Line, len(s.lines))
	copy(lines, s.lines)
	return Snapshot{Lines: lines}
}

// Subscribe registers fn to run after every mutation. It is called once
// immediately with the current state.
func (s *Store) Subscribe(fn func(Snapshot)) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()

	fn(s.Snapshot())
}

// commit persists the whole cart and notifies subscribers. Subscribers are
// notified even when persistence fails since in-memory state changed.
func (s *Store) commit(ctx context.Context) error {
	return s.commitWith(ctx, s.save)
}

// commitWith holds commitMu from snapshot to notification, so a later
// mutation can never be overwritten in storage or in views by an earlier one.
func (s *Store) commitWith(ctx context.Context, write func(context.Context, Snapshot) error) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	snap := s.Snapshot()

	var persistErr error
	if err := write(ctx, snap); err != nil {
		s.logger.Error("Failed to save cart", zap.String("key", s.key), zap.Error(err))
		persistErr = fmt.Errorf("%w: %w", ErrPersist, err)
	}

	s.mu.RLock()
	subscribers := make([]func(Snapshot), len(s.subscribers))
	copy(subscribers, s.subscribers)
	s.mu.RUnlock()

	for _, fn := range subscribers {
		fn(snap)
	}
	return persistErr
}

func (s *Store) save(ctx context.Context, snap Snapshot) error {
	raw, err := encodeLines(snap.Lines)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, s.key, raw)
}

// drop deletes the slot, unless lines were added again since Clear
func (s *Store) drop(ctx context.Context, snap Snapshot) error {
	if !snap.IsEmpty() {
		return s.save(ctx, snap)
	}
	return s.kv.Delete(ctx, s.key)
}

// indexOf must be called with s.mu held
func (s *Store) indexOf(itemID int) int {
	for i, line := range s.lines {
		if line.Item.ID == itemID {
			return i
		}
	}
	return -1
}
