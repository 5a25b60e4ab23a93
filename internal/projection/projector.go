package projection

import (
	"sync"

	"github.com/example/lakehouse-shop/internal/domain/cart"
	"go.uber.org/zap"
)

// Projector keeps the latest pair of cart views. Both views are rebuilt
// together from each snapshot the cart store publishes.
type Projector struct {
	mu     sync.RWMutex
	views  Views
	logger *zap.Logger
}

func NewProjector(logger *zap.Logger) *Projector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Projector{
		views:  Render(cart.Snapshot{}),
		logger: logger,
	}
}

// Attach subscribes the projector to s and renders its current state
func (p *Projector) Attach(s *cart.Store) {
	s.Subscribe(p.HandleSnapshot)
}

// HandleSnapshot re-derives both views from snap
func (p *Projector) HandleSnapshot(snap cart.Snapshot) {
	views := Render(snap)

	p.mu.Lock()
	p.views = views
	p.mu.Unlock()

	p.logger.Debug("Cart views rendered",
		zap.Int("lines", len(views.Full.Lines)),
		zap.Int("badge", views.Full.ItemCount),
		zap.String("total", views.Full.Total))
}

func (p *Projector) Views() Views {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.views
}

func (p *Projector) Full() CartView {
	return p.Views().Full
}

func (p *Projector) Compact() CompactView {
	return p.Views().Compact
}
