package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/example/lakehouse-shop/internal/domain/cart"
	"github.com/example/lakehouse-shop/internal/domain/order"
	"github.com/example/lakehouse-shop/internal/gateway"
	"go.uber.org/zap"
)

var (
	ErrEmptyCart          = errors.New("cart is empty, nothing to checkout")
	ErrSubmissionInFlight = errors.New("order submission already in progress")
	ErrInvalidTransition  = errors.New("illegal transition of checkout state")
	ErrSubmissionFailed   = errors.New("order submission failed")
)

type State string

const (
	StateBrowsing   State = "BROWSING"
	StateFormEntry  State = "FORM_ENTRY"
	StateSubmitting State = "SUBMITTING"
	StateSucceeded  State = "SUCCEEDED"
	StateFailed     State = "FAILED"
)

func (s State) String() string {
	return string(s)
}

// Gateway accepts a finished order record for delivery
type Gateway interface {
	Submit(ctx context.Context, rec *order.Record, delivery gateway.Delivery) (*gateway.Ack, error)
}

// Result describes a successfully placed order
type Result struct {
	Order   *order.Record `json:"order"`
	Ack     *gateway.Ack  `json:"ack"`
	Summary string        `json:"summary"`
}

// Flow drives a single shopper through checkout. It is safe for
// concurrent use; at most one submission is outstanding at a time.
type Flow struct {
	mu       sync.Mutex
	cart     *cart.Store
	gateway  Gateway
	delivery gateway.Delivery
	now      func() time.Time
	logger   *zap.Logger

	state     State
	form      Form
	lastErr   error
	lastOrder *order.Record
}

type Option func(*Flow)

// WithClock overrides the clock used for order ids and timestamps
func WithClock(now func() time.Time) Option {
	return func(f *Flow) { f.now = now }
}

func WithDelivery(d gateway.Delivery) Option {
	return func(f *Flow) { f.delivery = d }
}

func WithLogger(logger *zap.Logger) Option {
	return func(f *Flow) { f.logger = logger }
}

func NewFlow(c *cart.Store, gw Gateway, opts ...Option) *Flow {
	f := &Flow{
		cart:     c,
		gateway:  gw,
		delivery: gateway.DeliveryConsole,
		now:      time.Now,
		logger:   zap.NewNop(),
		state:    StateBrowsing,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Begin opens the checkout form
func (f *Flow) Begin() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case StateSubmitting:
		return ErrSubmissionInFlight
	case StateSucceeded:
		return ErrInvalidTransition
	}

	if f.cart.IsEmpty() {
		f.transition(StateBrowsing)
		return ErrEmptyCart
	}
	f.lastErr = nil
	f.transition(StateFormEntry)
	return nil
}

// Back returns to the cart from the form or a failed submission
func (f *Flow) Back() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case StateFormEntry, StateFailed:
		f.transition(StateBrowsing)
		return nil
	case StateBrowsing:
		return nil
	case StateSubmitting:
		return ErrSubmissionInFlight
	default:
		return ErrInvalidTransition
	}
}

// Place validates form, builds an order from the current cart and submits
// it. On success the cart is cleared. On failure the cart is left as is and
// Place may be called again, which builds a new order with a new id.
// Cancelling ctx after validation does not abort the submission; the
// gateway transport's own timeout bounds it.
func (f *Flow) Place(ctx context.Context, form Form) (*Result, error) {
	rec, err := f.prepare(form)
	if err != nil {
		return nil, err
	}

	f.logger.Info("submitting order",
		zap.String("order_id", rec.ID),
		zap.Int("items", len(rec.Items)),
		zap.String("total", rec.Total.StringFixed(2)))

	ctx = context.WithoutCancel(ctx)

	ack, submitErr := f.gateway.Submit(ctx, rec, f.delivery)
	if submitErr != nil {
		return nil, f.fail(rec, submitErr)
	}

	if err := f.cart.Clear(ctx); err != nil {
		// The order is already with the gateway; the in-memory cart is empty either way.
		f.logger.Warn("failed to persist cleared cart", zap.String("order_id", rec.ID), zap.Error(err))
	}

	f.mu.Lock()
	f.lastErr = nil
	f.form = Form{}
	f.transition(StateSucceeded)
	f.mu.Unlock()

	return &Result{Order: rec, Ack: ack, Summary: rec.Summary()}, nil
}

func (f *Flow) prepare(form Form) (*order.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case StateFormEntry, StateFailed:
	case StateSubmitting:
		return nil, ErrSubmissionInFlight
	default:
		return nil, ErrInvalidTransition
	}

	f.form = form
	if err := form.Validate(); err != nil {
		f.lastErr = err
		f.transition(StateFormEntry)
		return nil, err
	}

	snap := f.cart.Snapshot()
	if snap.IsEmpty() {
		f.lastErr = ErrEmptyCart
		f.transition(StateBrowsing)
		return nil, ErrEmptyCart
	}

	items := make([]order.LineItem, len(snap.Lines))
	for i, line := range snap.Lines {
		items[i] = order.LineItem{
			ProductID:   line.Item.ID,
			ProductName: line.Item.Name,
			Price:       line.Item.Price,
			Quantity:    line.Quantity,
		}
	}

	rec, err := order.Build(f.now(), items, form.customer(), form.shipping(), form.PaymentMethod)
	if err != nil {
		return nil, err
	}

	f.lastOrder = rec
	f.lastErr = nil
	f.transition(StateSubmitting)
	return rec, nil
}

func (f *Flow) fail(rec *order.Record, cause error) error {
	err := fmt.Errorf("%w: %w", ErrSubmissionFailed, cause)

	f.logger.Error("order submission failed", zap.String("order_id", rec.ID), zap.Error(cause))

	f.mu.Lock()
	f.lastErr = err
	f.transition(StateFailed)
	f.mu.Unlock()
	return err
}

// Continue leaves the confirmation screen
func (f *Flow) Continue() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateSucceeded {
		return ErrInvalidTransition
	}
	f.transition(StateBrowsing)
	return nil
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// LastError is the error from the most recent Place, if it failed
func (f *Flow) LastError() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// LastOrder is the record built by the most recent Place that reached the gateway
func (f *Flow) LastOrder() *order.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastOrder
}

// Form returns the most recently entered form, for re-display after a failure
func (f *Flow) Form() Form {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.form
}

// transition must be called with mu held
func (f *Flow) transition(to State) {
	if f.state != to {
		f.logger.Debug("checkout state changed", zap.Stringer("from", f.state), zap.Stringer("to", to))
	}
	f.state = to
}
