package projection

import (
	"context"
	"math/rand"
	"testing"

	"github.com/example/lakehouse-shop/internal/domain/cart"
	"github.com/example/lakehouse-shop/internal/domain/catalog"
	"github.com/example/lakehouse-shop/internal/infrastructure/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProjector(t *testing.T) (*Projector, *cart.Store) {
	t.Helper()
	s := cart.NewStore(context.Background(), catalog.Default(), store.NewMemoryStore())
	p := NewProjector(nil)
	p.Attach(s)
	return p, s
}

// ============================================
// View Tests
// ============================================

func TestFull_EmptyCart(t *testing.T) {
	view := Full(cart.Snapshot{})

	assert.True(t, view.Empty)
	assert.False(t, view.CheckoutEnabled)
	assert.Equal(t, "Your cart is empty", view.Message)
	assert.Equal(t, "0.00", view.Total)
	assert.Equal(t, 0, view.ItemCount)
	assert.Empty(t, view.Lines)
}

func TestFull_Lines(t *testing.T) {
	p, s := newTestProjector(t)
	ctx := context.Background()

	require.NoError(t, s.AddItem(ctx, 3))
	require.NoError(t, s.AddItem(ctx, 3))
	require.NoError(t, s.AddItem(ctx, 6))

	view := p.Full()

	require.Len(t, view.Lines, 2)
	assert.Equal(t, LineView{
		ProductID: 3,
		Name:      "Wireless Headphones",
		UnitPrice: "249.99",
		Quantity:  2,
		LineTotal: "499.98",
	}, view.Lines[0])
	assert.Equal(t, 6, view.Lines[1].ProductID)
	assert.Equal(t, 3, view.ItemCount)
	assert.Equal(t, "629.97", view.Total)
	assert.True(t, view.CheckoutEnabled)
	assert.Empty(t, view.Message)
}

func TestCompact_Label(t *testing.T) {
	p, s := newTestProjector(t)
	ctx := context.Background()

	require.NoError(t, s.AddItem(ctx, 4))
	require.NoError(t, s.SetQuantity(ctx, 4, 3))

	view := p.Compact()

	require.Len(t, view.Lines, 1)
	assert.Equal(t, "199.99 × 3", view.Lines[0].Label)
	assert.Equal(t, "599.97", view.Lines[0].LineTotal)
	assert.Equal(t, "599.97", view.Total)
}

// ============================================
// Projector Tests
// ============================================

func TestProjector_InitialStateFromStore(t *testing.T) {
	kv := store.NewMemoryStore()
	ctx := context.Background()
	seed := cart.NewStore(ctx, catalog.Default(), kv)
	require.NoError(t, seed.AddItem(ctx, 1))

	s := cart.NewStore(ctx, catalog.Default(), kv)
	p := NewProjector(nil)
	p.Attach(s)

	assert.Equal(t, "1299.99", p.Full().Total)
	assert.Equal(t, 1, p.Full().ItemCount)
}

func TestProjector_UpdatesAfterClear(t *testing.T) {
	p, s := newTestProjector(t)
	ctx := context.Background()

	require.NoError(t, s.AddItem(ctx, 2))
	require.NoError(t, s.Clear(ctx))

	views := p.Views()
	assert.True(t, views.Full.Empty)
	assert.True(t, views.Compact.Empty)
}

func TestProjector_ViewsNeverDiverge(t *testing.T) {
	p, s := newTestProjector(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		id := rng.Intn(7) + 1
		switch rng.Intn(3) {
		case 0:
			require.NoError(t, s.AddItem(ctx, id))
		case 1:
			require.NoError(t, s.RemoveItem(ctx, id))
		case 2:
			require.NoError(t, s.SetQuantity(ctx, id, rng.Intn(5)))
		}

		views := p.Views()
		require.Equal(t, views.Full.Total, views.Compact.Total)
		require.Equal(t, s.Total().StringFixed(2), views.Full.Total)
		require.Equal(t, len(views.Full.Lines), len(views.Compact.Lines))
		require.Equal(t, s.ItemCount(), views.Full.ItemCount)
		require.Equal(t, views.Full.Empty, views.Compact.Empty)
	}
}
