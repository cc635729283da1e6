package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/xenking/kart-variants/internal/domain/product"
	"github.com/xenking/kart-variants/internal/domain/variant"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// --- Mock implementations ---

type mockProductRepo struct {
	products map[string]*product.Product
	err      error
	queries  []product.Query
}

func (m *mockProductRepo) List(_ context.Context, _ string) ([]product.Summary, error) {
	return nil, nil
}

func (m *mockProductRepo) Variants(_ context.Context, q product.Query) (*product.Product, error) {
	m.queries = append(m.queries, q)
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[q.Slug]
	if !ok {
		return nil, product.ErrNotFound
	}
	cp := *p
	cp.Currency = q.Currency
	return &cp, nil
}

// --- Helpers ---

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func teeVariant(id, color, size string, stock int) variant.Variant {
	return variant.Variant{
		ID:    id,
		SKU:   "SKU-" + id,
		Stock: stock,
		Price: decimal.RequireFromString("19.90"),
		Assignments: []variant.Assignment{
			{Attribute: "color", Value: color, ImageRef: "tee-" + color + ".jpg"},
			{Attribute: "size", Value: size},
		},
	}
}

func newTestService(t *testing.T, c *clock) (*Service, *mockProductRepo) {
	t.Helper()

	repo := &mockProductRepo{products: map[string]*product.Product{
		"tee": {
			ID:   "p-1",
			Slug: "tee",
			Name: "Tee",
			Variants: []variant.Variant{
				teeVariant("black-s", "Black", "S", 5),
				teeVariant("black-m", "Black", "M", 0),
				teeVariant("white-s", "White", "S", 3),
			},
		},
	}}
	svc, err := NewService(repo, Config{TTL: time.Minute, JanitorInterval: 10 * time.Millisecond}, WithClock(c.Now))
	require.NoError(t, err)
	return svc, repo
}

// --- Tests ---

func TestService_Open(t *testing.T) {
	c := &clock{now: time.Unix(1_700_000_000, 0)}
	svc, repo := newTestService(t, c)

	v, err := svc.Open(context.Background(), product.Query{Slug: "tee"})
	require.NoError(t, err)

	assert.NotEmpty(t, v.ID)
	assert.Equal(t, "tee", v.Product.Slug)
	assert.Equal(t, 3, v.Product.VariantCount)
	assert.Equal(t, product.DefaultCurrency, v.Currency)
	assert.Equal(t, []string{"color", "size"}, v.Groups.Attributes())
	assert.Equal(t, variant.StateInitial, v.Payload.State)
	assert.Equal(t, []string{"color", "size"}, v.Payload.Missing)
	assert.Equal(t, c.Now().Add(time.Minute), v.ExpiresAt)
	assert.Equal(t, 1, svc.Len())

	require.Len(t, repo.queries, 1)
	assert.Equal(t, product.DefaultLocale, repo.queries[0].Locale)
}

func TestService_OpenUnknownProduct(t *testing.T) {
	svc, _ := newTestService(t, &clock{now: time.Now()})

	_, err := svc.Open(context.Background(), product.Query{Slug: "nope"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, product.ErrNotFound))
	assert.Zero(t, svc.Len())
}

func TestService_OpenRepoError(t *testing.T) {
	svc, repo := newTestService(t, &clock{now: time.Now()})
	repo.err = errors.New("connection refused")

	_, err := svc.Open(context.Background(), product.Query{Slug: "tee"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestService_ToggleToMatch(t *testing.T) {
	svc, _ := newTestService(t, &clock{now: time.Now()})
	ctx := context.Background()

	v, err := svc.Open(ctx, product.Query{Slug: "tee"})
	require.NoError(t, err)

	v, err = svc.Toggle(ctx, v.ID, "color", variant.ValueDescriptor{Value: "White"})
	require.NoError(t, err)
	assert.True(t, v.Accepted)
	assert.NoError(t, v.Rejection)
	assert.Equal(t, "tee-White.jpg", v.ImageRef)
	assert.Equal(t, variant.StatePartial, v.Payload.State)

	v, err = svc.Toggle(ctx, v.ID, "size", variant.ValueDescriptor{Value: "S"})
	require.NoError(t, err)
	assert.True(t, v.Accepted)
	require.NotNil(t, v.Payload.MatchedVariant())
	assert.Equal(t, "white-s", v.Payload.MatchedVariant().ID)
	assert.Equal(t, "tee-White.jpg", v.ImageRef)
}

func TestService_ToggleRejected(t *testing.T) {
	svc, _ := newTestService(t, &clock{now: time.Now()})
	ctx := context.Background()

	v, err := svc.Open(ctx, product.Query{Slug: "tee"})
	require.NoError(t, err)

	tests := []struct {
		name  string
		attr  string
		value string
		want  error
	}{
		{name: "unknown attribute", attr: "material", value: "Wool", want: variant.ErrUnknownAttribute},
		{name: "out of stock", attr: "size", value: "M", want: variant.ErrValueUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Toggle(ctx, v.ID, tt.attr, variant.ValueDescriptor{Value: tt.value})
			require.NoError(t, err)
			assert.False(t, got.Accepted)
			assert.ErrorIs(t, got.Rejection, tt.want)
			assert.Equal(t, variant.StateInitial, got.Payload.State)
			assert.Empty(t, got.ImageRef)
		})
	}
}

func TestService_Reset(t *testing.T) {
	svc, _ := newTestService(t, &clock{now: time.Now()})
	ctx := context.Background()

	v, err := svc.Open(ctx, product.Query{Slug: "tee"})
	require.NoError(t, err)
	_, err = svc.Toggle(ctx, v.ID, "color", variant.ValueDescriptor{Value: "Black"})
	require.NoError(t, err)

	v, err = svc.Reset(ctx, v.ID)
	require.NoError(t, err)
	assert.Empty(t, v.Payload.Selection)
	assert.Equal(t, []string{"color", "size"}, v.Payload.Missing)
	assert.Empty(t, v.ImageRef)

	got, err := svc.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, variant.StateInitial, got.Payload.State)
}

func TestService_UnknownSession(t *testing.T) {
	svc, _ := newTestService(t, &clock{now: time.Now()})
	ctx := context.Background()

	_, err := svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Toggle(ctx, "missing", "color", variant.ValueDescriptor{Value: "Black"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Reset(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = svc.Close(ctx, "missing")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "missing", nf.ID)
}

func TestService_Close(t *testing.T) {
	svc, _ := newTestService(t, &clock{now: time.Now()})
	ctx := context.Background()

	v, err := svc.Open(ctx, product.Query{Slug: "tee"})
	require.NoError(t, err)

	require.NoError(t, svc.Close(ctx, v.ID))
	assert.Zero(t, svc.Len())

	_, err = svc.Get(ctx, v.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_Expiry(t *testing.T) {
	c := &clock{now: time.Unix(1_700_000_000, 0)}
	svc, _ := newTestService(t, c)
	ctx := context.Background()

	v, err := svc.Open(ctx, product.Query{Slug: "tee"})
	require.NoError(t, err)

	c.Advance(50 * time.Second)
	_, err = svc.Get(ctx, v.ID)
	require.NoError(t, err, "access extends the lifetime")

	c.Advance(50 * time.Second)
	_, err = svc.Get(ctx, v.ID)
	require.NoError(t, err)

	c.Advance(61 * time.Second)
	_, err = svc.Get(ctx, v.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, 1, svc.evict(ctx))
	assert.Zero(t, svc.Len())
}

func TestService_RunEvicts(t *testing.T) {
	c := &clock{now: time.Unix(1_700_000_000, 0)}
	svc, _ := newTestService(t, c)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	_, err := svc.Open(ctx, product.Query{Slug: "tee"})
	require.NoError(t, err)
	c.Advance(2 * time.Minute)

	assert.Eventually(t, func() bool { return svc.Len() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestService_ConcurrentToggles(t *testing.T) {
	svc, _ := newTestService(t, &clock{now: time.Now()})
	ctx := context.Background()

	v, err := svc.Open(ctx, product.Query{Slug: "tee"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			color := "Black"
			if i%2 == 0 {
				color = "White"
			}
			_, err := svc.Toggle(ctx, v.ID, "color", variant.ValueDescriptor{Value: color})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := svc.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Contains(t, []string{"Black", "White"}, got.Payload.Selection["color"])
}
