// Package session keeps one variant selector per shopper and product, and
// evicts idle ones.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/kart-variants/internal/domain/product"
	"github.com/xenking/kart-variants/internal/domain/variant"
)

// ErrNotFound matches every NotFoundError.
var ErrNotFound = errors.New("session not found")

// NotFoundError indicates an unknown or expired session.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("session %s not found", e.ID)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Config controls session lifetime.
type Config struct {
	TTL             time.Duration
	JanitorInterval time.Duration
	MemoLimit       int
}

func (c Config) withDefaults() Config {
	if c.TTL <= 0 {
		c.TTL = 30 * time.Minute
	}
	if c.JanitorInterval <= 0 {
		c.JanitorInterval = time.Minute
	}
	if c.MemoLimit == 0 {
		c.MemoLimit = 64
	}
	return c
}

// View is the host-facing state of a session after an operation.
type View struct {
	ID        string
	Product   product.Summary
	Currency  string
	Groups    variant.AttributeGroups
	Payload   variant.Payload
	ImageRef  string
	Accepted  bool
	Rejection error
	ExpiresAt time.Time
}

type entry struct {
	mu       sync.Mutex
	selector *variant.Selector
	product  product.Summary
	currency string
	imageRef string
	expires  time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithMeterProvider sets the meter provider for session metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) {
		s.meterProvider = mp
	}
}

// WithTracerProvider sets the tracer provider for session spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		s.tracer = tp.Tracer("github.com/xenking/kart-variants/internal/session")
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service owns the live selection sessions.
type Service struct {
	products product.Repository
	cfg      Config
	now      func() time.Time

	meterProvider metric.MeterProvider
	tracer        trace.Tracer
	opened        metric.Int64Counter
	toggles       metric.Int64Counter
	active        metric.Int64UpDownCounter

	mu       sync.Mutex
	sessions map[string]*entry
}

// NewService creates a Service reading variants from products.
func NewService(products product.Repository, cfg Config, opts ...Option) (*Service, error) {
	s := &Service{
		products:      products,
		cfg:           cfg.withDefaults(),
		now:           time.Now,
		meterProvider: metricnoop.NewMeterProvider(),
		tracer:        tracenoop.NewTracerProvider().Tracer(""),
		sessions:      make(map[string]*entry),
	}
	for _, o := range opts {
		o(s)
	}

	meter := s.meterProvider.Meter("github.com/xenking/kart-variants/internal/session")
	var err error
	if s.opened, err = meter.Int64Counter("variants.session.opened",
		metric.WithDescription("Sessions opened"),
	); err != nil {
		return nil, errors.Wrap(err, "opened counter")
	}
	if s.toggles, err = meter.Int64Counter("variants.session.toggles",
		metric.WithDescription("Toggle requests by outcome"),
	); err != nil {
		return nil, errors.Wrap(err, "toggles counter")
	}
	if s.active, err = meter.Int64UpDownCounter("variants.session.active",
		metric.WithDescription("Live sessions"),
	); err != nil {
		return nil, errors.Wrap(err, "active counter")
	}
	return s, nil
}

// Open loads the product's variants and starts a session with an empty
// selection.
func (s *Service) Open(ctx context.Context, q product.Query) (*View, error) {
	ctx, span := s.tracer.Start(ctx, "session.Open",
		trace.WithAttributes(attribute.String("product.slug", q.Slug)),
	)
	defer span.End()

	q = q.WithDefaults()
	p, err := s.products.Variants(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, "load variants")
	}

	lg := zctx.From(ctx)
	e := &entry{
		product: product.Summary{
			ID:           p.ID,
			Slug:         p.Slug,
			Name:         p.Name,
			VariantCount: len(p.Variants),
		},
		currency: p.Currency,
	}
	e.selector = variant.NewSelector(p.Variants,
		variant.WithLogger(lg.With(zap.String("product", p.Slug))),
		variant.WithMemoLimit(s.cfg.MemoLimit),
		variant.WithImageNotifier(variant.ImageNotifierFunc(func(ref string) {
			e.imageRef = ref
		})),
	)
	for _, issue := range e.selector.Catalog().Issues() {
		lg.Warn("Catalog issue",
			zap.String("product", p.Slug),
			zap.String("kind", string(issue.Kind)),
			zap.String("variant", issue.VariantID),
			zap.String("attribute", issue.Attribute),
		)
	}

	id := uuid.New().String()
	e.expires = s.now().Add(s.cfg.TTL)

	s.mu.Lock()
	s.sessions[id] = e
	s.mu.Unlock()

	s.opened.Add(ctx, 1, metric.WithAttributes(attribute.String("product", p.Slug)))
	s.active.Add(ctx, 1)
	span.SetAttributes(attribute.String("session.id", id))

	e.mu.Lock()
	defer e.mu.Unlock()
	v := s.view(id, e)
	v.Payload = e.selector.Snapshot()
	return v, nil
}

// Get returns the current state of a session.
func (s *Service) Get(ctx context.Context, id string) (*View, error) {
	_, span := s.tracer.Start(ctx, "session.Get")
	defer span.End()

	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	s.touch(e)

	v := s.view(id, e)
	v.Payload = e.selector.Snapshot()
	return v, nil
}

// Toggle applies a selection change. A rejected toggle is not an error: the
// view carries the rejection and the unchanged payload.
func (s *Service) Toggle(ctx context.Context, id, attr string, value variant.ValueDescriptor) (*View, error) {
	ctx, span := s.tracer.Start(ctx, "session.Toggle",
		trace.WithAttributes(
			attribute.String("session.id", id),
			attribute.String("variant.attribute", attr),
		),
	)
	defer span.End()

	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	s.touch(e)

	res := e.selector.Toggle(attr, value)
	s.toggles.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome(res))))

	v := s.view(id, e)
	v.Payload = res.Payload
	v.Accepted = res.Accepted
	v.Rejection = res.Rejection
	return v, nil
}

// Reset clears a session's selection.
func (s *Service) Reset(ctx context.Context, id string) (*View, error) {
	_, span := s.tracer.Start(ctx, "session.Reset")
	defer span.End()

	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	s.touch(e)

	e.selector.Reset()
	e.imageRef = ""
	v := s.view(id, e)
	v.Payload = e.selector.Snapshot()
	v.Accepted = true
	return v, nil
}

// Close ends a session.
func (s *Service) Close(ctx context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return &NotFoundError{ID: id}
	}
	s.active.Add(ctx, -1)
	return nil
}

// Len returns the number of live sessions.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Run evicts expired sessions until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.JanitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.evict(ctx); n > 0 {
				zctx.From(ctx).Debug("Evicted sessions", zap.Int("count", n))
			}
		}
	}
}

func (s *Service) evict(ctx context.Context) int {
	now := s.now()

	s.mu.Lock()
	var n int
	for id, e := range s.sessions {
		e.mu.Lock()
		expired := now.After(e.expires)
		e.mu.Unlock()
		if expired {
			delete(s.sessions, id)
			n++
		}
	}
	s.mu.Unlock()

	if n > 0 {
		s.active.Add(ctx, int64(-n))
	}
	return n
}

func (s *Service) lookup(id string) (*entry, error) {
	s.mu.Lock()
	e, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return nil, &NotFoundError{ID: id}
	}

	e.mu.Lock()
	expired := s.now().After(e.expires)
	e.mu.Unlock()
	if expired {
		return nil, &NotFoundError{ID: id}
	}
	return e, nil
}

// touch extends the session lifetime. Caller holds e.mu.
func (s *Service) touch(e *entry) {
	e.expires = s.now().Add(s.cfg.TTL)
}

// view copies the session metadata. Caller holds e.mu.
func (s *Service) view(id string, e *entry) *View {
	return &View{
		ID:        id,
		Product:   e.product,
		Currency:  e.currency,
		Groups:    e.selector.Groups(),
		ImageRef:  e.imageRef,
		ExpiresAt: e.expires,
	}
}

func outcome(res variant.ToggleResult) string {
	switch {
	case res.Accepted:
		return "accepted"
	case errors.Is(res.Rejection, variant.ErrUnknownAttribute):
		return "unknown_attribute"
	case errors.Is(res.Rejection, variant.ErrAlreadySelected):
		return "already_selected"
	case errors.Is(res.Rejection, variant.ErrValueUnavailable):
		return "unavailable"
	default:
		return "rejected"
	}
}
