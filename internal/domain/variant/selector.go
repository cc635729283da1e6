package variant

import (
	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// Toggle rejections. They are reported on ToggleResult and never change the
// selection.
var (
	// ErrUnknownAttribute is returned for an attribute no variant defines.
	ErrUnknownAttribute = errors.New("unknown attribute")
	// ErrAlreadySelected is returned when the value is already chosen.
	ErrAlreadySelected = errors.New("value already selected")
	// ErrValueUnavailable is returned when no in-stock variant agrees with
	// the value and the rest of the selection.
	ErrValueUnavailable = errors.New("value not available")
)

// State is the coarse progress of a selection.
type State uint8

const (
	StateInitial State = iota
	StatePartial
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StatePartial:
		return "partial"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

func stateOf(selected, attributes int) State {
	switch {
	case selected == 0:
		return StateInitial
	case selected < attributes:
		return StatePartial
	default:
		return StateComplete
	}
}

// ImageNotifier is told about the image of a newly selected value.
type ImageNotifier interface {
	NotifyImage(imageRef string)
}

// ImageNotifierFunc adapts a function to ImageNotifier.
type ImageNotifierFunc func(imageRef string)

// NotifyImage calls f(imageRef).
func (f ImageNotifierFunc) NotifyImage(imageRef string) {
	f(imageRef)
}

// Option configures a Selector.
type Option func(*Selector)

// WithImageNotifier sets the collaborator notified on image changes.
func WithImageNotifier(n ImageNotifier) Option {
	return func(s *Selector) {
		s.notifier = n
	}
}

// WithLogger sets the logger used for rejected toggles.
func WithLogger(lg *zap.Logger) Option {
	return func(s *Selector) {
		s.lg = lg
	}
}

// WithMemoLimit bounds the payload cache. Zero disables caching.
func WithMemoLimit(n int) Option {
	return func(s *Selector) {
		s.memo = newMemo(n)
	}
}

// ToggleResult is the payload after a toggle. Rejection is set when the
// toggle was ignored; the payload then reflects the unchanged selection.
type ToggleResult struct {
	Payload
	Accepted  bool
	Rejection error
}

// ResetResult is returned by Reset.
type ResetResult struct {
	Selection Selection
	Missing   []string
	Prompt    string
}

// Selector owns the selection for one product and recomputes availability
// on every change. It is not safe for concurrent use.
type Selector struct {
	catalog   *Catalog
	resolver  *Resolver
	matcher   *Matcher
	explainer *Explainer

	selection Selection
	chosen    map[string]ValueDescriptor
	notifier  ImageNotifier
	lg        *zap.Logger
	memo      *memo
}

// NewSelector builds the catalog for variants and starts with an empty
// selection.
func NewSelector(variants []Variant, opts ...Option) *Selector {
	catalog := NewCatalog(variants)
	resolver := NewResolver(catalog)
	s := &Selector{
		catalog:   catalog,
		resolver:  resolver,
		matcher:   NewMatcher(catalog),
		explainer: NewExplainer(catalog, resolver),
		selection: make(Selection),
		chosen:    make(map[string]ValueDescriptor),
		lg:        zap.NewNop(),
		memo:      newMemo(64),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Catalog returns the catalog the selector was built from.
func (s *Selector) Catalog() *Catalog {
	return s.catalog
}

// Groups returns the attribute groups of the catalog.
func (s *Selector) Groups() AttributeGroups {
	return s.catalog.Groups()
}

// Selection returns a copy of the current selection.
func (s *Selector) Selection() Selection {
	return s.selection.Clone()
}

// State returns the progress of the current selection.
func (s *Selector) State() State {
	return stateOf(len(s.selection), len(s.catalog.groups))
}

// Toggle selects value for attribute. Unknown attributes, re-selecting the
// current descriptor, and unavailable values are rejected without side
// effects. An accepted toggle replaces only attribute's entry and notifies the
// image collaborator when the selected descriptor carries an image. Picking
// another descriptor of the selected value (same value, different swatch or
// image) is accepted and only swaps the descriptor.
func (s *Selector) Toggle(attribute string, value ValueDescriptor) ToggleResult {
	d, err := s.check(attribute, value)
	if err != nil {
		s.lg.Debug("Toggle rejected",
			zap.String("attribute", attribute),
			zap.String("value", value.Value),
			zap.Error(err),
		)
		return ToggleResult{Payload: s.Snapshot(), Rejection: err}
	}

	s.selection[attribute] = d.Value
	s.chosen[attribute] = d
	if d.ImageRef != "" && s.notifier != nil {
		s.notifier.NotifyImage(d.ImageRef)
	}

	return ToggleResult{Payload: s.Snapshot(), Accepted: true}
}

// check returns the catalog descriptor the toggle resolves to.
func (s *Selector) check(attribute string, value ValueDescriptor) (ValueDescriptor, error) {
	if !s.catalog.HasAttribute(attribute) {
		return ValueDescriptor{}, ErrUnknownAttribute
	}
	d, known := s.catalog.descriptorFor(attribute, value)
	if current, ok := s.selection[attribute]; ok && current == value.Value {
		if !known || s.chosen[attribute] == d {
			return ValueDescriptor{}, ErrAlreadySelected
		}
		return d, nil
	}
	if !known || !s.resolver.Resolve(attribute, value.Value, s.selection).Available {
		return ValueDescriptor{}, ErrValueUnavailable
	}
	return d, nil
}

// Reset clears the selection.
func (s *Selector) Reset() ResetResult {
	clear(s.selection)
	clear(s.chosen)
	missing := s.explainer.Missing(s.selection)
	return ResetResult{
		Selection: make(Selection),
		Missing:   missing,
		Prompt:    Prompt(missing),
	}
}

// Snapshot computes the payload for the current selection without changing
// it. Payloads are memoized by catalog and selection fingerprint.
func (s *Selector) Snapshot() Payload {
	key := selectionFingerprint(s.catalog.print, s.selection)
	if p, ok := s.memo.get(key); ok {
		return p
	}
	p := s.explainer.Explain(s.selection, s.matcher.Match(s.selection))
	s.memo.put(key, p)
	return p
}
