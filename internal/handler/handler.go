package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-variants/internal/domain/product"
	"github.com/xenking/kart-variants/internal/domain/variant"
	"github.com/xenking/kart-variants/internal/session"
	"github.com/xenking/kart-variants/internal/wire"
)

// Sessions is the session service the handler delegates to.
type Sessions interface {
	Open(ctx context.Context, q product.Query) (*session.View, error)
	Get(ctx context.Context, id string) (*session.View, error)
	Toggle(ctx context.Context, id, attr string, value variant.ValueDescriptor) (*session.View, error)
	Reset(ctx context.Context, id string) (*session.View, error)
	Close(ctx context.Context, id string) error
}

var _ Sessions = (*session.Service)(nil)

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// MaxBodyBytes limits request bodies. Zero means 64 KiB.
	MaxBodyBytes int64
}

// Handler serves the product and selection session API.
type Handler struct {
	products product.Repository
	sessions Sessions
	maxBody  int64
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(cfg HandlerConfig, products product.Repository, sessions Sessions) *Handler {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 64 << 10
	}
	return &Handler{
		products: products,
		sessions: sessions,
		maxBody:  cfg.MaxBodyBytes,
	}
}

// Register mounts the API routes on mux under /api.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{slug}/variants", h.ProductVariants)
	mux.HandleFunc("POST /api/sessions", h.OpenSession)
	mux.HandleFunc("GET /api/sessions/{id}", h.GetSession)
	mux.HandleFunc("POST /api/sessions/{id}/toggle", h.ToggleSession)
	mux.HandleFunc("POST /api/sessions/{id}/reset", h.ResetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.CloseSession)
}

// BadRequestError wraps a client input error.
type BadRequestError struct {
	Err error
}

func (e *BadRequestError) Error() string { return e.Err.Error() }

func (e *BadRequestError) Unwrap() error { return e.Err }

func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		return nil, &BadRequestError{Err: errors.Wrap(err, "read body")}
	}
	return data, nil
}

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError maps domain errors to API error responses. Unknown errors are
// logged and reported as 500 without details.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		code = http.StatusInternalServerError
		msg  = "internal server error"
		bad  *BadRequestError
		nf   *session.NotFoundError
	)
	switch {
	case errors.As(err, &bad):
		code, msg = http.StatusBadRequest, bad.Error()
	case errors.Is(err, product.ErrNotFound):
		code, msg = http.StatusNotFound, product.ErrNotFound.Error()
	case errors.As(err, &nf):
		code, msg = http.StatusNotFound, nf.Error()
	default:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	}
	writeJSON(w, code, func(e *jx.Encoder) { wire.EncodeError(e, code, msg) })
}
