package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/kart-variants/internal/domain/product"
	"github.com/xenking/kart-variants/internal/domain/variant"
	"github.com/xenking/kart-variants/internal/wire"
)

// ListProducts returns every product, named in the requested locale.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	locale := r.URL.Query().Get("locale")
	if locale == "" {
		locale = product.DefaultLocale
	}

	list, err := h.products.List(r.Context(), locale)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { wire.EncodeSummaries(e, list) })
}

// ProductVariants returns the raw variants of one product together with its
// attribute groups.
func (h *Handler) ProductVariants(w http.ResponseWriter, r *http.Request) {
	q := product.Query{
		Slug:     r.PathValue("slug"),
		Locale:   r.URL.Query().Get("locale"),
		Currency: r.URL.Query().Get("currency"),
	}

	p, err := h.products.Variants(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	groups := variant.NewCatalog(p.Variants).Groups()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { wire.EncodeProduct(e, p, groups) })
}
