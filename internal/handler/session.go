package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/kart-variants/internal/session"
	"github.com/xenking/kart-variants/internal/wire"
)

// OpenSession starts a selection session for a product.
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	data, err := h.readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q, err := wire.DecodeOpenRequest(data)
	if err != nil {
		writeError(w, r, &BadRequestError{Err: err})
		return
	}

	v, err := h.sessions.Open(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/sessions/"+v.ID)
	writeSession(w, http.StatusCreated, v)
}

// GetSession returns the current selection state.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	v, err := h.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSession(w, http.StatusOK, v)
}

// ToggleSession selects a value. A rejected toggle still answers 200 with
// "accepted": false and the unchanged state.
func (h *Handler) ToggleSession(w http.ResponseWriter, r *http.Request) {
	data, err := h.readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := wire.DecodeToggleRequest(data)
	if err != nil {
		writeError(w, r, &BadRequestError{Err: err})
		return
	}

	v, err := h.sessions.Toggle(r.Context(), r.PathValue("id"), req.Attribute, req.Value)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSession(w, http.StatusOK, v)
}

// ResetSession clears the selection.
func (h *Handler) ResetSession(w http.ResponseWriter, r *http.Request) {
	v, err := h.sessions.Reset(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSession(w, http.StatusOK, v)
}

// CloseSession ends a session.
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeSession(w http.ResponseWriter, status int, v *session.View) {
	writeJSON(w, status, func(e *jx.Encoder) { wire.EncodeSession(e, v) })
}
