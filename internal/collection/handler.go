package collection

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/memora/service/internal/middleware"
	"github.com/memora/service/internal/response"
)

// Handler holds HTTP handlers for collection endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new collection Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type createRequest struct {
	Name string `json:"name" example:"Summer 2026"`
}

type renameRequest struct {
	Name string `json:"name" example:"Summer 2026 (edited)"`
}

// Create godoc
//
//	@Summary		Create collection
//	@Description	Create a named collection with a generated public share ID.
//	@Tags			collections
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		createRequest	true	"Collection name"
//	@Success		201		{object}	response.Envelope{data=Collection}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Router			/collections [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if req.Name == "" {
		response.BadRequest(w, "name is required")
		return
	}

	c, err := h.svc.Create(r.Context(), middleware.UserID(r.Context()), req.Name)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.Created(w, c)
}

// List godoc
//
//	@Summary		List collections
//	@Description	Returns the caller's active collections, newest first.
//	@Tags			collections
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	response.Envelope{data=[]Collection}
//	@Failure		401	{object}	response.Envelope
//	@Router			/collections [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	collections, err := h.svc.List(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, collections)
}

// Rename godoc
//
//	@Summary		Rename collection
//	@Tags			collections
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string			true	"Collection ID"
//	@Param			request	body		renameRequest	true	"New name"
//	@Success		200		{object}	response.Envelope{data=Collection}
//	@Failure		400		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Router			/collections/{id} [patch]
func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if req.Name == "" {
		response.BadRequest(w, "name is required")
		return
	}

	c, err := h.svc.Rename(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id"), req.Name)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(w, "collection not found")
		return
	}
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, c)
}

// Trash godoc
//
//	@Summary		Move collection to trash
//	@Description	Soft-deletes the collection and everything in it. Items stay recoverable for the retention window.
//	@Tags			collections
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Collection ID"
//	@Success		200	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Router			/collections/{id} [delete]
func (h *Handler) Trash(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Trash(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id"))
	if errors.Is(err, ErrNotFound) {
		response.NotFound(w, "collection not found")
		return
	}
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]string{"message": "collection moved to trash"})
}
