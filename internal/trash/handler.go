package trash

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/memora/service/internal/middleware"
	"github.com/memora/service/internal/response"
)

// Handler holds HTTP handlers for trash endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new trash Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type restoreRequest struct {
	Type string `json:"type" example:"collection" enums:"collection,media"`
	ID   string `json:"id"   example:"e7eedc79-0707-4fe4-8734-526b7ef13a7b"`
}

// List godoc
//
//	@Summary		List trash
//	@Description	Returns trashed collections and trashed media, each sorted by deletion time, most recent first.
//	@Tags			trash
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	response.Envelope{data=View}
//	@Failure		401	{object}	response.Envelope
//	@Router			/trash [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.List(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, view)
}

// Restore godoc
//
//	@Summary		Restore from trash
//	@Description	Restores a trashed collection (cascading to its media) or a single media item.
//	@Tags			trash
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		restoreRequest	true	"Item to restore"
//	@Success		200		{object}	response.Envelope
//	@Failure		400		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Failure		409		{object}	response.Envelope
//	@Router			/trash/restore [post]
func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if req.Type != "collection" && req.Type != "media" {
		response.BadRequest(w, "type must be collection or media")
		return
	}

	err := h.svc.Restore(r.Context(), middleware.UserID(r.Context()), req.Type, req.ID)
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "item not found")
	case errors.Is(err, ErrCollectionTrashed):
		response.Conflict(w, "restore the collection first")
	case err != nil:
		response.InternalError(w)
	default:
		response.OK(w, map[string]string{"message": "restored"})
	}
}

// Purge godoc
//
//	@Summary		Delete forever
//	@Description	Irreversibly purges a trashed item, freeing its bytes and storage quota. Purging an already-purged item is a no-op.
//	@Tags			trash
//	@Produce		json
//	@Security		BearerAuth
//	@Param			type	path		string	true	"Item type"	Enums(collection, media)
//	@Param			id		path		string	true	"Item ID"
//	@Success		200		{object}	response.Envelope
//	@Failure		400		{object}	response.Envelope
//	@Router			/trash/{type}/{id} [delete]
func (h *Handler) Purge(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	id := chi.URLParam(r, "id")

	switch chi.URLParam(r, "type") {
	case "media":
		if err := h.svc.PurgeMedia(r.Context(), userID, id); err != nil {
			response.InternalError(w)
			return
		}
		response.OK(w, map[string]string{"message": "permanently deleted"})
	case "collection":
		summary, err := h.svc.PurgeCollection(r.Context(), userID, id)
		if err != nil {
			response.InternalError(w)
			return
		}
		response.OK(w, summary)
	default:
		response.BadRequest(w, "type must be collection or media")
	}
}
