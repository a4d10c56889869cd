package share

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/memora/service/internal/media"
	"github.com/memora/service/internal/response"
	"github.com/memora/service/internal/storage"
)

// Handler holds HTTP handlers for the public share endpoints.
type Handler struct {
	repo  *Repository
	store storage.Storage
}

// NewHandler creates a new share Handler.
func NewHandler(repo *Repository, store storage.Storage) *Handler {
	return &Handler{repo: repo, store: store}
}

type sharedView struct {
	Collection SharedCollection `json:"collection"`
	Media      []media.Media    `json:"media"`
}

// Get godoc
//
//	@Summary		View a shared collection
//	@Description	Public, unauthenticated. Returns the collection name, owner display name, and active media only.
//	@Tags			share
//	@Produce		json
//	@Param			shareID	path		string	true	"Public share identifier"
//	@Success		200		{object}	response.Envelope{data=sharedView}
//	@Failure		404		{object}	response.Envelope
//	@Router			/share/{shareID} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	shareID := chi.URLParam(r, "shareID")

	collectionID, sc, err := h.repo.GetByShareID(r.Context(), shareID)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(w, "collection not found or link is invalid")
		return
	}
	if err != nil {
		response.InternalError(w)
		return
	}

	items, err := h.repo.ListActiveMedia(r.Context(), collectionID)
	if err != nil {
		response.InternalError(w)
		return
	}
	for i := range items {
		items[i].URL = h.store.PublicURL(items[i].StorageKey)
	}

	response.OK(w, sharedView{Collection: *sc, Media: items})
}

// GetMedia godoc
//
//	@Summary		Stream a shared media item
//	@Description	Public, unauthenticated. Streams the bytes of one active media item in the shared collection.
//	@Tags			share
//	@Produce		octet-stream
//	@Param			shareID	path	string	true	"Public share identifier"
//	@Param			mediaID	path	string	true	"Media ID"
//	@Success		200
//	@Failure		404	{object}	response.Envelope
//	@Router			/share/{shareID}/media/{mediaID} [get]
func (h *Handler) GetMedia(w http.ResponseWriter, r *http.Request) {
	m, err := h.repo.GetActiveMedia(r.Context(), chi.URLParam(r, "shareID"), chi.URLParam(r, "mediaID"))
	if errors.Is(err, ErrNotFound) {
		response.NotFound(w, "media not found")
		return
	}
	if err != nil {
		response.InternalError(w)
		return
	}

	obj, err := h.store.Get(r.Context(), m.StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		response.NotFound(w, "media not found")
		return
	}
	if err != nil {
		response.InternalError(w)
		return
	}
	defer obj.Close()

	w.Header().Set("Content-Type", m.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(m.Size, 10))
	if _, err := io.Copy(w, obj); err != nil {
		log.Printf("[share] streaming %s aborted: %v", m.StorageKey, err)
	}
}
