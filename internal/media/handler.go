package media

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/memora/service/internal/collection"
	"github.com/memora/service/internal/middleware"
	"github.com/memora/service/internal/quota"
	"github.com/memora/service/internal/response"
)

// Handler holds HTTP handlers for media endpoints.
type Handler struct {
	svc            *Service
	maxUploadBytes int64
}

// NewHandler creates a new media Handler.
func NewHandler(svc *Service, maxUploadBytes int64) *Handler {
	return &Handler{svc: svc, maxUploadBytes: maxUploadBytes}
}

// Upload godoc
//
//	@Summary		Upload media
//	@Description	Upload an image or video into a collection. Rejected with 402 and the required amount when the storage quota is exceeded; after paying, retrying the identical upload succeeds.
//	@Tags			media
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			collectionId	formData	string	true	"Target collection ID"
//	@Param			file			formData	file	true	"Image or video file"
//	@Success		201				{object}	response.Envelope{data=Media}
//	@Failure		400				{object}	response.Envelope
//	@Failure		402				{object}	response.Envelope{data=response.PaymentInfo}
//	@Failure		404				{object}	response.Envelope
//	@Router			/media/upload [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		response.BadRequest(w, "invalid multipart body or file too large")
		return
	}

	collectionID := r.FormValue("collectionId")
	if collectionID == "" {
		response.BadRequest(w, "collectionId is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "no file uploaded")
		return
	}
	defer file.Close()

	m, err := h.svc.Upload(r.Context(), middleware.UserID(r.Context()), UploadInput{
		CollectionID: collectionID,
		Name:         header.Filename,
		ContentType:  header.Header.Get("Content-Type"),
		Size:         header.Size,
		Reader:       file,
	})
	if err != nil {
		var exceeded *quota.ExceededError
		switch {
		case errors.As(err, &exceeded):
			response.PaymentRequired(w, exceeded.Error(), exceeded.Cost)
		case errors.Is(err, ErrUnsupportedType):
			response.BadRequest(w, "only image and video uploads are supported")
		case errors.Is(err, collection.ErrNotFound):
			response.NotFound(w, "collection not found")
		case errors.Is(err, ErrBackingStore):
			response.InternalError(w)
		default:
			response.InternalError(w)
		}
		return
	}

	response.Created(w, m)
}

// List godoc
//
//	@Summary		List media in a collection
//	@Description	Returns the active media of one of the caller's collections, newest first.
//	@Tags			media
//	@Produce		json
//	@Security		BearerAuth
//	@Param			collectionID	path		string	true	"Collection ID"
//	@Success		200				{object}	response.Envelope{data=[]Media}
//	@Failure		404				{object}	response.Envelope
//	@Router			/media/{collectionID} [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "collectionID"))
	if errors.Is(err, collection.ErrNotFound) {
		response.NotFound(w, "collection not found")
		return
	}
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, items)
}

// Trash godoc
//
//	@Summary		Move media to trash
//	@Description	Soft-deletes one media item. Its collection is unaffected; bytes and quota are retained until purge.
//	@Tags			media
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Media ID"
//	@Success		200	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Router			/media/{id} [delete]
func (h *Handler) Trash(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Trash(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "id"))
	if errors.Is(err, ErrNotFound) {
		response.NotFound(w, "media not found")
		return
	}
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]string{"message": "media moved to trash"})
}
