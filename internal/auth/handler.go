package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"

	"github.com/memora/service/internal/response"
)

// refreshCookie is the httpOnly cookie carrying the renewal credential.
// It is never readable by page script.
const refreshCookie = "refreshToken"

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Handler holds HTTP handlers for auth endpoints.
type Handler struct {
	svc    *Service
	secure bool // Secure cookie flag, true in production
}

// NewHandler creates a new auth Handler.
func NewHandler(svc *Service, secureCookies bool) *Handler {
	return &Handler{svc: svc, secure: secureCookies}
}

type registerRequest struct {
	Name     string `json:"name"     example:"Jane Doe"`
	Email    string `json:"email"    example:"jane@example.com"`
	Password string `json:"password" example:"hunter2hunter2"`
}

type loginRequest struct {
	Email    string `json:"email"    example:"jane@example.com"`
	Password string `json:"password" example:"hunter2hunter2"`
}

type sessionData struct {
	AccessToken string      `json:"accessToken" example:"eyJhbGci..."`
	User        interface{} `json:"user"`
}

// Register godoc
//
//	@Summary		Register
//	@Description	Create an account. Returns an access token in the body and sets the renewal token as an httpOnly cookie.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		registerRequest	true	"Registration details"
//	@Success		201		{object}	response.Envelope{data=sessionData}
//	@Failure		400		{object}	response.Envelope
//	@Failure		409		{object}	response.Envelope
//	@Router			/auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if req.Name == "" || !emailRegex.MatchString(req.Email) {
		response.BadRequest(w, "name and a valid email are required")
		return
	}
	if len(req.Password) < 8 {
		response.BadRequest(w, "password must be at least 8 characters")
		return
	}

	u, pair, err := h.svc.Register(r.Context(), req.Name, req.Email, req.Password)
	if errors.Is(err, ErrEmailTaken) {
		response.Conflict(w, "email already registered")
		return
	}
	if err != nil {
		response.InternalError(w)
		return
	}

	h.setRefreshCookie(w, pair)
	response.Created(w, sessionData{AccessToken: pair.AccessToken, User: u})
}

// Login godoc
//
//	@Summary		Login
//	@Description	Verify credentials. Returns an access token in the body and sets the renewal token as an httpOnly cookie.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		loginRequest	true	"Credentials"
//	@Success		200		{object}	response.Envelope{data=sessionData}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Router			/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	u, pair, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		response.Unauthorized(w, "invalid email or password")
		return
	}
	if err != nil {
		response.InternalError(w)
		return
	}

	h.setRefreshCookie(w, pair)
	response.OK(w, sessionData{AccessToken: pair.AccessToken, User: u})
}

// Refresh godoc
//
//	@Summary		Rotate access token
//	@Description	Mint a new access token from the renewal cookie. Clients call this once after a 401 and retry the original request.
//	@Tags			auth
//	@Produce		json
//	@Success		200	{object}	response.Envelope{data=sessionData}
//	@Failure		401	{object}	response.Envelope
//	@Router			/auth/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookie)
	if err != nil || cookie.Value == "" {
		response.Unauthorized(w, "unauthenticated")
		return
	}

	access, err := h.svc.Rotate(r.Context(), cookie.Value)
	if errors.Is(err, ErrUnauthenticated) {
		h.clearRefreshCookie(w)
		response.Unauthorized(w, "unauthenticated")
		return
	}
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]string{"accessToken": access})
}

// Logout godoc
//
//	@Summary		Logout
//	@Description	Revoke the renewal token and clear its cookie.
//	@Tags			auth
//	@Produce		json
//	@Success		200	{object}	response.Envelope
//	@Router			/auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(refreshCookie); err == nil && cookie.Value != "" {
		if err := h.svc.Revoke(r.Context(), cookie.Value); err != nil {
			response.InternalError(w)
			return
		}
	}
	h.clearRefreshCookie(w)
	response.OK(w, map[string]string{"message": "logged out"})
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, pair *TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    pair.RefreshToken,
		Path:     "/api/v1/auth",
		Expires:  pair.RefreshExpires,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    "",
		Path:     "/api/v1/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})
}
