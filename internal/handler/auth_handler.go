package handler

import (
	"net/http"
	"time"

	"freelance-market/internal/middleware"
	"freelance-market/internal/model"
	"freelance-market/internal/service"
	"freelance-market/pkg/apierror"
)

const RefreshTokenCookie = "refreshToken"

// CookieOptions controls the session cookies. Secure cookies are sent with
// SameSite=None so a separately hosted frontend can use them; otherwise Lax.
type CookieOptions struct {
	Secure bool
	Domain string
}

type AuthHandler struct {
	service *service.AuthService
	cookies CookieOptions
}

func NewAuthHandler(service *service.AuthService, cookies CookieOptions) *AuthHandler {
	return &AuthHandler{service: service, cookies: cookies}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload model.RegisterRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.service.Register(r.Context(), payload.Name, payload.Email, payload.Password, payload.Role)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, user, nil)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	tokens, err := h.service.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookies(w, tokens)
	writeSuccess(w, http.StatusOK, tokens, nil)
}

// Refresh rotates the session held in the refresh cookie.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var current string
	if cookie, err := r.Cookie(RefreshTokenCookie); err == nil {
		current = cookie.Value
	}

	tokens, err := h.service.Refresh(r.Context(), current)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookies(w, tokens)
	writeSuccess(w, http.StatusOK, tokens, nil)
}

// Logout always succeeds and clears both session cookies.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(RefreshTokenCookie); err == nil {
		h.service.Logout(r.Context(), cookie.Value)
	}

	h.clearCookie(w, RefreshTokenCookie, true)
	h.clearCookie(w, middleware.AccessTokenCookie, false)
	writeSuccess(w, http.StatusOK, map[string]any{"loggedOut": true}, nil)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	user, err := h.service.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, user, nil)
}

func (h *AuthHandler) setSessionCookies(w http.ResponseWriter, tokens model.TokenPair) {
	http.SetCookie(w, h.cookie(RefreshTokenCookie, tokens.RefreshToken, tokens.RefreshTTL, true))
	http.SetCookie(w, h.cookie(middleware.AccessTokenCookie, tokens.AccessToken, h.service.AccessTTL(), false))
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter, name string, httpOnly bool) {
	cookie := h.cookie(name, "", 0, httpOnly)
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0)
	http.SetCookie(w, cookie)
}

func (h *AuthHandler) cookie(name string, value string, ttl time.Duration, httpOnly bool) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if h.cookies.Secure {
		sameSite = http.SameSiteNoneMode
	}

	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.cookies.Domain,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: httpOnly,
		Secure:   h.cookies.Secure,
		SameSite: sameSite,
	}
}
