package http

import (
	"LinkCut-Backend/internal/repository"
	"LinkCut-Backend/internal/service"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// RedirectHandler обработчик редиректа по короткому коду
type RedirectHandler struct {
	links *service.LinkService
	log   *zap.Logger
}

// NewRedirectHandler создает новый обработчик редиректа
func NewRedirectHandler(links *service.LinkService, log *zap.Logger) *RedirectHandler {
	return &RedirectHandler{
		links: links,
		log:   log,
	}
}

// Redirect перенаправляет на оригинальный URL
//
//	@Summary		Redirect by short code
//	@Tags			Redirect
//	@Param			short_code	path	string	true	"Short code"
//	@Success		307	"Redirect to the original URL"
//	@Failure		404	{object}	map[string]string	"Unknown code"
//	@Failure		410	{object}	map[string]string	"Link expired"
//	@Router			/{short_code} [get]
func (h *RedirectHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if code == "" {
		http.NotFound(w, r)
		return
	}

	originalURL, err := h.links.Resolve(r.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrCodeNotFound):
			http.Error(w, "Link not found", http.StatusNotFound)
		case errors.Is(err, service.ErrLinkExpired):
			http.Error(w, "Link has expired", http.StatusGone)
		default:
			h.log.Error("failed to resolve link", zap.String("code", code), zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	http.Redirect(w, r, originalURL, http.StatusTemporaryRedirect)
}
