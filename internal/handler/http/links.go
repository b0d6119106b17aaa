package http

import (
	"LinkCut-Backend/internal/auth"
	"LinkCut-Backend/internal/domain"
	"LinkCut-Backend/internal/repository"
	"LinkCut-Backend/internal/service"
	"LinkCut-Backend/internal/shortcode"
	"LinkCut-Backend/internal/sweeper"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// LinksHandler обработчик для работы со ссылками
type LinksHandler struct {
	storage  repository.Storage
	links    *service.LinkService
	sweeper  *sweeper.Sweeper
	validate *validator.Validate
	log      *zap.Logger
	baseURL  string
}

// NewLinksHandler создает новый обработчик ссылок
func NewLinksHandler(storage repository.Storage, links *service.LinkService, sw *sweeper.Sweeper, log *zap.Logger, baseURL string) *LinksHandler {
	return &LinksHandler{
		storage:  storage,
		links:    links,
		sweeper:  sw,
		validate: validator.New(),
		log:      log,
		baseURL:  baseURL,
	}
}

// CreateLinkRequest структура запроса создания ссылки
type CreateLinkRequest struct {
	OriginalURL string     `json:"original_url" validate:"required,url"`
	CustomAlias string     `json:"custom_alias,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ProjectID   *int64     `json:"project_id,omitempty"`
}

// UpdateLinkRequest структура запроса обновления ссылки
type UpdateLinkRequest struct {
	OriginalURL string     `json:"original_url" validate:"required,url"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ProjectID   *int64     `json:"project_id,omitempty"`
}

// LinkResponse структура ответа со ссылкой
type LinkResponse struct {
	OriginalURL string     `json:"original_url"`
	ShortCode   string     `json:"short_code"`
	ShortURL    string     `json:"short_url,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ProjectID   *int64     `json:"project_id,omitempty"`
}

// ExpiredLinkResponse дополняет LinkResponse статистикой использования
type ExpiredLinkResponse struct {
	LinkResponse
	Clicks     int64      `json:"clicks"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// CleanupResponse структура ответа очистки
type CleanupResponse struct {
	Deleted int64 `json:"deleted"`
}

func (h *LinksHandler) linkResponse(link *domain.Link) LinkResponse {
	return LinkResponse{
		OriginalURL: link.OriginalURL,
		ShortCode:   link.ShortCode,
		ShortURL:    h.baseURL + "/" + link.ShortCode,
		CreatedAt:   link.CreatedAt,
		ExpiresAt:   link.ExpiresAt,
		ProjectID:   link.ProjectID,
	}
}

// CreateLink создает новую короткую ссылку
//
//	@Summary		Create a short link
//	@Description	Shorten a URL, optionally with a custom alias and expiry
//	@Tags			Links
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateLinkRequest	true	"Link creation request"
//	@Success		201		{object}	LinkResponse		"Link created"
//	@Failure		409		{object}	map[string]string	"Alias already taken"
//	@Failure		422		{object}	map[string]string	"Invalid input"
//	@Router			/links/shorten [post]
func (h *LinksHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid create link request", zap.Error(err))
		h.writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, "Invalid request: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	requester := auth.RequesterFromContext(r.Context())

	// Привязка к проекту требует владения проектом
	if req.ProjectID != nil {
		if requester == nil {
			h.writeError(w, "Authentication required to use projects", http.StatusUnauthorized)
			return
		}
		project, err := h.storage.GetProject(r.Context(), *req.ProjectID)
		if err != nil || project.OwnerID != *requester {
			h.writeError(w, "Project not found", http.StatusNotFound)
			return
		}
	}

	link, err := h.links.Shorten(r.Context(), service.CreateLink{
		OriginalURL: req.OriginalURL,
		CustomAlias: req.CustomAlias,
		ExpiresAt:   req.ExpiresAt,
		OwnerID:     requester,
		ProjectID:   req.ProjectID,
	})
	if err != nil {
		h.writeLinkError(w, err)
		return
	}

	h.writeJSON(w, h.linkResponse(link), http.StatusCreated)
}

// GetStats возвращает статистику по ссылке
//
//	@Summary		Link statistics
//	@Tags			Links
//	@Produce		json
//	@Param			short_code	path		string	true	"Short code"
//	@Success		200	{object}	service.LinkStats
//	@Failure		404	{object}	map[string]string	"Unknown code"
//	@Router			/links/{short_code}/stats [get]
func (h *LinksHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	snapshot, err := h.links.Stats(r.Context(), code)
	if err != nil {
		h.writeLinkError(w, err)
		return
	}

	h.writeJSON(w, snapshot, http.StatusOK)
}

// UpdateLink изменяет оригинальный URL и срок действия ссылки
func (h *LinksHandler) UpdateLink(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	var req UpdateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, "Invalid request: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	requester := auth.RequesterFromContext(r.Context())

	if req.ProjectID != nil && requester != nil {
		project, err := h.storage.GetProject(r.Context(), *req.ProjectID)
		if err != nil || project.OwnerID != *requester {
			h.writeError(w, "Project not found", http.StatusNotFound)
			return
		}
	}

	link, err := h.links.Update(r.Context(), code, requester, repository.LinkUpdate{
		OriginalURL: req.OriginalURL,
		ExpiresAt:   req.ExpiresAt,
		ProjectID:   req.ProjectID,
	})
	if err != nil {
		h.writeLinkError(w, err)
		return
	}

	h.writeJSON(w, h.linkResponse(link), http.StatusOK)
}

// DeleteLink удаляет ссылку
//
//	@Summary		Delete a link
//	@Tags			Links
//	@Security		BearerAuth
//	@Param			short_code	path	string	true	"Short code"
//	@Success		204	"Link deleted"
//	@Failure		403	{object}	map[string]string	"Not the owner"
//	@Failure		404	{object}	map[string]string	"Unknown code"
//	@Router			/links/{short_code} [delete]
func (h *LinksHandler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	requester := auth.RequesterFromContext(r.Context())

	if err := h.links.Delete(r.Context(), code, requester); err != nil {
		h.writeLinkError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SearchLinks ищет ссылки по оригинальному URL
func (h *LinksHandler) SearchLinks(w http.ResponseWriter, r *http.Request) {
	fragment := r.URL.Query().Get("original_url")

	links, err := h.links.Search(r.Context(), fragment)
	if err != nil {
		h.log.Error("failed to search links", zap.Error(err))
		h.writeError(w, "Failed to search links", http.StatusInternalServerError)
		return
	}

	out := make([]LinkResponse, 0, len(links))
	for _, link := range links {
		out = append(out, h.linkResponse(link))
	}

	h.writeJSON(w, out, http.StatusOK)
}

// ListExpired возвращает просроченные ссылки: аутентифицированным — их
// собственные, гостям — гостевые.
func (h *LinksHandler) ListExpired(w http.ResponseWriter, r *http.Request) {
	requester := auth.RequesterFromContext(r.Context())

	links, err := h.sweeper.ListExpired(r.Context(), requester)
	if err != nil {
		h.log.Error("failed to list expired links", zap.Error(err))
		h.writeError(w, "Failed to list expired links", http.StatusInternalServerError)
		return
	}

	out := make([]ExpiredLinkResponse, 0, len(links))
	for _, link := range links {
		out = append(out, ExpiredLinkResponse{
			LinkResponse: h.linkResponse(link),
			Clicks:       link.Clicks,
			LastUsedAt:   link.LastUsedAt,
		})
	}

	h.writeJSON(w, out, http.StatusOK)
}

// Cleanup удаляет ссылки без активности за указанное число дней
//
//	@Summary		Delete unused links
//	@Tags			Links
//	@Security		BearerAuth
//	@Param			days	query		int	true	"Inactivity threshold in days"
//	@Success		200	{object}	CleanupResponse
//	@Failure		403	{object}	map[string]string	"Admin required"
//	@Failure		422	{object}	map[string]string	"Invalid days"
//	@Router			/links/cleanup [delete]
func (h *LinksHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	user, err := h.storage.GetUserByID(r.Context(), userID)
	if err != nil || !user.IsAdmin {
		h.writeError(w, "Admin privileges required", http.StatusForbidden)
		return
	}

	days, err := strconv.Atoi(r.URL.Query().Get("days"))
	if err != nil {
		h.writeError(w, "Invalid days parameter", http.StatusUnprocessableEntity)
		return
	}

	deleted, err := h.sweeper.Cleanup(r.Context(), days)
	if err != nil {
		if errors.Is(err, sweeper.ErrInvalidDays) {
			h.writeError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		h.log.Error("cleanup failed", zap.Error(err))
		h.writeError(w, "Cleanup failed", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, CleanupResponse{Deleted: deleted}, http.StatusOK)
}

// AssignProject привязывает ссылку к проекту
func (h *LinksHandler) AssignProject(w http.ResponseWriter, r *http.Request) {
	linkID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, "Invalid link id", http.StatusUnprocessableEntity)
		return
	}
	projectID, err := strconv.ParseInt(r.PathValue("project_id"), 10, 64)
	if err != nil {
		h.writeError(w, "Invalid project id", http.StatusUnprocessableEntity)
		return
	}

	h.assignLinkProject(w, r, linkID, &projectID)
}

// DetachProject отвязывает ссылку от проекта
func (h *LinksHandler) DetachProject(w http.ResponseWriter, r *http.Request) {
	linkID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, "Invalid link id", http.StatusUnprocessableEntity)
		return
	}

	h.assignLinkProject(w, r, linkID, nil)
}

func (h *LinksHandler) assignLinkProject(w http.ResponseWriter, r *http.Request, linkID int64, projectID *int64) {
	requester := auth.RequesterFromContext(r.Context())
	if requester == nil {
		h.writeError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	link, err := h.storage.GetLinkByID(r.Context(), linkID)
	if err != nil || !h.links.CanMutate(requester, link) {
		h.writeError(w, "Link not found", http.StatusNotFound)
		return
	}

	if projectID != nil {
		project, err := h.storage.GetProject(r.Context(), *projectID)
		if err != nil || project.OwnerID != *requester {
			h.writeError(w, "Project not found", http.StatusNotFound)
			return
		}
	}

	if err := h.storage.AssignLinkProject(r.Context(), linkID, projectID); err != nil {
		h.log.Error("failed to assign link project", zap.Int64("link_id", linkID), zap.Error(err))
		h.writeError(w, "Failed to update link", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, map[string]string{"detail": "Link project updated"}, http.StatusOK)
}

// writeLinkError переводит ошибки ядра в HTTP статусы
func (h *LinksHandler) writeLinkError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrCodeNotFound):
		h.writeError(w, "Link not found", http.StatusNotFound)
	case errors.Is(err, repository.ErrCodeExists):
		h.writeError(w, "Alias already exists", http.StatusConflict)
	case errors.Is(err, service.ErrLinkExpired):
		h.writeError(w, "Link has expired", http.StatusGone)
	case errors.Is(err, service.ErrNotOwner):
		h.writeError(w, "Access denied", http.StatusForbidden)
	case errors.Is(err, service.ErrEmptyURL),
		errors.Is(err, shortcode.ErrInvalidAlias),
		errors.Is(err, shortcode.ErrReservedAlias):
		h.writeError(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		h.log.Error("link operation failed", zap.Error(err))
		h.writeError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// Helper methods

func (h *LinksHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (h *LinksHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
