package http

import (
	"LinkCut-Backend/internal/auth"
	"LinkCut-Backend/internal/domain"
	"LinkCut-Backend/internal/repository"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ProjectsHandler обработчик для работы с проектами
type ProjectsHandler struct {
	storage  repository.Storage
	validate *validator.Validate
	log      *zap.Logger
	baseURL  string
}

// NewProjectsHandler создает новый обработчик проектов
func NewProjectsHandler(storage repository.Storage, log *zap.Logger, baseURL string) *ProjectsHandler {
	return &ProjectsHandler{
		storage:  storage,
		validate: validator.New(),
		log:      log,
		baseURL:  baseURL,
	}
}

// ProjectRequest структура запроса создания/обновления проекта
type ProjectRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=100"`
	Description *string `json:"description,omitempty"`
}

// ProjectResponse структура ответа с проектом
type ProjectResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProjectDetailResponse проект вместе с его ссылками
type ProjectDetailResponse struct {
	ProjectResponse
	Links []ProjectLinkResponse `json:"links"`
}

// ProjectLinkResponse ссылка внутри проекта
type ProjectLinkResponse struct {
	ID          int64      `json:"id"`
	OriginalURL string     `json:"original_url"`
	ShortCode   string     `json:"short_code"`
	ShortURL    string     `json:"short_url"`
	Clicks      int64      `json:"clicks"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

func projectResponse(p *domain.Project) ProjectResponse {
	return ProjectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
	}
}

// CreateProject создает новый проект
//
//	@Summary		Create a project
//	@Tags			Projects
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ProjectRequest	true	"Project"
//	@Success		201		{object}	ProjectResponse
//	@Failure		422		{object}	map[string]string	"Invalid input"
//	@Router			/projects [post]
func (h *ProjectsHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req ProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, "Invalid request: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	project := &domain.Project{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     userID,
	}
	if err := h.storage.CreateProject(r.Context(), project); err != nil {
		h.log.Error("failed to create project", zap.Error(err))
		h.writeError(w, "Failed to create project", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, projectResponse(project), http.StatusCreated)
}

// ListProjects возвращает проекты текущего пользователя
func (h *ProjectsHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	projects, err := h.storage.ListUserProjects(r.Context(), userID)
	if err != nil {
		h.log.Error("failed to list projects", zap.Int64("user_id", userID), zap.Error(err))
		h.writeError(w, "Failed to list projects", http.StatusInternalServerError)
		return
	}

	out := make([]ProjectResponse, 0, len(projects))
	for _, p := range projects {
		out = append(out, projectResponse(p))
	}
	h.writeJSON(w, out, http.StatusOK)
}

// GetProject возвращает проект с его ссылками
func (h *ProjectsHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	project, ok := h.ownedProject(w, r)
	if !ok {
		return
	}

	links, err := h.storage.ListProjectLinks(r.Context(), project.ID)
	if err != nil {
		h.log.Error("failed to list project links", zap.Int64("project_id", project.ID), zap.Error(err))
		h.writeError(w, "Failed to load project links", http.StatusInternalServerError)
		return
	}

	resp := ProjectDetailResponse{
		ProjectResponse: projectResponse(project),
		Links:           make([]ProjectLinkResponse, 0, len(links)),
	}
	for _, link := range links {
		resp.Links = append(resp.Links, ProjectLinkResponse{
			ID:          link.ID,
			OriginalURL: link.OriginalURL,
			ShortCode:   link.ShortCode,
			ShortURL:    h.baseURL + "/" + link.ShortCode,
			Clicks:      link.Clicks,
			CreatedAt:   link.CreatedAt,
			ExpiresAt:   link.ExpiresAt,
		})
	}

	h.writeJSON(w, resp, http.StatusOK)
}

// UpdateProject обновляет имя и описание проекта
func (h *ProjectsHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	project, ok := h.ownedProject(w, r)
	if !ok {
		return
	}

	var req ProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, "Invalid request: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	project.Name = req.Name
	project.Description = req.Description
	if err := h.storage.UpdateProject(r.Context(), project); err != nil {
		h.log.Error("failed to update project", zap.Int64("project_id", project.ID), zap.Error(err))
		h.writeError(w, "Failed to update project", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, projectResponse(project), http.StatusOK)
}

// DeleteProject удаляет проект, отвязывая его ссылки
func (h *ProjectsHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	project, ok := h.ownedProject(w, r)
	if !ok {
		return
	}

	if err := h.storage.DeleteProject(r.Context(), project.ID); err != nil {
		h.log.Error("failed to delete project", zap.Int64("project_id", project.ID), zap.Error(err))
		h.writeError(w, "Failed to delete project", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ownedProject достает проект из пути и проверяет владение
func (h *ProjectsHandler) ownedProject(w http.ResponseWriter, r *http.Request) (*domain.Project, bool) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, "Authentication required", http.StatusUnauthorized)
		return nil, false
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeError(w, "Invalid project id", http.StatusUnprocessableEntity)
		return nil, false
	}

	project, err := h.storage.GetProject(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			h.writeError(w, "Project not found", http.StatusNotFound)
			return nil, false
		}
		h.log.Error("failed to get project", zap.Int64("project_id", id), zap.Error(err))
		h.writeError(w, "Internal server error", http.StatusInternalServerError)
		return nil, false
	}

	// Чужие проекты не раскрываем
	if project.OwnerID != userID {
		h.writeError(w, "Project not found", http.StatusNotFound)
		return nil, false
	}

	return project, true
}

func (h *ProjectsHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (h *ProjectsHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
