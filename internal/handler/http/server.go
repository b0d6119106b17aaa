package http

import (
	"LinkCut-Backend/internal/auth"
	"LinkCut-Backend/internal/repository"
	"LinkCut-Backend/internal/service"
	"LinkCut-Backend/internal/sweeper"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// Server HTTP сервер с обработчиками
type Server struct {
	authHandlers    *auth.AuthHandlers
	linksHandler    *LinksHandler
	projectsHandler *ProjectsHandler
	redirectHandler *RedirectHandler
	healthHandler   *HealthHandler
	authMiddleware  *auth.Middleware
	log             *zap.Logger
}

// NewServer создает новый HTTP сервер
func NewServer(
	storage repository.Storage,
	links *service.LinkService,
	sw *sweeper.Sweeper,
	jwtService *auth.JWTService,
	passwordService *auth.PasswordService,
	storagePing Pinger,
	log *zap.Logger,
	baseURL string,
) *Server {
	return &Server{
		authHandlers:    auth.NewAuthHandlers(storage, jwtService, passwordService, log),
		linksHandler:    NewLinksHandler(storage, links, sw, log, baseURL),
		projectsHandler: NewProjectsHandler(storage, log, baseURL),
		redirectHandler: NewRedirectHandler(links, log),
		healthHandler:   NewHealthHandler(storagePing, log),
		authMiddleware:  auth.NewMiddleware(jwtService, log),
		log:             log,
	}
}

// SetupRoutes настраивает маршруты
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	// Health checks и метрики (без аутентификации)
	mux.HandleFunc("GET /health", s.healthHandler.Health)
	mux.HandleFunc("GET /ready", s.healthHandler.Ready)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Swagger документация
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	// Auth endpoints (без аутентификации)
	mux.HandleFunc("POST /auth/register", s.withCORS(s.authHandlers.Register))
	mux.HandleFunc("POST /auth/login", s.withCORS(s.authHandlers.Login))

	// Создание ссылки доступно и гостям; владелец фиксируется, если токен есть
	mux.HandleFunc("POST /links/shorten", s.withCORS(s.authMiddleware.OptionalAuth(s.linksHandler.CreateLink)))
	mux.HandleFunc("GET /links/search", s.withCORS(s.linksHandler.SearchLinks))
	mux.HandleFunc("GET /links/expired", s.withCORS(s.authMiddleware.OptionalAuth(s.linksHandler.ListExpired)))
	mux.HandleFunc("DELETE /links/cleanup", s.withCORS(s.authMiddleware.RequireAuth(s.linksHandler.Cleanup)))
	mux.HandleFunc("GET /links/{code}/stats", s.withCORS(s.linksHandler.GetStats))
	mux.HandleFunc("PUT /links/{code}", s.withCORS(s.authMiddleware.RequireAuth(s.linksHandler.UpdateLink)))
	mux.HandleFunc("DELETE /links/{code}", s.withCORS(s.authMiddleware.RequireAuth(s.linksHandler.DeleteLink)))
	mux.HandleFunc("POST /links/{id}/assign-project/{project_id}", s.withCORS(s.authMiddleware.RequireAuth(s.linksHandler.AssignProject)))
	mux.HandleFunc("POST /links/{id}/detach-project", s.withCORS(s.authMiddleware.RequireAuth(s.linksHandler.DetachProject)))

	// Projects endpoints (с аутентификацией)
	mux.HandleFunc("POST /projects", s.withCORS(s.authMiddleware.RequireAuth(s.projectsHandler.CreateProject)))
	mux.HandleFunc("GET /projects", s.withCORS(s.authMiddleware.RequireAuth(s.projectsHandler.ListProjects)))
	mux.HandleFunc("GET /projects/{id}", s.withCORS(s.authMiddleware.RequireAuth(s.projectsHandler.GetProject)))
	mux.HandleFunc("PUT /projects/{id}", s.withCORS(s.authMiddleware.RequireAuth(s.projectsHandler.UpdateProject)))
	mux.HandleFunc("DELETE /projects/{id}", s.withCORS(s.authMiddleware.RequireAuth(s.projectsHandler.DeleteProject)))

	// Redirect endpoint (без аутентификации) - должен быть последним
	mux.HandleFunc("GET /{code}", s.redirectHandler.Redirect)

	return mux
}

// withCORS добавляет CORS headers к обработчику
func (s *Server) withCORS(handler http.HandlerFunc) http.HandlerFunc {
	return s.authMiddleware.CORS(handler)
}
