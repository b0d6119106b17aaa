package auth

import (
	"LinkCut-Backend/internal/domain"
	"LinkCut-Backend/internal/repository"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// AuthHandlers обработчики аутентификации
type AuthHandlers struct {
	storage         repository.Storage
	jwtService      *JWTService
	passwordService *PasswordService
	log             *zap.Logger
}

// NewAuthHandlers создает новые обработчики аутентификации
func NewAuthHandlers(storage repository.Storage, jwtService *JWTService, passwordService *PasswordService, log *zap.Logger) *AuthHandlers {
	return &AuthHandlers{
		storage:         storage,
		jwtService:      jwtService,
		passwordService: passwordService,
		log:             log,
	}
}

// RegisterRequest структура запроса регистрации
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest структура запроса входа
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse структура ответа аутентификации
type AuthResponse struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	User        UserInfo `json:"user"`
}

// UserInfo информация о пользователе
type UserInfo struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Register обработчик регистрации
//
//	@Summary		Register a new user
//	@Description	Create a new user account
//	@Tags			Authentication
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RegisterRequest	true	"Registration request"
//	@Success		201		{object}	AuthResponse		"User registered successfully"
//	@Failure		400		{object}	map[string]string	"Invalid request data"
//	@Failure		409		{object}	map[string]string	"User already exists"
//	@Router			/auth/register [post]
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid registration request", zap.Error(err))
		h.writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Username == "" || !strings.Contains(req.Email, "@") {
		h.writeError(w, "Username and a valid email are required", http.StatusBadRequest)
		return
	}

	if err := IsValidPassword(req.Password); err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	hashedPassword, err := h.passwordService.HashPassword(req.Password)
	if err != nil {
		h.log.Error("failed to hash password", zap.Error(err))
		h.writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	user := &domain.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hashedPassword,
		IsActive:     true,
	}

	if err := h.storage.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			h.writeError(w, "User with this username or email already exists", http.StatusConflict)
			return
		}
		h.log.Error("failed to create user", zap.String("username", req.Username), zap.Error(err))
		h.writeError(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	accessToken, err := h.jwtService.GenerateAccessToken(user.ID, user.Username)
	if err != nil {
		h.log.Error("failed to generate token", zap.Error(err))
		h.writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.log.Info("registered user", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	h.writeJSON(w, AuthResponse{
		AccessToken: accessToken,
		TokenType:   "bearer",
		User:        UserInfo{ID: user.ID, Username: user.Username, Email: user.Email},
	}, http.StatusCreated)
}

// Login обработчик входа
//
//	@Summary		Log in
//	@Description	Exchange username/password for an access token
//	@Tags			Authentication
//	@Accept			json
//	@Produce		json
//	@Param			request	body		LoginRequest		true	"Login request"
//	@Success		200		{object}	AuthResponse		"Logged in"
//	@Failure		401		{object}	map[string]string	"Invalid credentials"
//	@Router			/auth/login [post]
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid login request", zap.Error(err))
		h.writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	user, err := h.storage.GetUserByUsername(r.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		// Не раскрываем, существует ли пользователь
		h.writeError(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	if err := h.passwordService.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		h.writeError(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	accessToken, err := h.jwtService.GenerateAccessToken(user.ID, user.Username)
	if err != nil {
		h.log.Error("failed to generate token", zap.Error(err))
		h.writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, AuthResponse{
		AccessToken: accessToken,
		TokenType:   "bearer",
		User:        UserInfo{ID: user.ID, Username: user.Username, Email: user.Email},
	}, http.StatusOK)
}

func (h *AuthHandlers) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (h *AuthHandlers) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
