package auth

import (
	"context"
	"net/http"

	"go.uber.org/zap"
)

// ContextKey тип для ключей контекста
type ContextKey string

const (
	// UserIDKey ключ для получения ID пользователя из контекста
	UserIDKey ContextKey = "user_id"
	// UsernameKey ключ для получения имени пользователя из контекста
	UsernameKey ContextKey = "username"
)

// Middleware JWT middleware для HTTP обработчиков
type Middleware struct {
	jwtService *JWTService
	log        *zap.Logger
}

// NewMiddleware создает новый JWT middleware
func NewMiddleware(jwtService *JWTService, log *zap.Logger) *Middleware {
	return &Middleware{
		jwtService: jwtService,
		log:        log,
	}
}

// RequireAuth middleware для проверки JWT токена
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.log.Debug("missing authorization header")
			http.Error(w, "Authorization required", http.StatusUnauthorized)
			return
		}

		tokenString := ExtractTokenFromBearer(authHeader)
		if tokenString == "" {
			m.log.Debug("invalid authorization header format")
			http.Error(w, "Invalid authorization header", http.StatusUnauthorized)
			return
		}

		claims, err := m.jwtService.ValidateToken(tokenString)
		if err != nil {
			m.log.Debug("invalid token", zap.Error(err))
			if err == ErrExpiredToken {
				http.Error(w, "Token expired", http.StatusUnauthorized)
			} else {
				http.Error(w, "Invalid token", http.StatusUnauthorized)
			}
			return
		}

		// Добавляем информацию о пользователе в контекст
		ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, UsernameKey, claims.Username)

		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// OptionalAuth не требует токена: валидный токен кладет владельца в
// контекст, отсутствующий или неверный просто оставляет запрос гостевым.
// Ядру сервиса в итоге достается "owner id или ничего".
func (m *Middleware) OptionalAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		tokenString := ExtractTokenFromBearer(authHeader)
		if tokenString == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.jwtService.ValidateToken(tokenString)
		if err != nil {
			m.log.Debug("optional auth: invalid token", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, UsernameKey, claims.Username)

		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// GetUserIDFromContext извлекает ID пользователя из контекста
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	return userID, ok
}

// RequesterFromContext возвращает владельца запроса как *int64
// (nil для гостевых запросов) — в том виде, в каком его ждет ядро.
func RequesterFromContext(ctx context.Context) *int64 {
	if userID, ok := GetUserIDFromContext(ctx); ok {
		return &userID
	}
	return nil
}

// CORS middleware для обработки CORS запросов
func (m *Middleware) CORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization")

		// Обработка preflight OPTIONS запросов
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	}
}
