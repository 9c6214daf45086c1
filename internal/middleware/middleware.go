// Package middleware содержит HTTP-обвязку: идентификатор запроса, журнал запросов,
// аутентификацию по Bearer-токену и защиту маршрутов.
package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"tenderportal/internal/apperr"
	"tenderportal/internal/logger"
	"tenderportal/internal/policy"
	"tenderportal/models"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const RequestIDHeader = "X-Request-ID"

type ctxKey int

const (
	actorKey ctxKey = iota
	userKey
	requestIDKey
)

// RequestID берет идентификатор из заголовка или создает новый и кладет
// запись журнала с request_id в контекст.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := context.WithValue(r.Context(), requestIDKey, id)
		ctx = logger.WithEntry(ctx, logger.Default().WithField("request_id", id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// RequestLogger пишет строку на каждый запрос; уровень зависит от статуса.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		entry := logger.FromContext(r.Context()).WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"bytes":    ww.BytesWritten(),
			"duration": time.Since(start).String(),
		})
		switch status := ww.Status(); {
		case status >= 500:
			entry.Error("request failed")
		case status >= 400:
			entry.Warn("request rejected")
		default:
			entry.Info("request handled")
		}
	})
}

// Authenticator проверяет токен и возвращает актуальные данные пользователя.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, policy.Actor, error)
}

// Authenticate разбирает заголовок Authorization. Запрос без заголовка
// проходит анонимно, решение принимает RequireRoute. Недействительный токен
// сразу дает 401.
func Authenticate(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				apperr.WriteJSON(w, apperr.Unauthenticated("could not validate credentials"))
				return
			}

			user, actor, err := auth.Authenticate(r.Context(), strings.TrimSpace(token))
			if err != nil {
				apperr.WriteJSON(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), actorKey, actor)
			ctx = context.WithValue(ctx, userKey, user)
			ctx = logger.WithEntry(ctx, logger.FromContext(ctx).WithField("user_id", user.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRoute применяет к маршруту те же правила, что и клиент.
func RequireRoute(g policy.Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var actor *policy.Actor
			if a, ok := ActorFrom(r.Context()); ok {
				actor = &a
			}
			switch policy.CheckRoute(actor, g) {
			case policy.RouteLogin:
				apperr.WriteJSON(w, apperr.Unauthenticated("authentication required"))
			case policy.RouteDenied:
				apperr.WriteJSON(w, apperr.Forbidden())
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func ActorFrom(ctx context.Context) (policy.Actor, bool) {
	a, ok := ctx.Value(actorKey).(policy.Actor)
	return a, ok
}

func UserFrom(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}

// WithIdentity кладет пользователя в контекст; нужен тестам обработчиков.
func WithIdentity(ctx context.Context, u *models.User) context.Context {
	ctx = context.WithValue(ctx, actorKey, policy.ActorFromUser(u))
	return context.WithValue(ctx, userKey, u)
}
