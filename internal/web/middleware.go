package web

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

type ctxKey int

const actorKey ctxKey = iota

// ActorFromContext - id пользователя из токена, nil если авторизация выключена
func ActorFromContext(ctx context.Context) *int64 {
	id, ok := ctx.Value(actorKey).(int64)
	if !ok {
		return nil
	}
	return &id
}

func withActor(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, actorKey, id)
}

// requestLogger пишет каждый запрос в zap
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("http request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// authMiddleware проверяет Bearer-токен (HMAC) и кладёт user_id в контекст
func authMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			if header == "" || raw == header {
				writeError(w, http.StatusUnauthorized, "missing bearer token", nil)
				return
			}

			tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				writeError(w, http.StatusUnauthorized, "invalid token", err)
				return
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				writeError(w, http.StatusUnauthorized, "invalid token claims", nil)
				return
			}
			userID, err := int64Claim(claims, "user_id")
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token claims", err)
				return
			}

			next.ServeHTTP(w, r.WithContext(withActor(r.Context(), userID)))
		})
	}
}

func int64Claim(claims jwt.MapClaims, key string) (int64, error) {
	switch v := claims[key].(type) {
	case float64:
		return int64(v), nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	case nil:
		return 0, fmt.Errorf("claim %s is missing", key)
	default:
		return 0, fmt.Errorf("claim %s has type %T", key, v)
	}
}
