// Package testutils собирает запросы для прямого вызова хендлеров в тестах,
// минуя роутер и middleware аутентификации.
package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	"tenderportal/internal/middleware"
	"tenderportal/models"

	"github.com/go-chi/chi/v5"
)

// Request создает запрос с JSON-телом (если body не nil) от имени user.
// user == nil означает анонимный запрос.
func Request(method, target string, body any, user *models.User) *http.Request {
	var r io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			panic(err)
		}
		r = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		req = req.WithContext(middleware.WithIdentity(req.Context(), user))
	}
	return req
}

// WithChiURLParams подставляет параметры пути в контекст chi запроса для тестов.
func WithChiURLParams(req *http.Request, params map[string]string) *http.Request {
	chiCtx := chi.NewRouteContext()
	for k, v := range params {
		chiCtx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, chiCtx))
}
