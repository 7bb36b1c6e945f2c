package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi/v5"
)

// newAccountRequest builds a request routed with the given accountID URL parameter.
func newAccountRequest(method, target, accountID string, body string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("accountID", accountID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}
