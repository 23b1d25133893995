package echoapi_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KhalilH786/GTManager-sub001/core/user"
)

func TestServer_pageGate(t *testing.T) {
	resetAccounts(t)

	manager := user.User{ID: "m-1", Name: "Max", Email: "max@goodtree.school", Role: user.RoleManager}
	teacher := user.User{ID: "t-1", Name: "Tia", Email: "tia@goodtree.school", Role: user.RoleTeacher}
	noRole := user.User{ID: "n-1", Name: "Nora", Email: "nora@goodtree.school"}
	malformed := &http.Cookie{Name: "schoolTaskUser", Value: "%7Bnot-json"}

	tests := []struct {
		name         string
		method       string
		path         string
		cookie       *http.Cookie
		wantCode     int
		wantLocation string
		wantCleared  bool
	}{
		{name: "home anonymous", path: "/", wantCode: http.StatusOK},
		{name: "login anonymous", path: "/login", wantCode: http.StatusOK},
		{name: "login as manager", path: "/login", cookie: sessionCookie(t, manager), wantCode: http.StatusFound, wantLocation: "/dashboard"},
		{name: "home as teacher", path: "/", cookie: sessionCookie(t, teacher), wantCode: http.StatusFound, wantLocation: "/tasks"},
		{name: "login without role", path: "/login", cookie: sessionCookie(t, noRole), wantCode: http.StatusFound, wantLocation: "/tasks"},
		{name: "login with malformed cookie", path: "/login", cookie: malformed, wantCode: http.StatusFound, wantLocation: "/login", wantCleared: true},
		{name: "tasks anonymous", path: "/tasks", wantCode: http.StatusFound, wantLocation: "/login"},
		{name: "nested admin page anonymous", path: "/admin/users", wantCode: http.StatusFound, wantLocation: "/login"},
		{name: "dashboard trailing slash anonymous", path: "/dashboard/", wantCode: http.StatusFound, wantLocation: "/login"},
		{name: "tasks as teacher", path: "/tasks", cookie: sessionCookie(t, teacher), wantCode: http.StatusOK},
		{name: "groups with malformed cookie", path: "/groups/42", cookie: malformed, wantCode: http.StatusOK},
		{name: "ungated page anonymous", path: "/about", wantCode: http.StatusOK},
		{name: "post to admin page anonymous", method: http.MethodPost, path: "/admin/x", wantCode: http.StatusFound, wantLocation: "/login"},
		{name: "post to login as manager", method: http.MethodPost, path: "/login", cookie: sessionCookie(t, manager), wantCode: http.StatusFound, wantLocation: "/dashboard"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req := httptest.NewRequest(method, tt.path, nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			rec := httptest.NewRecorder()
			app.ServeHTTP(rec, req)

			require.Equal(t, tt.wantCode, rec.Code)
			if tt.wantLocation != "" {
				assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))
			} else {
				assert.Equal(t, indexHTML, rec.Body.String())
			}

			cookie := responseCookie(rec)
			if tt.wantCleared {
				require.NotNil(t, cookie)
				assert.True(t, cookie.MaxAge < 0)
			} else {
				assert.Nil(t, cookie)
			}
		})
	}

	t.Run("api routes are not gated", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/api/roles")
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
