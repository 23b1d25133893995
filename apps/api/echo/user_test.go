package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KhalilH786/GTManager-sub001/core/user"
)

func Test_userApi_me(t *testing.T) {
	accs := resetAccounts(t)
	path := "/api/me"

	teacher := user.User{ID: accs.teacher.UID, Name: "Tia Teacher", Email: accs.teacher.Email, Role: user.RoleTeacher}
	override := user.User{ID: accs.override.UID, Name: "Khalil", Email: accs.override.Email, Role: user.RoleAdmin}

	tests := []httpTest{
		{
			name:     "anonymous",
			method:   http.MethodGet,
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "invalid token",
			method:   http.MethodGet,
			token:    "not.a.jwt",
			wantCode: http.StatusUnauthorized,
			wantData: []byte(`{"error":"invalid or expired jwt"}`),
		},
		{
			name:     "profile",
			method:   http.MethodGet,
			token:    getToken(t, teacher),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, teacher),
		},
		{
			name:     "no profile document",
			method:   http.MethodGet,
			token:    getToken(t, override),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, override),
		},
		{
			name:     "update without profile document",
			method:   http.MethodPut,
			body:     []byte(`{"name":"K. Hendricks"}`),
			token:    getToken(t, override),
			wantCode: http.StatusNotFound,
			wantData: []byte(`{"error":"user not found"}`),
		},
		{
			name:     "update with blank name",
			method:   http.MethodPut,
			body:     []byte(`{"name":"   ","photoURL":"nope"}`),
			token:    getToken(t, teacher),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"photoURL":"photoURL must be a valid URL"}`),
		},
		{
			name:     "update",
			method:   http.MethodPut,
			body:     []byte(`{"name":" Tia T. ","photoURL":"https://cdn.goodtree.school/tia.png"}`),
			token:    getToken(t, teacher),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, user.User{
				ID:       teacher.ID,
				Name:     "Tia T.",
				Email:    teacher.Email,
				Role:     user.RoleTeacher,
				PhotoURL: "https://cdn.goodtree.school/tia.png",
			}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("update is stored and keeps the role", func(t *testing.T) {
		usr, err := store.GetProfile(context.Background(), teacher.ID)
		require.NoError(t, err)
		assert.Equal(t, "Tia T.", usr.Name)
		assert.Equal(t, user.RoleTeacher, usr.Role)

		_, err = store.GetProfile(context.Background(), override.ID)
		assert.Equal(t, user.ErrNotFound, err)
	})
}

func Test_userApi_roles(t *testing.T) {
	accs := resetAccounts(t)
	path := "/api/roles"

	admin := user.User{ID: accs.fallback.UID, Email: accs.fallback.Email, Role: user.RoleAdmin}
	manager := user.User{ID: accs.manager.UID, Email: accs.manager.Email, Role: user.RoleManager}

	tests := []httpTest{
		{
			name:     "anonymous",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "not admin",
			token:    getToken(t, manager),
			wantCode: http.StatusForbidden,
			wantData: []byte(`{"error":"permission denied"}`),
		},
		{
			name:     "admin",
			token:    getToken(t, admin),
			wantCode: http.StatusOK,
			wantData: []byte(`[{"name":"Admin","value":"admin"},{"name":"Manager","value":"manager"},` +
				`{"name":"Teacher","value":"teacher"},{"name":"Principal","value":"principal"}]`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
