package echoapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/KhalilH786/GTManager-sub001/apps/api/echo"
	"github.com/KhalilH786/GTManager-sub001/core/session"
	"github.com/KhalilH786/GTManager-sub001/core/user"
	"github.com/KhalilH786/GTManager-sub001/services/email"
	"github.com/KhalilH786/GTManager-sub001/tests"
)

func decodeLogin(t *testing.T, rec *httptest.ResponseRecorder) LoginResponse {
	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func loginBody(t *testing.T, email, pwd string) []byte {
	return marchallObj(t, LoginRequest{Email: email, Password: pwd})
}

func Test_authApi_login(t *testing.T) {
	accs := resetAccounts(t)
	path := "/api/auth/login"

	tests := []struct {
		name         string
		email        string
		wantID       string
		wantName     string
		wantRole     user.Role
		wantRedirect string
	}{
		{"teacher profile", accs.teacher.Email, accs.teacher.UID, "Tia Teacher", user.RoleTeacher, user.PathTasks},
		{"manager profile", accs.manager.Email, accs.manager.UID, "Max Manager", user.RoleManager, user.PathDashboard},
		{"profile without role", accs.nullRole.Email, accs.nullRole.UID, "Nora", user.RoleNone, user.PathTasks},
		{"fallback admin without profile", strings.ToUpper(accs.fallback.Email), accs.fallback.UID, "Office", user.RoleAdmin, user.PathTasks},
		{"override admin", accs.override.Email, testutil.OverrideUID, "Khalil", user.RoleAdmin, user.PathTasks},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, path, loginBody(t, tt.email, testPwd))
			app.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			resp := decodeLogin(t, rec)
			assert.Equal(t, tt.wantID, resp.User.ID)
			assert.Equal(t, tt.wantName, resp.User.Name)
			assert.Equal(t, tt.wantRole, resp.User.Role)
			assert.Equal(t, tt.wantRedirect, resp.Redirect)
			assert.NotEmpty(t, resp.Token)

			cookie := responseCookie(rec)
			require.NotNil(t, cookie)
			usr, err := sessions.Cookies().Decode(cookie.Value)
			require.NoError(t, err)
			assert.Equal(t, resp.User, usr)
		})
	}

	t.Run("override admin skips the profile lookup", func(t *testing.T) {
		before := db.Reads()
		req, rec := newRequest(http.MethodPost, path, loginBody(t, accs.override.Email, testPwd))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, before, db.Reads())
	})
}

func Test_authApi_loginFailures(t *testing.T) {
	accs := resetAccounts(t)
	path := "/api/auth/login"

	tests := []httpTest{
		{
			name:     "missing fields",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email":"this field is required","password":"this field is required"}`),
		},
		{
			name:     "invalid email",
			body:     loginBody(t, "not-an-email", testPwd),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email":"email must be a valid email address"}`),
		},
		{
			name:     "wrong password",
			body:     loginBody(t, accs.teacher.Email, "nope"),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: session.ErrInvalidCredentials.Error()}),
		},
		{
			name:     "unknown account",
			body:     loginBody(t, "ghost@goodtree.school", testPwd),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: session.ErrInvalidCredentials.Error()}),
		},
		{
			name:     "disabled account",
			body:     loginBody(t, accs.disabled.Email, testPwd),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: session.ErrAccountDisabled.Error()}),
		},
		{
			name:     "no profile and no fallback",
			body:     loginBody(t, accs.noProfile.Email, testPwd),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: session.ErrNoRole.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("failed resolution clears the session cookie", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, path, loginBody(t, accs.noProfile.Email, testPwd))
		req.AddCookie(sessionCookie(t, user.User{ID: accs.noProfile.UID, Role: user.RoleAdmin}))
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusForbidden, rec.Code)
		cookie := responseCookie(rec)
		require.NotNil(t, cookie)
		assert.Equal(t, "", cookie.Value)
		assert.True(t, cookie.MaxAge < 0)
	})
}

func Test_authApi_loginLookupUnavailable(t *testing.T) {
	accs := resetAccounts(t)
	path := "/api/auth/login"
	db.SetError(errors.New("datastore unavailable"))
	defer db.SetError(nil)

	t.Run("profile account", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusServiceUnavailable,
			wantData: marchallObj(t, httpErr{Error: session.ErrLookupUnavailable.Error()}),
		}
		req, rec := newRequest(http.MethodPost, path, loginBody(t, accs.teacher.Email, testPwd))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("fallback admin", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, path, loginBody(t, accs.fallback.Email, testPwd))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, user.RoleAdmin, decodeLogin(t, rec).User.Role)
	})
}

func Test_authApi_federated(t *testing.T) {
	accs := resetAccounts(t)
	path := "/api/auth/federated"
	idp.AddIDToken("google-id-token", accs.manager.Email)

	t.Run("valid token", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, path, []byte(`{"idToken":"google-id-token"}`))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decodeLogin(t, rec)
		assert.Equal(t, accs.manager.UID, resp.User.ID)
		assert.Equal(t, user.RoleManager, resp.User.Role)
		assert.Equal(t, user.PathDashboard, resp.Redirect)
		assert.NotNil(t, responseCookie(rec))
	})

	tests := []httpTest{
		{
			name:     "missing token",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"idToken":"this field is required"}`),
		},
		{
			name:     "unknown token",
			body:     []byte(`{"idToken":"forged"}`),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: session.ErrInvalidIDToken.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_authApi_logout(t *testing.T) {
	accs := resetAccounts(t)
	path := "/api/auth/logout"

	t.Run("signed in", func(t *testing.T) {
		before := idp.Revocations(accs.teacher.UID)
		req, rec := newRequest(http.MethodPost, path)
		req.AddCookie(sessionCookie(t, user.User{ID: accs.teacher.UID, Email: accs.teacher.Email, Role: user.RoleTeacher}))
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		cookie := responseCookie(rec)
		require.NotNil(t, cookie)
		assert.True(t, cookie.MaxAge < 0)
		assert.Equal(t, before+1, idp.Revocations(accs.teacher.UID))
	})

	t.Run("anonymous", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, path)
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		cookie := responseCookie(rec)
		require.NotNil(t, cookie)
		assert.True(t, cookie.MaxAge < 0)
	})

	t.Run("unknown account", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, path)
		req.AddCookie(sessionCookie(t, user.User{ID: "deleted-uid", Role: user.RoleTeacher}))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func Test_authApi_refreshToken(t *testing.T) {
	accs := resetAccounts(t)
	path := "/api/auth/token-refresh"
	teacher := user.User{ID: accs.teacher.UID, Name: "Tia Teacher", Email: accs.teacher.Email, Role: user.RoleTeacher}

	t.Run("role is resolved again", func(t *testing.T) {
		token := getToken(t, teacher)
		_, err := user.NewService(store).SetRole(context.Background(), accs.teacher.UID, user.RoleManager)
		require.NoError(t, err)

		req, rec := newAuthRequest(http.MethodPost, path, token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decodeLogin(t, rec)
		assert.Equal(t, user.RoleManager, resp.User.Role)
		assert.Equal(t, user.PathDashboard, resp.Redirect)
		assert.NotEmpty(t, resp.Token)
		assert.NotNil(t, responseCookie(rec))
	})

	tests := []httpTest{
		{
			name:     "missing token",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "refresh expired",
			token:    getToken(t, teacher, time.Now().Add(-conf.JWTRefreshExpirationDelta-time.Hour).Unix()),
			wantCode: http.StatusForbidden,
			wantData: []byte(`{"error":"refresh has expired"}`),
		},
		{
			name:     "profile removed",
			token:    getToken(t, user.User{ID: accs.noProfile.UID, Email: accs.noProfile.Email, Role: user.RoleTeacher}),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: session.ErrNoRole.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_authApi_resetPassword(t *testing.T) {
	accs := resetAccounts(t)
	path := "/api/auth/password-reset"
	success := []byte(`{"success":"If the email address supplied is associated with an account on this system, ` +
		`an email will arrive in your inbox shortly with instructions to reset your password."}`)

	tests := []httpTest{
		{
			name:     "invalid email",
			body:     []byte(`{"email":"nope"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email":"email must be a valid email address"}`),
		},
		{
			name:     "unknown email",
			body:     []byte(`{"email":"ghost@goodtree.school"}`),
			wantCode: http.StatusOK,
			wantData: success,
		},
		{
			name:     "known email",
			body:     []byte(`{"email":" ` + strings.ToUpper(accs.teacher.Email) + ` "}`),
			wantCode: http.StatusOK,
			wantData: success,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	outbox := emailsvc.Outbox()
	require.Len(t, outbox, 1)
	msg := outbox[0]
	assert.Equal(t, accs.teacher.Email, msg.To[0].Address)
	assert.Contains(t, msg.TextContent, "https://auth.local/reset?oobCode=")
	assert.Contains(t, msg.HTMLContent, "https://auth.local/reset?oobCode=")
}

func Test_authApi_rateLimit(t *testing.T) {
	accs := resetAccounts(t)

	limited := *conf
	limited.RateLimit.RPS = 0.001
	limited.RateLimit.Burst = 2
	srv, deps := newServer(&limited)
	defer deps.Sessions.Close()

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req, rec := newRequest(http.MethodPost, "/api/auth/login", loginBody(t, accs.teacher.Email, "wrong"))
		srv.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}, codes)

	// other clients keep their own budget
	req, rec := newRequest(http.MethodPost, "/api/auth/login", loginBody(t, accs.teacher.Email, "wrong"))
	req.RemoteAddr = "198.51.100.7:4242"
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
