package session_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KhalilH786/GTManager-sub001/core/session"
	"github.com/KhalilH786/GTManager-sub001/core/user"
	"github.com/KhalilH786/GTManager-sub001/services/identity/memidentity"
	"github.com/KhalilH786/GTManager-sub001/storage/database/inmem"
	"github.com/KhalilH786/GTManager-sub001/tests"
)

type managerFixture struct {
	auth     *session.Authenticator
	manager  *session.Manager
	provider *memidentity.Provider
	db       *inmemdb.DB
	store    user.ProfileStore
}

func newManagerFixture(t *testing.T) managerFixture {
	conf := testutil.NewConfig()
	db := inmemdb.Open()
	store := inmemdb.NewProfileStore(db)
	provider := memidentity.New()
	auth := session.NewAuthenticator(provider)
	resolver := session.NewResolver(store, conf.Auth, conf.Session.LookupTimeout, testutil.Logger{T: t})
	manager := session.NewManager(auth, resolver, session.NewCookieCodec(conf.Session), testutil.Logger{T: t})
	t.Cleanup(manager.Close)
	return managerFixture{auth: auth, manager: manager, provider: provider, db: db, store: store}
}

func requestContext(rec *httptest.ResponseRecorder) (context.Context, *session.Session) {
	sess := session.NewSession(rec)
	return session.NewContext(context.Background(), sess), sess
}

func TestManager_signIn(t *testing.T) {
	f := newManagerFixture(t)
	teacher := f.provider.AddAccount(session.Identity{Email: "jane@goodtree.school", DisplayName: "Jane"}, "Secr3t!Pass")
	testutil.CreateProfile(t, f.store, teacher.UID, "Jane Doe", teacher.Email, user.RoleTeacher)
	f.provider.AddAccount(session.Identity{UID: "X", Email: "teacher@goodtree.school"}, "Secr3t!Pass")

	t.Run("resolved user is stored and written once", func(t *testing.T) {
		rec := httptest.NewRecorder()
		ctx, sess := requestContext(rec)

		_, err := f.auth.SignInWithPassword(ctx, "jane@goodtree.school", "Secr3t!Pass")
		require.NoError(t, err)

		usr, ok := sess.User()
		require.True(t, ok)
		want := user.User{ID: teacher.UID, Name: "Jane Doe", Email: "jane@goodtree.school", Role: user.RoleTeacher}
		assert.Equal(t, want, usr)

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		got, err := f.manager.Cookies().Decode(cookies[0].Value)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("rejected credentials leave the session untouched", func(t *testing.T) {
		rec := httptest.NewRecorder()
		ctx, sess := requestContext(rec)

		_, err := f.auth.SignInWithPassword(ctx, "jane@goodtree.school", "wrong")
		assert.Equal(t, session.ErrInvalidCredentials, err)
		assert.False(t, sess.Authenticated())
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("no role clears the session", func(t *testing.T) {
		rec := httptest.NewRecorder()
		ctx, sess := requestContext(rec)

		_, err := f.auth.SignInWithPassword(ctx, "teacher@goodtree.school", "Secr3t!Pass")
		assert.Equal(t, session.ErrNoRole, pkgerrors.Cause(err))
		assert.False(t, sess.Authenticated())

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, -1, cookies[0].MaxAge)
	})

	t.Run("store failure clears the session", func(t *testing.T) {
		f.db.SetError(errors.New("boom"))
		defer f.db.SetError(nil)

		rec := httptest.NewRecorder()
		ctx, sess := requestContext(rec)

		_, err := f.auth.SignInWithPassword(ctx, "jane@goodtree.school", "Secr3t!Pass")
		assert.Equal(t, session.ErrLookupUnavailable, pkgerrors.Cause(err))
		assert.False(t, sess.Authenticated())
	})

	t.Run("federated sign-in", func(t *testing.T) {
		f.provider.AddIDToken("google-token", "jane@goodtree.school")
		rec := httptest.NewRecorder()
		ctx, sess := requestContext(rec)

		_, err := f.auth.SignInWithIDToken(ctx, "google-token")
		require.NoError(t, err)
		usr, ok := sess.User()
		require.True(t, ok)
		assert.Equal(t, user.RoleTeacher, usr.Role)

		_, err = f.auth.SignInWithIDToken(ctx, "forged")
		assert.Equal(t, session.ErrInvalidIDToken, err)
	})
}

func TestManager_signOut(t *testing.T) {
	f := newManagerFixture(t)
	admin := f.provider.AddAccount(session.Identity{UID: testutil.OverrideUID, Email: testutil.OverrideEmail}, "Secr3t!Pass")

	rec := httptest.NewRecorder()
	ctx, sess := requestContext(rec)
	_, err := f.auth.SignInWithPassword(ctx, admin.Email, "Secr3t!Pass")
	require.NoError(t, err)
	require.True(t, sess.Authenticated())
	assert.Equal(t, 0, f.db.Reads())

	rec = httptest.NewRecorder()
	ctx = session.NewContext(context.Background(), f.manager.Load(rec, requestWithCookies(t, sess, f)))
	out, _ := session.FromContext(ctx)
	require.True(t, out.Authenticated())

	require.NoError(t, f.auth.SignOut(ctx, admin))
	assert.False(t, out.Authenticated())
	assert.Equal(t, 1, f.provider.Revocations(admin.UID))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

// requestWithCookies returns a request carrying the cookie of the authenticated sess.
func requestWithCookies(t *testing.T, sess *session.Session, f managerFixture) *http.Request {
	usr, ok := sess.User()
	require.True(t, ok)
	cookie, err := f.manager.Cookies().Encode(usr)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(cookie)
	return req
}

func TestManager_Load(t *testing.T) {
	f := newManagerFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.AddCookie(&http.Cookie{Name: f.manager.Cookies().Name(), Value: "garbage"})
	sess := f.manager.Load(httptest.NewRecorder(), req)
	assert.False(t, sess.Authenticated())
}

func TestManager_Close(t *testing.T) {
	f := newManagerFixture(t)
	f.provider.AddAccount(session.Identity{UID: testutil.OverrideUID, Email: testutil.OverrideEmail}, "Secr3t!Pass")
	f.manager.Close()

	rec := httptest.NewRecorder()
	ctx, sess := requestContext(rec)
	_, err := f.auth.SignInWithPassword(ctx, testutil.OverrideEmail, "Secr3t!Pass")
	require.NoError(t, err)
	assert.False(t, sess.Authenticated())
}
