package session

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/KhalilH786/GTManager-sub001/core"
	"github.com/KhalilH786/GTManager-sub001/core/user"
)

// CookieCodec reads and writes the session cookie. The value is the URL escaped JSON of the
// resolved user, readable by the browser UI.
type CookieCodec struct {
	name   string
	maxAge time.Duration
	secure bool
}

func NewCookieCodec(conf core.SessionConfig) *CookieCodec {
	c := &CookieCodec{
		name:   conf.CookieName,
		maxAge: conf.MaxAge,
		secure: conf.Secure,
	}
	if c.name == "" {
		c.name = core.DefaultCookieName
	}
	if c.maxAge <= 0 {
		c.maxAge = core.DefaultSessionMaxAge
	}
	return c
}

func (c *CookieCodec) Name() string { return c.name }

func (c *CookieCodec) newCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     c.name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   c.secure,
		HttpOnly: false,
		SameSite: http.SameSiteStrictMode,
	}
}

// Encode returns the cookie holding usr.
func (c *CookieCodec) Encode(usr user.User) (*http.Cookie, error) {
	data, err := json.Marshal(usr)
	if err != nil {
		return nil, errors.Wrap(err, "encoding session user")
	}
	cookie := c.newCookie(url.PathEscape(string(data)), int(c.maxAge/time.Second))
	cookie.Expires = time.Now().Add(c.maxAge).UTC()
	return cookie, nil
}

// Decode parses a session cookie value. Errors have ErrMalformedSession as their cause.
func (c *CookieCodec) Decode(value string) (user.User, error) {
	raw, err := url.PathUnescape(value)
	if err != nil {
		return user.User{}, errors.Wrap(ErrMalformedSession, err.Error())
	}
	var usr user.User
	if err = json.Unmarshal([]byte(raw), &usr); err != nil {
		return user.User{}, errors.Wrap(ErrMalformedSession, err.Error())
	}
	// a user without id cannot be the resolved user of any identity
	if usr.ID == "" {
		return user.User{}, errors.Wrap(ErrMalformedSession, "missing id")
	}
	return usr, nil
}

// Read returns the cookie of r, or nil when it is absent or empty.
func (c *CookieCodec) Read(r *http.Request) *http.Cookie {
	cookie, err := r.Cookie(c.name)
	if err != nil || cookie.Value == "" {
		return nil
	}
	return cookie
}

// Write sets the cookie holding usr on w.
func (c *CookieCodec) Write(w http.ResponseWriter, usr user.User) error {
	cookie, err := c.Encode(usr)
	if err != nil {
		return err
	}
	http.SetCookie(w, cookie)
	return nil
}

// Clear expires the cookie on w.
func (c *CookieCodec) Clear(w http.ResponseWriter) {
	cookie := c.newCookie("", -1)
	cookie.Expires = time.Unix(0, 0)
	http.SetCookie(w, cookie)
}
