package session

import (
	"net/http"
	"strings"

	"github.com/KhalilH786/GTManager-sub001/core/user"
)

// Page routes.
const (
	PathHome  = "/"
	PathLogin = "/login"
)

var gatedPrefixes = []string{user.PathDashboard, user.PathTasks, "/groups", "/admin"}

// Decision is the outcome of a gate check.
type Decision struct {
	Allow       bool
	Redirect    string
	ClearCookie bool
}

// Gate makes allow/redirect decisions for page routes based on the session cookie only.
type Gate struct {
	cookies *CookieCodec
}

func NewGate(cookies *CookieCodec) *Gate {
	return &Gate{cookies: cookies}
}

func cleanPath(path string) string {
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			return PathHome
		}
	}
	return path
}

// IsPublic reports whether path is only meant for anonymous users.
func IsPublic(path string) bool {
	path = cleanPath(path)
	return path == PathHome || path == PathLogin
}

// Matches reports whether the gate applies to path.
func Matches(path string) bool {
	path = cleanPath(path)
	if IsPublic(path) {
		return true
	}
	for _, prefix := range gatedPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// Decide checks path against the session cookie. A nil or empty cookie means Anonymous.
func (g *Gate) Decide(path string, cookie *http.Cookie) Decision {
	d := g.decide(path, cookie)
	switch {
	case d.ClearCookie:
		recordGateDecision(decisionMalformed)
	case d.Allow:
		recordGateDecision(decisionAllow)
	case d.Redirect == PathLogin:
		recordGateDecision(decisionRequireLogin)
	default:
		recordGateDecision(decisionLanding)
	}
	return d
}

func (g *Gate) decide(path string, cookie *http.Cookie) Decision {
	if !Matches(path) {
		return Decision{Allow: true}
	}
	hasCookie := cookie != nil && cookie.Value != ""
	public := IsPublic(path)

	switch {
	case public && !hasCookie:
		return Decision{Allow: true}
	case !public && !hasCookie:
		return Decision{Redirect: PathLogin}
	case public:
		usr, err := g.cookies.Decode(cookie.Value)
		if err != nil {
			return Decision{Redirect: PathLogin, ClearCookie: true}
		}
		return Decision{Redirect: user.LandingPath(usr.Role)}
	}
	return Decision{Allow: true}
}

// Apply writes the decision to w. It reports whether the request may proceed.
func (g *Gate) Apply(w http.ResponseWriter, r *http.Request, d Decision) bool {
	if d.ClearCookie {
		g.cookies.Clear(w)
	}
	if d.Allow {
		return true
	}
	http.Redirect(w, r, d.Redirect, http.StatusFound)
	return false
}
