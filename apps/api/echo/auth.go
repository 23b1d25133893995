package echoapi

import (
	"fmt"
	"net/http"
	"net/mail"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/KhalilH786/GTManager-sub001/core"
	"github.com/KhalilH786/GTManager-sub001/core/session"
	"github.com/KhalilH786/GTManager-sub001/core/user"
)

const (
	jwtContextKey   = "userToken"
	jwtAudience     = "GT Staff Hub"
	pwdResetSubject = "Password Reset"
	pwdResetMsg     = "If the email address supplied is associated with an account on this system, " +
		"an email will arrive in your inbox shortly with instructions to reset your password."
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64     `json:"oriat,omitempty"`
	Name         string    `json:"name,omitempty"`
	Email        string    `json:"email,omitempty"`
	Role         user.Role `json:"role"`
	PhotoURL     string    `json:"photoURL,omitempty"`
}

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    jwtContextKey,
		Claims:        new(Claims),
	}
}

// GetUserClaims returns the claims of usr. origIat is kept across refreshes.
func GetUserClaims(usr user.User, conf *core.Config, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			Audience:  jwtAudience,
			ExpiresAt: now.Add(conf.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Name:         usr.Name,
		Email:        usr.Email,
		Role:         usr.Role,
		PhotoURL:     usr.PhotoURL,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(claims *Claims, conf *core.Config) (string, error) {
	jwtConf := newJWTConfig(conf)
	token := jwt.NewWithClaims(jwt.GetSigningMethod(jwtConf.SigningMethod), claims)

	ss, err := token.SignedString(jwtConf.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(jwtContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func (c Claims) identity() session.Identity {
	return session.Identity{UID: c.Subject, Email: c.Email, DisplayName: c.Name, PhotoURL: c.PhotoURL}
}

func (c Claims) user() user.User {
	return user.User{ID: c.Subject, Name: c.Name, Email: c.Email, Role: c.Role, PhotoURL: c.PhotoURL}
}

type authApi struct {
	deps *Deps
}

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *Server) {
	api := authApi{deps: s.deps}
	limit := s.limiter.middleware()

	ag := g.Group("/auth")
	ag.POST("/login", api.login, limit)
	ag.POST("/federated", api.federated, limit)
	ag.POST("/password-reset", api.resetPassword, limit)
	ag.POST("/logout", api.logout)
	ag.POST("/token-refresh", api.refreshToken, jwt)
}

// Handlers

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	if _, err := api.deps.Auth.SignInWithPassword(reqCtx, data.Email, data.Password); err != nil {
		return errors.Wrap(err, "signing in with password")
	}
	return api.signedIn(ctx)
}

func (api *authApi) federated(ctx echo.Context) error {
	var data FederatedLoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to FederatedLoginRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	if _, err := api.deps.Auth.SignInWithIDToken(reqCtx, data.IDToken); err != nil {
		return errors.Wrap(err, "signing in with id token")
	}
	return api.signedIn(ctx)
}

// signedIn answers a completed sign-in with the resolved user, its token and landing page.
func (api *authApi) signedIn(ctx echo.Context) error {
	sess, ok := session.FromContext(ctx.Request().Context())
	if !ok {
		return session.ErrNoSession
	}
	usr, ok := sess.User()
	if !ok {
		return session.ErrNoRole
	}

	token, err := GenerateToken(GetUserClaims(usr, api.deps.Conf), api.deps.Conf)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{
		User:     usr,
		Token:    token,
		Redirect: user.LandingPath(usr.Role),
	})
}

func (api *authApi) logout(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	var id session.Identity
	if sess, ok := session.FromContext(reqCtx); ok {
		if usr, ok := sess.User(); ok {
			id = session.Identity{UID: usr.ID, Email: usr.Email}
		}
	}

	if err := api.deps.Auth.SignOut(reqCtx, id); err != nil {
		// the session cookie is already cleared
		api.deps.Logger.Warn(fmt.Sprintf("auth.logout(%s): %v", id.UID, err), err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// refreshToken re-resolves the role of the token holder and returns a fresh token.
func (api *authApi) refreshToken(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(api.deps.Conf.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return errRefreshExpired
	}

	usr, err := api.deps.Sessions.Resolver().Resolve(ctx.Request().Context(), claims.identity())
	if err != nil {
		return errors.Wrap(err, "resolving user")
	}
	if err = api.deps.Sessions.Cookies().Write(ctx.Response(), usr); err != nil {
		return errors.Wrap(err, "writing session cookie")
	}

	token, err := GenerateToken(GetUserClaims(usr, api.deps.Conf, claims.OrigIssuedAt), api.deps.Conf)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{
		User:     usr,
		Token:    token,
		Redirect: user.LandingPath(usr.Role),
	})
}

func (api *authApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	if err := api.sendPasswordResetEmail(ctx, data.Email); err != nil &&
		errors.Cause(err) != session.ErrAccountNotFound {
		// do not return errors to attackers
		api.deps.Logger.Error(fmt.Sprintf("auth.resetPassword: %v", err), err)
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: pwdResetMsg})
}

func (api *authApi) sendPasswordResetEmail(ctx echo.Context, email string) error {
	link, err := api.deps.Auth.PasswordResetLink(ctx.Request().Context(), email)
	if err != nil {
		return errors.Wrap(err, "generating password reset link")
	}

	api.deps.MailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Address: email}},
		Subject:      pwdResetSubject,
		TemplateName: "password_reset",
		TemplateData: map[string]string{
			"Name": email,
			"Link": link,
		},
	})
	return nil
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	FederatedLoginRequest struct {
		IDToken string `json:"idToken" validate:"required"`
	}

	LoginResponse struct {
		User     user.User `json:"user"`
		Token    string    `json:"token"`
		Redirect string    `json:"redirect"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

func (fr *FederatedLoginRequest) Validate(validate *validator.Validate) error {
	fr.IDToken = core.CleanString(fr.IDToken)
	return validate.Struct(fr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
