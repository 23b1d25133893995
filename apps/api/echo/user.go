package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/KhalilH786/GTManager-sub001/core/user"
)

type userApi struct {
	deps *Deps
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := userApi{deps: deps}

	g.GET("/me", api.retrieveMe, jwt)
	g.PUT("/me", api.updateMe, jwt)
	g.GET("/roles", api.queryRoles, jwt, adminMiddleware())
}

// getContextUser returns the profile of the token holder. Unless profileOnly is set, accounts
// resolved without a profile document (overrides & fallback admins) get their user from the claims.
func (api *userApi) getContextUser(ctx echo.Context, profileOnly bool) (user.User, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting context claims")
	}

	usr, err := api.deps.UserSvc.Get(ctx.Request().Context(), claims.Subject)
	switch {
	case err == nil:
		if usr.Email == "" {
			usr.Email = claims.Email
		}
		// the token role is the resolved one
		usr.Role = claims.Role
		return usr, nil
	case errors.Cause(err) == user.ErrNotFound && !profileOnly:
		return claims.user(), nil
	}
	return user.User{}, errors.Wrap(err, "getting user")
}

// Handlers

func (api *userApi) retrieveMe(ctx echo.Context) error {
	usr, err := api.getContextUser(ctx, false)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

// updateMe changes the name & photo of an existing profile. It never creates a profile document.
func (api *userApi) updateMe(ctx echo.Context) error {
	usr, err := api.getContextUser(ctx, true)
	if err != nil {
		return err
	}

	var data user.UpdateProfile
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}
	if err = data.Validate(api.deps.Validate); err != nil {
		return err
	}

	if usr, err = api.deps.UserSvc.UpdateProfile(ctx.Request().Context(), usr, data); err != nil {
		return errors.Wrap(err, "updating profile")
	}

	// keep the name & photo read by the UI in sync
	if err = api.deps.Sessions.Cookies().Write(ctx.Response(), usr); err != nil {
		return errors.Wrap(err, "writing session cookie")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}
