// Package firebasesvc is the Firebase Authentication identity provider.
package firebasesvc

import (
	"context"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/pkg/errors"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"github.com/KhalilH786/GTManager-sub001/core"
	"github.com/KhalilH786/GTManager-sub001/core/session"
)

type (
	// authClient is the subset of *auth.Client in use.
	authClient interface {
		VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
		GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
		GetUserByEmail(ctx context.Context, email string) (*auth.UserRecord, error)
		CreateUser(ctx context.Context, user *auth.UserToCreate) (*auth.UserRecord, error)
		RevokeRefreshTokens(ctx context.Context, uid string) error
		PasswordResetLink(ctx context.Context, email string) (string, error)
	}

	// passwordVerifier signs in with email and password through the Identity Toolkit REST API.
	passwordVerifier func(ctx context.Context, email, password string) (*identitytoolkit.VerifyPasswordResponse, error)

	Provider struct {
		client         authClient
		verifyPassword passwordVerifier
	}
)

var (
	_ session.IdentityProvider   = (*Provider)(nil)
	_ session.AccountProvisioner = (*Provider)(nil)
)

// NewProvider connects to Firebase. Credentials come from conf.Firebase.CredentialsFile, or the
// application default credentials when empty. Password sign-in needs conf.Firebase.APIKey.
func NewProvider(ctx context.Context, conf *core.Config) (*Provider, error) {
	var opts []option.ClientOption
	if conf.Firebase.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(conf.Firebase.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: conf.Firebase.ProjectID}, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "initializing firebase app")
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "initializing firebase auth client")
	}

	toolkit, err := identitytoolkit.NewService(ctx, option.WithAPIKey(conf.Firebase.APIKey))
	if err != nil {
		return nil, errors.Wrap(err, "initializing identity toolkit")
	}

	verify := func(ctx context.Context, email, password string) (*identitytoolkit.VerifyPasswordResponse, error) {
		req := &identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
			Email:             email,
			Password:          password,
			ReturnSecureToken: true,
		}
		return toolkit.Relyingparty.VerifyPassword(req).Context(ctx).Do()
	}

	return &Provider{client: client, verifyPassword: verify}, nil
}

func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (session.Identity, error) {
	res, err := p.verifyPassword(ctx, email, password)
	if err != nil {
		return session.Identity{}, mapPasswordError(err)
	}
	return session.Identity{
		UID:         res.LocalId,
		Email:       res.Email,
		DisplayName: res.DisplayName,
		PhotoURL:    res.PhotoUrl,
	}, nil
}

func (p *Provider) SignInWithIDToken(ctx context.Context, idToken string) (session.Identity, error) {
	token, err := p.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return session.Identity{}, errors.Wrap(session.ErrInvalidIDToken, err.Error())
	}

	rec, err := p.client.GetUser(ctx, token.UID)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return session.Identity{}, errors.Wrap(session.ErrInvalidIDToken, "account no longer exists")
		}
		return session.Identity{}, errors.Wrap(err, "getting firebase user")
	}
	if rec.Disabled {
		return session.Identity{}, session.ErrAccountDisabled
	}
	return identityFromRecord(rec), nil
}

func (p *Provider) SignOut(ctx context.Context, uid string) error {
	if err := p.client.RevokeRefreshTokens(ctx, uid); err != nil {
		if auth.IsUserNotFound(err) {
			return session.ErrAccountNotFound
		}
		return errors.Wrap(err, "revoking refresh tokens")
	}
	return nil
}

func (p *Provider) PasswordResetLink(ctx context.Context, email string) (string, error) {
	link, err := p.client.PasswordResetLink(ctx, email)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return "", session.ErrAccountNotFound
		}
		return "", errors.Wrap(err, "generating password reset link")
	}
	return link, nil
}

func (p *Provider) GetAccountByEmail(ctx context.Context, email string) (session.Identity, error) {
	rec, err := p.client.GetUserByEmail(ctx, email)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return session.Identity{}, session.ErrAccountNotFound
		}
		return session.Identity{}, errors.Wrap(err, "getting firebase user by email")
	}
	return identityFromRecord(rec), nil
}

func (p *Provider) CreateAccount(ctx context.Context, email, password, displayName string) (session.Identity, error) {
	params := (&auth.UserToCreate{}).
		Email(email).
		EmailVerified(true).
		Password(password).
		DisplayName(displayName)

	rec, err := p.client.CreateUser(ctx, params)
	if err != nil {
		if auth.IsEmailAlreadyExists(err) {
			return session.Identity{}, session.ErrAccountExists
		}
		return session.Identity{}, errors.Wrap(err, "creating firebase user")
	}
	return identityFromRecord(rec), nil
}

func identityFromRecord(rec *auth.UserRecord) session.Identity {
	if rec == nil || rec.UserInfo == nil {
		return session.Identity{}
	}
	return session.Identity{
		UID:         rec.UID,
		Email:       rec.Email,
		DisplayName: rec.DisplayName,
		PhotoURL:    rec.PhotoURL,
	}
}

// mapPasswordError turns Identity Toolkit rejections into session errors.
// Rejections are 400s whose message carries the reason, eg. "INVALID_PASSWORD".
func mapPasswordError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != 400 {
		return errors.Wrap(err, "verifying password")
	}
	switch msg := strings.ToUpper(apiErr.Message); {
	case strings.Contains(msg, "USER_DISABLED"):
		return session.ErrAccountDisabled
	case strings.Contains(msg, "TOO_MANY_ATTEMPTS"):
		return errors.Wrap(err, "verifying password")
	default:
		return session.ErrInvalidCredentials
	}
}
