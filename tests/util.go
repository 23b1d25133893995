package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/KhalilH786/GTManager-sub001/core"
	"github.com/KhalilH786/GTManager-sub001/core/user"
)

// Override pair and fallback admin used across the test suites.
const (
	OverrideUID   = "mH5yrjER2oPEBU7dRd9qh76qa3L2"
	OverrideEmail = "khalil.hendricks@gmail.com"
	FallbackEmail = "office@goodtree.school"
)

// NewConfig returns a TEST config with the override pair and fallback admin configured.
func NewConfig() *core.Config {
	conf := &core.Config{
		Env:                       "TEST",
		Build:                     "test",
		TestMode:                  true,
		AppName:                   "GT Staff Hub",
		SecretKey:                 "test-secret-key",
		FrontendBaseURL:           "http://localhost:8000",
		JWTExpirationDelta:        core.DefaultJWTExpirationDelta,
		JWTRefreshExpirationDelta: core.DefaultJWTRefreshExpirationDelta,
		StoreBackend:              core.StoreMemory,
	}
	conf.Session = core.SessionConfig{
		CookieName:    core.DefaultCookieName,
		MaxAge:        core.DefaultSessionMaxAge,
		LookupTimeout: core.DefaultLookupTimeout,
	}
	conf.Auth = core.AuthConfig{
		AdminOverrides:      []core.AdminOverride{{UID: OverrideUID, Email: OverrideEmail}},
		FallbackAdminEmails: []string{FallbackEmail},
	}
	conf.RateLimit = core.RateLimitConfig{RPS: 1000, Burst: 1000}
	return conf
}

// NewValidator returns a validator with the core and user validations registered.
func NewValidator() *validator.Validate {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate
}

func CreateProfile(t *testing.T, store user.ProfileStore, uid, name, email string, role user.Role) user.User {
	usr := user.User{ID: uid, Name: name, Email: email, Role: role}
	if err := store.MergeProfile(context.Background(), usr); err != nil {
		t.Fatalf("CreateProfile() failed: %v", err)
	}
	return usr
}

// Logger discards everything but fatal messages.
type Logger struct {
	T testing.TB
}

var _ core.Logger = Logger{}

func (l Logger) Debug(string, ...interface{}) {}
func (l Logger) Info(string, ...interface{})  {}
func (l Logger) Warn(string, ...interface{})  {}
func (l Logger) Error(string, ...interface{}) {}

func (l Logger) Fatal(msg string, args ...interface{}) {
	if l.T != nil {
		l.T.Fatal(append([]interface{}{msg}, args...)...)
	}
}

// DatabaseConfig returns the settings of the throwaway test database on host.
func DatabaseConfig(host string) core.DatabaseConfig {
	port := os.Getenv("TEST_DATABASE_PORT")
	if port == "" {
		port = "5432"
	}
	return core.DatabaseConfig{
		Engine:        "postgres",
		Host:          host,
		Port:          port,
		Name:          "staffhub_test",
		User:          "staffhub_test",
		Password:      "staffhub_test",
		AdminUser:     os.Getenv("TEST_DATABASE_ADMIN_USER"),
		AdminPassword: os.Getenv("TEST_DATABASE_ADMIN_PASSWORD"),
		DisableTLS:    true,
	}
}
