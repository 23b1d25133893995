package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store backends.
const (
	StoreFirestore = "firestore"
	StorePostgres  = "postgres"
	StoreMemory    = "memory"
)

// Defaults
const (
	DefaultCookieName                = "schoolTaskUser"
	DefaultSessionMaxAge             = 7 * 24 * time.Hour
	DefaultLookupTimeout             = 5 * time.Second
	DefaultJWTExpirationDelta        = time.Hour
	DefaultJWTRefreshExpirationDelta = 7 * 24 * time.Hour
)

type (
	ServerConfig struct {
		Host            string
		DebugHost       string
		ShutdownTimeout time.Duration
		StaticDir       string
	}

	SessionConfig struct {
		CookieName    string
		MaxAge        time.Duration
		LookupTimeout time.Duration
		Secure        bool
	}

	// AdminOverride pairs an identity uid with its email.
	AdminOverride struct {
		UID   string
		Email string
	}

	AuthConfig struct {
		AdminOverrides      []AdminOverride
		FallbackAdminEmails []string
	}

	FirebaseConfig struct {
		ProjectID       string
		CredentialsFile string
		APIKey          string
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RateLimitConfig struct {
		RPS   float64
		Burst int
	}

	Config struct {
		Env                       string
		Build                     string
		Debug                     bool
		TestMode                  bool
		AppName                   string
		SecretKey                 string
		FrontendBaseURL           string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		StoreBackend              string
		RollbarToken              string
		SendgridApiKey            string
		defaultFromEmail          string

		Server    ServerConfig
		Session   SessionConfig
		Auth      AuthConfig
		Firebase  FirebaseConfig
		Database  DatabaseConfig
		RateLimit RateLimitConfig
	}
)

func (db DatabaseConfig) Address() string {
	return db.Host + ":" + db.Port
}

// SetDefaultFromEmail sets the raw sender address, eg. `GT Staff Hub <noreply@goodtree.school>`.
func (conf *Config) SetDefaultFromEmail(addr string) { conf.defaultFromEmail = addr }

// DefaultFromEmail parses the configured sender address, falling back to a bare address on failure.
func (conf *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(conf.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: conf.AppName, Address: conf.defaultFromEmail}
	}
	if addr.Name == "" {
		addr.Name = conf.AppName
	}
	return *addr
}

// NewConfig loads the configuration from the environment.
// ENV selects the environment (DEV - default, TEST, QA, PROD) and doubles as the env var prefix,
// eg. PROD_SECRETKEY. A `config/.env.<env>` file is loaded first if it exists.
func NewConfig() *Config {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return configFromViper(env, v)
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "GT Staff Hub")
	v.SetDefault("secretKey", "k3x!t0m8)q$w+2a9=vz&hb(#r7@e^yd4uj%5gn")
	v.SetDefault("frontendBaseURL", "http://localhost:8000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("jwtExpirationDelta", DefaultJWTExpirationDelta)
	v.SetDefault("jwtRefreshExpirationDelta", DefaultJWTRefreshExpirationDelta)
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("server.host", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.staticDir", "web")

	v.SetDefault("session.cookieName", DefaultCookieName)
	v.SetDefault("session.maxAge", DefaultSessionMaxAge)
	v.SetDefault("session.lookupTimeout", DefaultLookupTimeout)

	v.SetDefault("auth.adminOverrides", "")
	v.SetDefault("auth.fallbackAdminEmails", "")

	v.SetDefault("store.backend", StoreFirestore)

	v.SetDefault("firebase.projectID", "")
	v.SetDefault("firebase.credentialsFile", "")
	v.SetDefault("firebase.apiKey", "")

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "staffhub")
	v.SetDefault("database.user", "staffhub")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("rateLimit.rps", 1.0)
	v.SetDefault("rateLimit.burst", 5)
}

func configFromViper(env string, v *viper.Viper) *Config {
	debug := v.GetBool("debug")
	return &Config{
		Env:                       env,
		Build:                     v.GetString("build"),
		Debug:                     debug,
		TestMode:                  v.GetBool("testMode"),
		AppName:                   v.GetString("appName"),
		SecretKey:                 v.GetString("secretKey"),
		FrontendBaseURL:           strings.TrimRight(v.GetString("frontendBaseURL"), "/"),
		JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
		JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
		StoreBackend:              strings.ToLower(v.GetString("store.backend")),
		RollbarToken:              v.GetString("rollbarToken"),
		SendgridApiKey:            v.GetString("sendgridApiKey"),
		defaultFromEmail:          v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			DebugHost:       v.GetString("server.debugHost"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			StaticDir:       v.GetString("server.staticDir"),
		},
		Session: SessionConfig{
			CookieName:    v.GetString("session.cookieName"),
			MaxAge:        v.GetDuration("session.maxAge"),
			LookupTimeout: v.GetDuration("session.lookupTimeout"),
			Secure:        !debug,
		},
		Auth: AuthConfig{
			AdminOverrides:      ParseAdminOverrides(v.GetString("auth.adminOverrides")),
			FallbackAdminEmails: splitList(v.GetString("auth.fallbackAdminEmails"), true),
		},
		Firebase: FirebaseConfig{
			ProjectID:       v.GetString("firebase.projectID"),
			CredentialsFile: v.GetString("firebase.credentialsFile"),
			APIKey:          v.GetString("firebase.apiKey"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		RateLimit: RateLimitConfig{
			RPS:   v.GetFloat64("rateLimit.rps"),
			Burst: v.GetInt("rateLimit.burst"),
		},
	}
}

// ParseAdminOverrides parses a comma separated list of `uid:email` pairs.
// Malformed entries are skipped.
func ParseAdminOverrides(raw string) []AdminOverride {
	var overrides []AdminOverride
	for _, entry := range splitList(raw, false) {
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 {
			continue
		}
		uid, email := CleanString(parts[0]), CleanString(parts[1], true /* lower */)
		if uid == "" || email == "" {
			continue
		}
		overrides = append(overrides, AdminOverride{UID: uid, Email: email})
	}
	return overrides
}

func splitList(raw string, lower bool) []string {
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = CleanString(item, lower); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func (conf *Config) String() string {
	return fmt.Sprintf("env=%s build=%s debug=%t store=%s", conf.Env, conf.Build, conf.Debug, conf.StoreBackend)
}
