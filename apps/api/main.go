package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KhalilH786/GTManager-sub001/apps/api/echo"
	"github.com/KhalilH786/GTManager-sub001/core"
	"github.com/KhalilH786/GTManager-sub001/core/session"
	"github.com/KhalilH786/GTManager-sub001/core/user"
	"github.com/KhalilH786/GTManager-sub001/services/email"
	"github.com/KhalilH786/GTManager-sub001/services/identity/firebase"
	"github.com/KhalilH786/GTManager-sub001/services/identity/memidentity"
	"github.com/KhalilH786/GTManager-sub001/services/logger"
	"github.com/KhalilH786/GTManager-sub001/storage/database"
	"github.com/KhalilH786/GTManager-sub001/storage/database/inmem"
	"github.com/KhalilH786/GTManager-sub001/storage/database/sqlx"
	"github.com/KhalilH786/GTManager-sub001/storage/firestore"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()
	ctx := context.Background()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up profile store
	store, closeStore, err := setUpStore(ctx, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up %s store: %v", conf.StoreBackend, err), err)
	}
	defer func() {
		if err = closeStore(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up identity provider
	provider, err := setUpIdentityProvider(ctx, conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up identity provider: %v", err), err)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	usrSvc := user.NewService(store)

	auth := session.NewAuthenticator(provider)
	cookies := session.NewCookieCodec(conf.Session)
	resolver := session.NewResolver(store, conf.Auth, conf.Session.LookupTimeout, logger)
	sessions := session.NewManager(auth, resolver, cookies, logger)
	defer sessions.Close()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q (%s)", conf.Build, conf))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	if len(conf.Auth.AdminOverrides) == 0 && len(conf.Auth.FallbackAdminEmails) == 0 {
		logger.Warn("no admin override or fallback admin configured")
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - Prometheus metrics.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("store").Set(conf.StoreBackend)
	http.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(
		conf.Server.Host,
		shutdown,
		&echoapi.Deps{
			Conf:       conf,
			Logger:     logger,
			Auth:       auth,
			Sessions:   sessions,
			Gate:       session.NewGate(cookies),
			UserSvc:    usrSvc,
			MailSvc:    mailSvc,
			Validate:   validate,
			Translator: translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(ctx, conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpStore(ctx context.Context, conf *core.Config) (user.ProfileStore, func() error, error) {
	switch conf.StoreBackend {
	case core.StoreFirestore:
		client, err := firestoredb.Open(ctx, conf)
		if err != nil {
			return nil, nil, err
		}
		return firestoredb.NewProfileStore(client), client.Close, nil

	case core.StorePostgres:
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, nil, err
		}
		db, err := database.Open(ctx, conf)
		if err != nil {
			return nil, nil, err
		}
		if err = database.Migrate(db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return sqlxrepos.NewProfileStore(db), db.Close, nil

	case core.StoreMemory:
		return inmemdb.NewProfileStore(), func() error { return nil }, nil
	}
	return nil, nil, errors.Errorf("unknown store backend %q", conf.StoreBackend)
}

// setUpIdentityProvider uses Firebase Authentication, or an in-memory provider in debug
// mode when no Firebase project is configured.
func setUpIdentityProvider(ctx context.Context, conf *core.Config, logger core.Logger) (session.IdentityProvider, error) {
	if conf.Firebase.ProjectID == "" && conf.Debug {
		logger.Warn("no firebase project configured: using the in-memory identity provider")
		return memidentity.New(), nil
	}
	return firebasesvc.NewProvider(ctx, conf)
}
