package main

import (
	"context"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/KhalilH786/GTManager-sub001/core"
	"github.com/KhalilH786/GTManager-sub001/core/user"
	"github.com/KhalilH786/GTManager-sub001/services/identity/firebase"
	"github.com/KhalilH786/GTManager-sub001/services/logger"
	"github.com/KhalilH786/GTManager-sub001/storage/database"
	"github.com/KhalilH786/GTManager-sub001/storage/database/sqlx"
	"github.com/KhalilH786/GTManager-sub001/storage/firestore"
)

func main() {
	conf := core.NewConfig()
	ctx := context.Background()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	user.LoadCommonPasswords(logger)

	// set up profile store
	var (
		store   user.ProfileStore
		closers []func() error
	)
	switch conf.StoreBackend {
	case core.StoreFirestore:
		client, err := firestoredb.Open(ctx, conf)
		if err != nil {
			logger.Fatal("opening firestore", err)
		}
		closers = append(closers, client.Close)
		store = firestoredb.NewProfileStore(client)
	case core.StorePostgres:
		db, err := database.Open(ctx, conf)
		if err != nil {
			logger.Fatal("opening database", err)
		}
		closers = append(closers, db.Close)
		store = sqlxrepos.NewProfileStore(db)
	default:
		logger.Fatal("admin commands need the firestore or postgres store, got " + conf.StoreBackend)
	}

	provider, err := firebasesvc.NewProvider(ctx, conf)
	if err != nil {
		logger.Fatal("setting up identity provider", err)
	}

	// start CLI
	cli := commandLine{
		usrSvc:   user.NewService(store),
		accounts: provider,
		validate: validate,
		openDB: func(ctx context.Context) (*sqlx.DB, error) {
			return database.Open(ctx, conf)
		},
		out: os.Stdout,
	}
	err = cli.run(os.Args)

	for _, closeFn := range closers {
		_ = closeFn()
	}
	if err != nil {
		if err != errHelp {
			printError(err, translator)
		}
		os.Exit(1)
	}
}

func printError(err error, translator ut.Translator) {
	if vErrs, ok := errors.Cause(err).(validator.ValidationErrors); ok {
		for _, vErr := range vErrs {
			log.Printf("%s: %s\n", vErr.Field(), vErr.Translate(translator))
		}
		return
	}
	log.Printf("\nerror: %s\n", err)
}
