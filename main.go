package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/mbolis/sparta-forms/app"
	"github.com/mbolis/sparta-forms/config"
	"github.com/mbolis/sparta-forms/log"
	"github.com/mbolis/sparta-forms/routes"
	"github.com/mbolis/sparta-forms/schema"
	"github.com/mbolis/sparta-forms/session"
	"github.com/mbolis/sparta-forms/store"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	schemas := schema.NewCache(cfg.PublicDir)

	app := app.App{
		Config:   cfg,
		Sessions: session.NewManager(cfg.Secret, cfg.Expiration),
		Schemas:  schemas,
		Store:    store.New(cfg.DataDir, cfg.PublicDir, cfg.MaxEdits, schemas),
	}

	handler := routes.Wire(app)

	err = runServer(cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
}

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Info("Listening on " + cfg.Url())
	return srv.ListenAndServe()
}
