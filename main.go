package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/cadasta/questionnaires/app"
	"github.com/cadasta/questionnaires/config"
	"github.com/cadasta/questionnaires/database"
	"github.com/cadasta/questionnaires/httpx"
	"github.com/cadasta/questionnaires/log"
	"github.com/cadasta/questionnaires/routes"
	"github.com/cadasta/questionnaires/xlsform"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	formCfg, err := xlsform.LoadConfig(cfg.FormConfig)
	if err != nil {
		log.Fatal("main.form_config:", err)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer db.Close()

	bearerServer := httpx.NewBearerServer(db, cfg)

	app := app.App{
		DB:           db,
		BearerServer: bearerServer,
		Config:       cfg,
		FormCfg:      formCfg,
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
