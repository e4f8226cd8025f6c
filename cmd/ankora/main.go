package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/pflag"

	"github.com/ankora/ankora/internal/config"
	"github.com/ankora/ankora/internal/scheduler"
	"github.com/ankora/ankora/internal/sm2"
	"github.com/ankora/ankora/internal/storage"
	"github.com/ankora/ankora/internal/sync"
	"github.com/ankora/ankora/internal/web"
)

func main() {
	flags := pflag.NewFlagSet("ankora", pflag.ExitOnError)
	configPath := flags.String("config", "ankora.yaml", "path to the config file")
	flags.String("server.addr", ":8080", "address for the HTTP API")
	flags.String("db.path", "ankora.db", "path to the SQLite database file")
	flags.String("sync.user", "local", "user id that owns imported cards")
	addSource := flags.String("add-source", "", "register a card source (path or git URL) and exit")
	syncOnly := flags.Bool("sync-only", false, "run a source sync and exit instead of serving")
	flags.Parse(os.Args[1:])

	cfg, err := config.Load(*configPath, flags)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := storage.Open(cfg.DB.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DB.Path)

	if *addSource != "" {
		if existing, err := db.FindSourceByPath(*addSource); err != nil {
			log.Fatalf("Failed to check source: %v", err)
		} else if existing != nil {
			slog.Info("source already registered", "path", *addSource, "id", existing.ID)
			return
		}
		id, err := db.InsertSource(*addSource, sync.DetectType(*addSource))
		if err != nil {
			log.Fatalf("Failed to add source: %v", err)
		}
		slog.Info("source registered", "path", *addSource, "id", id)
		return
	}

	syncOpts := sync.Options{
		User:     cfg.Sync.User,
		ReposDir: cfg.Sync.ReposDir,
	}

	if err := sync.Run(db, syncOpts); err != nil {
		log.Fatalf("Failed to sync sources: %v", err)
	}
	if *syncOnly {
		return
	}

	params := sm2.Params{
		MinEase:        cfg.SRS.MinEase,
		MaxEase:        cfg.SRS.MaxEase,
		LapseThreshold: cfg.SRS.LapseThreshold,
		SecondInterval: cfg.SRS.SecondInterval,
		GraduationDays: cfg.SRS.GraduationDays,
		FuzzFactor:     cfg.SRS.FuzzFactor,
		MaxInterval:    cfg.SRS.MaxInterval,
	}
	sched := scheduler.New(db, params)

	srv := web.NewServer(db, sched, syncOpts)
	slog.Info("serving HTTP API", "addr", cfg.Server.Addr)
	if err := http.ListenAndServe(cfg.Server.Addr, srv); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
