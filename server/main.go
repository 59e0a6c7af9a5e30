package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arena-server/internal/settings"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func loadSettings(path string) (*settings.Settings, error) {
	if path == "" {
		return settings.Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return settings.Load(f)
}

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	dbPath := flag.String("db", "arena.db", "Path to the SQLite database")
	settingsPath := flag.String("settings", "", "Optional JSON file of settings overrides")
	ticksPerTurn := flag.Int("ticks-per-turn", 1, "Ticks simulated per turn")
	maxGames := flag.Int("max-games", defaultMaxGames, "Maximum number of concurrent games")
	flag.Parse()

	s, err := loadSettings(*settingsPath)
	if err != nil {
		log.Fatalf("settings: %v", err)
	}

	db, err := OpenDB(*dbPath)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	auth, err := NewAuth(db)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	results := NewResultWriter(db)
	games := NewGameManager(s, results, *maxGames, *ticksPerTurn)
	hub := NewHub(games, db, auth)
	server := &http.Server{Addr: *addr, Handler: SetupRoutes(hub)}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(ctx) })
	g.Go(func() error { return games.Run(ctx) })
	g.Go(func() error { return results.Run(ctx) })
	g.Go(func() error {
		log.Printf("Server starting on %s", *addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Println("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("server: %v", err)
	}
}
