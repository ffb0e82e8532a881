package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"fleetview/config"
	"fleetview/engine"
	"fleetview/messaging"
	"fleetview/snapstate"
	"fleetview/store"
	"fleetview/www"
)

var Version = "dev"

// keepEvents bounds the session log kept across restarts.
const keepEvents = 10000

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "fleetview.yaml", "path to config file")
	noConnect := flag.Bool("no-connect", false, "start without connecting to the simulation backend")
	writeConfig := flag.Bool("write-config", false, "write the effective configuration to -config and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("fleetview", Version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *writeConfig {
		if err := cfg.Save(*configPath); err != nil {
			log.Fatalf("write config: %v", err)
		}
		log.Printf("fleetview: configuration written to %s", *configPath)
		return
	}

	// Database
	db, err := store.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	log.Printf("fleetview: database open (%s)", cfg.Database.Driver)
	if n, err := db.PruneSessionEvents(keepEvents); err != nil {
		log.Printf("fleetview: prune session log: %v", err)
	} else if n > 0 {
		log.Printf("fleetview: pruned %d old session events", n)
	}

	// Redis (optional snapshot cache)
	var cache *snapstate.Cache
	if cfg.Redis.Address != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("fleetview: redis not available (%v), running without cache", err)
		} else {
			log.Printf("fleetview: redis connected (%s)", cfg.Redis.Address)
			cache = snapstate.New(redisClient, cfg.Redis.KeyPrefix)
		}
		cancel()
		defer redisClient.Close()
	}

	// Messaging transport
	transport, err := messaging.NewTransport(&cfg.Messaging, nil)
	if err != nil {
		log.Fatalf("messaging: %v", err)
	}
	log.Printf("fleetview: messaging backend %s, profile %s, topic %s", cfg.Messaging.Backend, cfg.Messaging.Profile, cfg.Messaging.Topic)

	// Engine
	eng := engine.New(engine.Config{
		AppConfig:  cfg,
		ConfigPath: *configPath,
		DB:         db,
		Cache:      cache,
		Transport:  transport,
	})
	eng.Start()
	defer eng.Stop()

	if !*noConnect {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := eng.Session().Connect(ctx); err != nil {
			log.Printf("fleetview: %v (connect again from the dashboard)", err)
		}
		cancel()
	}

	// Web server
	handler, stopWeb := www.NewRouter(eng)

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("fleetview: web server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("web server: %v", err)
		}
	}()

	log.Printf("fleetview: ready")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("fleetview: shutting down...")
	stopWeb()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("fleetview: web shutdown: %v", err)
	}
}
