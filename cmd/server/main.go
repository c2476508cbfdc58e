package main

import (
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/Karannkx/Kxshare/config"
	"github.com/Karannkx/Kxshare/internal/api"
	"github.com/Karannkx/Kxshare/internal/crypto"
	"github.com/Karannkx/Kxshare/internal/docgen"
	"github.com/Karannkx/Kxshare/internal/share"
	"github.com/Karannkx/Kxshare/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("config error:", err)
	}

	cipher, err := crypto.New(cfg.Crypto.Passphrase)
	if err != nil {
		log.Fatal("cipher init failed:", err)
	}

	st := initStore(cfg)
	defer st.Close()

	manager := share.NewManager(st, cipher)

	var generator *docgen.Generator
	if cfg.Docgen.APIKey != "" {
		generator = docgen.New(cfg.Docgen.APIKey, cfg.Docgen.Model)
	}

	router := api.SetupRouter(manager, generator, cfg)

	log.Printf("Server starting on %s", cfg.Addr())
	log.Printf("Base URL: %s", cfg.Server.BaseURL)
	log.Printf("Store: %s", cfg.Store.Type)
	if generator == nil {
		log.Printf("Doc generation: disabled (no API key)")
	}

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Fatal(server.ListenAndServe())
}

func initStore(cfg *config.Config) store.Store {
	switch cfg.Store.Type {
	case "redis":
		options, err := redisOptions(cfg)
		if err != nil {
			log.Fatal("redis config error:", err)
		}
		st, err := store.NewRedisStore(options)
		if err != nil {
			log.Fatal("redis connection failed:", err)
		}
		return st
	default:
		return store.NewMemoryStore()
	}
}

func redisOptions(cfg *config.Config) (*redis.Options, error) {
	if cfg.Store.Redis.URL != "" {
		return redis.ParseURL(cfg.Store.Redis.URL)
	}
	return &redis.Options{
		Addr:     cfg.Store.Redis.Addr,
		Password: cfg.Store.Redis.Password,
		DB:       cfg.Store.Redis.DB,
	}, nil
}
