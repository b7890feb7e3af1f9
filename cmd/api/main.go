package main

import (
	"context"
	"log"
	"net/http"

	"github.com/finvault/bankcore/internal/api"
	"github.com/finvault/bankcore/internal/config"
	"github.com/finvault/bankcore/internal/service"
	"github.com/finvault/bankcore/internal/session"
	"github.com/finvault/bankcore/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	var st store.Store
	switch cfg.StoreBackend {
	case "memory":
		st = store.NewMemoryStore()
		log.Println("Using in-memory store; state will not survive restarts")
	default:
		pg, err := store.NewPostgresStore(context.Background(), cfg.DBSource)
		if err != nil {
			log.Fatalf("Unable to connect to database: %v", err)
		}
		st = pg
	}
	defer st.Close()

	sessions := session.NewStore(cfg.SessionTTL)
	auth := service.NewAuthService(st, sessions, cfg.BcryptCost)
	transfers := service.NewTransferService(st)

	handler := api.NewHandler(st, sessions, auth, transfers)
	router := api.NewRouter(handler)

	log.Printf("Server starting on :%s (%s, %s store)", cfg.Port, cfg.Env, cfg.StoreBackend)
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.Fatal(err)
	}
}
