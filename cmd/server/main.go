package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"github.com/leafnote/leafnote-server/internal/auth"
	"github.com/leafnote/leafnote-server/internal/config"
	"github.com/leafnote/leafnote-server/internal/db"
	"github.com/leafnote/leafnote-server/internal/handlers"
	"github.com/leafnote/leafnote-server/internal/middleware"
	"github.com/leafnote/leafnote-server/internal/store"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	dbConn, err := db.Open(cfg.MySQLDSN)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	tokens := auth.NewTokenService(cfg.JWTSecret)
	userStore := store.NewUserStore(dbConn)
	noteStore := store.NewNoteStore(dbConn)

	r := mux.NewRouter()
	r.Use(middleware.RequestLogger(logger))

	r.HandleFunc("/api/auth/register", handlers.RegisterHandler(userStore, tokens, logger)).Methods("POST")
	r.HandleFunc("/api/auth/login", handlers.LoginHandler(userStore, tokens, logger)).Methods("POST")
	r.HandleFunc("/api/auth/logout", handlers.LogoutHandler()).Methods("POST")

	// Authenticated routes
	s := r.PathPrefix("/api").Subrouter()
	s.Use(auth.Middleware(tokens))

	s.HandleFunc("/auth/me", handlers.MeHandler(userStore, logger)).Methods("GET")
	s.HandleFunc("/notes", handlers.ListNotesHandler(noteStore, logger)).Methods("GET")
	s.HandleFunc("/notes", handlers.CreateNoteHandler(noteStore, logger)).Methods("POST")
	s.HandleFunc("/notes/{id}", handlers.GetNoteHandler(noteStore, logger)).Methods("GET")
	s.HandleFunc("/notes/{id}", handlers.UpdateNoteHandler(noteStore, logger)).Methods("PUT")
	s.HandleFunc("/notes/{id}", handlers.DeleteNoteHandler(noteStore, logger)).Methods("DELETE")

	logger.Info("starting server", "port", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
