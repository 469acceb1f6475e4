package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coursehub.org/internal/auth"
	"coursehub.org/internal/course"
	"coursehub.org/internal/enrollment"
	"coursehub.org/internal/httpapi"
	"coursehub.org/internal/mail"
	"coursehub.org/internal/obs"
	"coursehub.org/internal/store/memory"
	"coursehub.org/internal/store/pg"
	"coursehub.org/internal/user"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	secret := os.Getenv("COURSEHUB_AUTH_SECRET")
	if secret == "" {
		log.Fatal("COURSEHUB_AUTH_SECRET is required")
	}
	tokens, err := auth.NewTokenService(secret)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}

	var (
		users   user.Store
		courses course.Store
		members enrollment.Store
		db      *sql.DB
	)
	if dsn := os.Getenv("COURSEHUB_PG_DSN"); dsn != "" {
		store, err := pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer store.Close()
		db = store.DB()
		users = store.Users()
		courses = store.Courses()
		members = store.Members()
	} else {
		log.Print("COURSEHUB_PG_DSN not set, using in-memory store")
		store := memory.New()
		users = store.Users()
		courses = store.Courses()
		members = store.Members()
	}

	var mailer auth.Mailer
	if addr := os.Getenv("COURSEHUB_SMTP_ADDR"); addr != "" {
		mailer, err = mail.NewSMTPSender(addr, os.Getenv("COURSEHUB_SMTP_FROM"))
		if err != nil {
			log.Fatalf("smtp sender: %v", err)
		}
	} else {
		log.Print("COURSEHUB_SMTP_ADDR not set, logging reset emails instead")
		mailer = mail.LogSender{}
	}

	baseURL := os.Getenv("COURSEHUB_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	reset, err := auth.NewResetFlow(tokens, users, mailer, baseURL)
	if err != nil {
		log.Fatalf("reset flow: %v", err)
	}

	api := httpapi.New(httpapi.Config{
		ReadyProbe:    httpapi.ReadyProbe{DB: db},
		Version:       version,
		Users:         users,
		Courses:       courses,
		Enrollment:    enrollment.NewCoordinator(users, courses, members),
		Tokens:        tokens,
		Reset:         reset,
		SecureCookies: os.Getenv("COURSEHUB_ENV") == "production",
	})

	handler := api.Handler()
	handler = httpapi.RateLimit(handler, 50, 25)
	handler = httpapi.MaxBodyBytes(handler, 1<<20)
	handler = httpapi.CORS(handler)
	handler = httpapi.SecurityHeaders(handler)
	handler = httpapi.LoggingJSON(handler)
	handler = httpapi.RequestID(handler)

	addr := os.Getenv("COURSEHUB_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting coursehub-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}
