package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/lessonforge/playback/internal/api/http"
	"github.com/lessonforge/playback/internal/auth"
	"github.com/lessonforge/playback/internal/config"
	"github.com/lessonforge/playback/internal/db"
	"github.com/lessonforge/playback/internal/logx"
	"github.com/lessonforge/playback/internal/netmon"
	"github.com/lessonforge/playback/internal/player"
	"github.com/lessonforge/playback/internal/progress"
	"github.com/lessonforge/playback/internal/retryq"
	"github.com/lessonforge/playback/internal/syncnet"
)

func main() {
	cfg := config.FromEnv()
	logx.Configure(logx.Config{Level: cfg.LogLevel, Service: "playerd"})

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	// --- Sync pipeline: retry queue, connectivity monitor, backend client ---
	queue := retryq.New(retryq.NewSQLStore(dbh), retryq.NewHTTPAttempter(nil))

	monitor := netmon.New(netmon.NewHTTPProber(cfg.ProbeURL, nil), time.Duration(cfg.ProbeIntervalSec)*time.Second)
	monitor.Subscribe(func(online bool) {
		queue.SetOnline(online)
		if online {
			go queue.Drain(context.Background())
		}
	})

	client := syncnet.NewClient(cfg.BackendURL, queue,
		syncnet.NewDeviceAuth(cfg.DeviceID, cfg.DeviceSecret),
		syncnet.WithRetryLimits(cfg.ProgressMaxRetries, cfg.AnswerMaxRetries, cfg.CompletionMaxRetries))

	// --- Playback engines ---
	mgr := player.NewManager(progress.NewSQLStore(dbh), client)

	// --- Local control API ---
	authSvc := auth.NewAuthService(cfg.LocalAuthSecret)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.EnableLocalAuth {
		r.Post("/auth/login", auth.LoginHandler(authSvc, cfg.LocalPassHash))
	}

	r.Group(func(pr chi.Router) {
		if cfg.EnableLocalAuth {
			pr.Use(auth.JWTMiddleware(authSvc))
		}
		pr.Route("/videos/{videoID}", func(vr chi.Router) {
			vr.Post("/load", api.LoadVideoHandler(mgr))
			vr.Post("/position", api.PositionHandler(mgr))
			vr.Post("/answer", api.AnswerHandler(mgr))
			vr.Post("/dismiss", api.DismissHandler(mgr))
			vr.Post("/toggle", api.ToggleHandler(mgr))
			vr.Post("/seek", api.SeekHandler(mgr))
			vr.Get("/session", api.SessionHandler(mgr))
		})
		pr.Get("/sync/status", api.SyncStatusHandler(queue))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	monitor.Start(context.Background())
	defer monitor.Stop()

	log.Printf("listening on %s (db=%s, backend=%s)", cfg.HTTPAddr, cfg.DBDriver, cfg.BackendURL)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
