package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/LeventeLantos/whatsapp-scheduler/internal/api"
	"github.com/LeventeLantos/whatsapp-scheduler/internal/cache"
	"github.com/LeventeLantos/whatsapp-scheduler/internal/client"
	"github.com/LeventeLantos/whatsapp-scheduler/internal/config"
	"github.com/LeventeLantos/whatsapp-scheduler/internal/model"
	"github.com/LeventeLantos/whatsapp-scheduler/internal/scheduler"
	"github.com/LeventeLantos/whatsapp-scheduler/internal/service"
	"github.com/LeventeLantos/whatsapp-scheduler/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadAll()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	st, err := buildStore(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}

	twilio := client.NewTwilioClient("", cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.WhatsAppNumber)

	engine := service.NewEngine(st, twilio).WithConfirmations(cfg.Scheduler.Confirmations)
	reconciler := service.NewReconciler(st, twilio)

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		deliveryLog := cache.NewRedisLog(rdb, cfg.Redis.TTL)

		reconciler.WithHooks(
			func(ctx context.Context, rec model.ScheduleRecord, sid string, at time.Time) error {
				if err := deliveryLog.RecordSent(ctx, rec, sid, at); err != nil {
					slog.Warn("failed to record delivery", "phone", rec.Phone, "error", err)
				}
				return nil
			},
			nil,
		)
	}

	sched, err := scheduler.New(cfg.Scheduler.Interval, func(ctx context.Context, at time.Time) {
		rep, err := reconciler.Run(ctx, at)
		if err != nil {
			slog.Error("reconciliation pass failed", "error", err)
			return
		}
		slog.Info("reconciliation pass completed",
			"scanned", rep.Scanned, "due", rep.Due, "sent", rep.Sent, "failed", rep.Failed)
	})
	if err != nil {
		log.Fatal(err)
	}
	sched.Start()

	handler := api.NewHandler(sched, engine, reconciler, st)
	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: loggingMiddleware(api.Router(handler)),
	}

	go func() {
		slog.Info("scheduler app listening",
			"addr", cfg.Server.Address,
			"interval", cfg.Scheduler.Interval.String(),
			"backend", cfg.Store.Backend,
			"redis", cfg.Redis.Enabled,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down")
	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func buildStore(ctx context.Context, cfg *config.Config) (store.RecordStore, error) {
	switch cfg.Store.Backend {
	case config.BackendSheets:
		svc, err := sheets.NewService(ctx,
			option.WithCredentialsJSON(cfg.Store.CredentialsJSON),
			option.WithScopes(sheets.SpreadsheetsScope),
		)
		if err != nil {
			return nil, err
		}
		return store.NewSheetsStore(svc, cfg.Store.SpreadsheetID, cfg.Store.SheetName), nil

	case config.BackendPostgres:
		db, err := sql.Open("pgx", cfg.Store.PostgresURL)
		if err != nil {
			return nil, err
		}
		pg := store.NewPostgresStore(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return pg, nil

	default:
		return nil, errors.New("unknown store backend: " + cfg.Store.Backend)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
