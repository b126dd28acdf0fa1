package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/medibook/appointment-booking/internal/booking"
	"github.com/medibook/appointment-booking/internal/config"
	"github.com/medibook/appointment-booking/internal/db"
	redisclient "github.com/medibook/appointment-booking/internal/redis"
)

// The cancel worker enforces the confirmation cutoff: a pending
// appointment that is still unconfirmed this close to its start time
// is cancelled, its slot freed, and any captured payment refunded.
func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("cancel-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running cancel worker in env=%s interval=%s cutoff=%s",
		cfg.Env, cfg.WorkerInterval, cfg.ConfirmCutoff)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	repo := booking.NewPgRepository(pgPool)
	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
	gateway := &booking.SimulatedGateway{Latency: cfg.PaymentLatency}
	svc := booking.NewService(repo, locker, gateway, cfg)

	// Run once at startup
	runOnce(rootCtx, svc)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Println("shutdown signal received, stopping cancel worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc)
		}
	}
}

func runOnce(ctx context.Context, svc *booking.Service) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	if err := svc.CancelUnconfirmed(runCtx, start); err != nil {
		log.Printf("cancel run error: %v", err)
		return
	}
	log.Printf("cancel run complete in %s", time.Since(start))
}
