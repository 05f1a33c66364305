package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"fridgeshare/internal/app"
	"fridgeshare/internal/config"
	"fridgeshare/internal/realtime"
	"fridgeshare/internal/server"
	"fridgeshare/internal/util"
	"fridgeshare/pkg/ai"
	"fridgeshare/pkg/mail"
	"fridgeshare/pkg/payments"
	"fridgeshare/pkg/queue"
	"fridgeshare/pkg/storage"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	jobs, err := queue.NewRedisJobQueue(queue.RedisQueueConfig{
		Addr:       cfg.RedisAddr,
		Password:   cfg.RedisPassword,
		Stream:     cfg.QueueName,
		Group:      cfg.QueueGroup,
		MaxRetries: cfg.QueueMaxRetries,
		RetryDelay: time.Duration(cfg.QueueRetryDelaySeconds) * time.Second,
	})
	if err != nil {
		log.Fatalf("failed to init job queue: %v", err)
	}

	mailer := mail.NewClient(cfg.MailBaseURL, cfg.MailAPIKey, cfg.MailFrom)

	hub := realtime.NewHub(cfg.RedisAddr, cfg.RedisPassword)
	appCore, err := app.New(app.Config{
		DatabaseURL:    cfg.DatabaseURL,
		RedisAddr:      cfg.RedisAddr,
		RedisPassword:  cfg.RedisPassword,
		JWTSecret:      cfg.JWTSecret,
		SessionTTL:     time.Duration(cfg.SessionTTLHours) * time.Hour,
		ListingTTL:     time.Duration(cfg.ListingTTLDays) * 24 * time.Hour,
		NearbyRadiusKm: cfg.NearbyDefaultRadiusKm,
		Hub:            hub,
		Mailer:         queueMailer{jobs: jobs, mail: mailer},
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	var aiClient *ai.Client
	if cfg.AIBaseURL != "" {
		aiClient = ai.New(cfg.AIBaseURL, cfg.AIAPIKey, cfg.AIModel, time.Duration(cfg.AITimeoutSeconds)*time.Second)
	}
	var paymentsClient *payments.Client
	if cfg.PaymentsBaseURL != "" {
		paymentsClient = payments.NewClient(cfg.PaymentsBaseURL, cfg.PaymentsAPIKey)
	}
	var photos storage.PhotoStore
	if cfg.MinioEndpoint != "" {
		photos, err = storage.NewMinioPhotoStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("failed to init photo store: %v", err)
		}
	}

	httpServer, err := server.New(server.Config{
		App:                        appCore,
		AI:                         aiClient,
		Payments:                   paymentsClient,
		Photos:                     photos,
		RedisAddr:                  cfg.RedisAddr,
		RedisPassword:              cfg.RedisPassword,
		RegisterRateLimitPerMinute: cfg.RegisterRatePerMinute,
		LoginRateLimitPerMinute:    cfg.LoginRatePerMinute,
		MessageRateLimitPerMinute:  cfg.MessageRatePerMinute,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	concurrency := cfg.QueueConcurrency
	if concurrency <= 0 {
		concurrency = 2
	}
	sweepEvery := time.Duration(cfg.ExpirySweepMinutes) * time.Minute
	if sweepEvery <= 0 {
		sweepEvery = 15 * time.Minute
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := hub.Run(ctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("realtime hub: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		jobs.Start(ctx, concurrency, jobHandler(appCore, mailer))
		return nil
	})
	group.Go(func() error {
		return sweepLoop(ctx, jobs, sweepEvery)
	})
	group.Go(func() error {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server error", "err", err)
	}
}

// sweepLoop periodically enqueues a listing expiry job so one worker in
// the group performs the sweep.
func sweepLoop(ctx context.Context, jobs *queue.RedisJobQueue, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := jobs.Enqueue(ctx, queue.KindListingExpiry, ""); err != nil {
				slog.Warn("enqueue expiry sweep", "err", err)
			}
		}
	}
}

func jobHandler(appCore *app.App, mailer *mail.Client) func(context.Context, queue.JobStatus) error {
	return func(ctx context.Context, job queue.JobStatus) error {
		switch job.Kind {
		case queue.KindListingExpiry:
			expired, err := appCore.ExpireListings(time.Now().UTC())
			if err != nil {
				return err
			}
			if expired > 0 {
				slog.Info("expired listings", "count", expired)
			}
			return nil
		case queue.KindVerificationEmail:
			to, code, ok := strings.Cut(job.Ref, "|")
			if !ok {
				return fmt.Errorf("malformed verification job ref")
			}
			return mailer.SendVerificationCode(ctx, to, code)
		default:
			return fmt.Errorf("unknown job kind %q", job.Kind)
		}
	}
}

// queueMailer defers verification mail to the job queue so registration
// does not block on the mail API.
type queueMailer struct {
	jobs *queue.RedisJobQueue
	mail *mail.Client
}

func (m queueMailer) SendVerificationCode(ctx context.Context, to, code string) error {
	if !m.mail.Configured() {
		return nil
	}
	_, err := m.jobs.Enqueue(ctx, queue.KindVerificationEmail, to+"|"+code)
	return err
}
