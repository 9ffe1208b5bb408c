// Command eppclient runs a registrar session against the .it registry:
// it greets, logs in, then keeps draining the server message queue
// until stopped, archiving and publishing every message it sees.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eppclient/internal/platform/config"
	"eppclient/internal/platform/httpserver"
	"eppclient/internal/platform/logger"
	"eppclient/internal/platform/metrics"
	platformredis "eppclient/internal/platform/redis"
	"eppclient/internal/session"
	"eppclient/internal/store"
	"eppclient/internal/transport"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.New("info").Error("load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.New("info").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tr, closeTransport, err := buildTransport(cfg.Server)
	if err != nil {
		log.Error("build transport", "error", err)
		os.Exit(1)
	}
	defer closeTransport()

	m := metrics.New()

	metricsSrv := httpserver.NewMetrics(cfg.MetricsAddr)
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		metricsSrv.Shutdown(shutdownCtx)
	}()

	opts := []session.Option{
		session.WithLogger(log),
		session.WithMetrics(m),
	}

	var auditStore store.Store
	if cfg.Postgres.DSN != "" {
		db, err := store.Open(cfg.Postgres.DSN)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		auditStore = store.NewPostgresStore(db)
		log.Info("audit store ready", "backend", "postgres")
	} else {
		auditStore = store.NewInMemoryStore()
		log.Info("audit store ready", "backend", "memory")
	}
	opts = append(opts, session.WithStore(auditStore))

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		opts = append(opts, session.WithDedupe(store.NewRedisDedupe(redisClient.Client, 0)))
		log.Info("message dedupe ready", "backend", "redis")
	}

	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := store.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("connect kafka", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		opts = append(opts, session.WithPublisher(publisher))
		log.Info("message publisher ready", "topic", cfg.Kafka.Topic)
	}

	if cfg.Session.LogoutOnFailedLogin != nil {
		opts = append(opts, session.WithLogoutOnFailedLogin(*cfg.Session.LogoutOnFailedLogin))
	}

	sess, err := session.New(session.Config{
		ClientID:     cfg.Session.ClientID,
		Password:     cfg.Session.Password,
		ClTRIDPrefix: cfg.Session.ClTRIDPrefix,
		HandlePrefix: cfg.Session.HandlePrefix,
		DNSSEC:       cfg.Session.DNSSEC,
	}, tr, opts...)
	if err != nil {
		log.Error("build session", "error", err)
		os.Exit(1)
	}

	if err := run(ctx, log, sess, cfg.Session.PollInterval.Duration); err != nil {
		log.Error("session ended", "error", err)
		os.Exit(1)
	}
}

func buildTransport(cfg config.Server) (transport.Transport, func(), error) {
	if cfg.Mode == "socket" {
		client, err := transport.NewSocketClient(transport.SocketConfig{
			Addr:               cfg.Addr,
			Timeout:            cfg.Timeout.Duration,
			ClientCertFile:     cfg.ClientCertFile,
			ClientKeyFile:      cfg.ClientKeyFile,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		})
		if err != nil {
			return nil, nil, err
		}
		return client, func() { client.Close() }, nil
	}
	client, err := transport.NewHTTPSClient(transport.HTTPSConfig{
		URL:                cfg.URL,
		Timeout:            cfg.Timeout.Duration,
		ClientCertFile:     cfg.ClientCertFile,
		ClientKeyFile:      cfg.ClientKeyFile,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	})
	if err != nil {
		return nil, nil, err
	}
	return client, func() {}, nil
}

// run drives the session: greet, authenticate, then poll the message
// queue until the context is cancelled, acknowledging every message
// that was archived.
func run(ctx context.Context, log *slog.Logger, sess *session.Session, pollInterval time.Duration) error {
	if _, err := sess.Hello(ctx); err != nil {
		return err
	}
	if _, err := sess.Login(ctx, ""); err != nil {
		return err
	}
	defer func() {
		logoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := sess.Logout(logoutCtx); err != nil {
			log.Warn("logout", "error", err)
		}
	}()

	if credit := sess.Credit(); credit != "" {
		log.Info("account credit", "amount", credit)
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			drain(ctx, log, sess)
		}
	}
}

// drain empties the message queue one req/ack pair at a time.
func drain(ctx context.Context, log *slog.Logger, sess *session.Session) {
	for {
		res, msg, err := sess.Poll(ctx, "req", "")
		if err != nil {
			log.Warn("poll", "error", err)
			return
		}
		if res == nil || res.MsgQ == nil || msg == nil {
			return
		}
		if _, err := sess.AckMessage(ctx, msg.ID); err != nil {
			log.Warn("ack", "msg_id", msg.ID, "error", err)
			return
		}
	}
}
