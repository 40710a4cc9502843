// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package main contains relay main function to start the cloud-side
// relay service.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/alerting"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/alerting/smtp"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/decision"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/dispatch"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/ingest"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/ingest/api"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/ingest/middleware"
	ingestredis "github.com/HuebitsTechLearn/Artificial-Internet-of-Things/ingest/redis"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/internal/email"
	jaegerclient "github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/jaeger"
	relaylog "github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/logger"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging/brokers"
	pgclient "github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/postgres"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/prometheus"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/server"
	httpserver "github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/server/http"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/ulid"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/uuid"
	storeinflux "github.com/HuebitsTechLearn/Artificial-Internet-of-Things/store/influxdb"
	storemongo "github.com/HuebitsTechLearn/Artificial-Internet-of-Things/store/mongodb"
	storepg "github.com/HuebitsTechLearn/Artificial-Internet-of-Things/store/postgres"
	"github.com/caarlos0/env/v11"
	"github.com/go-redis/redis/v8"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

const (
	svcName           = "relay"
	envPrefixHTTP     = "AIOT_RELAY_HTTP_"
	envPrefixDB       = "AIOT_RELAY_DB_"
	envPrefixEmail    = "AIOT_RELAY_EMAIL_"
	envPrefixThrottle = "AIOT_RELAY_THROTTLE_"
	defDB             = "relay"
	defSvcHTTPPort    = "9900"
	telemetryWildcard = "+"
	subTelemetryID    = "relay-telemetry"
	subStatusID       = "relay-status"
)

type config struct {
	LogLevel         string        `env:"AIOT_RELAY_LOG_LEVEL"     envDefault:"info"`
	BrokerURL        string        `env:"AIOT_RELAY_BROKER_URL"    envDefault:"nats://localhost:4222"`
	Domain           string        `env:"AIOT_RELAY_DOMAIN"        envDefault:"relay"`
	PolicyFile       string        `env:"AIOT_RELAY_POLICY_FILE"   envDefault:"policies.json"`
	DedupWindow      int           `env:"AIOT_RELAY_DEDUP_WINDOW"  envDefault:"0"`
	AlertEmail       string        `env:"AIOT_RELAY_ALERT_EMAIL"   envDefault:""`
	RedisURL         string        `env:"AIOT_RELAY_REDIS_URL"     envDefault:""`
	PostgresOn       bool          `env:"AIOT_RELAY_POSTGRES_STORE" envDefault:"false"`
	InfluxURL        string        `env:"AIOT_RELAY_INFLUXDB_URL"   envDefault:""`
	InfluxToken      string        `env:"AIOT_RELAY_INFLUXDB_TOKEN" envDefault:""`
	InfluxOrg        string        `env:"AIOT_RELAY_INFLUXDB_ORG"   envDefault:"relay"`
	InfluxBucket     string        `env:"AIOT_RELAY_INFLUXDB_BUCKET" envDefault:"envelopes"`
	MongoURL         string        `env:"AIOT_RELAY_MONGODB_URL"    envDefault:""`
	MongoDB          string        `env:"AIOT_RELAY_MONGODB_DB"     envDefault:"relay"`
	InferenceURL     string        `env:"AIOT_RELAY_INFERENCE_URL"  envDefault:""`
	InferenceTimeout time.Duration `env:"AIOT_RELAY_INFERENCE_TIMEOUT" envDefault:"5s"`
	JaegerURL        url.URL       `env:"AIOT_RELAY_JAEGER_URL"     envDefault:"http://localhost:4318/v1/traces"`
	InstanceID       string        `env:"AIOT_RELAY_INSTANCE_ID"    envDefault:""`
	TraceRatio       float64       `env:"AIOT_RELAY_JAEGER_TRACE_RATIO" envDefault:"1.0"`
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	cfg := config{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load %s configuration : %s", svcName, err)
	}

	logger, err := relaylog.New(os.Stdout, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %s", err)
	}

	var exitCode int
	defer relaylog.ExitWithError(&exitCode)

	if cfg.InstanceID == "" {
		if cfg.InstanceID, err = uuid.New().ID(); err != nil {
			logger.Error(fmt.Sprintf("failed to generate instanceID: %s", err))
			exitCode = 1
			return
		}
	}

	policies, err := ingest.LoadPolicies(cfg.PolicyFile)
	if err != nil {
		logger.Error(err.Error())
		exitCode = 1
		return
	}

	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to init alert notifier: %s", err))
		exitCode = 1
		return
	}

	states, err := newStateRepository(ctx, cfg)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to init state repository: %s", err))
		exitCode = 1
		return
	}

	stores, cleanup, err := newEnvelopeStores(ctx, cfg)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to init envelope stores: %s", err))
		exitCode = 1
		return
	}
	defer cleanup()

	tp, err := jaegerclient.NewProvider(ctx, svcName, cfg.JaegerURL, cfg.InstanceID, cfg.TraceRatio)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to init Jaeger: %s", err))
		exitCode = 1
		return
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("error shutting down tracer provider: %s", err))
		}
	}()
	tracer := tp.Tracer(svcName)

	codec := messaging.NewCodec()

	pubsub, err := brokers.NewPubSub(cfg.BrokerURL, svcName, codec, logger)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to connect to message broker: %s", err))
		exitCode = 1
		return
	}
	defer pubsub.Close()

	dispatcher := dispatch.New(pubsub, notifier, cfg.Domain, logger)
	g.Go(func() error {
		dispatcher.StartSweeper(ctx, dispatch.NewSweepTicker())
		return nil
	})

	// Without an inference endpoint model-driven policies degrade to
	// their thresholds, so fail fast when the policy file requires one.
	var inferencer decision.Inferencer
	if cfg.InferenceURL != "" {
		inferencer = decision.NewHTTPInferencer(cfg.InferenceURL, cfg.InferenceTimeout)
	} else if requiresInference(policies) {
		logger.Error("policy file contains model strategies but AIOT_RELAY_INFERENCE_URL is not set")
		exitCode = 1
		return
	}
	engine := decision.New(inferencer, notifier, logger)

	// Command ids are ULIDs so the dispatch history sorts by issue time.
	idp := ulid.New()

	svc := ingest.New(states, stores, dispatcher, engine, policies, codec, idp, cfg.DedupWindow, logger)
	svc = middleware.LoggingMiddleware(svc, logger)
	counter, latency := prometheus.MakeMetrics(svcName, "ingest")
	svc = middleware.MetricsMiddleware(svc, counter, latency)
	svc = middleware.TracingMiddleware(svc, tracer)

	throttleCfg := ingest.ThrottlingConfig{}
	if err := env.ParseWithOptions(&throttleCfg, env.Options{Prefix: envPrefixThrottle}); err != nil {
		logger.Error(fmt.Sprintf("failed to load throttling configuration : %s", err))
		exitCode = 1
		return
	}
	handler := ingest.NewThrottledHandler(ingest.NewHandler(svc, logger), throttleCfg, logger)
	go handler.StartCleanupTask(ctx)

	subs := []messaging.SubscriberConfig{
		{
			ID:      subTelemetryID,
			Topic:   messaging.WildcardTopic(cfg.Domain, telemetryWildcard, messaging.TelemetryKind),
			Handler: handler,
		},
		{
			ID:      subStatusID,
			Topic:   messaging.WildcardTopic(cfg.Domain, telemetryWildcard, messaging.StatusKind),
			Handler: handler,
		},
	}
	for _, sub := range subs {
		if err := pubsub.Subscribe(ctx, sub); err != nil {
			logger.Error(fmt.Sprintf("failed to subscribe to %s: %s", sub.Topic, err))
			exitCode = 1
			return
		}
	}

	httpServerConfig := server.Config{Port: defSvcHTTPPort}
	if err := env.ParseWithOptions(&httpServerConfig, env.Options{Prefix: envPrefixHTTP}); err != nil {
		logger.Error(fmt.Sprintf("failed to load %s HTTP server configuration : %s", svcName, err))
		exitCode = 1
		return
	}

	mux := api.MakeHandler(svc, dispatcher, idp, logger, svcName, cfg.InstanceID)
	hs := httpserver.NewServer(ctx, cancel, svcName, httpServerConfig, mux, logger)

	g.Go(func() error {
		return hs.Start()
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, svcName, hs)
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("%s service terminated: %s", svcName, err))
	}
}

func requiresInference(policies ingest.StaticPolicies) bool {
	if policies.Default != nil && policies.Default.Kind == decision.ModelStrategy {
		return true
	}
	for _, p := range policies.PerDevice {
		if p.Kind == decision.ModelStrategy {
			return true
		}
	}
	return false
}

func newNotifier(cfg config, logger *slog.Logger) (alerting.Notifier, error) {
	if cfg.AlertEmail == "" {
		return alerting.NewLogNotifier(logger), nil
	}
	emailCfg := email.Config{}
	if err := env.ParseWithOptions(&emailCfg, env.Options{Prefix: envPrefixEmail}); err != nil {
		return nil, err
	}
	agent, err := email.New(&emailCfg)
	if err != nil {
		return nil, err
	}
	return smtp.New(agent, cfg.AlertEmail), nil
}

func newStateRepository(ctx context.Context, cfg config) (ingest.StateRepository, error) {
	if cfg.RedisURL == "" {
		return ingest.NewMemoryRepository(), nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return ingestredis.NewRepository(client), nil
}

// newEnvelopeStores builds the configured archive backends. The
// returned cleanup closes whatever was opened, also on partial failure.
func newEnvelopeStores(ctx context.Context, cfg config) ([]ingest.EnvelopeStore, func(), error) {
	var stores []ingest.EnvelopeStore
	var closers []func()
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}

	if cfg.PostgresOn {
		dbConfig := pgclient.Config{Name: defDB}
		if err := env.ParseWithOptions(&dbConfig, env.Options{Prefix: envPrefixDB}); err != nil {
			return nil, cleanup, err
		}
		db, err := pgclient.Setup(dbConfig, *storepg.Migration())
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, func() { db.Close() })
		stores = append(stores, storepg.New(db))
	}

	if cfg.InfluxURL != "" {
		client := influxdb2.NewClient(cfg.InfluxURL, cfg.InfluxToken)
		closers = append(closers, client.Close)
		stores = append(stores, storeinflux.New(client, storeinflux.RepoConfig{
			Bucket: cfg.InfluxBucket,
			Org:    cfg.InfluxOrg,
		}))
	}

	if cfg.MongoURL != "" {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURL))
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Printf("failed to disconnect from MongoDB: %s", err)
			}
		})
		stores = append(stores, storemongo.New(client.Database(cfg.MongoDB)))
	}

	return stores, cleanup, nil
}
