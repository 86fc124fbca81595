// README: Entry point; loads config, wires stores, fan-out and services, starts the HTTP server.
package main

import (
    "context"
    "log/slog"
    "os"
    "os/signal"
    "syscall"

    "github.com/redis/go-redis/v9"
    "github.com/shopspring/decimal"

    "feast/internal/config"
    httptransport "feast/internal/http"
    "feast/internal/infra"
    "feast/internal/modules/account"
    "feast/internal/modules/dispatch"
    "feast/internal/modules/events"
    "feast/internal/modules/ledger"
    "feast/internal/modules/order"
    "feast/internal/modules/payment"
    "feast/internal/modules/pricing"
    "feast/internal/modules/settlement"
)

func main() {
    logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
    if err := run(logger); err != nil {
        logger.Error("feast-api stopped", "error", err)
        os.Exit(1)
    }
}

func run(logger *slog.Logger) error {
    cfg, err := config.Load()
    if err != nil {
        return err
    }

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    var verifier infra.TokenVerifier
    if cfg.Auth.JWTSecret != "" {
        verifier = infra.NewJWTVerifier(cfg.Auth.JWTSecret)
    } else {
        verifier, err = infra.NewFirebaseVerifier(ctx, cfg.Auth.FirebaseProject, cfg.Auth.FirebaseCreds)
        if err != nil {
            return err
        }
    }

    var redisClient *redis.Client
    if cfg.Store.Backend == "postgres" || cfg.Broadcast.Backend == "redis" {
        redisClient = infra.NewRedis(cfg.Redis.Addr)
        defer redisClient.Close()
    }

    var (
        orderStore   order.Repository
        accountStore account.Repository
        ledgerStore  ledger.Repository
        feeStore     pricing.FeeStore
    )
    switch cfg.Store.Backend {
    case "postgres":
        db, err := infra.NewDB(ctx, cfg.Store.DSN)
        if err != nil {
            return err
        }
        defer db.Close()
        orderStore = order.NewStore(db)
        accountStore = account.NewStore(db)
        ledgerStore = ledger.NewStore(db)
        feeStore = pricing.NewStore(db, redisClient, cfg.Pricing.FeeCacheTTL)
    default:
        logger.Warn("using in-memory stores; data is lost on exit")
        orderStore = order.NewMemoryStore()
        accountStore = account.NewMemoryStore()
        ledgerStore = ledger.NewMemoryStore()
    }

    var broadcaster events.Broadcaster
    switch cfg.Broadcast.Backend {
    case "redis":
        broadcaster = events.NewRedisBroadcaster(redisClient, cfg.Broadcast.Channel)
    case "nats":
        conn, err := infra.NewNATS(cfg.Broadcast.NATSURL)
        if err != nil {
            return err
        }
        broadcaster = events.NewNATSBroadcaster(conn, cfg.Broadcast.Channel)
    }
    if broadcaster != nil {
        defer broadcaster.Close()
    }
    hub := events.NewHub(broadcaster, logger)
    go func() {
        if err := hub.Run(ctx); err != nil {
            logger.Error("fan-out listener stopped", "error", err)
        }
    }()

    var audit order.Auditor
    if len(cfg.Kafka.Brokers) > 0 {
        producer, err := infra.NewKafkaProducer(cfg.Kafka.Brokers)
        if err != nil {
            return err
        }
        kafkaAudit := events.NewKafkaAudit(producer, cfg.Kafka.Topic)
        defer kafkaAudit.Close()
        audit = kafkaAudit
    }

    pricingSvc := pricing.NewService(feeStore, decimal.NewFromFloat(cfg.Pricing.DefaultDeliveryFee))
    accountSvc := account.NewService(accountStore)
    ledgerSvc := ledger.NewService(ledgerStore)
    gateway := payment.NewSimulatedGateway(cfg.Payment.Latency)
    settlementSvc := settlement.NewService(pricingSvc, accountSvc, ledgerSvc, logger)
    orderSvc := order.NewService(order.Deps{
        Store:    orderStore,
        Pricing:  pricingSvc,
        Settler:  settlementSvc,
        Notifier: hub,
        Payer:    gateway,
        Ledger:   ledgerSvc,
        Audit:    audit,
        Logger:   logger,
        Options: order.Options{
            Permissive:          cfg.Orders.Permissive,
            EnforceSingleActive: cfg.Orders.EnforceSingleActive,
        },
    })
    dispatchSvc := dispatch.NewService(orderStore, dispatch.Options{StrictZone: cfg.Orders.StrictZone})

    server := httptransport.NewServer(cfg.HTTP.Addr, httptransport.RouterDeps{
        Order:    orderSvc,
        Dispatch: dispatchSvc,
        Pricing:  pricingSvc,
        Accounts: accountSvc,
        Ledger:   ledgerSvc,
        Wallets:  gateway,
        Hub:      hub,
        Verifier: verifier,
        Logger:   logger,
    })
    return server.Run(ctx)
}
