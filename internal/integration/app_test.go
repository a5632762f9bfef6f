package integration_test

import (
	"log/slog"
	"os"

	"github.com/Fedot0v/online-cinema-api/internal/app"
	"github.com/Fedot0v/online-cinema-api/internal/payment"
	"github.com/Fedot0v/online-cinema-api/internal/repository"
	appvalidator "github.com/Fedot0v/online-cinema-api/internal/validator"
	"github.com/alexedwards/scs/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type TestApp struct {
	App             *app.Application
	DB              *pgxpool.Pool
	RedisClient     *redis.Client
	SessionManager  *scs.SessionManager
	PaymentProvider *payment.MockPaymentProvider
}

func newTestApp(cfg app.Config) (*TestApp, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	validator := appvalidator.NewValidator()

	db, err := app.NewDatabasePool(cfg)
	if err != nil {
		return nil, err
	}

	redisClient, err := app.NewRedisClient(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	sessionManager := app.NewSessionManager(redisClient)

	movieRepo := repository.NewPostgresMovieRepository(db)
	cartRepo := repository.NewPostgresCartRepository(db)
	orderRepo := repository.NewPostgresOrderRepository(db)
	paymentRepo := repository.NewPostgresPaymentRepository(db)

	paymentProvider := payment.NewMockPaymentProvider()

	application := app.NewApp(
		cfg,
		logger,
		db,
		redisClient,
		validator,
		sessionManager,
		movieRepo,
		cartRepo,
		orderRepo,
		paymentRepo,
		paymentProvider,
	)

	return &TestApp{
		App:             application,
		DB:              db,
		RedisClient:     redisClient,
		SessionManager:  sessionManager,
		PaymentProvider: paymentProvider,
	}, nil
}
