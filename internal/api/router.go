package api

import (
	"github.com/athlink/sponsorledger/internal/api/handler"
	"github.com/athlink/sponsorledger/internal/api/middleware"
	"github.com/athlink/sponsorledger/internal/api/spec"
	"github.com/athlink/sponsorledger/internal/config"
	"github.com/athlink/sponsorledger/internal/idempotency"
	"github.com/athlink/sponsorledger/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

type Router struct {
	cfg         *config.Config
	logger      *zap.Logger
	db          *pgxpool.Pool
	store       service.Store
	idemStore   *idempotency.Store
	redis       redis.Cmdable
	withdrawals *service.WithdrawalService
}

func NewRouter(cfg *config.Config, logger *zap.Logger, db *pgxpool.Pool, store service.Store, idemStore *idempotency.Store, redisClient redis.Cmdable, withdrawals *service.WithdrawalService) *Router {
	return &Router{
		cfg:         cfg,
		logger:      logger,
		db:          db,
		store:       store,
		idemStore:   idemStore,
		redis:       redisClient,
		withdrawals: withdrawals,
	}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))

	// Services
	auditSvc := service.NewAuditService(api.store)
	accountSvc := service.NewAccountService(api.store, auditSvc)
	transferSvc := service.NewTransferService(api.store, api.store)
	balanceSvc := service.NewBalanceService(api.store, api.store, api.store)
	querySvc := service.NewQueryService(api.store, balanceSvc, api.store)
	webhookSvc := service.NewWebhookService(transferSvc, api.cfg.WebhookHMACKey, api.cfg.WebhookSkipSignature)

	// Handlers
	authHandler := handler.NewAuthHandler(accountSvc, api.cfg.JWTIssuer, api.cfg.JWTAudience)
	accountHandler := handler.NewAccountHandler(accountSvc)
	transferHandler := handler.NewTransferHandler(transferSvc, querySvc)
	withdrawalHandler := handler.NewWithdrawalHandler(api.withdrawals)
	webhookHandler := handler.NewWebhookHandler(webhookSvc)
	adminHandler := handler.NewAdminHandler(querySvc)
	healthHandler := handler.NewHealthHandler(api.db, api.redis)

	// Public routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS))

		r.Post("/v1/auth/login", authHandler.Login)
		r.Post("/v1/accounts", accountHandler.CreateAccount)
		r.Post("/v1/webhooks/settlement", webhookHandler.HandleSettlementWebhook)
	})

	// Operational endpoints, unthrottled
	r.Get("/healthz/live", healthHandler.Live)
	r.Get("/healthz/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/v1/openapi.yaml", spec.OpenAPIHandler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/v1/openapi.yaml")))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))

		r.Get("/v1/athletes", accountHandler.ListAthletes)
		r.Post("/v1/accounts/{id}/payout-address", accountHandler.BindPayoutAddress)

		r.With(middleware.IdempotencyMiddleware(api.idemStore, api.logger)).
			Post("/v1/transfers", transferHandler.CreateTransfer)
		r.Get("/v1/transfers", transferHandler.ListTransfers)
		r.Get("/v1/athletes/{id}/balance", transferHandler.GetAthleteBalance)
		r.Get("/v1/sponsors/{id}/total-sent", transferHandler.GetSponsorTotalSent)

		r.With(middleware.IdempotencyMiddleware(api.idemStore, api.logger)).
			Post("/v1/withdrawals", withdrawalHandler.CreateWithdrawal)
		r.Get("/v1/withdrawals", withdrawalHandler.ListWithdrawals)

		r.Route("/v1/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole("admin"))
			r.Get("/totals", adminHandler.GetTotals)
		})
	})

	return r
}
