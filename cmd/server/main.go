// @title           NastIA Studio Backend API
// @version         1.0.0
// @description     Credit-gated media generation backend: image/video generation with plan-aware watermarking, chat personas, coupon and referral bookkeeping, payment webhooks.

// @contact.name   API Support
// @contact.email  support@example.com

// @host      localhost:8080
// @BasePath  /

package main

import (
	"net/http"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "nastia-backend/docs"
	"nastia-backend/internal/config"
	"nastia-backend/internal/database"
	"nastia-backend/internal/gemini"
	"nastia-backend/internal/handlers"
	"nastia-backend/internal/ledger"
	"nastia-backend/internal/middleware"
	"nastia-backend/internal/referral"
	"nastia-backend/internal/supabase"
	"nastia-backend/internal/watermark"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Supabase clients: PostgREST for reads and the coupon RPC, storage for
	// artifacts, direct Postgres for atomic credit mutations.
	supabaseClient, err := supabase.NewClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize supabase client")
	}

	storageClient, err := supabase.NewStorageClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize storage client")
	}

	dbClient, err := supabase.NewDatabaseClient(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database client")
	}
	defer dbClient.Close()

	migrator, err := database.NewMigrator(cfg.DatabaseURL)
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize migrator")
	} else {
		defer migrator.Close()
		if err := migrator.Run(); err != nil {
			log.Warn().Err(err).Msg("migration failed")
		}
	}

	geminiClient := gemini.NewClient(cfg.GeminiAPIBaseURL, cfg.GeminiAPIKey, cfg.VideoPollInterval, cfg.VideoPollTimeout)
	processor := watermark.NewProcessor(cfg)
	creditLedger := ledger.New(dbClient)
	reconciler := referral.NewReconciler(supabaseClient, dbClient)

	generateHandler := handlers.NewGenerateHandler(creditLedger, geminiClient, processor, storageClient, dbClient)
	chatHandler := handlers.NewChatHandler(geminiClient)
	couponHandler := handlers.NewCouponHandler(supabaseClient)
	referralHandler := handlers.NewReferralHandler(reconciler)
	webhookHandler := handlers.NewWebhookHandler(cfg.StripeWebhookSecret, reconciler)

	router := gin.Default()
	router.Use(cors.Default())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/", handlers.StatusHandler)
	router.GET("/health", handlers.HealthHandler)

	// Webhook is authenticated by its signature, not by a user token.
	router.POST("/webhook", webhookHandler.HandleWebhook)

	api := router.Group("/")
	api.Use(middleware.OptionalAuth(cfg))
	api.POST("/generate-image", generateHandler.GenerateImage)
	api.POST("/generate-video", generateHandler.GenerateVideo)
	api.POST("/chat", chatHandler.Chat)
	api.POST("/redeem-coupon", couponHandler.Redeem)
	api.POST("/track-referral", referralHandler.Track)

	log.Info().Str("port", cfg.Port).Msg("server starting")
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}
