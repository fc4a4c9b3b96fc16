package api

import (
	"github.com/Conceptual-Machines/songsmith-api/internal/api/handlers"
	apimiddleware "github.com/Conceptual-Machines/songsmith-api/internal/api/middleware"
	"github.com/Conceptual-Machines/songsmith-api/internal/config"
	"github.com/Conceptual-Machines/songsmith-api/internal/credential"
	"github.com/Conceptual-Machines/songsmith-api/internal/studio"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies are the services the router exposes
type Dependencies struct {
	Config    *config.Config
	Version   string
	Backend   string
	Service   *studio.Service
	Generator *studio.Generator
	Verifier  *credential.Verifier
	Requests  apimiddleware.RequestRecorder
}

func SetupRouter(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	router := gin.New()

	// Recovery middleware (must be first)
	router.Use(apimiddleware.RecoverWithSentry())

	// Sentry middleware for error tracking
	router.Use(apimiddleware.SentryMiddleware())

	// Request tracking and structured logging
	router.Use(apimiddleware.RequestTracking(deps.Requests))
	router.Use(apimiddleware.Metrics())
	router.Use(apimiddleware.CORS())

	healthHandler := handlers.NewHealthHandler(deps.Verifier, deps.Backend)
	router.GET("/health", healthHandler.HealthCheck)

	metricsPath := cfg.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	router.GET(metricsPath, gin.WrapH(promhttp.Handler()))

	metricsHandler := handlers.NewMetricsHandler(deps.Version, deps.Backend, metricsPath)
	router.GET("/api/metrics", metricsHandler.GetMetrics)

	v1 := router.Group("/api/v1")
	v1.Use(apimiddleware.Auth(cfg.IsGatewayMode()), apimiddleware.Timeout(cfg.RequestTimeout))
	{
		v1.GET("/catalog", handlers.GetCatalog(deps.Service.Catalog()))

		credentialHandler := handlers.NewCredentialHandler(deps.Verifier)
		v1.GET("/credential", credentialHandler.GetState)
		verifyLimiter := apimiddleware.NewRateLimiter(cfg.VerifyRateLimit, cfg.VerifyRateBurst)
		v1.POST("/credential/verify", apimiddleware.RateLimit(verifyLimiter), credentialHandler.Verify)
		v1.DELETE("/credential", credentialHandler.Delete)

		projectHandler := handlers.NewProjectHandler(deps.Service)
		v1.GET("/projects", projectHandler.List)
		v1.POST("/projects", projectHandler.Create)
		v1.POST("/projects/import", projectHandler.Import)
		v1.GET("/projects/:id", projectHandler.Get)
		v1.PATCH("/projects/:id", projectHandler.Update)
		v1.DELETE("/projects/:id", projectHandler.Delete)
		v1.POST("/projects/:id/remix", projectHandler.Remix)
		v1.GET("/projects/:id/pending", projectHandler.Pending)
		v1.PUT("/projects/:id/variations", projectHandler.ReplaceVariations)
		v1.POST("/projects/:id/variations/:index/apply", projectHandler.ApplyVariation)
		v1.POST("/projects/:id/blocks", projectHandler.InsertBlock)
		v1.POST("/projects/:id/blocks/reorder", projectHandler.ReorderBlock)
		v1.POST("/projects/:id/blocks/move", projectHandler.MoveBlock)
		v1.PATCH("/projects/:id/blocks/:blockID", projectHandler.DescribeBlock)
		v1.DELETE("/projects/:id/blocks/:blockID", projectHandler.RemoveBlock)
		v1.POST("/projects/:id/template", projectHandler.ApplyTemplate)

		limiter := apimiddleware.NewRateLimiter(cfg.GenerationRateLimit, cfg.GenerationRateBurst)
		generationHandler := handlers.NewGenerationHandler(deps.Generator, cfg.MaxAudioBytes)
		generate := v1.Group("/projects/:id/generate")
		generate.Use(apimiddleware.RateLimit(limiter))
		{
			generate.POST("/theme-packs", generationHandler.ThemePacks)
			generate.POST("/titles", generationHandler.Titles)
			generate.POST("/references", generationHandler.References)
			generate.POST("/lyrics", generationHandler.Lyrics)
			generate.POST("/variations", generationHandler.Variations)
			generate.POST("/sound-prompt", generationHandler.SoundPrompt)
			generate.POST("/advice", generationHandler.CompositionAdvice)
			generate.POST("/tempo", generationHandler.Tempo)
			generate.POST("/cover-art", generationHandler.CoverArt)
		}

		settingsHandler := handlers.NewSettingsHandler(deps.Service)
		v1.GET("/presets/prompts", settingsHandler.GetSamplePrompts)
		v1.PUT("/presets/prompts", settingsHandler.PutSamplePrompts)
		v1.GET("/presets/instruments", settingsHandler.GetInstrumentPresets)
		v1.PUT("/presets/instruments", settingsHandler.PutInstrumentPresets)
		v1.GET("/settings/legibility", settingsHandler.GetLegibility)
		v1.PUT("/settings/legibility", settingsHandler.PutLegibility)
	}

	return router
}
