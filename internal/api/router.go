package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Apsteward8/my-bet-tracker/internal/api/handler"
	"github.com/Apsteward8/my-bet-tracker/internal/api/middleware"
	"github.com/Apsteward8/my-bet-tracker/internal/authority"
	"github.com/Apsteward8/my-bet-tracker/internal/config"
	"github.com/Apsteward8/my-bet-tracker/internal/service"
)

// RouterDeps bundles every dependency needed to build the router.
// Populated once in main() and passed to SetupRouter.
type RouterDeps struct {
	AuthSvc   *service.AuthService
	BetSvc    *service.BetService
	StatsSvc  *service.StatsService
	ImportSvc *service.ImportService
	Books     *authority.Table
	Metrics   http.Handler // nil serves the default Prometheus registry
	Loc       *time.Location
	Log       *zap.Logger
	Cfg       *config.Config
}

// SetupRouter creates and configures the main Gin engine with all routes,
// middleware, CORS, and rate limiting rules.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}
	loc := deps.Loc
	if loc == nil {
		loc = time.UTC
	}
	metricsH := deps.Metrics
	if metricsH == nil {
		metricsH = promhttp.Handler()
	}

	r := gin.New()
	r.Use(middleware.RequestLogger(deps.Log))
	r.Use(gin.Recovery())

	// ── CORS ─────────────────────────────────────────────────────────────────
	r.Use(corsMiddleware(deps.Cfg))

	// ── Health & metrics ─────────────────────────────────────────────────────
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metricsH))

	// ── Handlers ─────────────────────────────────────────────────────────────
	betH := handler.NewBetHandler(deps.BetSvc, loc)
	statsH := handler.NewStatsHandler(deps.StatsSvc, loc)
	verifyH := handler.NewVerificationHandler(deps.BetSvc)
	importH := handler.NewImportHandler(deps.ImportSvc)
	booksH := handler.NewSportsbookHandler(deps.Books)

	// ── JWT middleware (shared) ───────────────────────────────────────────────
	jwtMW := middleware.JWTMiddleware(deps.AuthSvc)
	operatorMW := middleware.OperatorMiddleware()

	// ── Rate limiters ─────────────────────────────────────────────────────────
	importRL := middleware.RateLimitMiddleware(6, 2) // uploads are heavy
	verifyRL := middleware.RateLimitMiddleware(120, 20)

	api := r.Group("/api")
	{
		// ── Read-only (public) ───────────────────────────────────────────────
		api.GET("/bets", betH.List)
		api.GET("/bets/:id", betH.GetByID)

		stats := api.Group("/stats")
		{
			stats.GET("", statsH.Summary)
			stats.GET("/ev", statsH.EV)
			stats.GET("/calendar", statsH.Calendar)
			stats.GET("/day", statsH.Day)
		}

		api.GET("/sportsbooks", booksH.List)
		api.GET("/imports", importH.List)

		// ── Operator routes ───────────────────────────────────────────────────
		authed := api.Group("")
		authed.Use(jwtMW, operatorMW)
		{
			authed.POST("/imports/:source", importRL, importH.Upload)

			verification := authed.Group("/verification")
			verification.Use(verifyRL)
			{
				verification.GET("/unverified", verifyH.Unverified)
				verification.GET("/stats", verifyH.Stats)
				verification.PUT("/bets/:id", verifyH.VerifyOne)
				verification.PUT("/bets", verifyH.VerifyMany)
			}
		}
	}

	return r
}

// ── CORS helper ───────────────────────────────────────────────────────────────

// corsMiddleware returns a gin middleware that sets appropriate CORS headers.
// Outside production all origins are allowed; in production only the
// configured dashboard origins.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	allowed := make(map[string]bool, len(cfg.Server.AllowedOrigins))
	for _, o := range cfg.Server.AllowedOrigins {
		allowed[o] = true
	}
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if !cfg.IsProd() {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" && allowed[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
