package api

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/sessionshare/session-share/internal/auth"
	"github.com/sessionshare/session-share/internal/catalog"
	catalogHttp "github.com/sessionshare/session-share/internal/catalog/http"
	"github.com/sessionshare/session-share/internal/organization"
	orgHttp "github.com/sessionshare/session-share/internal/organization/http"
	"github.com/sessionshare/session-share/internal/pkg/storage"
	"github.com/sessionshare/session-share/internal/user"
	userHttp "github.com/sessionshare/session-share/internal/user/http"
)

// Config holds the services and settings the router needs.
type Config struct {
	IsProduction bool
	ProdOrigins  string

	UserService    user.Service
	OrgService     organization.Service
	CatalogService catalog.ManagerService
	LogoStore      *storage.LogoStore
	JWTManager     *auth.JWTManager
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, Logger, Auth) and
// registering routes for various modules.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global Middleware:
	// - Logger: Logs request information to the console.
	// - Recovery: Captures panics to prevent server crashes and returns a 500 error.
	r.Use(gin.Logger(), gin.Recovery())

	// Configure CORS. Session cookies require credentialed requests, so
	// origins must be listed explicitly.
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = allowedOrigins(cfg)
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	// authMiddleware: Validates the session cookie or bearer token.
	authMiddleware := auth.AuthRequired(cfg.JWTManager)

	// Initialize HTTP Handlers for each module (injecting Service dependencies).
	userHandler := userHttp.NewUserHandler(cfg.UserService, cfg.OrgService, cfg.JWTManager, cfg.IsProduction)
	orgHandler := orgHttp.NewOrganizationHandler(cfg.OrgService, cfg.LogoStore)
	svcHandler := catalogHttp.NewServiceHandler(cfg.CatalogService)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		userHttp.RegisterRoutes(v1, userHandler, authMiddleware)
		orgHttp.RegisterRoutes(v1, orgHandler, authMiddleware)
		catalogHttp.RegisterRoutes(v1, svcHandler, authMiddleware)
	}

	return r
}

func allowedOrigins(cfg Config) []string {
	if cfg.IsProduction && cfg.ProdOrigins != "" {
		return splitOrigins(cfg.ProdOrigins)
	}
	return []string{
		"http://localhost:3000",
	}
}

func splitOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
