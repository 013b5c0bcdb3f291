package app

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sessionshare/session-share/internal/api"
	"github.com/sessionshare/session-share/internal/auth"
	"github.com/sessionshare/session-share/internal/catalog"
	"github.com/sessionshare/session-share/internal/organization"
	"github.com/sessionshare/session-share/internal/pkg/cookiecipher"
	"github.com/sessionshare/session-share/internal/pkg/mailer"
	"github.com/sessionshare/session-share/internal/pkg/storage"
	"github.com/sessionshare/session-share/internal/user"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	DBPool       *pgxpool.Pool
	JWTSecret    string
	JWTTTL       time.Duration
	BcryptCost   int

	AppBaseURL  string
	StoragePath string

	SendGridAPIKey string
	MailFromName   string
	MailFromAddr   string

	GoogleClientID string
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router     *gin.Engine
	JWTManager *auth.JWTManager
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) (*Container, error) {
	// Init Components
	passwordHasher := auth.NewBcryptPasswordHasherWithCost(cfg.BcryptCost)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)

	var mail mailer.Mailer = mailer.NoopMailer{}
	if cfg.SendGridAPIKey != "" {
		mail = mailer.NewSendGridMailer(cfg.SendGridAPIKey, cfg.MailFromName, cfg.MailFromAddr)
	}

	var googleVerifier auth.GoogleVerifier
	if cfg.GoogleClientID != "" {
		googleVerifier = auth.NewGoogleIDTokenVerifier(cfg.GoogleClientID)
	}

	localStorage, err := storage.NewLocalStorage(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}
	logoStore := storage.NewLogoStore(localStorage)

	// User Module
	userRepo := user.NewPgxRepository(cfg.DBPool)
	userService := user.NewService(userRepo, passwordHasher, googleVerifier, mail, cfg.AppBaseURL)

	// Organization Module
	orgRepo := organization.NewPgxRepository(cfg.DBPool)
	orgService := organization.NewService(orgRepo, userService, mail, cfg.AppBaseURL)

	// Catalog Module
	catalogRepo := catalog.NewPgxRepository(cfg.DBPool)
	catalogService := catalog.NewService(catalogRepo, orgService, cookiecipher.New())

	// Router
	router := api.NewRouter(api.Config{
		IsProduction:   cfg.IsProduction,
		ProdOrigins:    cfg.ProdOrigins,
		UserService:    userService,
		OrgService:     orgService,
		CatalogService: catalogService,
		LogoStore:      logoStore,
		JWTManager:     jwtManager,
	})

	return &Container{
		Router:     router,
		JWTManager: jwtManager,
	}, nil
}
