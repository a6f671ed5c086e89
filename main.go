package main

import (
	"context"
	"crypto/rsa"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/dev-299792/oauth2/internal/config"
	"github.com/dev-299792/oauth2/internal/handlers"
	"github.com/dev-299792/oauth2/internal/metrics"
	"github.com/dev-299792/oauth2/internal/middleware"
	"github.com/dev-299792/oauth2/internal/services"
	"github.com/dev-299792/oauth2/internal/store"
	"github.com/dev-299792/oauth2/internal/token"
	"github.com/dev-299792/oauth2/internal/version"

	"github.com/appleboy/graceful"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showVersion {
		version.PrintVersion()
		os.Exit(0)
	}

	// Load configuration
	cfg := config.Load()

	// Initialize store
	db, err := store.New(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize metrics
	recorder := metrics.Init(cfg.MetricsEnabled)
	if cfg.MetricsEnabled {
		log.Println("Prometheus metrics initialized")
	} else {
		log.Println("Metrics disabled (using noop implementation)")
	}

	// Load or generate the signing key
	var key *rsa.PrivateKey
	if cfg.PrivateKeyPath != "" {
		key, err = token.LoadPrivateKey(cfg.PrivateKeyPath)
		if err != nil {
			log.Fatalf("Failed to load private key: %v", err)
		}
		log.Printf("Loaded signing key from %s", cfg.PrivateKeyPath)
	} else {
		key, err = token.GenerateEphemeralKey()
		if err != nil {
			log.Fatalf("Failed to generate signing key: %v", err)
		}
		log.Println("Generated ephemeral signing key (set PRIVATE_KEY_PATH for production)")
	}
	signer := token.NewSigner(key, cfg.BaseURL)

	// Initialize services
	authorizationService := services.NewAuthorizationService(db, cfg, recorder)
	tokenService := services.NewTokenService(db, cfg, signer, recorder)
	consentService := services.NewConsentService(db, recorder)
	clientService := services.NewClientService(db)

	// Initialize handlers
	tokenHandler := handlers.NewTokenHandler(tokenService, clientService, cfg)
	authorizationHandler := handlers.NewAuthorizationHandler(authorizationService, consentService, cfg)
	userInfoHandler := handlers.NewUserInfoHandler(db)
	consentHandler := handlers.NewConsentHandler(consentService, db)
	clientHandler := handlers.NewClientHandler(clientService)
	jwksHandler := handlers.NewJWKSHandler(signer, cfg.JWKSCacheMaxAge)

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Fatalf("Invalid trusted proxy list: %v", err)
	}

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		if err := db.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Prometheus metrics endpoint
	if cfg.MetricsEnabled {
		log.Printf("Prometheus metrics enabled at /metrics")
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// Rate limiting on the credential-issuing endpoints
	var rateLimit gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if cfg.RateLimitEnabled {
		rateLimit, err = middleware.NewRateLimiter(cfg.RateLimitRate)
		if err != nil {
			log.Fatalf("Failed to initialize rate limiter: %v", err)
		}
		log.Printf("Rate limiting enabled: %s", cfg.RateLimitRate)
	}

	// OAuth endpoints
	r.GET("/.well-known/jwks.json", jwksHandler.JWKS)
	r.POST("/oauth2/token", rateLimit, tokenHandler.Token)
	r.GET("/oauth2/authorize", rateLimit, authorizationHandler.Authorize)
	r.POST("/oauth2/authorize/consent", rateLimit, authorizationHandler.Consent)

	// Client registration and self-service deactivation
	r.POST("/clients", clientHandler.Register)
	r.DELETE("/clients/:client_id", clientHandler.Deregister)

	// Bearer-protected resource endpoints
	bearer := middleware.BearerAuth(tokenService)
	r.GET("/userinfo", bearer, userInfoHandler.UserInfo)
	r.GET("/consents", bearer, consentHandler.List)
	r.DELETE("/consents/:client_id", bearer, consentHandler.Revoke)

	log.Printf("OAuth authorization server starting on %s", cfg.ServerAddr)
	log.Printf("Issuer: %s", cfg.BaseURL)

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	m := graceful.NewManager()

	m.AddRunningJob(func(ctx context.Context) error {
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()
		<-ctx.Done()
		return nil
	})

	// Sweep expired authorization codes and long-dead token rows
	m.AddRunningJob(func(ctx context.Context) error {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := db.DeleteExpiredAuthorizationCodes(); err != nil {
					log.Printf("Failed to sweep expired authorization codes: %v", err)
				}
				cutoff := time.Now().Add(-cfg.RefreshTokenExpiration)
				if err := db.DeleteDeadTokens(cutoff); err != nil {
					log.Printf("Failed to sweep dead tokens: %v", err)
				}
			case <-ctx.Done():
				return nil
			}
		}
	})

	m.AddShutdownJob(func() error {
		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
			return err
		}

		log.Println("Server exited")
		return nil
	})

	<-m.Done()
}
