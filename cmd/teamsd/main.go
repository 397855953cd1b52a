package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/charleshuang3/teams/internal/config"
	"github.com/charleshuang3/teams/internal/gormw"
	"github.com/charleshuang3/teams/internal/handlers/account"
	"github.com/charleshuang3/teams/internal/handlers/api"
	"github.com/charleshuang3/teams/internal/handlers/firewall"
	"github.com/charleshuang3/teams/internal/handlers/middleware"
	"github.com/charleshuang3/teams/internal/identity"
	"github.com/charleshuang3/teams/internal/metrics"
	"github.com/charleshuang3/teams/internal/notify"
	"github.com/charleshuang3/teams/internal/storage"
	"github.com/charleshuang3/teams/internal/teams"
)

var (
	configPath = flag.String("c", os.Getenv("CONFIG_PATH"), "Path to configuration file")
)

func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr: addr,
		// Good practice to set timeouts to avoid Slowloris attacks.
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      handler,
	}
}

func serve(srv *http.Server) {
	log.Info().Msgf("start server at %q", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("Failed to start server")
	}
}

func main() {
	flag.Parse()
	if *configPath == "" {
		log.Fatal().Msg("Config path must be provided via CONFIG_PATH env var or -c flag")
	}

	// Load configuration
	cfg := config.LoadConfig(*configPath)
	ctx := context.Background()

	// cron schedule
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduler")
	}
	scheduler.Start()

	// Initialize database
	db, err := gormw.Open(&cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	if err := storage.RegisterRefreshTokensCleaner(scheduler, db); err != nil {
		log.Fatal().Err(err).Msg("Failed to register refresh tokens cleaner")
	}

	roles := teams.NewRoleStore(db)
	if _, err := roles.SeedRoles(ctx, cfg.Teams.Roles); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed roles")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Identity
	issuer, err := identity.NewIssuer(&cfg.Auth, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create token issuer")
	}
	verifiers := identity.Chain{issuer}
	if cfg.Auth.OIDC != nil {
		v, err := identity.NewOIDCVerifier(ctx, cfg.Auth.OIDC, db)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create OIDC verifier")
		}
		verifiers = append(verifiers, v)
	}
	auth := middleware.NewAuth(verifiers, cfg.Auth.Cookie.AccessName)

	// Invitation emails
	sender, closer, err := notify.New(&cfg.Notifier)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create notifier")
	}
	defer closer.Close()
	notifier := teams.NewInvitationNotifier(sender, cfg.Teams.InvitationBaseURL)

	teamsRegistry := teams.NewRegistry()
	service := teams.NewService(&cfg.Teams, db, roles, teamsRegistry)
	manager := teams.NewManager(db, roles, teamsRegistry, notifier, m)
	evaluator := teams.NewEvaluator(db, roles, m)

	// Set up Gin router
	gin.SetMode(cfg.GinMode)
	router := gin.Default()
	router.Use(m.Middleware())

	var banServer *http.Server
	if cfg.Firewall != nil {
		fw := firewall.New(cfg.Firewall)
		router.Use(fw.Middleware())

		banRouter := gin.Default()
		fw.RegisterHandlers(banRouter.Group("/"))
		banServer = newServer(fmt.Sprintf(":%d", cfg.BanHandlersPort), banRouter)
		go serve(banServer)
	}

	apiGroup := router.Group("/api")
	account.New(&cfg.Auth, db, issuer).RegisterHandlers(apiGroup)
	api.New(service, manager, evaluator, roles, auth).RegisterHandlers(apiGroup)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	// Start server
	srv := newServer(fmt.Sprintf(":%d", cfg.Port), router)

	// Run our server in a goroutine so that it doesn't block.
	go serve(srv)

	c := make(chan os.Signal, 1)
	// We'll accept graceful shutdowns when quit via SIGINT (Ctrl+C)
	// SIGKILL, SIGQUIT or SIGTERM (Ctrl+/) will not be caught.
	signal.Notify(c, os.Interrupt)

	// Block until we receive our signal.
	<-c

	// Create a deadline to wait for.
	wait := time.Second * 15
	shutdownCtx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	// Doesn't block if no connections, but will otherwise wait
	// until the timeout deadline.
	srv.Shutdown(shutdownCtx)
	if banServer != nil {
		banServer.Shutdown(shutdownCtx)
	}
	if err := scheduler.Shutdown(); err != nil {
		log.Error().Err(err).Msg("Failed to stop scheduler")
	}

	log.Info().Msg("shutting down")
}
