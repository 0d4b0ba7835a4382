/**
 * @description
 * This is the main entry point for the campaign-service. It is responsible
 * for initializing all components of the service: configuration, logging,
 * the Classy API client with its cached token source, the aggregation
 * service, and the HTTP server. It wires everything together and starts the
 * service with graceful shutdown on SIGINT/SIGTERM.
 *
 * @dependencies
 * - net/http, os/signal, syscall, time: Standard Go libraries.
 * - internal/api, internal/app, internal/config, internal/logging: Internal
 *   packages for the service.
 * - pkg/classy: Client for the Classy fundraising API.
 */

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/givehub/campaign-service/internal/api"
	"github.com/givehub/campaign-service/internal/app"
	"github.com/givehub/campaign-service/internal/config"
	"github.com/givehub/campaign-service/internal/logging"
	"github.com/givehub/campaign-service/pkg/classy"
)

func main() {
	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		// No logger yet; stderr is all we have.
		os.Stderr.WriteString("config load failed: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.New(cfg.AppEnv, cfg.LogLevel)
	logger.Info().Str("port", cfg.ServerPort).Str("env", cfg.AppEnv).Msg("starting campaign-service")

	// Missing upstream credentials degrade requests rather than aborting
	// boot, so health checks and deploys still work while secrets are
	// being provisioned.
	if !cfg.HasClassyCredentials() {
		logger.Warn().Msg("CLASSY_CLIENT_ID or CLASSY_CLIENT_SECRET is not set; upstream requests will fail until configured")
	}

	txRules, err := cfg.TransactionRules()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid TRANSACTION_AMOUNT_FIELDS")
	}
	raisedRules, err := cfg.RaisedRules()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid PAGE_RAISED_FIELDS")
	}
	goalRules, err := cfg.GoalRules()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid GOAL_AMOUNT_FIELDS")
	}

	// Initialize the client for the Classy API.
	classyClient := classy.NewClient(classy.Options{
		BaseURL:      cfg.ClassyAPIBaseURL,
		TokenURL:     cfg.ClassyTokenURL,
		ClientID:     cfg.ClassyClientID,
		ClientSecret: cfg.ClassyClientSecret,
		ExpiryBuffer: cfg.TokenExpiryBuffer(),
		HTTPClient:   &http.Client{Timeout: cfg.UpstreamTimeout()},
		Logger:       logger.With().Str("component", "classy_client").Logger(),
	})

	// Initialize the core aggregation service with its dependencies.
	campaignService := app.NewService(classyClient, logger.With().Str("component", "aggregator").Logger(), app.Options{
		PerPage:             cfg.ClassyPerPage,
		MaxPages:            cfg.ClassyMaxPages,
		ActivityLimit:       cfg.ActivityFeedLimit,
		TopFundraisersLimit: cfg.TopFundraisersLimit,
		TransactionRules:    txRules,
		RaisedRules:         raisedRules,
		GoalRules:           goalRules,
	})

	// Initialize the API handlers and router.
	handlers := api.NewCampaignHandlers(campaignService, cfg.ClassyOrgID, logger.With().Str("component", "api").Logger())
	router := api.CampaignRoutes(handlers, logger.With().Str("component", "http").Logger(), api.RouterOptions{
		AllowedOrigins: cfg.AllowedOrigins(),
		RequestTimeout: cfg.RequestTimeout(),
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info().Msg("shutdown started")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown failed")
	}
	logger.Info().Msg("shutdown complete")
}
