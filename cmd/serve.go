// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"github.com/canonical/session-service/internal/authorization"
	"github.com/canonical/session-service/internal/config"
	"github.com/canonical/session-service/internal/db"
	"github.com/canonical/session-service/internal/kratos"
	"github.com/canonical/session-service/internal/logging"
	"github.com/canonical/session-service/internal/monitoring/prometheus"
	"github.com/canonical/session-service/internal/openfga"
	"github.com/canonical/session-service/internal/storage"
	"github.com/canonical/session-service/internal/tracing"
	"github.com/canonical/session-service/internal/types"
	"github.com/canonical/session-service/pkg/authentication"
	"github.com/canonical/session-service/pkg/session"
	"github.com/canonical/session-service/pkg/web"
	"github.com/canonical/session-service/pkg/webhooks"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve starts the web server",
	Long:  `Launch the web application, list of environment variables is available in the readme`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := serve(); err != nil {
			fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve() error {
	specs := new(config.EnvSpec)
	if err := envconfig.Process("", specs); err != nil {
		panic(fmt.Errorf("issues with environment sourcing: %s", err))
	}

	logger := logging.NewLogger(specs.LogLevel)
	logger.Debugf("env vars: %v", specs)
	defer logger.Sync()

	monitor := prometheus.NewMonitor("session-service", logger)
	tracer := tracing.NewTracer(tracing.NewConfig(specs.TracingEnabled, specs.OtelGRPCEndpoint, specs.OtelHTTPEndpoint, logger))

	dbConfig := db.Config{
		DSN:             specs.DSN,
		MaxConns:        specs.DBMaxConns,
		MinConns:        specs.DBMinConns,
		MaxConnLifetime: specs.DBMaxConnLifetime,
		MaxConnIdleTime: specs.DBMaxConnIdleTime,
		TracingEnabled:  specs.TracingEnabled,
	}
	dbClient, err := db.NewDBClient(dbConfig, tracer, monitor, logger)
	if err != nil {
		return fmt.Errorf("failed to create database client: %v", err)
	}
	defer dbClient.Close()
	s := storage.NewStorage(dbClient, tracer, monitor, logger)

	var authorizer *authorization.Authorizer
	if specs.AuthorizationEnabled {
		ofga := openfga.NewClient(
			openfga.NewConfig(
				specs.OpenfgaApiScheme,
				specs.OpenfgaApiHost,
				specs.OpenfgaStoreId,
				specs.OpenfgaApiToken,
				specs.OpenfgaModelId,
				specs.Debug,
				tracer,
				monitor,
				logger,
			),
		)
		authorizer = authorization.NewAuthorizer(
			ofga,
			tracer,
			monitor,
			logger,
		)
		logger.Info("Authorization is enabled")
		if authorizer.ValidateModel(context.Background()) != nil {
			panic("Invalid authorization model provided")
		}
	} else {
		authorizer = authorization.NewAuthorizer(
			openfga.NewNoopClient(tracer, monitor, logger),
			tracer,
			monitor,
			logger,
		)
		logger.Info("Using noop authorizer")
	}

	kratosClient := kratos.NewClient(
		specs.KratosPublicURL,
		tracer,
		monitor,
		logger,
	)
	defer kratosClient.Close()

	resolver := session.NewResolver(s, authorizer, tracer, monitor, logger)
	controller := session.NewController(kratosClient, resolver, tracer, monitor, logger)
	kratosClient.Subscribe(func(ev types.LifecycleEvent) {
		controller.HandleLifecycleEvent(context.Background(), ev)
	})
	if err := controller.Initialize(context.Background()); err != nil {
		logger.Warnf("no session restored at startup: %v", err)
	}

	var verifier authentication.TokenVerifierInterface
	if specs.JWTAuthenticationEnabled {
		verifier, err = authentication.NewJWTAuthenticator(
			context.Background(),
			specs.JWTIssuer,
			specs.JWTJWKSUrl,
			specs.JWTAllowedSubjects,
			specs.JWTRequiredScope,
			tracer,
			monitor,
			logger,
		)
		if err != nil {
			return fmt.Errorf("failed to set up JWT authentication: %v", err)
		}
	} else {
		verifier = authentication.NewNoopVerifier()
		logger.Info("JWT authentication is disabled")
	}
	authnMiddleware := authentication.NewMiddleware(verifier, tracer, monitor, logger)

	webhooksService := webhooks.NewService(s, authorizer, specs.SelfServiceOrgs, tracer, monitor, logger)
	webhooksAPI := webhooks.NewAPI(webhooksService, logger)

	sessionAPI := web.NewAPI(
		controller,
		s,
		specs.LoginRateLimit,
		specs.LoginRateBurst,
		tracer,
		monitor,
		logger,
	)

	router := web.NewRouter(
		sessionAPI,
		webhooksAPI,
		authnMiddleware,
		dbClient,
		tracer,
		monitor,
		logger,
	)
	logger.Infof("Starting HTTP server on port %v", specs.Port)

	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%v", specs.Port),
		WriteTimeout: time.Second * 60,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      router,
	}

	var serverError error
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Security().SystemStartup()
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverError = fmt.Errorf("server error: %w", err)
			c <- os.Interrupt
		}
	}()

	<-c

	// Create a deadline to wait for.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Security().SystemShutdown()
	if err := srv.Shutdown(ctx); err != nil {
		serverError = fmt.Errorf("server shutdown error: %w", err)
	}

	return serverError
}
