package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stacklok/nc-bridge/internal/adminweb"
	"github.com/stacklok/nc-bridge/internal/authmode"
	"github.com/stacklok/nc-bridge/internal/config"
	"github.com/stacklok/nc-bridge/internal/cryptobox"
	networking "github.com/stacklok/nc-bridge/internal/httpclient"
	"github.com/stacklok/nc-bridge/internal/health"
	logger "github.com/stacklok/nc-bridge/internal/logging"
	"github.com/stacklok/nc-bridge/internal/mcpserver"
	"github.com/stacklok/nc-bridge/internal/observability"
	"github.com/stacklok/nc-bridge/internal/oauthflow"
	"github.com/stacklok/nc-bridge/internal/oidcclient"
	"github.com/stacklok/nc-bridge/internal/pipeline"
	"github.com/stacklok/nc-bridge/internal/scopes"
	"github.com/stacklok/nc-bridge/internal/server"
	"github.com/stacklok/nc-bridge/internal/storage"
	"github.com/stacklok/nc-bridge/internal/tokenverifier"
	"github.com/stacklok/nc-bridge/internal/upstreamclient"
	"github.com/stacklok/nc-bridge/pkg/auth/token"
	"github.com/stacklok/nc-bridge/pkg/auth/tokenexchange"
)

const (
	defaultGracefulTimeout = 30 * time.Second
	serverReadTimeout      = 10 * time.Second
	serverWriteTimeout     = 70 * time.Second // above requestTimeout, so middleware.Timeout wins first
	serverIdleTimeout      = 60 * time.Second

	appPasswordRateLimit  = 5
	appPasswordRateWindow = time.Hour
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the bridge's HTTP server",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(*configPath)
		},
	}
}

func runServe(configPath string) error {
	ctx := context.Background()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	box, err := cryptobox.NewBox(cfg.TokenEncryptionKey)
	if err != nil {
		return fmt.Errorf("initializing encryption box: %w", err)
	}

	store, err := storage.Open(cfg.TokenStorageDB, box)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Warnw("error closing storage", "error", cerr)
		}
	}()

	mode := authmode.Resolve(cfg)
	logger.Infow("resolved auth mode", "mode", mode)

	baseClient, err := networking.NewHttpClientBuilder().Build()
	if err != nil {
		return fmt.Errorf("building upstream HTTP client: %w", err)
	}

	deps, err := wireAuth(ctx, cfg, store, box, mode, baseClient)
	if err != nil {
		return err
	}

	obsProvider, err := observability.New(ctx, observability.Config{
		ServiceName:   cfg.OTelServiceName,
		MetricsPort:   cfg.MetricsPort,
		OTLPEndpoint:  cfg.OTelExporterEndpoint,
		TracesSampler: cfg.OTelSamplerArg,
	})
	if err != nil {
		return fmt.Errorf("initializing observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := obsProvider.Shutdown(shutdownCtx); serr != nil {
			logger.Warnw("error shutting down observability", "error", serr)
		}
	}()

	checkers := []health.Checker{
		health.NewUpstreamChecker(baseClient, cfg.NextcloudHost),
		health.NewAuthConfiguredChecker(string(mode), deps.authConfigured),
	}

	var webhookHandler *pipeline.WebhookHandler
	if cfg.VectorSyncEnabled {
		pl, err := wirePipeline(cfg, baseClient)
		if err != nil {
			logger.Warnw("vector sync enabled but the indexing pipeline could not be started", "error", err)
		} else {
			pl.Start(ctx)
			defer pl.Shutdown()
			webhookHandler = pipeline.NewWebhookHandler(store, pl)
		}
		checkers = append(checkers, health.NewEmbeddedVectorChecker())
	}

	healthHandler := health.NewHandler(string(mode), obsProvider, checkers...)

	scopesRegistry := scopes.NewRegistry(defaultToolScopes())
	catalogue := mcpserver.New(scopesRegistry, nil)

	adminWeb := adminweb.New(adminweb.Config{
		Store:            store,
		BasicMode:        mode == authmode.SingleUserBasic,
		BasicUsername:    cfg.NextcloudUsername,
		NextcloudHost:    cfg.NextcloudHost,
		LoginRedirectURL: cfg.MCPServerURL + "/app/",
	})

	router := server.New(&server.Deps{
		Mode:            mode,
		BasicUsername:   cfg.NextcloudUsername,
		BasicPassword:   cfg.NextcloudPassword,
		Store:           store,
		Observability:   obsProvider,
		Health:          healthHandler,
		Orchestrator:    deps.orchestrator,
		RateLimiter:     deps.rateLimiter,
		Verifier:        deps.verifier,
		UpstreamBuilder: deps.upstreamBuilder,
		Scopes:          scopesRegistry,
		Catalogue:       catalogue,
		AdminWeb:        adminWeb,
		WebhookHandler:  webhookHandler,
		MCPServerURL:    cfg.MCPServerURL,
		NextcloudHost:   cfg.NextcloudHost,
	})

	return runHTTPServer(cfg.ListenAddress, router)
}

// authDeps bundles the auth-mode-dependent components resolved once at
// startup, so runServe's happy path reads as a flat sequence of steps.
type authDeps struct {
	orchestrator    *oauthflow.Orchestrator
	rateLimiter     *oauthflow.RateLimiter
	verifier        *tokenverifier.Verifier
	upstreamBuilder *upstreamclient.Builder
	authConfigured  bool
}

func wireAuth(ctx context.Context, cfg *config.Config, store *storage.Store, box *cryptobox.Box, mode authmode.Mode, baseClient *http.Client) (*authDeps, error) {
	if mode == authmode.SingleUserBasic {
		return &authDeps{
			upstreamBuilder: upstreamclient.NewBuilder(baseClient, nil),
			authConfigured:  true,
		}, nil
	}

	resolver := oidcclient.NewResolver(cfg, store, box)
	resolved, err := resolver.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving OIDC client: %w", err)
	}

	orchestrator := oauthflow.NewOrchestrator(
		resolved, store,
		cfg.MCPServerURL+"/oauth/callback", cfg.MCPServerURL+"/oauth/login-callback",
		cfg.MCPServerURL, cfg.NextcloudResourceURI,
		cfg.AllowedMCPClients, baseClient,
	)

	var rateLimiter *oauthflow.RateLimiter
	if mode == authmode.MultiUserBasic {
		rateLimiter = oauthflow.NewRateLimiter(appPasswordRateLimit, appPasswordRateWindow)
		return &authDeps{
			orchestrator:    orchestrator,
			rateLimiter:     rateLimiter,
			upstreamBuilder: upstreamclient.NewBuilder(baseClient, nil),
			authConfigured:  true,
		}, nil
	}

	// OAuthResourceServer: build a token verifier and, if configured, a
	// token-exchange-capable upstream builder.
	jwksURI := cfg.OIDCJWKSURI
	if jwksURI == "" && resolved.Discovery != nil {
		jwksURI = resolved.Discovery.JWKSURI
	}
	issuer := cfg.PublicIssuerURL
	if issuer == "" && resolved.Discovery != nil {
		issuer = resolved.Discovery.Issuer
	}
	validatorCfg := token.NewValidatorConfig(issuer, cfg.NextcloudResourceURI, jwksURI, resolved.ClientID, resolved.ClientSecret)
	if validatorCfg == nil {
		return nil, errors.New("no usable token validator configuration resolved")
	}
	validator, err := token.NewValidator(ctx, *validatorCfg)
	if err != nil {
		return nil, fmt.Errorf("building token validator: %w", err)
	}
	verifier := tokenverifier.New(validator, resolved.ClientID, cfg.MCPServerURL)

	var exchangeCfg *tokenexchange.ExchangeConfig
	if cfg.EnableTokenExchange && resolved.Discovery != nil {
		exchangeCfg = &tokenexchange.ExchangeConfig{
			TokenURL:     resolved.Discovery.TokenEndpoint,
			ClientID:     resolved.ClientID,
			ClientSecret: resolved.ClientSecret,
			Audience:     cfg.NextcloudResourceURI,
		}
	}

	return &authDeps{
		orchestrator:    orchestrator,
		verifier:        verifier,
		upstreamBuilder: upstreamclient.NewBuilder(baseClient, exchangeCfg),
		authConfigured:  true,
	}, nil
}

// indexingTag is the Nextcloud system tag the scanner filters by. Not
// currently exposed as its own configuration key; revisit if deployments
// need a non-default tag name.
const indexingTag = "mcp-index"

// wirePipeline builds the background indexing pipeline's scanner and
// content-fetcher against the configured indexing user's Basic
// credentials. The document-processor, embedding, and vector-store
// collaborators have no configuration surface in this bridge (they're
// external systems with no client library in reach here), so they're
// wired as Unconfigured* stand-ins that fail closed with a logged
// PipelineError until a deployment substitutes real ones.
func wirePipeline(cfg *config.Config, baseClient *http.Client) (*pipeline.Pipeline, error) {
	if cfg.NextcloudUsername == "" {
		return nil, errors.New("vector sync requires nextcloud_username to select the indexing user")
	}
	if cfg.NextcloudPassword == "" {
		return nil, errors.New("vector sync requires nextcloud_password to authenticate the indexing user")
	}

	indexClient := &http.Client{
		Transport: &basicAuthRoundTripper{
			base:     baseClient.Transport,
			username: cfg.NextcloudUsername,
			password: cfg.NextcloudPassword,
		},
		Timeout: baseClient.Timeout,
	}

	scanner := &pipeline.WebDAVScanner{
		Client:        indexClient,
		NextcloudHost: cfg.NextcloudHost,
		Tag:           indexingTag,
	}
	fetcher := &pipeline.WebDAVFetcher{Client: indexClient, NextcloudHost: cfg.NextcloudHost}

	pl := pipeline.New(
		pipeline.Config{
			QueueMaxSize:     cfg.VectorSyncQueueMaxSize,
			ProcessorWorkers: cfg.VectorSyncProcessorWorkers,
			UserID:           cfg.NextcloudUsername,
		},
		scanner, fetcher,
		pipeline.UnconfiguredProcessor{}, pipeline.UnconfiguredEmbedder{}, pipeline.UnconfiguredVectorStore{},
		pipeline.NewMemoryIndexState(),
	)
	return pl, nil
}

// basicAuthRoundTripper attaches a fixed Basic-auth pair to every
// request; the indexing pipeline always acts as one configured user,
// never per-request auth like internal/upstreamclient.
type basicAuthRoundTripper struct {
	base               http.RoundTripper
	username, password string
}

func (t *basicAuthRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.username, t.password)
	return t.base.RoundTrip(req)
}

// defaultToolScopes declares the scope each mcpserver tool requires,
// feeding both tools/list filtering and the Protected Resource
// Metadata's scopes_supported advertisement.
func defaultToolScopes() map[string][]string {
	return map[string][]string{
		"list_directory":  {"files:read"},
		"read_file":       {"files:read"},
		"write_file":      {"files:write"},
		"delete_file":     {"files:write"},
		"list_notes":      {"notes:read"},
		"get_note":        {"notes:read"},
		"create_note":     {"notes:write"},
		"semantic_search": {"search:read"},
	}
}

func runHTTPServer(address string, handler http.Handler) error {
	srv := &http.Server{
		Addr:         address,
		Handler:      handler,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	go func() {
		logger.Infow("listening", "address", address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}
