package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/holocron-api/holocron/internal/authkit"
	"github.com/holocron-api/holocron/internal/characters"
	"github.com/holocron-api/holocron/internal/keyphrase"
	"github.com/holocron-api/holocron/internal/platform/redisclient"
	"github.com/holocron-api/holocron/internal/storage"
	"github.com/holocron-api/holocron/internal/tasks"
	"github.com/holocron-api/holocron/internal/web"
)

var serveHTTP = func(server *http.Server) error {
	return server.ListenAndServe()
}

var buildGoogleTokenValidator = func(ctx context.Context) (authkit.GoogleTokenValidator, error) {
	return authkit.NewGoogleTokenValidator(ctx)
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "holocron",
		Short:   "Star Wars character catalog with local accounts, Google and Microsoft sign-in, and JWT sessions",
		PreRunE: prepareServerConfig,
		RunE:    runServer,
	}

	rootCmd.Flags().String("listen_addr", ":8080", "HTTP listen address")
	rootCmd.Flags().String("jwt_signing_key", "", "HS256 signing secret for session tokens")
	rootCmd.Flags().Duration("session_ttl", authkit.DefaultSessionTTL, "Session token TTL")
	rootCmd.Flags().String("database_url", "", "Database URL (postgres:// or sqlite://)")
	rootCmd.Flags().String("redis_url", "", "Redis URL for the document store, list cache, and task state")
	rootCmd.Flags().String("character_store", "sql", "Character storage backend: sql or document")
	rootCmd.Flags().String("google_client_id", "", "Google OAuth client ID")
	rootCmd.Flags().String("google_client_secret", "", "Google OAuth client secret")
	rootCmd.Flags().String("google_redirect_uri", "", "Google OAuth redirect URI")
	rootCmd.Flags().String("microsoft_client_id", "", "Microsoft OAuth client ID")
	rootCmd.Flags().String("microsoft_client_secret", "", "Microsoft OAuth client secret")
	rootCmd.Flags().String("microsoft_redirect_uri", "", "Microsoft OAuth redirect URI")
	rootCmd.Flags().String("microsoft_tenant", "common", "Microsoft tenant segment of the authorize and token URLs")
	rootCmd.Flags().String("azure_language_endpoint", "", "Azure Language resource endpoint for key phrase extraction")
	rootCmd.Flags().String("azure_language_key", "", "Azure Language resource key")
	rootCmd.Flags().Duration("task_interval", 15*time.Minute, "Interval between periodic task rounds")
	rootCmd.Flags().Bool("enable_cors", false, "Enable CORS for cross-origin clients")
	rootCmd.Flags().StringSlice("cors_allowed_origins", []string{}, "Allowed origins when CORS is enabled")

	for _, flagName := range []string{
		"listen_addr", "jwt_signing_key", "session_ttl", "database_url", "redis_url",
		"character_store", "google_client_id", "google_client_secret", "google_redirect_uri",
		"microsoft_client_id", "microsoft_client_secret", "microsoft_redirect_uri",
		"microsoft_tenant", "azure_language_endpoint", "azure_language_key",
		"task_interval", "enable_cors", "cors_allowed_origins",
	} {
		_ = viper.BindPFlag(flagName, rootCmd.Flags().Lookup(flagName))
	}

	viper.SetEnvPrefix("APP")
	viper.AutomaticEnv()

	return rootCmd
}

const (
	sessionIssuer = "holocron"

	googleAuthorizeURL = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL     = "https://oauth2.googleapis.com/token"
	googleProfileURL   = "https://oauth2.googleapis.com/tokeninfo"
	googleScope        = "openid email profile"

	microsoftAuthorizeURLTemplate = "https://login.microsoftonline.com/%s/oauth2/v2.0/authorize"
	microsoftTokenURLTemplate     = "https://login.microsoftonline.com/%s/oauth2/v2.0/token"
	microsoftProfileURL           = "https://graph.microsoft.com/v1.0/me"
	microsoftScope                = "openid email profile User.Read"

	characterStoreSQL      = "sql"
	characterStoreDocument = "document"

	configCodeMissingJWTSigningKey    = "config.missing_jwt_signing_key"
	configCodeInvalidSessionTTL       = "config.invalid_session_ttl"
	configCodeMissingDatabaseURL      = "config.missing_database_url"
	configCodeInvalidCharacterStore   = "config.invalid_character_store"
	configCodeMissingRedisURL         = "config.missing_redis_url"
	configCodePartialProviderConfig   = "config.partial_provider_config"
	configCodePartialAzureConfig      = "config.partial_azure_language_config"
	configCodeInvalidTaskInterval     = "config.invalid_task_interval"
	configCodeUninitializedServerConf = "config.uninitialized_server_config"
	configCodeGoogleValidatorInit     = "config.google_validator_init"
)

type contextKey string

const serverConfigContextKey contextKey = "serverConfig"

// ServerConfig is the validated runtime configuration.
type ServerConfig struct {
	ListenAddr         string
	JWTSigningKey      []byte
	SessionTTL         time.Duration
	DatabaseURL        string
	RedisURL           string
	CharacterStore     string
	Google             authkit.ProviderSettings
	Microsoft          authkit.ProviderSettings
	GoogleConfigured   bool
	AzureEndpoint      string
	AzureKey           string
	TaskInterval       time.Duration
	EnableCORS         bool
	CORSAllowedOrigins []string
}

func prepareServerConfig(command *cobra.Command, arguments []string) error {
	serverConfig, loadErr := LoadServerConfig()
	if loadErr != nil {
		return loadErr
	}
	existingContext := command.Context()
	if existingContext == nil {
		existingContext = context.Background()
	}
	command.SetContext(context.WithValue(existingContext, serverConfigContextKey, serverConfig))
	return nil
}

func configError(code, message string) error {
	return fmt.Errorf("%s: %s", code, message)
}

// LoadServerConfig reads and validates the viper-bound configuration.
// Providers are optional but must be configured completely or not at all, so
// a half-configured integration fails at startup instead of on first login.
func LoadServerConfig() (ServerConfig, error) {
	jwtSigningKey := viper.GetString("jwt_signing_key")
	if jwtSigningKey == "" {
		return ServerConfig{}, configError(configCodeMissingJWTSigningKey, "jwt_signing_key must be provided")
	}

	sessionTTL := viper.GetDuration("session_ttl")
	if sessionTTL <= 0 {
		return ServerConfig{}, configError(configCodeInvalidSessionTTL, "session_ttl must be greater than zero")
	}

	databaseURL := viper.GetString("database_url")
	if databaseURL == "" {
		return ServerConfig{}, configError(configCodeMissingDatabaseURL, "database_url must be provided")
	}

	characterStore := strings.ToLower(viper.GetString("character_store"))
	if characterStore != characterStoreSQL && characterStore != characterStoreDocument {
		return ServerConfig{}, configError(configCodeInvalidCharacterStore, "character_store must be sql or document")
	}

	redisURL := viper.GetString("redis_url")
	if characterStore == characterStoreDocument && redisURL == "" {
		return ServerConfig{}, configError(configCodeMissingRedisURL, "redis_url must be provided when character_store is document")
	}

	googleSettings, googleConfigured, googleErr := providerSettings("google",
		viper.GetString("google_client_id"),
		viper.GetString("google_client_secret"),
		viper.GetString("google_redirect_uri"),
		googleAuthorizeURL, googleTokenURL, googleProfileURL, googleScope)
	if googleErr != nil {
		return ServerConfig{}, googleErr
	}

	tenant := viper.GetString("microsoft_tenant")
	microsoftSettings, _, microsoftErr := providerSettings("microsoft",
		viper.GetString("microsoft_client_id"),
		viper.GetString("microsoft_client_secret"),
		viper.GetString("microsoft_redirect_uri"),
		fmt.Sprintf(microsoftAuthorizeURLTemplate, tenant),
		fmt.Sprintf(microsoftTokenURLTemplate, tenant),
		microsoftProfileURL, microsoftScope)
	if microsoftErr != nil {
		return ServerConfig{}, microsoftErr
	}

	azureEndpoint := viper.GetString("azure_language_endpoint")
	azureKey := viper.GetString("azure_language_key")
	if (azureEndpoint == "") != (azureKey == "") {
		return ServerConfig{}, configError(configCodePartialAzureConfig, "azure_language_endpoint and azure_language_key must be provided together")
	}

	taskInterval := viper.GetDuration("task_interval")
	if taskInterval <= 0 {
		return ServerConfig{}, configError(configCodeInvalidTaskInterval, "task_interval must be greater than zero")
	}

	return ServerConfig{
		ListenAddr:         viper.GetString("listen_addr"),
		JWTSigningKey:      []byte(jwtSigningKey),
		SessionTTL:         sessionTTL,
		DatabaseURL:        databaseURL,
		RedisURL:           redisURL,
		CharacterStore:     characterStore,
		Google:             googleSettings,
		Microsoft:          microsoftSettings,
		GoogleConfigured:   googleConfigured,
		AzureEndpoint:      azureEndpoint,
		AzureKey:           azureKey,
		TaskInterval:       taskInterval,
		EnableCORS:         viper.GetBool("enable_cors"),
		CORSAllowedOrigins: viper.GetStringSlice("cors_allowed_origins"),
	}, nil
}

func providerSettings(name, clientID, clientSecret, redirectURI, authorizeURL, tokenURL, profileURL, scope string) (authkit.ProviderSettings, bool, error) {
	if clientID == "" && clientSecret == "" && redirectURI == "" {
		return authkit.ProviderSettings{}, false, nil
	}
	if clientID == "" || clientSecret == "" || redirectURI == "" {
		return authkit.ProviderSettings{}, false, configError(configCodePartialProviderConfig,
			name+" client id, client secret, and redirect uri must be provided together")
	}
	return authkit.ProviderSettings{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURI:  redirectURI,
		Scope:        scope,
		AuthorizeURL: authorizeURL,
		TokenURL:     tokenURL,
		ProfileURL:   profileURL,
	}, true, nil
}

func runServer(command *cobra.Command, arguments []string) error {
	logger, loggerErr := zap.NewProduction()
	if loggerErr != nil {
		return loggerErr
	}
	defer func() { _ = logger.Sync() }()

	commandContext := command.Context()
	var contextValue any
	if commandContext != nil {
		contextValue = commandContext.Value(serverConfigContextKey)
	}
	serverConfig, ok := contextValue.(ServerConfig)
	if !ok {
		return configError(configCodeUninitializedServerConf, "server configuration not prepared; PreRunE must execute before RunE")
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	database, driverName, openErr := storage.Open(serverConfig.DatabaseURL)
	if openErr != nil {
		return openErr
	}
	logger.Info("database connected", zap.String("driver", driverName))

	userRepository, repoErr := storage.NewUserRepository(database)
	if repoErr != nil {
		return repoErr
	}

	var redisClient *redis.Client
	if serverConfig.RedisURL != "" {
		client, redisErr := redisclient.Connect(runCtx, serverConfig.RedisURL, logger)
		if redisErr != nil {
			return redisErr
		}
		redisClient = client
		defer func() { _ = redisClient.Close() }()
	}

	clock := authkit.NewSystemClock()
	tokenIssuer := authkit.NewTokenIssuer(serverConfig.JWTSigningKey, sessionIssuer, serverConfig.SessionTTL, clock)
	passwords := authkit.NewPasswordCredentialStore()
	metricsRegistry := prometheus.NewRegistry()
	metrics := authkit.NewPrometheusMetrics(metricsRegistry)
	reconciler := authkit.NewAccountReconciler(userRepository, tokenIssuer, passwords, logger, metrics)
	gate := authkit.NewAuthorizationGate(tokenIssuer, userRepository)
	providers := authkit.NewIdentityProviderClient(serverConfig.Google, serverConfig.Microsoft, nil, logger)

	var googleValidator authkit.GoogleTokenValidator
	if serverConfig.GoogleConfigured {
		validator, validatorErr := buildGoogleTokenValidator(runCtx)
		if validatorErr != nil {
			return fmt.Errorf("%s: %w", configCodeGoogleValidatorInit, validatorErr)
		}
		googleValidator = validator
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(zapLoggerMiddleware(logger))

	if serverConfig.EnableCORS {
		corsMiddleware, corsErr := web.ConfigureCORS(logger, serverConfig.CORSAllowedOrigins)
		if corsErr != nil {
			return corsErr
		}
		router.Use(corsMiddleware)
	}

	authService := authkit.NewAuthService(authkit.AuthServiceDeps{
		Providers:       providers,
		Reconciler:      reconciler,
		Gate:            gate,
		TokenIssuer:     tokenIssuer,
		Passwords:       passwords,
		Users:           userRepository,
		GoogleValidator: googleValidator,
		GoogleClientID:  serverConfig.Google.ClientID,
		Logger:          logger,
		Metrics:         metrics,
	})
	authService.MountRoutes(router)

	characterService, characterErr := buildCharacterService(serverConfig, database, redisClient, logger)
	if characterErr != nil {
		return characterErr
	}
	characters.MountRoutes(router, characterService, gate)

	if serverConfig.AzureEndpoint != "" {
		keyphraseClient, clientErr := keyphrase.NewClient(keyphrase.ClientConfig{
			Endpoint: serverConfig.AzureEndpoint,
			APIKey:   serverConfig.AzureKey,
		}, nil)
		if clientErr != nil {
			return clientErr
		}
		keyphraseService, serviceErr := keyphrase.NewService(keyphraseClient, database, logger)
		if serviceErr != nil {
			return serviceErr
		}
		keyphrase.MountRoutes(router, keyphraseService, gate)
	}

	if redisClient != nil {
		taskState := tasks.NewStateStore(redisClient)
		runner, runnerErr := tasks.NewRunner(tasks.RunnerDeps{
			State:   taskState,
			Weather: tasks.NewWeatherClient("", nil),
			Locations: []tasks.Location{
				{Name: "london", Latitude: 51.5072, Longitude: -0.1276},
				{Name: "tataouine", Latitude: 32.9297, Longitude: 10.4518},
			},
			Interval: serverConfig.TaskInterval,
			Logger:   logger,
		})
		if runnerErr != nil {
			return runnerErr
		}
		go runner.Run(runCtx)
		tasks.MountRoutes(router, taskState, gate)
	}

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{})))
	router.GET("/healthz", func(contextGin *gin.Context) {
		if redisClient != nil {
			if pingErr := redisclient.Ping(contextGin.Request.Context(), redisClient); pingErr != nil {
				contextGin.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": pingErr.Error()})
				return
			}
		}
		contextGin.JSON(http.StatusOK, gin.H{"status": "ok", "driver": driverName})
	})

	server := &http.Server{
		Addr:              serverConfig.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		stopSignals := make(chan os.Signal, 1)
		signal.Notify(stopSignals, syscall.SIGINT, syscall.SIGTERM)
		<-stopSignals
		runCancel()
		graceCtx, graceCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer graceCancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logger.Error("server shutdown error", zap.Error(err))
		}
	}()

	logger.Info("listening", zap.String("addr", serverConfig.ListenAddr))
	if err := serveHTTP(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen error: %w", err)
	}
	return nil
}

func buildCharacterService(serverConfig ServerConfig, database *gorm.DB, redisClient *redis.Client, logger *zap.Logger) (*characters.Service, error) {
	if serverConfig.CharacterStore == characterStoreDocument {
		documentStore := characters.NewDocumentStore(redisClient)
		return characters.NewService(documentStore, documentStore, logger), nil
	}

	sqlStore, storeErr := characters.NewSQLStore(database)
	if storeErr != nil {
		return nil, storeErr
	}
	var store characters.Store = sqlStore
	if redisClient != nil {
		store = characters.NewCachedStore(sqlStore, redisClient, 5*time.Minute, logger)
	}
	return characters.NewService(store, sqlStore, logger), nil
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		startTime := time.Now()
		contextGin.Next()
		duration := time.Since(startTime)
		logger.Info("http",
			zap.String("method", contextGin.Request.Method),
			zap.String("path", contextGin.Request.URL.Path),
			zap.Int("status", contextGin.Writer.Status()),
			zap.String("ip", contextGin.ClientIP()),
			zap.Duration("elapsed", duration),
		)
	}
}
