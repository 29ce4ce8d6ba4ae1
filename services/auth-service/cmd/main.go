package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/config"
	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/handler"
	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/notifier"
	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/repository/memory"
	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/repository/postgres"
	redisrepo "github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/repository/redis"
	"github.com/vasapolrittideah/car-rental-api/services/auth-service/internal/usecase"
	"github.com/vasapolrittideah/car-rental-api/shared/auth"
	"github.com/vasapolrittideah/car-rental-api/shared/logger"
	"github.com/vasapolrittideah/car-rental-api/shared/mailer"
	"github.com/vasapolrittideah/car-rental-api/shared/registry"
	"github.com/vasapolrittideah/car-rental-api/shared/utilities"
	"github.com/vasapolrittideah/car-rental-api/shared/validator"
)

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 15 * time.Second
	mailConcurrency = 4
)

// stores is the set of repositories selected by STORE_DRIVER.
type stores struct {
	users           repository.UserRepository
	refreshTokens   repository.RefreshTokenRepository
	loginAttempts   repository.LoginAttemptRepository
	singleUseTokens repository.SingleUseTokenRepository
	pinger          handler.Pinger
	close           func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "json", "auth-service").Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format, cfg.ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startupCtx, cancelStartup := context.WithTimeout(ctx, startupTimeout)
	s := openStores(startupCtx, cfg, log)
	defer s.close()

	if cfg.RateLimit.Store == config.RateLimitStoreRedis {
		client, err := redisrepo.NewClient(startupCtx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer client.Close()

		s.loginAttempts = redisrepo.NewLoginAttemptRepository(client)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("login attempts stored in redis")
	}
	cancelStartup()

	mailCfg, err := mailer.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load mailer config")
	}
	sender, err := mailer.NewSender(mailCfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create mailer")
	}
	dispatcher := mailer.NewDispatcher(sender, log, mailConcurrency)

	v, err := validator.New()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create validator")
	}

	emailNotifier := notifier.NewEmailNotifier(
		dispatcher,
		cfg.AppPasswordResetURL,
		cfg.AppEmailVerificationURL,
		log,
	)

	background := usecase.NewBackgroundTasks()

	jwtAuth := auth.NewJWTAuthenticator(cfg.Token.Audience, cfg.Token.Issuer)
	tokenIssuer := usecase.NewTokenIssuer(s.refreshTokens, s.users, jwtAuth, cfg.Token, nil)
	rateLimiter := usecase.NewRateLimiter(s.loginAttempts, cfg.RateLimit, nil)

	router := handler.NewRouter(handler.RouterConfig{
		AuthUsecase: usecase.NewAuthUsecase(
			s.users, s.singleUseTokens, tokenIssuer, rateLimiter, emailNotifier, cfg, nil,
		),
		PasswordResetUsecase: usecase.NewPasswordResetUsecase(
			s.users, s.singleUseTokens, tokenIssuer, emailNotifier, background, cfg, nil,
		),
		EmailVerificationUsecase: usecase.NewEmailVerificationUsecase(
			s.users, s.singleUseTokens, emailNotifier, cfg, nil,
		),
		TokenVerifier:            tokenIssuer,
		Validator:                v,
		Logger:                   log,
		Pinger:                   s.pinger,
		RequestTimeout:           cfg.Server.RequestTimeout,
		ClientRateLimitPerMinute: cfg.RateLimit.ClientRateLimitPerMinute,
		AllowedOrigins:           cfg.Server.AllowedOrigins,
		TrustProxyHeaders:        cfg.Server.TrustProxyHeaders,
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return log.WithContext(context.Background()) },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", cfg.Server.HTTPAddr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.Server.GRPCHealthAddr != "" {
		grpcServer, _ := utilities.NewHealthGRPCServer(cfg.ServiceName)
		lis, err := net.Listen("tcp", cfg.Server.GRPCHealthAddr)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Server.GRPCHealthAddr).Msg("failed to listen for grpc health")
		}

		g.Go(func() error {
			log.Info().Str("addr", cfg.Server.GRPCHealthAddr).Msg("grpc health server listening")
			return grpcServer.Serve(lis)
		})
		g.Go(func() error {
			<-gctx.Done()
			grpcServer.GracefulStop()
			return nil
		})
	}

	if cfg.Consul.Addr != "" {
		deregister := registerWithConsul(cfg, log)
		defer deregister()
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http server forced to shut down")
		}
		if err := background.Wait(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("background tasks still running")
		}
		if err := dispatcher.Close(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("pending emails dropped")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		return
	}

	log.Info().Msg("server exited")
}

func openStores(ctx context.Context, cfg *config.AuthServiceConfig, log *zerolog.Logger) *stores {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.Store.PostgresURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		if err := postgres.Migrate(pool); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
		log.Info().Msg("using postgres store")

		return &stores{
			users:           postgres.NewUserRepository(pool),
			refreshTokens:   postgres.NewRefreshTokenRepository(pool),
			loginAttempts:   postgres.NewLoginAttemptRepository(pool),
			singleUseTokens: postgres.NewSingleUseTokenRepository(pool),
			pinger:          pool,
			close:           pool.Close,
		}

	case config.StoreDriverMemory:
		log.Warn().Msg("using in-memory store, data is lost on restart")
		store := memory.NewStore()

		return &stores{
			users:           store.Users,
			refreshTokens:   store.RefreshTokens,
			loginAttempts:   store.LoginAttempts,
			singleUseTokens: store.SingleUseTokens,
			close:           func() {},
		}

	default:
		client, err := repository.NewMongoClient(ctx, cfg.Store.MongoURI)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to mongo")
		}
		db := client.Database(cfg.Store.MongoDatabase)
		log.Info().Str("database", cfg.Store.MongoDatabase).Msg("using mongo store")

		return &stores{
			users:           repository.NewUserMongoRepository(ctx, log, db),
			refreshTokens:   repository.NewRefreshTokenMongoRepository(ctx, log, db),
			loginAttempts:   repository.NewLoginAttemptMongoRepository(ctx, log, db),
			singleUseTokens: repository.NewSingleUseTokenMongoRepository(ctx, log, db),
			pinger:          repository.MongoPinger{Client: client},
			close: func() {
				disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := client.Disconnect(disconnectCtx); err != nil {
					log.Error().Err(err).Msg("failed to disconnect mongo")
				}
			},
		}
	}
}

// registerWithConsul announces the HTTP listener and returns the matching deregistration.
func registerWithConsul(cfg *config.AuthServiceConfig, log *zerolog.Logger) func() {
	consulRegistry, err := registry.NewConsulRegistry(cfg.Consul.Addr, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create consul registry")
	}

	reg, err := registry.NewRegistration(cfg.ServiceName, cfg.Server.HTTPAddr, cfg.Consul.AdvertiseHost)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build consul registration")
	}

	if err := consulRegistry.Register(reg); err != nil {
		// Discovery is optional; keep serving direct traffic.
		log.Error().Err(err).Msg("failed to register with consul")
		return func() {}
	}

	return func() {
		if err := consulRegistry.Deregister(reg.ID); err != nil {
			log.Error().Err(err).Msg("failed to deregister from consul")
		}
	}
}
