package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/mellosd/storefront/internal/bdkeeper"
	"github.com/mellosd/storefront/internal/catalog"
	"github.com/mellosd/storefront/internal/checkout"
	"github.com/mellosd/storefront/internal/config"
	"github.com/mellosd/storefront/internal/controllers"
	"github.com/mellosd/storefront/internal/filekeeper"
	"github.com/mellosd/storefront/internal/kvstore"
	"github.com/mellosd/storefront/internal/logger"
	"github.com/mellosd/storefront/internal/middleware"
	"go.uber.org/zap"
)

type Server struct {
	srv *http.Server
	ctx context.Context
	Log *logger.Logger

	keeper catalog.Keeper
	redis  *kvstore.RedisKV
}

// NewServer creates a new Server instance with the provided context
func NewServer(ctx context.Context) *Server {
	server := new(Server)
	server.ctx = ctx
	return server
}

// Serve wires the storefront together and runs the HTTP server until the
// root context is cancelled.
func (server *Server) Serve() {
	// create and initialize a new option instance
	option := config.NewOptions()
	option.ParseFlags()

	// get a new logger
	nLogger, err := logger.NewLogger(option.LogLevel())
	if err != nil {
		log.Fatalln(err)
	}
	server.Log = nLogger

	// catalog: the JSON file is the source of truth; with a database
	// configured the file is synced into postgres and served from there
	fileKeeper := filekeeper.NewFileKeeper(option.CatalogFile, nLogger)
	var keeper catalog.Keeper = fileKeeper
	if option.DataBaseDSN() != "" {
		if db := bdkeeper.NewBDKeeper(option.DataBaseDSN, nLogger); db != nil {
			if products, loadErr := fileKeeper.LoadProducts(server.ctx); loadErr == nil {
				if saveErr := db.SaveProducts(server.ctx, products); saveErr != nil {
					nLogger.Error("cannot sync catalog to database", zap.Error(saveErr))
				}
			}
			keeper = db
		}
	}
	server.keeper = keeper
	storage := catalog.NewStorage(server.ctx, keeper, nLogger)

	// cart state: redis in production, a local file or memory otherwise
	var kv kvstore.KV
	switch {
	case option.RedisAddr() != "":
		rkv := kvstore.NewRedisKV(option.RedisAddr())
		server.redis = rkv
		kv = rkv
	case option.CartStatePath() != "":
		kv = kvstore.NewFileKV(option.CartStatePath())
	default:
		nLogger.Warn("no cart persistence configured, carts will not survive a restart")
		kv = kvstore.NewMemoryKV()
	}

	checkoutService := checkout.NewService(
		option.StripeSecretKey,
		checkout.NewStripeCreator(option.StripeSecretKey),
		nLogger,
	)

	basecontr := controllers.NewBaseController(server.ctx, storage, checkoutService, kv, nLogger)

	// create router and mount routes
	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(nLogger))
	r.Use(middleware.Session)
	r.Mount("/", basecontr.Route())

	// configure and start the server
	server.srv = startServer(r, option.RunAddr())
	nLogger.Info("server started", zap.String("addr", option.RunAddr()))

	// Block execution until the root context is cancelled
	<-server.ctx.Done()
}

func startServer(router chi.Router, address string) *http.Server {
	srv := &http.Server{
		Addr:              address,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	return srv
}

// Shutdown performs graceful server shutdown and closes external connections.
func (server *Server) Shutdown(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if server.srv != nil {
		if err := server.srv.Shutdown(ctx); err != nil {
			server.Log.Error("server shutdown error", zap.Error(err))
		}
	}
	if server.keeper != nil {
		server.keeper.Close()
	}
	if server.redis != nil {
		if err := server.redis.Close(); err != nil {
			server.Log.Error("redis close error", zap.Error(err))
		}
	}

	server.Log.Info("server stopped")
}
