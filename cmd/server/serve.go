package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"
	"github.com/vedran77/parley/internal/config"
	"github.com/vedran77/parley/internal/events"
	"github.com/vedran77/parley/internal/presence"
	"github.com/vedran77/parley/internal/service"
	"github.com/vedran77/parley/internal/transport/http/handlers"
	"github.com/vedran77/parley/internal/transport/http/middleware"
	"github.com/vedran77/parley/internal/transport/ws"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func init() {
	serveCmd.Flags().StringP("port", "p", "8080", "HTTP listen port")
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

func serve(ctx context.Context, cfg *config.Config) error {
	// Database
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()
	if err := st.migrate(ctx); err != nil {
		return err
	}

	// Domain events
	var publisher events.Publisher = events.Nop{}
	if cfg.NatsURL != "" {
		np, err := events.NewNatsPublisher(cfg.NatsURL, cfg.NatsStream)
		if err != nil {
			return err
		}
		defer np.Close()
		publisher = np
	}

	// Presence
	hub := ws.NewHub(presence.NewRegistry(), st.users)
	notifier := ws.NewHubNotifier(hub)

	// Services
	authService := service.NewAuthService(st.users, cfg.JWTSecret, cfg.JWTTTL)
	userService := service.NewUserService(st.users, hub)

	sidebar := service.NewSidebarService(st.users, st.requests, st.convs, hub)
	sidebar.SetNotifier(notifier)

	gate := service.NewMessageGate(st.users, st.requests, st.convs, sidebar)
	gate.SetNotifier(notifier)
	gate.SetPublisher(publisher)

	blocks := service.NewBlockService(st.users)
	blocks.SetNotifier(notifier)
	blocks.SetPublisher(publisher)

	seen := service.NewSeenService(st.convs, sidebar)
	seen.SetNotifier(notifier)

	calls := service.NewCallService(st.users, hub)
	calls.SetNotifier(notifier)

	peers := service.NewPeerService(st.users, st.requests, st.convs, hub)

	router := ws.NewRouter(ws.Services{
		Gate:    gate,
		Blocks:  blocks,
		Sidebar: sidebar,
		Seen:    seen,
		Calls:   calls,
		Peers:   peers,
	}, cfg.WSEventTimeout)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	chatHandler := handlers.NewChatHandler(sidebar, gate)

	auth := middleware.Auth(authService)

	// Routes
	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)

	// Protected
	mux.Handle("GET /api/v1/users/me", auth(http.HandlerFunc(userHandler.Me)))
	mux.Handle("PATCH /api/v1/users/me", auth(http.HandlerFunc(userHandler.UpdateMe)))
	mux.Handle("GET /api/v1/users/search", auth(http.HandlerFunc(userHandler.Search)))
	mux.Handle("GET /api/v1/conversations", auth(http.HandlerFunc(chatHandler.ListConversations)))
	mux.Handle("GET /api/v1/requests", auth(http.HandlerFunc(chatHandler.ListRequests)))

	// WebSocket authenticates during the handshake
	mux.Handle("GET /ws", ws.ServeWS(hub, router, authService, ws.HandlerConfig{
		OriginPatterns: cfg.CORSOrigins,
		RateLimit:      cfg.WSRateLimit,
		SendBuffer:     cfg.WSSendBuffer,
	}))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           middleware.CORS(cfg.CORSOrigins)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		jww.INFO.Printf("Starting server on %s (store: %s)", srv.Addr, cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		jww.INFO.Println("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
