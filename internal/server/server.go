package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sngm3741/hushmap-services/api/internal/config"
	"github.com/sngm3741/hushmap-services/api/internal/infrastructure/mqtt"
	commonhttp "github.com/sngm3741/hushmap-services/api/internal/interfaces/http/common"
	publichttp "github.com/sngm3741/hushmap-services/api/internal/interfaces/http/public"
	"github.com/sngm3741/hushmap-services/api/internal/live"
	"github.com/sngm3741/hushmap-services/api/internal/noise/application"
	"github.com/sngm3741/hushmap-services/api/internal/noise/domain"
)

// Server は HTTP サーバーのライフサイクルを管理し、各ハンドラへ依存注入するコンポジションルート。
type Server struct {
	logger         *log.Logger
	backend        *Backend
	registry       *live.Registry
	publisher      *mqtt.Publisher
	auth           authenticator
	publicHandler  *publichttp.Handler
	liveHandler    *live.Handler
	addr           string
	allowedOrigins []string
}

// New は Config とバックエンドからアプリケーションサービスとハンドラを組み立てた Server を返す。
// publisher は nil でもよく、その場合 MQTT への転送は行わない。
func New(cfg config.Config, backend *Backend, publisher *mqtt.Publisher) *Server {
	logger := cfg.ServerLog
	registry := live.NewRegistry(logger)

	var sinks []live.Sink
	if publisher != nil {
		sinks = append(sinks, publisher)
	}
	presenter := func(r domain.NoiseReport) any { return publichttp.PresentReport(r) }
	broadcaster := live.NewBroadcaster(registry, presenter, logger, sinks...)

	publicHandler := publichttp.NewHandler(publichttp.Config{
		Logger:         logger,
		ReportQueries:  application.NewReportQueryService(backend.Reports),
		ReportCommands: application.NewReportCommandService(backend.Reports, broadcaster, cfg.DefaultCity, logger),
		ZoneQueries:    application.NewZoneQueryService(backend.Zones),
		ZoneCommands:   application.NewZoneCommandService(backend.Zones, cfg.DefaultCity),
		Analytics:      application.NewAnalyticsService(backend.Reports, backend.Zones, nil),
		PublicBaseURL:  cfg.PublicBaseURL,
	})

	liveHandler := live.NewHandler(live.HandlerConfig{
		Registry:       registry,
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins,
		SendBuffer:     cfg.WSSendBuffer,
	})

	return &Server{
		logger:         logger,
		backend:        backend,
		registry:       registry,
		publisher:      publisher,
		auth:           authenticator{jwt: cfg.JWT},
		publicHandler:  publicHandler,
		liveHandler:    liveHandler,
		addr:           cfg.Addr,
		allowedOrigins: append([]string(nil), cfg.AllowedOrigins...),
	}
}

// Router はミドルウェアとルーティングを組み立てる。
func (s *Server) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(withCORS(s.allowedOrigins))

	router.Get("/health", s.healthHandler())
	router.Handle("/ws", s.liveHandler)
	router.Route("/api", func(r chi.Router) {
		s.publicHandler.Register(r, s.auth.requireAuth, s.auth.optionalAuth)
	})
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		commonhttp.WriteJSON(s.logger, w, http.StatusNotFound, commonhttp.ErrorResponse{Error: "route not found"})
	})
	return router
}

// Run はHTTPサーバーを起動し、シグナル受信まで待機する。
func (s *Server) Run() error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Printf("HTTP サーバー起動: http://%s (store=%s, WebSocket: /ws)", s.addr, s.backend.Name)
		errChan <- httpServer.ListenAndServe()
	}()

	return waitForShutdown(httpServer, errChan, s)
}

// withCORS は許可されたオリジン情報をもとに CORS ヘッダーを付与するミドルウェアを返す。
func withCORS(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{})
	allowAll := false
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin == "*" {
			allowAll = true
			continue
		}
		allowed[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" || (!allowAll && !originAllowed(origin, allowed)) {
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusNoContent)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type")
			w.Header().Set("Access-Control-Max-Age", "300")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// originAllowed は指定された Origin が許可リストに含まれるか判定する。
func originAllowed(origin string, allowed map[string]struct{}) bool {
	if len(allowed) == 0 {
		return true
	}
	_, ok := allowed[origin]
	return ok
}

// healthHandler はストアへの疎通確認を行い、監視系からのヘルスチェック要求に応える。
func (s *Server) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.backend.Ping(ctx); err != nil {
			commonhttp.WriteJSON(s.logger, w, http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"error":  err.Error(),
			})
			return
		}

		commonhttp.WriteJSON(s.logger, w, http.StatusOK, map[string]any{
			"status":      "ok",
			"message":     "HushMap API is running",
			"store":       s.backend.Name,
			"liveClients": s.registry.Len(),
			"time":        time.Now().Format(time.RFC3339),
		})
	}
}

// shutdown は WebSocket 接続・MQTT・ストアを順に閉じる。
func (s *Server) shutdown() {
	s.registry.CloseAll()
	if s.publisher != nil {
		s.publisher.Disconnect()
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Printf("ストア切断時にエラー: %v", err)
	}
}

// waitForShutdown は ListenAndServe の終了と OS シグナルを監視し、graceful shutdown を実現する。
func waitForShutdown(httpServer *http.Server, errChan <-chan error, srv *Server) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var runErr error
	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	case sig := <-sigChan:
		srv.logger.Printf("シグナル %s を受信。サーバー停止処理を開始します。", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// ハイジャック済みの WebSocket は Shutdown の対象外なので先に閉じる。
		srv.registry.CloseAll()
		if err := httpServer.Shutdown(ctx); err != nil {
			srv.logger.Printf("サーバー停止時にエラー: %v", err)
		}
	}

	srv.shutdown()
	return runErr
}
