package public

import (
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sngm3741/hushmap-services/api/internal/noise/application"
)

// Handler wires public HTTP endpoints to application services.
type Handler struct {
	logger         *log.Logger
	reportQueries  application.ReportQueryService
	reportCommands application.ReportCommandService
	zoneQueries    application.ZoneQueryService
	zoneCommands   application.ZoneCommandService
	analytics      application.AnalyticsService
	publicBaseURL  string
}

// Config defines dependencies required by Handler.
type Config struct {
	Logger         *log.Logger
	ReportQueries  application.ReportQueryService
	ReportCommands application.ReportCommandService
	ZoneQueries    application.ZoneQueryService
	ZoneCommands   application.ZoneCommandService
	Analytics      application.AnalyticsService
	// PublicBaseURL is encoded into zone QR codes.
	PublicBaseURL string
}

// NewHandler constructs a public HTTP handler set.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		logger:         cfg.Logger,
		reportQueries:  cfg.ReportQueries,
		reportCommands: cfg.ReportCommands,
		zoneQueries:    cfg.ZoneQueries,
		zoneCommands:   cfg.ZoneCommands,
		analytics:      cfg.Analytics,
		publicBaseURL:  strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/"),
	}
}

// Register mounts all public routes onto the router. requireAuth rejects
// anonymous callers; optionalAuth attaches an identity when one is presented.
func (h *Handler) Register(r chi.Router, requireAuth, optionalAuth func(http.Handler) http.Handler) {
	r.Route("/reports", func(r chi.Router) {
		r.With(optionalAuth).Post("/", h.reportCreateHandler())
		r.Get("/", h.reportListHandler())
		r.Get("/nearby", h.reportNearbyHandler())
		r.Get("/{id}", h.reportDetailHandler())
		r.With(requireAuth).Delete("/{id}", h.reportDeleteHandler())
	})

	r.Route("/zones", func(r chi.Router) {
		r.Get("/", h.zoneListHandler())
		r.Get("/nearby", h.zoneNearbyHandler())
		r.Get("/{id}", h.zoneDetailHandler())
		r.Get("/{id}/ratings", h.zoneRatingsHandler())
		r.Get("/{id}/qr.png", h.zoneQRHandler())
		r.With(requireAuth).Post("/", h.zoneCreateHandler())
		r.With(requireAuth).Post("/{id}/rate", h.zoneRateHandler())
	})

	r.Route("/analytics", func(r chi.Router) {
		r.Get("/hourly", h.hourlyHandler())
		r.Get("/weekly", h.weeklyHandler())
		r.Get("/sources", h.sourcesHandler())
		r.Get("/hotspots", h.hotspotsHandler())
		r.Get("/city-stats", h.cityStatsHandler())
	})
}

// cityParam は ?city を小文字化して返す。未指定ならスコープなし。
func cityParam(r *http.Request) string {
	return strings.ToLower(strings.TrimSpace(r.URL.Query().Get("city")))
}
