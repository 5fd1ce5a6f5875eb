package public

import (
	"context"
	"net/http"

	"github.com/sngm3741/hushmap-services/api/internal/interfaces/http/common"
	"github.com/sngm3741/hushmap-services/api/internal/noise/application"
)

func (h *Handler) hourlyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		buckets, err := h.analytics.HourlyPattern(ctx, application.AnalyticsFilter{City: cityParam(r)})
		if err != nil {
			common.WriteError(h.logger, w, "hourly analytics", err)
			return
		}
		items := make([]hourlyResponse, 0, len(buckets))
		for _, b := range buckets {
			items = append(items, hourlyResponse{Hour: b.Hour, AvgDecibels: b.AvgDecibels, ReportCount: b.ReportCount})
		}
		common.WriteJSON(h.logger, w, http.StatusOK, dataResponse[hourlyResponse]{Data: items})
	}
}

func (h *Handler) weeklyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		buckets, err := h.analytics.WeeklyPattern(ctx, application.AnalyticsFilter{City: cityParam(r)})
		if err != nil {
			common.WriteError(h.logger, w, "weekly analytics", err)
			return
		}
		items := make([]weeklyResponse, 0, len(buckets))
		for _, b := range buckets {
			items = append(items, weeklyResponse{Day: b.Day, AvgDecibels: b.AvgDecibels, ReportCount: b.ReportCount})
		}
		common.WriteJSON(h.logger, w, http.StatusOK, dataResponse[weeklyResponse]{Data: items})
	}
}

func (h *Handler) sourcesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		sources, err := h.analytics.SourceDistribution(ctx, application.AnalyticsFilter{City: cityParam(r)})
		if err != nil {
			common.WriteError(h.logger, w, "sources analytics", err)
			return
		}
		items := make([]sourceResponse, 0, len(sources))
		for _, s := range sources {
			items = append(items, sourceResponse{Name: s.Name, Value: s.Value})
		}
		common.WriteJSON(h.logger, w, http.StatusOK, dataResponse[sourceResponse]{Data: items})
	}
}

func (h *Handler) hotspotsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		hotspots, err := h.analytics.Hotspots(ctx, application.AnalyticsFilter{City: cityParam(r)})
		if err != nil {
			common.WriteError(h.logger, w, "hotspots analytics", err)
			return
		}
		items := make([]hotspotResponse, 0, len(hotspots))
		for _, s := range hotspots {
			items = append(items, hotspotResponse{
				Lat:           s.Latitude,
				Lng:           s.Longitude,
				AvgDecibels:   s.AvgDecibels,
				ReportCount:   s.ReportCount,
				NoiseCategory: s.Category.String(),
			})
		}
		common.WriteJSON(h.logger, w, http.StatusOK, hotspotListResponse{Hotspots: items})
	}
}

func (h *Handler) cityStatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		stats, err := h.analytics.CityStats(ctx, application.AnalyticsFilter{City: cityParam(r)})
		if err != nil {
			common.WriteError(h.logger, w, "city stats", err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, cityStatsEnvelope{Stats: cityStatsResponse{
			TotalReports:    stats.TotalReports,
			AvgCityNoise:    stats.AvgCityNoise,
			QuietZonesFound: stats.QuietZonesFound,
			QuietestTime:    stats.QuietestTime,
			WeeklyReports:   stats.WeeklyReports,
			WeeklyChange:    stats.WeeklyChange,
		}})
	}
}
