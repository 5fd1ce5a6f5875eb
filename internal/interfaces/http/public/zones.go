package public

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sngm3741/hushmap-services/api/internal/interfaces/http/common"
	"github.com/sngm3741/hushmap-services/api/internal/noise/application"
	"github.com/sngm3741/hushmap-services/api/internal/noise/domain"
)

func (h *Handler) zoneListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		query := r.URL.Query()
		filter := application.ZoneFilter{City: cityParam(r)}
		if raw := strings.TrimSpace(query.Get("type")); raw != "" {
			zoneType, err := domain.NewZoneType(raw)
			if err != nil {
				common.WriteError(h.logger, w, "zone list", err)
				return
			}
			filter.Type = zoneType
		}
		limit, err := common.ParseOptionalInt("limit", query.Get("limit"))
		if err != nil {
			common.WriteError(h.logger, w, "zone list", err)
			return
		}
		if limit != nil && *limit < 1 {
			common.WriteError(h.logger, w, "zone list", domain.Invalid("limit", "must be between 1 and %d", application.MaxZoneLimit))
			return
		}
		filter.Limit = common.IntValue(limit, 0)

		zones, err := h.zoneQueries.List(ctx, filter)
		if err != nil {
			common.WriteError(h.logger, w, "zone list", err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, zoneListResponse{Zones: presentZones(zones)})
	}
}

func (h *Handler) zoneNearbyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		q, err := parseNearbyQuery(r)
		if err != nil {
			common.WriteError(h.logger, w, "zone nearby", err)
			return
		}
		found, radius, err := h.zoneQueries.Nearby(ctx, q)
		if err != nil {
			common.WriteError(h.logger, w, "zone nearby", err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, zoneNearbyResponse{
			Zones:    presentNearbyZones(found),
			RadiusKm: radius,
		})
	}
}

func (h *Handler) zoneDetailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		id := strings.TrimSpace(chi.URLParam(r, "id"))
		zone, err := h.zoneQueries.Detail(ctx, id)
		if err != nil {
			common.WriteError(h.logger, w, "zone detail id="+id, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, zoneDetailResponse{Zone: presentZone(*zone)})
	}
}

func (h *Handler) zoneRatingsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		id := strings.TrimSpace(chi.URLParam(r, "id"))
		ratings, err := h.zoneQueries.Ratings(ctx, id)
		if err != nil {
			common.WriteError(h.logger, w, "zone ratings id="+id, err)
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, ratingListResponse{Ratings: presentRatings(ratings)})
	}
}

func (h *Handler) zoneCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		var req zoneCreateRequest
		if err := common.DecodeJSON(r, &req); err != nil {
			common.WriteError(h.logger, w, "zone create", err)
			return
		}
		if err := checkLength("description", req.Description); err != nil {
			common.WriteError(h.logger, w, "zone create", err)
			return
		}

		zone, err := h.zoneCommands.Create(ctx, application.CreateZoneCommand{
			CreatorID:   common.CallerID(r.Context()),
			Name:        req.Name,
			Type:        req.Type,
			City:        req.City,
			Latitude:    req.Latitude,
			Longitude:   req.Longitude,
			AvgDecibels: req.AvgDecibels,
			Description: req.Description,
			Amenities:   req.Amenities,
			BestTime:    req.BestTime,
		})
		if err != nil {
			common.WriteError(h.logger, w, "zone create", err)
			return
		}

		common.WriteJSON(h.logger, w, http.StatusCreated, zoneCreateResponse{
			Message: "Quiet zone created successfully",
			Zone:    presentZone(*zone),
		})
	}
}

func (h *Handler) zoneRateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		id := strings.TrimSpace(chi.URLParam(r, "id"))
		var req zoneRateRequest
		if err := common.DecodeJSON(r, &req); err != nil {
			common.WriteError(h.logger, w, "zone rate", err)
			return
		}
		if req.Rating == nil {
			common.WriteError(h.logger, w, "zone rate", domain.Invalid("rating", "is required"))
			return
		}
		if err := checkLength("comment", req.Comment); err != nil {
			common.WriteError(h.logger, w, "zone rate", err)
			return
		}

		result, err := h.zoneCommands.Rate(ctx, application.RateZoneCommand{
			ZoneID:  id,
			UserID:  common.CallerID(r.Context()),
			Rating:  *req.Rating,
			Comment: req.Comment,
		})
		if err != nil {
			common.WriteError(h.logger, w, "zone rate id="+id, err)
			return
		}

		common.WriteJSON(h.logger, w, http.StatusOK, zoneRateResponse{
			Message:       "Rating submitted successfully",
			AverageRating: result.AverageRating,
		})
	}
}
