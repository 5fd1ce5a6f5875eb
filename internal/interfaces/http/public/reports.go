package public

import (
	"context"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/sngm3741/hushmap-services/api/internal/interfaces/http/common"
	"github.com/sngm3741/hushmap-services/api/internal/noise/application"
	"github.com/sngm3741/hushmap-services/api/internal/noise/domain"
)

func (h *Handler) reportCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		var req reportCreateRequest
		if err := common.DecodeJSON(r, &req); err != nil {
			common.WriteError(h.logger, w, "report create", err)
			return
		}
		if err := checkLength("description", req.Description); err != nil {
			common.WriteError(h.logger, w, "report create", err)
			return
		}

		report, err := h.reportCommands.Submit(ctx, application.SubmitReportCommand{
			ReporterID:   common.CallerID(r.Context()),
			City:         req.City,
			Latitude:     req.Latitude,
			Longitude:    req.Longitude,
			DecibelLevel: req.DecibelLevel,
			Category:     req.NoiseCategory,
			Source:       req.NoiseSource,
			Description:  req.Description,
			Timestamp:    req.Timestamp,
		})
		if err != nil {
			common.WriteError(h.logger, w, "report create", err)
			return
		}

		common.WriteJSON(h.logger, w, http.StatusCreated, reportCreateResponse{
			Message: "Noise report submitted successfully",
			Report:  PresentReport(*report),
		})
	}
}

func (h *Handler) reportListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		filter, paging, err := parseReportQuery(r)
		if err != nil {
			common.WriteError(h.logger, w, "report list", err)
			return
		}

		page, err := h.reportQueries.List(ctx, filter, paging)
		if err != nil {
			common.WriteError(h.logger, w, "report list", err)
			return
		}

		common.WriteJSON(h.logger, w, http.StatusOK, reportListResponse{
			Reports: presentReports(page.Reports),
			Total:   page.Total,
			Limit:   page.Limit,
			Offset:  page.Offset,
		})
	}
}

func (h *Handler) reportNearbyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		q, err := parseNearbyQuery(r)
		if err != nil {
			common.WriteError(h.logger, w, "report nearby", err)
			return
		}

		found, radius, err := h.reportQueries.Nearby(ctx, q)
		if err != nil {
			common.WriteError(h.logger, w, "report nearby", err)
			return
		}

		common.WriteJSON(h.logger, w, http.StatusOK, reportNearbyResponse{
			Reports:  presentNearbyReports(found),
			RadiusKm: radius,
		})
	}
}

func (h *Handler) reportDetailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		id := strings.TrimSpace(chi.URLParam(r, "id"))
		report, err := h.reportQueries.Detail(ctx, id)
		if err != nil {
			common.WriteError(h.logger, w, "report detail id="+id, err)
			return
		}

		common.WriteJSON(h.logger, w, http.StatusOK, reportDetailResponse{Report: PresentReport(*report)})
	}
}

func (h *Handler) reportDeleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		id := strings.TrimSpace(chi.URLParam(r, "id"))
		if err := h.reportCommands.Delete(ctx, id, common.CallerID(r.Context())); err != nil {
			common.WriteError(h.logger, w, "report delete id="+id, err)
			return
		}

		common.WriteJSON(h.logger, w, http.StatusOK, messageResponse{Message: "Report deleted successfully"})
	}
}

// parseReportQuery は一覧 API のクエリ文字列をフィルタとページングへ変換する。
func parseReportQuery(r *http.Request) (application.ReportFilter, application.Paging, error) {
	query := r.URL.Query()
	filter := application.ReportFilter{
		City:   cityParam(r),
		Source: strings.TrimSpace(query.Get("source")),
	}

	if raw := strings.TrimSpace(query.Get("category")); raw != "" {
		category, err := domain.NewNoiseCategory(raw)
		if err != nil {
			return filter, application.Paging{}, err
		}
		filter.Category = category
	}
	if raw := strings.TrimSpace(query.Get("since")); raw != "" {
		since, err := domain.ParseTimestamp(raw)
		if err != nil {
			return filter, application.Paging{}, domain.Invalid("since", "must be an ISO-8601 timestamp")
		}
		filter.Since = &since
	}

	limit, err := common.ParseOptionalInt("limit", query.Get("limit"))
	if err != nil {
		return filter, application.Paging{}, err
	}
	if limit != nil && *limit < 1 {
		return filter, application.Paging{}, domain.Invalid("limit", "must be between 1 and %d", application.MaxReportLimit)
	}
	offset, err := common.ParseOptionalInt("offset", query.Get("offset"))
	if err != nil {
		return filter, application.Paging{}, err
	}

	return filter, application.Paging{Limit: common.IntValue(limit, 0), Offset: common.IntValue(offset, 0)}, nil
}

// parseNearbyQuery は latitude/longitude を必須、radius/city を任意として読み取る。
func parseNearbyQuery(r *http.Request) (application.NearbyQuery, error) {
	query := r.URL.Query()
	lat, err := common.ParseOptionalFloat("latitude", query.Get("latitude"))
	if err != nil {
		return application.NearbyQuery{}, err
	}
	if lat == nil {
		return application.NearbyQuery{}, domain.Invalid("latitude", "is required")
	}
	lng, err := common.ParseOptionalFloat("longitude", query.Get("longitude"))
	if err != nil {
		return application.NearbyQuery{}, err
	}
	if lng == nil {
		return application.NearbyQuery{}, domain.Invalid("longitude", "is required")
	}
	radius, err := common.ParseOptionalFloat("radius", query.Get("radius"))
	if err != nil {
		return application.NearbyQuery{}, err
	}
	return application.NearbyQuery{
		Latitude:  *lat,
		Longitude: *lng,
		RadiusKm:  radius,
		City:      cityParam(r),
	}, nil
}

func checkLength(field, value string) error {
	if utf8.RuneCountInString(value) > common.MaxDescriptionRunes {
		return domain.Invalid(field, "must be at most %d characters", common.MaxDescriptionRunes)
	}
	return nil
}
