package public

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/sngm3741/hushmap-services/api/internal/interfaces/http/common"
)

const (
	defaultQRSize = 256
	minQRSize     = 128
	maxQRSize     = 1024
)

// zoneQRHandler はゾーン詳細ページへのリンクを QR コード (PNG) で返す。現地の掲示用。
func (h *Handler) zoneQRHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		id := strings.TrimSpace(chi.URLParam(r, "id"))
		zone, err := h.zoneQueries.Detail(ctx, id)
		if err != nil {
			common.WriteError(h.logger, w, "zone qr id="+id, err)
			return
		}

		png, err := qrcode.Encode(h.zoneURL(zone.ID), qrcode.Medium, qrSize(r.URL.Query().Get("size")))
		if err != nil {
			common.WriteError(h.logger, w, "zone qr id="+id, err)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(png); err != nil && h.logger != nil {
			h.logger.Printf("QR の書き込みに失敗: %v", err)
		}
	}
}

func (h *Handler) zoneURL(id string) string {
	return h.publicBaseURL + "/zones/" + id
}

func qrSize(raw string) int {
	size, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return defaultQRSize
	}
	if size < minQRSize {
		return minQRSize
	}
	if size > maxQRSize {
		return maxQRSize
	}
	return size
}
