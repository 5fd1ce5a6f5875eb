package common

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/sngm3741/hushmap-services/api/internal/noise/domain"
)

// WriteJSON serializes payload to JSON with status and logs on failure.
func WriteJSON(logger *log.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil && logger != nil {
		logger.Printf("JSON エンコードに失敗: %v", err)
	}
}

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// WriteError はドメインエラーを HTTP ステータスへ変換する。想定外のエラーはログに残し 500 を返す。
func WriteError(logger *log.Logger, w http.ResponseWriter, op string, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		WriteJSON(logger, w, http.StatusBadRequest, ErrorResponse{Error: verr.Error(), Field: verr.Field})
	case errors.Is(err, domain.ErrValidation):
		WriteJSON(logger, w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		WriteJSON(logger, w, http.StatusNotFound, ErrorResponse{Error: "not found"})
	case errors.Is(err, domain.ErrUnauthenticated):
		WriteJSON(logger, w, http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
	case errors.Is(err, domain.ErrForbidden):
		WriteJSON(logger, w, http.StatusForbidden, ErrorResponse{Error: "not authorized"})
	default:
		if logger != nil {
			logger.Printf("%s failed: %v", op, err)
		}
		WriteJSON(logger, w, http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

// DecodeJSON reads a size-limited JSON body into dst. Unknown fields are rejected.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return domain.Invalid(typeErr.Field, "has the wrong type")
		}
		return domain.Invalid("", "invalid JSON body: %v", err)
	}
	return nil
}
