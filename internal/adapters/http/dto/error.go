package dto

import (
	"cmp"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"

	"github.com/jsamuelsen11/go-daemon-core/internal/domain"
	"github.com/jsamuelsen11/go-daemon-core/internal/platform/logging"
)

const problemContentType = "application/problem+json"

// ErrorResponse is an RFC 9457 problem document.
type ErrorResponse struct {
	Type     string        `json:"type"`
	Title    string        `json:"title"`
	Status   int           `json:"status"`
	Detail   string        `json:"detail,omitempty"`
	Instance string        `json:"instance,omitempty"`
	Errors   []ErrorDetail `json:"errors,omitempty"`
}

// ErrorDetail names one rejected query parameter.
type ErrorDetail struct {
	Location string `json:"location"`
	Message  string `json:"message"`
}

// problemStatus maps domain sentinels to statuses, first match wins.
var problemStatus = []struct {
	err    error
	status int
}{
	{domain.ErrValidation, http.StatusBadRequest},
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrUnavailable, http.StatusServiceUnavailable},
}

func statusFor(err error) int {
	for _, p := range problemStatus {
		if errors.Is(err, p.err) {
			return p.status
		}
	}
	return http.StatusInternalServerError
}

// NewErrorResponse builds the problem document for err. Instance is the
// request URI, query included, so a rejected filter is visible in the body.
func NewErrorResponse(r *http.Request, err error) ErrorResponse {
	status := statusFor(err)
	resp := ErrorResponse{
		Type:     "about:blank",
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   err.Error(),
		Instance: r.RequestURI,
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		resp.Errors = make([]ErrorDetail, 0, len(verr.Fields))
		for param, msg := range verr.Fields {
			resp.Errors = append(resp.Errors, ErrorDetail{Location: "query." + param, Message: msg})
		}
		slices.SortFunc(resp.Errors, func(a, b ErrorDetail) int {
			return cmp.Compare(a.Location, b.Location)
		})
	}
	return resp
}

// WriteErrorResponse writes the problem document for err with its status.
func WriteErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	resp := NewErrorResponse(r, err)

	w.Header().Set("Content-Type", problemContentType)
	w.WriteHeader(resp.Status)
	if encErr := json.NewEncoder(w).Encode(resp); encErr != nil {
		logging.FromContext(r.Context()).WarnContext(r.Context(), "encoding problem response",
			slog.Int("status", resp.Status),
			slog.Any("error", encErr),
		)
	}
}
