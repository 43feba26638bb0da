package httpadapter

import (
	"errors"
	"net/http"

	"github.com/kirillkom/document-qa-bot/internal/core/domain"
)

const (
	detailEmptyQuestion = "Question cannot be empty"
	detailNotReady      = "QA chain not initialized. Please check the logs."
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorDetail is the client-facing message for err. prefix is prepended to
// internal failures.
func errorDetail(err error, prefix string) string {
	switch mapErrorToHTTPStatus(err) {
	case http.StatusBadRequest:
		if errors.Is(err, domain.ErrEmptyQuestion) {
			return detailEmptyQuestion
		}
		return err.Error()
	case http.StatusServiceUnavailable:
		return detailNotReady
	default:
		return prefix + err.Error()
	}
}

func writeError(w http.ResponseWriter, err error, prefix string) {
	writeJSON(w, mapErrorToHTTPStatus(err), errorResponse{Detail: errorDetail(err, prefix)})
}

type errorResponse struct {
	Detail string `json:"detail"`
}
