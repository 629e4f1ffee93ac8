package httpx

import (
	"errors"
	"net/http"

	"github.com/routewise/routewise/internal/shared"
)

// partialBatchBody extends the problem detail with the per-item result
// list so callers can retry just the failed half.
type partialBatchBody struct {
	ProblemDetail
	Result shared.BatchResult `json:"result"`
}

// RespondError maps engine errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var partial *shared.PartialBatchError
	switch {
	case errors.As(err, &partial):
		JSON(w, http.StatusMultiStatus, partialBatchBody{
			ProblemDetail: ProblemDetail{
				Title:  "Partial Batch Failure",
				Status: http.StatusMultiStatus,
				Detail: partial.Error(),
			},
			Result: partial.Result,
		})
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, shared.ErrPermissionDenied):
		Problem(w, http.StatusForbidden, "Permission Denied", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrTransientStore):
		Problem(w, http.StatusServiceUnavailable, "Store Unavailable", "the operation is safe to retry")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
