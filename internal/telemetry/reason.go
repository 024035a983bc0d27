package telemetry

import (
	"errors"

	"github.com/ashwinyue/traintrack/internal/apperr"
)

// Reason 把错误归类为指标标签值
func Reason(err error) string {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperr.ErrConflict):
		return "conflict"
	case errors.Is(err, apperr.ErrValidation):
		return "validation"
	case errors.Is(err, apperr.ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "internal"
	}
}
