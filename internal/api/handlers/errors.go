package handlers

import (
	"errors"
	"net/http"

	"github.com/dvloznov/personal-finance/internal/api/middleware"
	"github.com/dvloznov/personal-finance/internal/domain"
	"github.com/dvloznov/personal-finance/internal/logger"
)

// writeDomainError maps a domain error onto an HTTP reply. Storage and
// unknown errors are logged and reported without their cause, carrying the
// request id instead so the log line can be found.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		middleware.WriteError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrDuplicateTemplate):
		middleware.WriteError(w, http.StatusConflict, err.Error())
	case domain.IsRecoverable(err):
		middleware.WriteError(w, http.StatusUnprocessableEntity, "Validation failed", fieldErrors(err)...)
	default:
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		middleware.WriteJSON(w, http.StatusInternalServerError, middleware.ErrorResponse{
			Error:     "Internal server error",
			RequestID: middleware.GetRequestID(r.Context()),
		})
	}
}

// fieldErrors flattens joined validation errors into per-field details.
func fieldErrors(err error) []middleware.FieldError {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []middleware.FieldError
		for _, e := range joined.Unwrap() {
			out = append(out, fieldErrors(e)...)
		}
		return out
	}

	var (
		missing  *domain.MissingFieldError
		mismatch *domain.TypeMismatchError
		option   *domain.InvalidOptionError
		schema   *domain.SchemaError
		txErr    *domain.TransactionError
	)
	switch {
	case errors.As(err, &missing):
		return []middleware.FieldError{{Field: missing.Field, Message: missing.Error()}}
	case errors.As(err, &mismatch):
		return []middleware.FieldError{{Field: mismatch.Field, Message: mismatch.Error()}}
	case errors.As(err, &option):
		return []middleware.FieldError{{Field: option.Field, Message: option.Error()}}
	case errors.As(err, &schema):
		return []middleware.FieldError{{Field: schema.Field, Message: schema.Error()}}
	case errors.As(err, &txErr):
		if len(txErr.Missing) == 0 {
			return []middleware.FieldError{{Message: txErr.Error()}}
		}
		out := make([]middleware.FieldError, 0, len(txErr.Missing))
		for _, f := range txErr.Missing {
			out = append(out, middleware.FieldError{Field: f, Message: "field is required"})
		}
		if txErr.Reason != "" {
			out = append(out, middleware.FieldError{Message: txErr.Reason})
		}
		return out
	}
	return []middleware.FieldError{{Message: err.Error()}}
}
