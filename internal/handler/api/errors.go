package api

import (
	"errors"
	"net/http"

	"SentiDash/internal/domain/models"
	"SentiDash/internal/services/ledger"
	"SentiDash/internal/usecase"
	xhttp "SentiDash/pkg/http"
)

// toAppError maps domain errors onto response codes. Anything unknown is a 500.
func toAppError(err error) *xhttp.AppError {
	var (
		appErr     *xhttp.AppError
		alignment  *models.DataAlignmentError
		short      *models.InsufficientDataError
		degenerate *models.DegenerateLabelError
		missing    *models.FeatureMissingError
		schema     *models.LedgerSchemaError
		duplicate  *models.DuplicateEntryError
	)
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.As(err, &alignment):
		return xhttp.UnprocessableError("ERR_DATA_ALIGNMENT", alignment.Error()).WithError(err)
	case errors.As(err, &short):
		return xhttp.UnprocessableError("ERR_INSUFFICIENT_DATA", short.Error()).
			WithParams(map[string]interface{}{"have": short.Have, "need": short.Need}).WithError(err)
	case errors.As(err, &degenerate):
		return xhttp.UnprocessableError("ERR_DEGENERATE_LABEL", degenerate.Error()).WithError(err)
	case errors.As(err, &missing):
		return xhttp.UnprocessableError("ERR_FEATURE_MISSING", missing.Error()).
			WithParam("feature", missing.Feature).WithError(err)
	case errors.As(err, &duplicate):
		return xhttp.ConflictError("ERR_DUPLICATE_ENTRY", duplicate.Error()).
			WithParam("existing", duplicate.Existing).WithError(err)
	case errors.Is(err, ledger.ErrLocked):
		return xhttp.ConflictError("ERR_LEDGER_LOCKED", err.Error()).WithError(err)
	case errors.As(err, &schema):
		return xhttp.NewAppError("ERR_LEDGER_SCHEMA", "", schema.Error(), http.StatusInternalServerError).WithError(err)
	case errors.Is(err, usecase.ErrNotLoaded):
		return xhttp.ServiceUnavailableError(err.Error()).WithError(err)
	default:
		return xhttp.InternalError("internal error").WithError(err)
	}
}
