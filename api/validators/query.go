package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/logbook-backend/pkg/errors"
)

// ReasonInvalidQuery marks a rejected query parameter.
const ReasonInvalidQuery pkgerrors.Reason = "INVALID_QUERY"

// ParseQueryInt reads an optional bounded integer query parameter.
func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").
			WithReason(ReasonInvalidQuery).
			WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").
			WithReason(ReasonInvalidQuery).
			WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}
