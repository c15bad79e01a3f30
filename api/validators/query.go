package validators

import (
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/asarum-backend/pkg/errors"
)

// ParseQueryEnum parses an optional query parameter with parse. A missing or
// blank parameter yields nil.
func ParseQueryEnum[T any](r *http.Request, key string, parse func(string) (T, error)) (*T, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	value, err := parse(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid query parameter").WithDetails(map[string]any{"field": key})
	}
	return &value, nil
}
