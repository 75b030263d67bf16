package backend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/smallbiznis/mercado/internal/dues/domain"
)

func domainTransport(op string, err error) error {
	return domain.NewTransportError(op, err)
}

// classify maps a non-2xx backend response onto the engine's error kinds.
func classify(op string, status int, body []byte) error {
	var env errorEnvelope
	_ = json.Unmarshal(body, &env)

	code := strings.TrimSpace(env.Error.Code)
	field := ""
	message := strings.TrimSpace(env.Error.Message)
	if len(env.Error.Errors) > 0 {
		first := env.Error.Errors[0]
		if code == "" {
			code = first.Code
		}
		field = first.Field
		if first.Message != "" {
			message = first.Message
		}
	}

	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		if code == "" {
			code = "invalid_request"
		}
		return domain.NewValidationError(field, code, message)
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	case http.StatusConflict, http.StatusPreconditionFailed:
		if code == "" {
			code = domain.ErrCodeAmountPaidChanged
		}
		return domain.NewConflictError(code, message)
	default:
		return domain.NewTransportError(op, fmt.Errorf("unexpected status %d", status))
	}
}
