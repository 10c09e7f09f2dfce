package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/kirillkom/invoice-hub-agent/internal/core/domain"
	"github.com/kirillkom/invoice-hub-agent/internal/infrastructure/resilience"
)

// HTTPStatusError is a non-2xx answer from the invoice backend. Detail holds
// the FastAPI "detail" message when the body carried one.
type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Detail     string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "backend status error"
	}
	if strings.TrimSpace(e.Detail) == "" {
		return fmt.Sprintf("backend %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("backend %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Detail))
}

// statusRule is how one backend status code reaches callers: the domain kind
// it carries and whether the request may be repeated.
type statusRule struct {
	kind  error
	retry bool
}

var temporary = statusRule{kind: domain.ErrTemporary, retry: true}

var statusRules = map[int]statusRule{
	http.StatusBadRequest:          {kind: domain.ErrInvalidInput},
	http.StatusUnauthorized:        {kind: domain.ErrUnauthorized},
	http.StatusNotFound:            {kind: domain.ErrNotFound},
	http.StatusRequestTimeout:      temporary,
	http.StatusConflict:            {kind: domain.ErrConflict},
	http.StatusUnprocessableEntity: {kind: domain.ErrInvalidInput},
	http.StatusTooManyRequests:     temporary,
	http.StatusInternalServerError: temporary,
	http.StatusBadGateway:          temporary,
	http.StatusServiceUnavailable:  temporary,
	http.StatusGatewayTimeout:      temporary,
}

// operationStatusRules override statusRules for single endpoints. The status
// endpoint answers 403 or 404 once a task was purged or belongs to another
// session; pollers must stop rather than retry.
var operationStatusRules = map[string]map[int]statusRule{
	"process_status": {
		http.StatusForbidden: {kind: domain.ErrTaskGone},
		http.StatusNotFound:  {kind: domain.ErrTaskGone},
	},
}

func ruleFor(e *HTTPStatusError) statusRule {
	if rule, ok := operationStatusRules[e.Operation][e.StatusCode]; ok {
		return rule
	}
	return statusRules[e.StatusCode]
}

// classifyBackendError drives retries and the breaker. Only statuses marked
// retry count as breaker failures; other 4xx answers are the caller's fault.
func classifyBackendError(err error) resilience.ErrorClassification {
	var (
		statusErr *HTTPStatusError
		netErr    net.Error
	)
	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.ErrorClassification{}
	case errors.As(err, &statusErr):
		rule := ruleFor(statusErr)
		return resilience.ErrorClassification{Retryable: rule.retry, RecordFailure: rule.retry}
	case resilience.IsCircuitOpen(err), errors.As(err, &netErr):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		return resilience.ErrorClassification{RecordFailure: true}
	}
}

// mapBackendError attaches the domain kind matching the failure.
func mapBackendError(operation string, err error) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if rule := ruleFor(statusErr); rule.kind != nil {
			return domain.WrapError(rule.kind, operation, err)
		}
		return err
	}
	if classifyBackendError(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
