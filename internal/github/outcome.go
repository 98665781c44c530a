package github

import (
	"context"
	"errors"
	"net"
)

// disposition is the decision taken after one attempt of one logical call.
type disposition int

const (
	dispositionSuccess disposition = iota
	dispositionRetry
	dispositionFail
)

// Statuses eligible for retry. Anything else that is non-2xx ends the call
// immediately: retrying a 404 or a 400 only burns the rate budget.
var retriableStatuses = map[int]bool{
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// attemptOutcome records one attempt so the retry loop can branch on a tag
// instead of on caught error types.
type attemptOutcome struct {
	disposition disposition
	status      int
	err         *APIError
}

// classifyStatus maps an HTTP status to a disposition. Pure function, no
// transport types involved.
func classifyStatus(status int) disposition {
	switch {
	case status >= 200 && status < 300:
		return dispositionSuccess
	case retriableStatuses[status]:
		return dispositionRetry
	default:
		return dispositionFail
	}
}

// classifyTransportError maps a transport-level failure. Timeouts and
// connection failures are transient; caller cancellation is terminal.
func classifyTransportError(err error) attemptOutcome {
	if errors.Is(err, context.Canceled) {
		return attemptOutcome{
			disposition: dispositionFail,
			err:         &APIError{Code: CodeUnexpected, Message: "request canceled: " + err.Error()},
		}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return attemptOutcome{
			disposition: dispositionRetry,
			err:         &APIError{Code: CodeTimeout, Message: "GitHub API did not respond in time", Details: err.Error()},
		}
	}

	return attemptOutcome{
		disposition: dispositionRetry,
		err:         &APIError{Code: CodeNetwork, Message: "network error reaching the GitHub API", Details: err.Error()},
	}
}
