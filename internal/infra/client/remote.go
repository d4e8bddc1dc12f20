package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"bookhub-loans/internal/infra"
	"bookhub-loans/internal/pkg/circuitbreaker"
)

// send performs one request against a collaborator with a per-call timeout.
// Transport failures and 5xx responses come back as infra errors so the
// circuit breaker treats them as failures; any other status is a valid
// answer for the caller to interpret.
func send(ctx context.Context, httpc *http.Client, timeout time.Duration, method, url, service string, out any) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, infra.WrapErr(service+" request build failed", err, infra.KindUnavailable)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpc.Do(req)
	if err != nil {
		if isTimeout(err) {
			return 0, infra.WrapErr(service+" request timed out", err, infra.KindTimeout)
		}
		return 0, infra.WrapErr(service+" unreachable", err, infra.KindUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return resp.StatusCode, infra.WrapErr(
			fmt.Sprintf("%s responded %d", service, resp.StatusCode), nil, infra.KindUnavailable)
	}

	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, infra.WrapErr(service+" response decode failed", err, infra.KindUnavailable)
		}
	}

	return resp.StatusCode, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func wrapBreakerErr(err error, service string) error {
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return infra.WrapErr(service+" circuit open", err, infra.KindUnavailable)
	}
	return err
}
