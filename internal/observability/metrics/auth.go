package metrics

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"syscall"
	"time"

	"github.com/target/panel-auth/internal/observability/statsd"
)

// Outcome values for the external_auth.attempts counter.
const (
	OutcomeSuccess        = "success"
	OutcomeRejected       = "rejected"
	OutcomeMalformed      = "malformed"
	OutcomeTransportError = "transport_error"
)

// AuthAttempt describes one outbound credential check.
type AuthAttempt struct {
	Outcome  string
	Status   int
	Duration time.Duration
	Err      error
}

// EmitAuthAttempt records the outcome and latency of an external authentication call.
func EmitAuthAttempt(sink statsd.Sink, in AuthAttempt) {
	if sink == nil {
		return
	}

	tags := map[string]string{"outcome": in.Outcome}
	if in.Outcome == OutcomeTransportError {
		tags["error_class"] = ClassifyTransportError(in.Err)
	}

	sink.Count("external_auth.attempts", 1, tags)
	if in.Duration > 0 {
		sink.Timing("external_auth.latency", in.Duration, map[string]string{"outcome": in.Outcome})
	}
}

// ClassifyTransportError maps an outbound call failure to a low-cardinality tag value.
func ClassifyTransportError(err error) string {
	if err == nil {
		return ""
	}

	var (
		netErr  net.Error
		dnsErr  *net.DNSError
		certErr *tls.CertificateVerificationError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, syscall.ECONNREFUSED):
		return "connection_refused"
	case errors.As(err, &dnsErr):
		return "dns"
	case errors.As(err, &certErr):
		return "tls"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	default:
		return "other"
	}
}
