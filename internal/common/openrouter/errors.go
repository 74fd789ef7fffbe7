package openrouter

import (
	"context"
	"errors"
	"fmt"
	"net"

	commonerrors "clinqo-prescriber/internal/common/errors"
)

var (
	// ErrTransport covers connection, DNS and timeout failures.
	ErrTransport = errors.New("inference transport failure")
	// ErrTimeout is always reported together with ErrTransport.
	ErrTimeout = errors.New("inference timeout")
	// ErrMalformedEnvelope means a 200 response whose body was not a usable
	// chat completion.
	ErrMalformedEnvelope = errors.New("malformed inference envelope")
)

// UpstreamStatusError is returned for any non-200 response.
type UpstreamStatusError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("inference upstream returned status %d: %s", e.StatusCode, e.Body)
}

const (
	OutcomeSuccess           = "success"
	OutcomeTransport         = "transport"
	OutcomeTimeout           = "timeout"
	OutcomeUpstreamStatus    = "upstream_status"
	OutcomeMalformedEnvelope = "malformed_envelope"
	OutcomeUnknown           = "unknown"
)

// Classify maps an error returned by Complete to a short outcome label.
func Classify(err error) string {
	var statusErr *UpstreamStatusError
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrTimeout):
		return OutcomeTimeout
	case errors.Is(err, ErrTransport):
		return OutcomeTransport
	case errors.As(err, &statusErr):
		return OutcomeUpstreamStatus
	case errors.Is(err, ErrMalformedEnvelope):
		return OutcomeMalformedEnvelope
	default:
		return OutcomeUnknown
	}
}

func transportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w: %v", ErrTransport, ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrTransport, err)
}

// Code maps a Complete failure to its standard error code.
func Code(err error) commonerrors.ErrorCode {
	switch Classify(err) {
	case OutcomeTimeout:
		return commonerrors.ErrCodeInferenceTimeout
	case OutcomeTransport:
		return commonerrors.ErrCodeInferenceTransportFailed
	case OutcomeUpstreamStatus:
		return commonerrors.ErrCodeInferenceUpstreamStatus
	case OutcomeMalformedEnvelope:
		return commonerrors.ErrCodeInferenceMalformedEnvelope
	default:
		return commonerrors.ErrCodeInternal
	}
}
