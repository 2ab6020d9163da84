package resolver

import (
	"errors"
	"fmt"

	"github.com/thushan/olla4/internal/core/domain"
)

var (
	errNotJSON      = errors.New("response body is not valid JSON")
	errMissingAddrs = errors.New("response is missing an \"addrs\" array")
)

// GetUserFriendlyMessage renders a resolver error the way it should appear in a
// log line or startup failure message, mirroring the teacher's
// discovery.GetUserFriendlyMessage: a short, operator-facing summary rather
// than a raw Go error chain.
func GetUserFriendlyMessage(err error) string {
	if err == nil {
		return ""
	}

	var transport *domain.ResolverTransportError
	var status *domain.ResolverUnexpectedStatusError
	var notBound *domain.ResolverNotBoundError
	var parse *domain.ResolverParseError
	var timer *domain.ResolverTimerError

	switch {
	case errors.As(err, &transport):
		return fmt.Sprintf("could not reach naming service at %s", transport.URL)
	case errors.As(err, &status):
		return fmt.Sprintf("naming service returned HTTP %d for %s", status.StatusCode, status.URL)
	case errors.As(err, &notBound):
		return fmt.Sprintf("name is not bound (resolver returned %q)", notBound.Kind)
	case errors.As(err, &parse):
		return "naming service response could not be parsed"
	case errors.As(err, &timer):
		return "resolver polling timer failed"
	default:
		return err.Error()
	}
}
