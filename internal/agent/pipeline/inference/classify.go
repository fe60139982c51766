package inference

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"syscall"

	"github.com/tmc/langchaingo/llms/huggingface"
	"google.golang.org/genai"

	errx "github.com/tripsmart/server/internal/core/error"
)

type failureClass int

const (
	// classPermanent failures are surfaced without retry.
	classPermanent failureClass = iota
	classTransient
	classAuth
)

// Provider SDKs report HTTP status in the message:
// go-openai "status code: 429", huggingface "unexpected status code: 401", genai "Error 503,".
var statusPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)status code:?\s*(\d{3})`),
	regexp.MustCompile(`^Error (\d{3}),`),
}

var authHints = []string{
	"invalid api key", "invalid_api_key", "incorrect api key", "unauthorized",
	"authentication", "invalid token", "permission denied", "api key not valid",
}

var transientHints = []string{
	"connection reset", "connection refused", "broken pipe", "i/o timeout",
	"tls handshake timeout", "server closed", "temporarily unavailable", "no such host",
}

func classify(err error) (failureClass, string) {
	switch {
	case errors.Is(err, errx.ErrConfiguration):
		return classAuth, ""
	case errors.Is(err, context.Canceled):
		return classPermanent, errx.CauseCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return classTransient, errx.CauseTimeout
	case errors.Is(err, huggingface.ErrMissingToken):
		return classAuth, ""
	}

	if code := statusCode(err); code != 0 {
		return classifyStatus(code)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return classTransient, errx.CauseTimeout
		}
		return classTransient, errx.CauseTransport
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return classTransient, errx.CauseTransport
	}

	msg := strings.ToLower(err.Error())
	for _, h := range authHints {
		if strings.Contains(msg, h) {
			return classAuth, ""
		}
	}
	if strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests") {
		return classTransient, errx.CauseRateLimited
	}
	for _, h := range transientHints {
		if strings.Contains(msg, h) {
			return classTransient, errx.CauseTransport
		}
	}
	return classPermanent, errx.CauseUpstream
}

func classifyStatus(code int) (failureClass, string) {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return classAuth, ""
	case code == http.StatusTooManyRequests:
		return classTransient, errx.CauseRateLimited
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return classTransient, errx.CauseTimeout
	case code == http.StatusTooEarly || code >= 500:
		return classTransient, errx.CauseUpstream
	default:
		return classPermanent, errx.CauseUpstream
	}
}

func statusCode(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code
	}

	msg := err.Error()
	for _, re := range statusPatterns {
		if m := re.FindStringSubmatch(msg); m != nil {
			if code, convErr := strconv.Atoi(m[1]); convErr == nil {
				return code
			}
		}
	}
	return 0
}
