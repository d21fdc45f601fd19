package classify

import (
	"context"
	"crypto/x509"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"

	"curator/internal/services"
)

// StatusCode is the canonical outcome recorded for an ingestion run.
type StatusCode string

const (
	StatusOK                 StatusCode = "OK"
	StatusBadURL             StatusCode = "BAD_URL"
	StatusSSLError           StatusCode = "SSL_ERROR"
	StatusDNSError           StatusCode = "DNS_ERROR"
	StatusTimeoutError       StatusCode = "TIMEOUT_ERROR"
	StatusConnectionRefused  StatusCode = "CONNECTION_REFUSED"
	StatusConnectionReset    StatusCode = "CONNECTION_RESET"
	StatusHTTPRedirect       StatusCode = "HTTP_REDIRECT"
	StatusHTTPUnauthorized   StatusCode = "HTTP_UNAUTHORIZED"
	StatusHTTPForbidden      StatusCode = "HTTP_FORBIDDEN"
	StatusHTTPServerError    StatusCode = "HTTP_SERVER_ERROR"
	StatusHTTPError          StatusCode = "HTTP_ERROR"
	StatusNetworkError       StatusCode = "NETWORK_ERROR"
	StatusExtractionError    StatusCode = "EXTRACTION_ERROR"
	StatusNoEvents           StatusCode = "NO_EVENTS"
	StatusLowDates           StatusCode = "LOW_DATES"
	StatusException          StatusCode = "EXCEPTION"
	StatusUnknownError       StatusCode = "UNKNOWN_ERROR"
)

var allStatuses = []StatusCode{
	StatusOK,
	StatusBadURL,
	StatusSSLError,
	StatusDNSError,
	StatusTimeoutError,
	StatusConnectionRefused,
	StatusConnectionReset,
	StatusHTTPRedirect,
	StatusHTTPUnauthorized,
	StatusHTTPForbidden,
	StatusHTTPServerError,
	StatusHTTPError,
	StatusNetworkError,
	StatusExtractionError,
	StatusNoEvents,
	StatusLowDates,
	StatusException,
	StatusUnknownError,
}

// AllStatuses returns the ordered list of known status codes.
func AllStatuses() []StatusCode {
	cp := make([]StatusCode, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// IsDegraded reports whether a status represents anything other than a clean run.
func (s StatusCode) IsDegraded() bool {
	return s != StatusOK && s != ""
}

// Classify maps a low-level failure from an external call to a canonical
// status code. Typed errors in the chain win over message matching; the
// message table mirrors the failure strings observed in production scrapes.
func Classify(err error) StatusCode {
	if err == nil {
		return StatusOK
	}

	if code, ok := classifyTyped(err); ok {
		return code
	}
	return classifyMessage(err.Error())
}

func classifyTyped(err error) (StatusCode, bool) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, services.ErrTimeout) {
		return StatusTimeoutError, true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return StatusDNSError, true
	}

	var certErr x509.UnknownAuthorityError
	if errors.As(err, &certErr) {
		return StatusSSLError, true
	}
	var hostErr x509.HostnameError
	if errors.As(err, &hostErr) {
		return StatusSSLError, true
	}
	var validityErr x509.CertificateInvalidError
	if errors.As(err, &validityErr) {
		return StatusSSLError, true
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return StatusConnectionRefused, true
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return StatusConnectionReset, true
	}
	if errors.Is(err, syscall.ENETUNREACH) || errors.Is(err, syscall.EHOSTUNREACH) {
		return StatusNetworkError, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return StatusTimeoutError, true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		// Unwrapped url.Error with none of the causes above usually means
		// the URL itself could not be parsed or dialed.
		if urlErr.Op == "parse" {
			return StatusBadURL, true
		}
	}

	return "", false
}

func classifyMessage(message string) StatusCode {
	lower := strings.ToLower(message)

	contains := func(fragments ...string) bool {
		for _, fragment := range fragments {
			if strings.Contains(lower, fragment) {
				return true
			}
		}
		return false
	}

	switch {
	case contains("ssl", "tls", "certificate", "handshake"):
		return StatusSSLError
	case contains("no such host", "dns", "name resolution", "getaddrinfo"):
		return StatusDNSError
	case contains("bad request", "404", "not found", "invalid uri", "invalid url", "unsupported protocol"):
		return StatusBadURL
	case contains("timeout", "timed out", "deadline exceeded"):
		return StatusTimeoutError
	case contains("connection refused"):
		return StatusConnectionRefused
	case contains("connection reset", "broken pipe"):
		return StatusConnectionReset
	case contains("301", "302", "303", "307", "308", "moved permanently", "redirect"):
		return StatusHTTPRedirect
	case contains("401", "unauthorized"):
		return StatusHTTPUnauthorized
	case contains("403", "forbidden"):
		return StatusHTTPForbidden
	case contains("500", "502", "503", "504", "internal server error", "bad gateway", "service unavailable"):
		return StatusHTTPServerError
	case contains("http error", "unexpected status"):
		return StatusHTTPError
	case contains("network is unreachable", "no route to host"):
		return StatusNetworkError
	default:
		return StatusUnknownError
	}
}

// FromHTTPStatus maps a non-success HTTP status from the render service to a
// canonical status code.
func FromHTTPStatus(code int) StatusCode {
	switch {
	case code >= 200 && code < 300:
		return StatusOK
	case code >= 300 && code < 400:
		return StatusHTTPRedirect
	case code == http.StatusUnauthorized:
		return StatusHTTPUnauthorized
	case code == http.StatusForbidden:
		return StatusHTTPForbidden
	case code == http.StatusNotFound || code == http.StatusBadRequest:
		return StatusBadURL
	case code >= 500:
		return StatusHTTPServerError
	default:
		return StatusHTTPError
	}
}

// DateCoverage computes the fraction of staged records carrying a parseable
// start date. A run with zero records has full coverage by definition; the
// no-events case is classified before coverage is consulted.
func DateCoverage(withDates, total int) float64 {
	if total <= 0 {
		return 1
	}
	return float64(withDates) / float64(total)
}

// LowDates reports whether date coverage falls below the configured threshold.
// It is a post-hoc quality signal, not a transport error.
func LowDates(withDates, total int, threshold float64) bool {
	return DateCoverage(withDates, total) < threshold
}
