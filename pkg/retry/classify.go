package retry

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"

	"painel/pkg/sheets"
)

// Class is the retry classification of a failed attempt.
type Class int

const (
	ClassNone Class = iota
	ClassTransient
	ClassQuota
	ClassFatal
)

func (c Class) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassTransient:
		return "transient"
	case ClassQuota:
		return "quota"
	case ClassFatal:
		return "fatal"
	}
	return "unknown"
}

var quotaReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"quotaExceeded":         true,
	"RATE_LIMIT_EXCEEDED":   true,
}

// Classify maps an error to a retry class. Structured googleapi errors are
// checked first; the message match only covers errors that lost their type on
// the way (proxies, wrapped strings) and is known to be fragile.
func Classify(err error) Class {
	if err == nil {
		return ClassNone
	}
	if isFatal(err) {
		return ClassFatal
	}
	var credErr *sheets.CredentialError
	if errors.As(err, &credErr) {
		return ClassFatal
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ClassFatal
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		switch {
		case gErr.Code == http.StatusTooManyRequests:
			return ClassQuota
		case gErr.Code == http.StatusForbidden && hasQuotaReason(gErr):
			return ClassQuota
		case gErr.Code == http.StatusBadRequest,
			gErr.Code == http.StatusUnauthorized,
			gErr.Code == http.StatusForbidden,
			gErr.Code == http.StatusNotFound:
			return ClassFatal
		}
		return ClassTransient
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "ratelimit") {
		return ClassQuota
	}
	return ClassTransient
}

func hasQuotaReason(gErr *googleapi.Error) bool {
	for _, item := range gErr.Errors {
		if quotaReasons[item.Reason] {
			return true
		}
	}
	for _, d := range gErr.Details {
		if m, ok := d.(map[string]interface{}); ok {
			if r, ok := m["reason"].(string); ok && quotaReasons[r] {
				return true
			}
		}
	}
	return false
}
