package logging

import (
	"net/http"
	"regexp"
	"strings"

	"mercator-hq/wiretap/pkg/config"
)

// Redactor masks credentials in log fields. Recorded traffic routinely
// carries cookies and bearer tokens, so header values and free text are
// both checked.
type Redactor struct {
	patterns []*redactPattern
	headers  map[string]bool
}

type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Built-in pattern names.
const (
	PatternBearerToken = "bearer_token"
	PatternBasicAuth   = "basic_auth"
	PatternAPIKey      = "api_key"
	PatternPassword    = "password"
	PatternURLSecret   = "url_secret"
)

// DefaultRedactedHeaders are always masked when redaction is enabled.
var DefaultRedactedHeaders = []string{
	"Authorization",
	"Cookie",
	"Set-Cookie",
	"Proxy-Authorization",
	"X-Api-Key",
}

// NewRedactor creates a Redactor with the built-in patterns, the custom
// patterns and the default plus extra header names. Invalid custom patterns
// are skipped; config validation reports empty ones.
func NewRedactor(custom []config.RedactPattern, extraHeaders []string) *Redactor {
	r := &Redactor{headers: make(map[string]bool)}

	builtin := []struct {
		name        string
		regex       string
		replacement string
	}{
		{PatternBearerToken, `(?i)bearer\s+[a-zA-Z0-9\-._~+/]+=*`, "Bearer ***"},
		{PatternBasicAuth, `(?i)basic\s+[a-zA-Z0-9+/]+=*`, "Basic ***"},
		{PatternAPIKey, `(sk-[a-zA-Z0-9]{8,}|api[-_]?key[=:]\s*[a-zA-Z0-9]+)`, "sk-***"},
		{PatternPassword, `(?i)(password|passwd|pwd)[:=]\s*[^\s&]+`, "$1=***"},
		{PatternURLSecret, `(?i)([?&](?:token|access_token|api_key|key|sig)=)[^&\s]+`, "${1}***"},
	}
	for _, p := range builtin {
		r.patterns = append(r.patterns, &redactPattern{
			name:        p.name,
			regex:       regexp.MustCompile(p.regex),
			replacement: p.replacement,
		})
	}

	for _, p := range custom {
		regex, err := regexp.Compile(p.Pattern)
		if err != nil {
			continue
		}
		r.patterns = append(r.patterns, &redactPattern{
			name:        p.Name,
			regex:       regex,
			replacement: p.Replacement,
		})
	}

	for _, h := range DefaultRedactedHeaders {
		r.headers[strings.ToLower(h)] = true
	}
	for _, h := range extraHeaders {
		r.headers[strings.ToLower(h)] = true
	}

	return r
}

// RedactString applies every pattern to value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

// IsSensitiveKey reports whether a log key names a credential.
func (r *Redactor) IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	if r.headers[lower] {
		return true
	}
	for _, s := range []string{"password", "passwd", "secret", "token", "api_key", "apikey", "authorization", "cookie"} {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// RedactHeaders returns a copy of headers with sensitive values masked.
// Header names are matched case-insensitively.
func (r *Redactor) RedactHeaders(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}
	out := make(map[string]string, len(headers))
	for name, value := range headers {
		if r.headers[strings.ToLower(name)] {
			out[name] = RedactSecret(value)
			continue
		}
		out[name] = r.RedactString(value)
	}
	return out
}

// RedactHTTPHeader is RedactHeaders for http.Header.
func (r *Redactor) RedactHTTPHeader(headers http.Header) http.Header {
	if headers == nil {
		return nil
	}
	out := make(http.Header, len(headers))
	for name, values := range headers {
		masked := make([]string, len(values))
		for i, v := range values {
			if r.headers[strings.ToLower(name)] {
				masked[i] = RedactSecret(v)
			} else {
				masked[i] = r.RedactString(v)
			}
		}
		out[name] = masked
	}
	return out
}

// RedactSecret keeps a four character prefix of longer values for
// identification and masks the rest.
func RedactSecret(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 8 {
		return "***"
	}
	return value[:4] + "***"
}
