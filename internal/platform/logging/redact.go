package logging

import (
	"log/slog"
	"regexp"

	"github.com/m-mizutani/masq"
)

// SensitiveHeaders is the set of admin HTTP header names (lowercase) that
// carry credentials. The request logging middleware redacts them by name and
// the masq layer below redacts them again if they reach a log attribute.
var SensitiveHeaders = map[string]bool{
	"authorization": true,
	"x-api-key":     true,
	"cookie":        true,
}

// sensitiveFields are attribute names whose values are never logged.
// Daemon configuration carries session passwords and shared keys.
var sensitiveFields = []string{
	"password",
	"secret",
	"token",
	"passphrase",
}

// sensitivePrefixes catch variants such as "secret_key" or "auth_key_id".
var sensitivePrefixes = []string{
	"secret_",
	"auth_key",
	"api_key",
}

// bearerPattern matches "Bearer <token>" strings that appear as raw values.
var bearerPattern = regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9\-._~+/]+=*`)

// jwtPattern matches raw JWT strings (header.payload.signature). Requires at
// least 10 characters per segment so version numbers and dotted names pass.
var jwtPattern = regexp.MustCompile(`[a-zA-Z0-9\-_]{10,}\.[a-zA-Z0-9\-_]{10,}\.[a-zA-Z0-9\-_]{10,}`)

// inlineSecretPattern matches "password=<value>" or "key: <value>" fragments
// inside free-form strings such as echoed config lines.
var inlineSecretPattern = regexp.MustCompile(`(?i)(password|api[_\-]?key)\s*[:=]\s*\S+`)

// newRedactAttr returns a masq-powered ReplaceAttr function for use in
// slog.HandlerOptions.
func newRedactAttr() func([]string, slog.Attr) slog.Attr {
	opts := make([]masq.Option, 0, len(SensitiveHeaders)+len(sensitiveFields)+len(sensitivePrefixes)+3)

	for name := range SensitiveHeaders {
		opts = append(opts, masq.WithFieldName(name))
	}
	for _, name := range sensitiveFields {
		opts = append(opts, masq.WithFieldName(name))
	}
	for _, prefix := range sensitivePrefixes {
		opts = append(opts, masq.WithFieldPrefix(prefix))
	}

	opts = append(opts,
		masq.WithRegex(bearerPattern),
		masq.WithRegex(jwtPattern),
		masq.WithRegex(inlineSecretPattern),
	)

	return masq.New(opts...)
}
