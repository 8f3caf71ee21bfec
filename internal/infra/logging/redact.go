package logging

import (
	"log/slog"
	"strings"
)

// Redacted replaces the value of attributes whose key is in the redact list.
const Redacted = "[redacted]"

func parseRedactKeys(list string) map[string]struct{} {
	keys := make(map[string]struct{})

	for _, key := range strings.Split(list, ",") {
		if key = strings.ToLower(strings.TrimSpace(key)); key != "" {
			keys[key] = struct{}{}
		}
	}

	return keys
}

func redacted(keys map[string]struct{}, attr slog.Attr) slog.Attr {
	if attr.Value.Kind() == slog.KindGroup {
		return attr
	}

	if _, ok := keys[strings.ToLower(attr.Key)]; ok {
		return slog.String(attr.Key, Redacted)
	}

	return attr
}

// RedactAttr returns a slog.HandlerOptions.ReplaceAttr that hides the
// values of the given attribute keys (case-insensitive).
func RedactAttr(keys map[string]struct{}) func(groups []string, attr slog.Attr) slog.Attr {
	return func(_ []string, attr slog.Attr) slog.Attr {
		return redacted(keys, attr)
	}
}
