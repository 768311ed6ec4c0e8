// Package sanitize redacts sensitive fields and secret-bearing URLs from
// arbitrary JSON-shaped template bodies. Cleaning is a pure structural
// recursion over the JSON union {object, array, string, number, bool, null};
// input is assumed to come from a JSON parse (acyclic, finite depth).
package sanitize

import "strings"

// PlaceholderURL replaces any string containing a webhook vendor host.
const PlaceholderURL = "https://example.com/webhook-placeholder"

// sensitiveKeys are matched case-insensitively. Values under these keys are
// replaced regardless of their original type.
var sensitiveKeys = map[string]bool{
	"webhookid":     true,
	"webhook_id":    true,
	"credential":    true,
	"credentials":   true,
	"credentialid":  true,
	"connectionid":  true,
	"connection_id": true,
	"auth":          true,
	"token":         true,
	"accesstoken":   true,
	"access_token":  true,
	"apikey":        true,
	"api_key":       true,
	"secret":        true,
	"password":      true,
	"key":           true,
	"sessionkey":    true,
}

// webhookHosts are substrings that mark a string value as a secret-bearing
// URL. The whole string is replaced, not just the matched part.
var webhookHosts = []string{
	"hooks.n8n.cloud",
	"webhook.site",
	"hooks.zapier.com",
	"hook.eu1.make.com",
	"hook.us1.make.com",
}

// Clean returns a redacted copy of v. The input is never mutated, and
// Clean(Clean(v)) == Clean(v).
func Clean(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			switch {
			case sensitiveKeys[strings.ToLower(k)]:
				out[k] = keyPlaceholder(k)
			case isWebhookURL(e):
				out[k] = PlaceholderURL
			default:
				out[k] = Clean(e)
			}
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = Clean(e)
		}
		return out
	default:
		// Scalars and null pass through unchanged.
		return v
	}
}

func keyPlaceholder(key string) string {
	var b strings.Builder
	b.WriteString("{{")
	for _, r := range strings.ToUpper(key) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	b.WriteString("}}")
	return b.String()
}

func isWebhookURL(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	for _, host := range webhookHosts {
		if strings.Contains(s, host) {
			return true
		}
	}
	return false
}
