package prismic

import (
	"encoding/json"
	"net/url"
	"strings"
)

// PreviewCookieName is the cookie the Prismic toolbar writes while previewing.
const PreviewCookieName = "io.prismic.preview"

// RepositoryName extracts the repository name from an API endpoint,
// e.g. "https://my-repo.cdn.prismic.io/api/v2" -> "my-repo".
func RepositoryName(endpoint string) string {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil || u.Host == "" {
		return ""
	}
	host := u.Hostname()
	if i := strings.IndexByte(host, '.'); i > 0 {
		return host[:i]
	}
	return host
}

// ValidPreviewToken reports whether token is a preview URL issued for repo.
func ValidPreviewToken(token, repo string) bool {
	u, err := url.Parse(strings.TrimSpace(token))
	if err != nil || u.Scheme != "https" {
		return false
	}
	if repo == "" || !strings.EqualFold(u.Hostname(), repo+".prismic.io") {
		return false
	}
	return strings.HasPrefix(u.Path, "/previews/")
}

// PreviewRefFromCookie extracts the preview ref for repo from the toolbar
// cookie. Both the JSON format keyed by "<repo>.prismic.io" and the legacy
// bare preview URL are understood. It returns "" when the cookie holds no
// valid ref.
func PreviewRefFromCookie(value, repo string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if decoded, err := url.QueryUnescape(value); err == nil {
		value = decoded
	}
	if strings.HasPrefix(value, "{") {
		var payload map[string]json.RawMessage
		if err := json.Unmarshal([]byte(value), &payload); err != nil {
			return ""
		}
		raw, ok := payload[repo+".prismic.io"]
		if !ok {
			return ""
		}
		var entry struct {
			Preview string `json:"preview"`
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			return ""
		}
		value = entry.Preview
	}
	if !ValidPreviewToken(value, repo) {
		return ""
	}
	return value
}
