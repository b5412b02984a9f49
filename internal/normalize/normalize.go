// Package normalize canonicalizes tracked content URLs per platform so that
// the same video or post never counts twice within a campaign.
package normalize

import (
	"net/url"
	"strings"

	"github.com/brightreach/campaign-refresh/internal/models"
)

// Canonical returns the canonical form of a content URL. It is pure and
// idempotent: Canonical(p, Canonical(p, x)) == Canonical(p, x).
func Canonical(platform models.Platform, raw string) string {
	s := strings.TrimSpace(raw)
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return s
	}
	switch platform {
	case models.PlatformYouTube:
		return canonicalYouTube(u)
	case models.PlatformInstagram:
		return canonicalInstagram(u)
	case models.PlatformTikTok:
		return canonicalTikTok(u)
	default:
		return s
	}
}

// stripTracking removes tracking query parameters (utm_*, si) without
// touching the path or the remaining query.
func stripTracking(u *url.URL) {
	q := u.Query()
	for k := range q {
		if strings.HasPrefix(k, "utm_") || k == "si" {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()
}

func canonicalYouTube(u *url.URL) string {
	stripTracking(u)
	u.Fragment = ""

	// Short links and shorts resolve to the watch URL. Video IDs are
	// case-sensitive, so the ID is preserved exactly as given.
	host := strings.ToLower(u.Host)
	if host == "youtu.be" || host == "www.youtu.be" {
		if id := firstSegment(u.Path); id != "" {
			return "https://www.youtube.com/watch?v=" + id
		}
	}
	if i := strings.Index(u.Path, "/shorts/"); i >= 0 {
		if id := firstSegment(u.Path[i+len("/shorts/"):]); id != "" {
			return "https://www.youtube.com/watch?v=" + id
		}
	}
	return u.String()
}

func canonicalInstagram(u *url.URL) string {
	stripTracking(u)
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/") + "/"
	return u.String()
}

func canonicalTikTok(u *url.URL) string {
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	return u.String()
}

func firstSegment(path string) string {
	s := strings.Trim(path, "/")
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	return s
}

// Dedup fills in Canonical on every link and drops duplicates, keeping
// first-seen order. The dedup key is platform+canonical: the same URL
// tracked under a different platform tag is not a duplicate.
func Dedup(links []models.ContentLink) []models.ContentLink {
	seen := make(map[string]struct{}, len(links))
	out := make([]models.ContentLink, 0, len(links))
	for _, l := range links {
		l.Canonical = Canonical(l.Platform, l.URL)
		key := string(l.Platform) + "|" + l.Canonical
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, l)
	}
	return out
}
