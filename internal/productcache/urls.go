package productcache

import "strings"

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if trimmed := strings.TrimRight(strings.TrimSpace(o), "/"); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// proxied strips a known backend origin so the link resolves against the storefront's own host.
func (c *Cache) proxied(link string) string {
	for _, origin := range c.mediaOrigins {
		if rest, ok := strings.CutPrefix(link, origin); ok && (rest == "" || strings.HasPrefix(rest, "/")) {
			if rest == "" {
				return "/"
			}
			return rest
		}
	}
	return link
}
