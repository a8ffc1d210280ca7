package validate

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/sells-group/pdm-qc/internal/model"
)

var urlPattern = regexp.MustCompile(`(?i)^https?://(?:[a-z0-9](?:[a-z0-9-]*[a-z0-9])?\.)+[a-z]{2,}(?::\d{1,5})?(?:[/?#]\S*)?$`)

// Hostname returns the lowercased host of raw without a leading "www.", or ""
// when raw is blank, the no-URL sentinel, or unparseable.
func Hostname(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" || s == model.NoURLAssigned {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// ReferenceDomain returns the hostname appearing in the most groups. Ties go
// to the hostname that appeared first in group order.
func ReferenceDomain(groups []model.PdmGroup) string {
	counts := make(map[string]int)
	var order []string

	for _, g := range groups {
		inGroup := make(map[string]struct{})
		for _, u := range g.URLs {
			host := Hostname(u)
			if host == "" {
				continue
			}
			if _, dup := inGroup[host]; dup {
				continue
			}
			inGroup[host] = struct{}{}
			if _, known := counts[host]; !known {
				order = append(order, host)
			}
			counts[host]++
		}
	}

	var best string
	bestCount := 0
	for _, host := range order {
		if counts[host] > bestCount {
			best, bestCount = host, counts[host]
		}
	}
	return best
}
