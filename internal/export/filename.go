package export

import (
	"fmt"
	"strings"
)

// Filename is the download name for an activity's grade sheet.
func Filename(title, activityID string) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return '-'
	}, strings.TrimSpace(title))
	slug = strings.Trim(slug, "-")
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	if slug == "" {
		slug = activityID
	}
	return fmt.Sprintf("grades-%s.xlsx", slug)
}
