package render

import (
	"fmt"
	"strings"

	"github.com/climbsec/vibecheck/internal/model"
)

const maxTitleLen = 100

// Title renders the deterministic issue title for f under label.
func Title(label string, f *model.Finding) string {
	title := fmt.Sprintf("[%s] %s%s", label, f.Title, locationHint(f))
	return truncateTitle(title)
}

// locationHint renders the §4.6 location suffix based on the number of
// distinct filenames a finding touches.
func locationHint(f *model.Finding) string {
	files := f.UniqueFiles()
	switch {
	case len(files) == 1:
		return " in " + files[0]
	case len(files) >= 2 && len(files) <= 3:
		return fmt.Sprintf(" in %s +%d more", files[0], len(files)-1)
	default:
		return ""
	}
}

func truncateTitle(title string) string {
	if len(title) <= maxTitleLen {
		return title
	}
	limit := maxTitleLen - 3 // room for the ellipsis
	cut := strings.LastIndex(title[:limit], " ")
	if cut <= 0 {
		cut = 97
	}
	return strings.TrimRight(title[:cut], " ") + "..."
}
