package display

import (
	_ "embed"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/rivo/uniseg"
)

//go:embed banner.txt
var bannerRaw string

// RenderBanner returns the banner art centred for the current terminal
// width. The art is shown at its native size.
func RenderBanner() string {
	width := termWidth()

	lines := strings.Split(strings.TrimRight(bannerRaw, "\n"), "\n")
	if len(lines) == 0 {
		return ""
	}

	maxW := 0
	for _, l := range lines {
		if w := uniseg.StringWidth(l); w > maxW {
			maxW = w
		}
	}

	var b strings.Builder
	for _, l := range lines {
		pad := 0
		if width > maxW {
			pad = (width - maxW) / 2
		}
		if pad > 0 {
			b.WriteString(strings.Repeat(" ", pad))
		}
		b.WriteString(BannerStyle.Render(l))
		b.WriteByte('\n')
	}
	return b.String()
}

// termWidth returns the current terminal column count, or 80 as fallback.
func termWidth() int {
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
		return w
	}
	return 80
}

// Tagline is printed under the banner.
func Tagline(hasKey bool, keyVariable string) string {
	if !hasKey {
		return BannerStyle.Render("  No API key yet: set " + keyVariable + " or type /key KEY. Offline voice only until then.")
	}
	return BannerStyle.Render("  Type a line and press enter. /play speaks it, /help lists commands.")
}
