package theme

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shaharia-lab/audicord/internal/config"
)

const bannerWidth = 44

// DisplayBanner prints a styled banner with the app name and description
func DisplayBanner(t Theme, appCfg *config.AppConfig) {
	Banner(t, fmt.Sprintf("Welcome to %s", appCfg.Name), bannerWidth, "Audacious now playing on Discord")
}

// Banner prints a boxed title with optional subtitles. width grows to fit.
func Banner(t Theme, title string, width int, subtitle ...string) {
	for _, line := range append([]string{title}, subtitle...) {
		if n := utf8.RuneCountInString(line) + 4; n > width {
			width = n
		}
	}

	primary := t.Primary()
	primary.Println("╔" + strings.Repeat("═", width-2) + "╗")
	primary.Println("║" + center(title, width-2) + "║")

	if len(subtitle) > 0 {
		primary.Println("║" + strings.Repeat("─", width-2) + "║")
		for _, sub := range subtitle {
			t.Secondary().Println("║" + center(sub, width-2) + "║")
		}
	}

	primary.Println("╚" + strings.Repeat("═", width-2) + "╝")
}

// center pads s to width, putting the odd space on the right
func center(s string, width int) string {
	pad := width - utf8.RuneCountInString(s)
	if pad <= 0 {
		return s
	}
	left := pad / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", pad-left)
}
