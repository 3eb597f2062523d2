// Package cli provides shared formatting helpers for CLI output.
package cli

import (
	"fmt"
	"os"
	"strings"
)

// ANSI color constants.
const (
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Red     = "\033[31m"
	Cyan    = "\033[36m"
	DimCyan = "\033[2;36m"
	Dim     = "\033[2m"
	Bold    = "\033[1m"
	Reset   = "\033[0m"
)

// Box width is the inner content width (between the border characters).
const boxWidth = 40

// Margin is the left indent for all branded output.
const margin = "  "

// ANSI 256-color cyan gradient, bright to dark, one per logo line.
var cyanGradient = []string{
	"\033[38;5;51m", // #00ffff bright cyan
	"\033[38;5;45m", // #00d7ff
	"\033[38;5;39m", // #00afff
	"\033[38;5;38m", // #00afd7
	"\033[38;5;32m", // #0087d7
	"\033[38;5;25m", // #005faf
}

// ShortenHome replaces $HOME prefix with ~.
func ShortenHome(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}

// FormatNumber adds comma separators (1234 -> "1,234").
func FormatNumber(n int) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return FormatNumber(n/1000) + "," + fmt.Sprintf("%03d", n%1000)
}

// Banner prints the SNIPDEX ASCII art logo with cyan gradient and tagline.
// Used by `snipdex init`.
func Banner(version string) {
	logo := []string{
		"  ███████╗███╗   ██╗██╗██████╗ ██████╗ ███████╗██╗  ██╗",
		"  ██╔════╝████╗  ██║██║██╔══██╗██╔══██╗██╔════╝╚██╗██╔╝",
		"  ███████╗██╔██╗ ██║██║██████╔╝██║  ██║█████╗   ╚███╔╝ ",
		"  ╚════██║██║╚██╗██║██║██╔═══╝ ██║  ██║██╔══╝   ██╔██╗ ",
		"  ███████║██║ ╚████║██║██║     ██████╔╝███████╗██╔╝ ██╗",
		"  ╚══════╝╚═╝  ╚═══╝╚═╝╚═╝     ╚═════╝ ╚══════╝╚═╝  ╚═╝",
	}

	fmt.Println()
	for i, line := range logo {
		color := cyanGradient[i%len(cyanGradient)]
		fmt.Printf("%s%s%s\n", color, line, Reset)
	}
	fmt.Println()
	fmt.Printf("  %sEvery snippet you save gets lost.%s %s%sNot anymore.%s\n",
		Dim, Reset, Bold, Cyan, Reset)
	fmt.Println()
	fmt.Printf("  %ssnipdex%s %s— the markdown snippet corpus indexer v%s%s\n",
		Bold, Reset, Dim, version, Reset)
}

// Header prints a small heavy-border box with a title. Used by `snipdex doctor`.
func Header(title string) {
	fmt.Println()
	heavyTop := margin + "┏" + strings.Repeat("━", boxWidth) + "┓"
	heavyBottom := margin + "┗" + strings.Repeat("━", boxWidth) + "┛"

	content := "  " + title
	padded := padRight(content, boxWidth)

	fmt.Printf("%s%s%s\n", Cyan, heavyTop, Reset)
	fmt.Printf("%s%s┃%s┃%s\n", Cyan, margin, padded, Reset)
	fmt.Printf("%s%s%s\n", Cyan, heavyBottom, Reset)
}

// Section prints a section divider line: ── Name ─────────────────
func Section(name string) {
	prefix := "── " + name + " "
	remaining := boxWidth + 2 - runeLen(prefix)
	if remaining < 0 {
		remaining = 0
	}
	rule := prefix + strings.Repeat("─", remaining)
	fmt.Printf("\n%s%s%s%s%s\n\n", margin, Cyan, rule, Reset, "")
}

// Box prints a light-border box around content lines.
func Box(lines []string) {
	lightTop := margin + "┌" + strings.Repeat("─", boxWidth) + "┐"
	lightBottom := margin + "└" + strings.Repeat("─", boxWidth) + "┘"

	fmt.Println()
	fmt.Println(lightTop)
	for _, line := range lines {
		content := "  " + line
		padded := padRight(content, boxWidth)
		fmt.Printf("%s│%s│\n", margin, padded)
	}
	fmt.Println(lightBottom)
}

// Footer prints the branded footer in dim text.
func Footer() {
	fmt.Printf("\n%s%ssnipdex/snipdex · local markdown corpus tooling%s\n\n", margin, Dim, Reset)
}

// padRight pads s with spaces to exactly width characters.
// If s is longer than width, it is truncated.
func padRight(s string, width int) string {
	n := runeLen(s)
	if n >= width {
		r := []rune(s)
		return string(r[:width])
	}
	return s + strings.Repeat(" ", width-n)
}

// runeLen counts the display width in runes.
func runeLen(s string) int {
	return len([]rune(s))
}
