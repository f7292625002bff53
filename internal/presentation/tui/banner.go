package tui

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text, color string
}{
	{`     _         _               `, "#34d399"},
	{`    / \   _ __| |__   ___  _ __ `, "#10b981"},
	{`   / _ \ | '__| '_ \ / _ \| '__|`, "#059669"},
	{`  / ___ \| |  | |_) | (_) | |   `, "#047857"},
	{` /_/   \_\_|  |_.__/ \___/|_|   `, "#065f46"},
}

// IsTerminal reports whether f is attached to an interactive terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// PrintBanner writes the Arbor banner to stderr when it is a terminal.
func PrintBanner() {
	if !IsTerminal(os.Stderr) {
		return
	}
	WriteBanner(os.Stderr, termenv.ColorProfile())
}

// WriteBanner writes the banner to w using the given color profile.
// termenv.Ascii yields plain text.
func WriteBanner(w io.Writer, p termenv.Profile) {
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
