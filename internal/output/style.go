package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// DateFormat is the RFC 822 style (four digit year, numeric zone) date of the commit display
const DateFormat = time.RFC1123Z

var (
	hashStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f5c800"))
	labelStyle = lipgloss.NewStyle().Bold(true)
)

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ConfigureColor disables styling unless w is a terminal
func ConfigureColor(w io.Writer) {
	if f, ok := w.(*os.File); ok && IsTerminal(f) {
		return
	}
	lipgloss.SetColorProfile(termenv.Ascii)
}

// FormatCommit renders a commit the way `git log -1` shows it
func FormatCommit(commit *object.Commit) string {
	message := strings.TrimRight(commit.Message, "\n")
	if message == "" {
		message = "no commit message..."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("commit"), hashStyle.Render(commit.Hash.String()))
	fmt.Fprintf(&b, "%s %s <%s>\n", labelStyle.Render("Author:"), commit.Author.Name, commit.Author.Email)
	fmt.Fprintf(&b, "%s  %s\n", labelStyle.Render("Date:"), commit.Author.When.Format(DateFormat))
	fmt.Fprintf(&b, "\n   %s\n", message)
	return b.String()
}
