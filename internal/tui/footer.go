package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// FooterModel renders the key help and the session status.
type FooterModel struct {
	keymap KeyMap
	paused bool
	done   bool
	failed bool
	width  int
}

func NewFooterModel() FooterModel {
	return FooterModel{keymap: DefaultKeyMap()}
}

func (f *FooterModel) SetWidth(w int)       { f.width = w }
func (f *FooterModel) SetPaused(p bool)     { f.paused = p }
func (f *FooterModel) SetDone(d bool)       { f.done = d }
func (f *FooterModel) SetError(failed bool) { f.failed = failed }

// status returns the status badge. Errors win over completion, completion
// over pause.
func (f FooterModel) status() string {
	switch {
	case f.failed:
		return statusErrorStyle.Render("● ERROR")
	case f.done:
		return statusDoneStyle.Render("● DONE")
	case f.paused:
		return statusPausedStyle.Render("● PAUSED")
	default:
		return statusRunningStyle.Render("● RUNNING")
	}
}

func (f FooterModel) View() string {
	var help []string
	for _, b := range f.keymap.footerBindings() {
		h := b.Help()
		help = append(help, footerKeyStyle.Render(h.Key)+" "+footerDescStyle.Render(h.Desc))
	}
	left := " " + strings.Join(help, footerDescStyle.Render("  "))
	right := f.status() + " "

	gap := f.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return right
	}
	return left + strings.Repeat(" ", gap) + right
}
