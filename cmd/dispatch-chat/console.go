package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	dispatch "github.com/a-essam23/go-dispatch-client"
)

var (
	systemStyle = lipgloss.NewStyle().Faint(true).Italic(true)
	ownStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	otherStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle = lipgloss.NewStyle().Bold(true)
)

// consoleSink renders client notifications as timestamped lines.
type consoleSink struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

func newConsoleSink(out io.Writer) *consoleSink {
	return &consoleSink{out: out, now: time.Now}
}

func (s *consoleSink) OnStateChange(state dispatch.State) {
	s.line(statusStyle.Render("[" + state.String() + "]"))
}

func (s *consoleSink) OnSystemNotice(text string) {
	s.line(systemStyle.Render("system: " + text))
}

func (s *consoleSink) OnChatNotice(user, text string, isOwn bool) {
	style := otherStyle
	if isOwn {
		style = ownStyle
	}
	s.line(style.Render(user) + ": " + text)
}

func (s *consoleSink) OnValidationError(text string) {
	s.line(errorStyle.Render("error: " + text))
}

// prompt prints without a timestamp or newline.
func (s *consoleSink) prompt(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprint(s.out, text)
}

func (s *consoleSink) line(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "%s %s\n", s.now().Format("2006-01-02 15:04"), text)
}
