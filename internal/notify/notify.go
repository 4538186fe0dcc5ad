package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Notifier is the user-visible side channel for transient notices.
type Notifier interface {
	Notify(level Level, message string)
}

// Func adapts a plain function into a Notifier.
type Func func(level Level, message string)

func (f Func) Notify(level Level, message string) {
	if f != nil {
		f(level, message)
	}
}

type nop struct{}

func (nop) Notify(Level, string) {}

func Nop() Notifier { return nop{} }

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAF00")).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FAFFF"))
)

// Console writes styled one-line notices to w.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Notify(level Level, message string) {
	var style lipgloss.Style
	var icon string
	switch level {
	case LevelSuccess:
		style, icon = successStyle, "✓"
	case LevelError:
		style, icon = errorStyle, "✗"
	case LevelWarning:
		style, icon = warningStyle, "!"
	default:
		style, icon = infoStyle, "i"
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, style.Render(fmt.Sprintf("%s %s", icon, message)))
}

type Notice struct {
	Level   Level
	Message string
}

// Recorder keeps every notice in order.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(level Level, message string) {
	r.mu.Lock()
	r.notices = append(r.notices, Notice{Level: level, Message: message})
	r.mu.Unlock()
}

func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

func (r *Recorder) Last() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.notices = nil
	r.mu.Unlock()
}
