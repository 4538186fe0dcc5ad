// Package display renders chat messages, stock cards and lists for the
// terminal.
package display

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/dyike/GenieGo/consts"
	"github.com/dyike/GenieGo/models"
)

const cardWidth = 64

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6"))

	assistantStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#10B981"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	positiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	negativeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	cardStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 1).
			Width(cardWidth)
)

// Renderer writes to one terminal. Markdown rendering falls back to plain
// text when glamour cannot build a renderer.
type Renderer struct {
	out io.Writer

	once sync.Once
	md   *glamour.TermRenderer
	wrap int
}

func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out, wrap: 100}
}

func (r *Renderer) markdown() *glamour.TermRenderer {
	r.once.Do(func() {
		md, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(r.wrap),
		)
		if err == nil {
			r.md = md
		}
	})
	return r.md
}

// RenderMessage formats one log entry. Assistant content is rendered as
// markdown.
func (r *Renderer) RenderMessage(msg models.Message) string {
	switch msg.Role {
	case consts.Role_User:
		return userStyle.Render("You") + "  " + msg.Content
	case consts.Role_Assistant:
		body := msg.Content
		if md := r.markdown(); md != nil {
			if out, err := md.Render(msg.Content); err == nil {
				body = strings.Trim(out, "\n")
			}
		}
		return assistantStyle.Render("FinanceGenie") + "\n" + body
	default:
		return msg.Content
	}
}

func (r *Renderer) PrintMessage(msg models.Message) {
	fmt.Fprintln(r.out, r.RenderMessage(msg))
	fmt.Fprintln(r.out)
}

func (r *Renderer) PrintMessages(msgs []models.Message) {
	for _, m := range msgs {
		r.PrintMessage(m)
	}
}

func (r *Renderer) PrintTitle(s string) {
	fmt.Fprintln(r.out, titleStyle.Render(s))
}

func (r *Renderer) PrintMuted(s string) {
	fmt.Fprintln(r.out, mutedStyle.Render(s))
}

func (r *Renderer) PrintCard(card string) {
	fmt.Fprintln(r.out, card)
}

// SymbolList renders search results, one per line.
func SymbolList(matches []models.SymbolMatch) string {
	if len(matches) == 0 {
		return mutedStyle.Render("No matching symbols.")
	}
	var b strings.Builder
	for _, m := range matches {
		line := fmt.Sprintf("%-6s %s", m.Symbol, m.Name)
		if m.Exchange != "" {
			line += mutedStyle.Render("  " + m.Exchange)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// RecentList numbers the recent symbols and marks the active one.
func RecentList(symbols []string, active string) string {
	if len(symbols) == 0 {
		return mutedStyle.Render("No recent searches.")
	}
	var b strings.Builder
	for i, s := range symbols {
		marker := " "
		if s == active {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s %d. %s\n", marker, i+1, s)
	}
	return strings.TrimRight(b.String(), "\n")
}

func changeStyle(change float64) lipgloss.Style {
	switch {
	case change > 0:
		return positiveStyle
	case change < 0:
		return negativeStyle
	}
	return mutedStyle
}
