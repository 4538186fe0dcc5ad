package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	welcomeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7C3AED")).
			Bold(true)

	taglineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Italic(true)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)
)

var replHelp = [][2]string{
	{"/stock [SYMBOL] [PERIOD]", "show the stock card (defaults to the active symbol, 1mo)"},
	{"/search QUERY", "look up ticker symbols"},
	{"/recent [N]", "list recent symbols, or make entry N active"},
	{"/clear", "clear the chat history"},
	{"/status", "market-data quota, model and storage"},
	{"/help", "show this help"},
	{"/exit", "quit"},
}

func showWelcomeBanner(w io.Writer) {
	fmt.Fprintln(w, welcomeStyle.Render("FinanceGenie"))
	fmt.Fprintln(w, taglineStyle.Render("Ask about a stock (e.g. \"AAPL stock\") or anything about markets. /help for commands."))
	fmt.Fprintln(w)
}

func showHelp(w io.Writer) {
	width := 0
	for _, h := range replHelp {
		width = max(width, len(h[0]))
	}
	for _, h := range replHelp {
		fmt.Fprintf(w, "  %s  %s\n", helpKeyStyle.Render(h[0]+strings.Repeat(" ", width-len(h[0]))), h[1])
	}
}

func showError(w io.Writer, err error) {
	fmt.Fprintln(w, errorStyle.Render("error: ")+err.Error())
}
