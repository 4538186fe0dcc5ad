package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/dyike/GenieGo/internal/assistant"
	"github.com/dyike/GenieGo/internal/display"
	"github.com/dyike/GenieGo/internal/marketdata"
	"github.com/dyike/GenieGo/models"
)

// chatSession is the interactive REPL. Plain lines are chat turns; lines
// starting with "/" are commands.
type chatSession struct {
	assistant *assistant.Assistant
	market    *marketdata.Client
	renderer  *display.Renderer
	prompter  prompter
	in        *bufio.Reader
	out       io.Writer
	// extraStatus adds lines to /status.
	extraStatus func() []string
}

func newChatSession(a *assistant.Assistant, market *marketdata.Client, renderer *display.Renderer, in io.Reader, out io.Writer) *chatSession {
	return &chatSession{
		assistant: a,
		market:    market,
		renderer:  renderer,
		in:        bufio.NewReader(in),
		out:       out,
	}
}

func (s *chatSession) Run(ctx context.Context) error {
	showWelcomeBanner(s.out)
	s.renderer.PrintMessages(s.assistant.Session().Messages())

	for {
		fmt.Fprint(s.out, promptStyle.Render("you> "))
		line, err := s.in.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				if strings.TrimSpace(line) != "" {
					s.handleLine(ctx, line)
				}
				fmt.Fprintln(s.out)
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}
		if quit := s.handleLine(ctx, line); quit {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// handleLine reports whether the session should end.
func (s *chatSession) handleLine(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if strings.HasPrefix(line, "/") {
		return s.handleCommand(ctx, line)
	}
	s.chat(ctx, line)
	return false
}

func (s *chatSession) chat(ctx context.Context, text string) {
	// Ctrl-C while a turn is pending cancels only that turn.
	turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	turn, err := s.assistant.Send(turnCtx, text)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.renderer.PrintMuted("Cancelled.")
			return
		}
		showError(s.out, err)
		return
	}
	s.renderer.PrintMessage(turn.Reply)
	if turn.Handled {
		s.printSnapshot(s.assistant.TurnStockView(turnCtx, turn, models.DefaultPeriod))
	}
}

func (s *chatSession) handleCommand(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "/exit", "/quit", "/q":
		fmt.Fprintln(s.out, "Goodbye!")
		return true
	case "/help", "/h", "/?":
		showHelp(s.out)
	case "/stock", "/chart":
		s.stockCommand(ctx, args)
	case "/search":
		s.searchCommand(ctx, strings.Join(args, " "))
	case "/recent":
		s.recentCommand(ctx, args)
	case "/clear":
		s.clearCommand()
	case "/status":
		s.statusCommand()
	default:
		fmt.Fprintf(s.out, "Unknown command: %s. Type /help for available commands.\n", command)
	}
	fmt.Fprintln(s.out)
	return false
}

func (s *chatSession) stockCommand(ctx context.Context, args []string) {
	var symbol string
	var period models.Period
	for _, arg := range args {
		if p, err := models.ParsePeriod(arg); err == nil && period == "" {
			period = p
			continue
		}
		if symbol == "" {
			symbol = arg
		}
	}
	if symbol == "" && s.assistant.ActiveSymbol() == "" {
		fmt.Fprintln(s.out, "Usage: /stock SYMBOL [PERIOD]")
		return
	}
	if period == "" {
		period = models.DefaultPeriod
		if s.prompter != nil {
			picked, err := s.prompter.SelectPeriod(models.DefaultPeriod)
			if err != nil {
				return
			}
			period = picked
		}
	}
	s.showStock(ctx, symbol, period)
}

func (s *chatSession) showStock(ctx context.Context, symbol string, period models.Period) {
	s.printSnapshot(s.assistant.StockView(ctx, symbol, period))
}

func (s *chatSession) printSnapshot(snap *assistant.StockSnapshot, err error) {
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			showError(s.out, err)
		}
		return
	}
	s.renderer.PrintCard(display.StockCard(snap.Symbol, snap.Period, snap.Quote, snap.History))
}

func (s *chatSession) searchCommand(ctx context.Context, query string) {
	if strings.TrimSpace(query) == "" {
		fmt.Fprintln(s.out, "Usage: /search QUERY")
		return
	}
	matches, err := s.market.SearchSymbols(ctx, query)
	if err != nil {
		showError(s.out, err)
		return
	}
	fmt.Fprintln(s.out, display.SymbolList(matches))
}

func (s *chatSession) recentCommand(ctx context.Context, args []string) {
	recent := s.assistant.Session().RecentSymbols()
	if len(args) == 0 {
		fmt.Fprintln(s.out, display.RecentList(recent, s.assistant.ActiveSymbol()))
		return
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(recent) {
		fmt.Fprintf(s.out, "Pick an entry between 1 and %d.\n", len(recent))
		return
	}
	symbol := s.assistant.SelectRecent(recent[n-1])
	s.showStock(ctx, symbol, models.DefaultPeriod)
}

func (s *chatSession) clearCommand() {
	if s.prompter != nil {
		ok, err := s.prompter.ConfirmClear()
		if err != nil || !ok {
			return
		}
	}
	s.assistant.Clear()
	s.renderer.PrintMessages(s.assistant.Session().Messages())
}

func (s *chatSession) statusCommand() {
	usage := s.market.Usage()
	fmt.Fprintf(s.out, "Market data:   %s, %d/%d requests", s.market.ProviderName(), usage.Count, usage.Limit)
	if !usage.ResetAt.IsZero() {
		fmt.Fprintf(s.out, ", window resets %s", usage.ResetAt.Local().Format(time.TimeOnly))
	}
	fmt.Fprintln(s.out)
	store := s.assistant.Session()
	fmt.Fprintf(s.out, "Messages:      %d\n", store.Len())
	active := s.assistant.ActiveSymbol()
	if active == "" {
		active = "-"
	}
	fmt.Fprintf(s.out, "Active symbol: %s\n", active)
	fmt.Fprintf(s.out, "Recent:        %s\n", strings.Join(store.RecentSymbols(), ", "))
	if s.extraStatus != nil {
		for _, line := range s.extraStatus() {
			fmt.Fprintln(s.out, line)
		}
	}
}
