package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dyike/GenieGo/config"
	"github.com/dyike/GenieGo/internal/display"
	"github.com/dyike/GenieGo/internal/router"
	"github.com/dyike/GenieGo/models"
)

// cliApp carries the global flags and the lazily built services shared by
// all subcommands.
type cliApp struct {
	opts globalOptions
	svc  *services
	in   io.Reader
}

func (a *cliApp) services(cmd *cobra.Command) (*services, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	svc, err := newServices(cmd.Context(), a.opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	a.svc = svc
	return svc, nil
}

func (a *cliApp) close() {
	if a.svc != nil {
		a.svc.Close()
		a.svc = nil
	}
}

// newRootCmd creates the root command
func newRootCmd() (*cobra.Command, *cliApp) {
	a := &cliApp{}

	rootCmd := &cobra.Command{
		Use:   "geniego",
		Short: "GenieGo - FinanceGenie chat assistant for stocks and markets",
		Long: `GenieGo is a terminal chat assistant for financial markets.
Mention a ticker with "stock", "price", "chart" or "quote" to get a live quote
and chart; ask anything else and the AI answers.`,
		SilenceUsage: true,
		RunE:         a.runChat,
	}

	rootCmd.AddCommand(newChatCmd(a))
	rootCmd.AddCommand(newQuoteCmd(a))
	rootCmd.AddCommand(newChartCmd(a))
	rootCmd.AddCommand(newSearchCmd(a))
	rootCmd.AddCommand(newRecentCmd(a))
	rootCmd.AddCommand(newClearCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))
	rootCmd.AddCommand(newVersionCmd())

	// Global flags
	rootCmd.PersistentFlags().BoolVar(&a.opts.debug, "debug", false, "Mirror logs to stderr")
	rootCmd.PersistentFlags().StringVar(&a.opts.configPath, "config", "", "Configuration file path")

	return rootCmd, a
}

func newChatCmd(a *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start the interactive chat (default)",
		Args:  cobra.NoArgs,
		RunE:  a.runChat,
	}
}

func (a *cliApp) runChat(cmd *cobra.Command, args []string) error {
	svc, err := a.services(cmd)
	if err != nil {
		return err
	}
	in := a.in
	if in == nil {
		in = cmd.InOrStdin()
	}
	session := newChatSession(svc.assistant, svc.market, svc.renderer, in, cmd.OutOrStdout())
	if a.in == nil {
		session.prompter = defaultPrompter()
	}
	session.extraStatus = func() []string {
		cfg := svc.runtime.Config()
		lines := []string{
			fmt.Sprintf("Chat model:    %s (%s), engine v%d", cfg.ChatModel, cfg.LLMProvider, svc.runtime.Engine().Version),
			fmt.Sprintf("Storage:       %s", svc.storage),
			fmt.Sprintf("Config:        %s", svc.runtime.ConfigPath()),
		}
		if err := svc.runtime.Engine().Err; err != nil {
			lines = append(lines, fmt.Sprintf("Model error:   %v", err))
		}
		return lines
	}
	return session.Run(cmd.Context())
}

func newQuoteCmd(a *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:     "quote SYMBOL",
		Short:   "Show the latest quote for a symbol",
		Example: "  geniego quote AAPL",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.services(cmd)
			if err != nil {
				return err
			}
			q, err := svc.market.GetQuote(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			svc.session.AddRecentSymbol(q.Symbol)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, router.FormatQuoteReply(q))
			fmt.Fprintf(out, "Open %s  High %s  Low %s  Prev Close %s  Volume %s\n",
				display.FormatCurrency(q.Open),
				display.FormatCurrency(q.DayHigh),
				display.FormatCurrency(q.DayLow),
				display.FormatCurrency(q.PreviousClose),
				display.FormatLargeNumber(float64(q.Volume)),
			)
			return nil
		},
	}
}

func newChartCmd(a *cliApp) *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:     "chart SYMBOL",
		Short:   "Show the stock card with a price sparkline",
		Example: "  geniego chart TSLA --period 3mo",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := models.ParsePeriod(period)
			if err != nil {
				return err
			}
			svc, err := a.services(cmd)
			if err != nil {
				return err
			}
			snap, err := svc.assistant.StockView(cmd.Context(), args[0], p)
			if err != nil {
				return err
			}
			svc.renderer.PrintCard(display.StockCard(snap.Symbol, snap.Period, snap.Quote, snap.History))
			if snap.Quote == nil && len(snap.History) == 0 {
				return errors.Join(snap.QuoteErr, snap.HistoryErr)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&period, "period", "p", string(models.DefaultPeriod), "Time range: 1d, 5d, 1mo, 3mo, 6mo, 1y, 5y")
	return cmd
}

func newSearchCmd(a *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "search QUERY",
		Short: "Search ticker symbols by name or prefix",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.services(cmd)
			if err != nil {
				return err
			}
			matches, err := svc.market.SearchSymbols(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), display.SymbolList(matches))
			return nil
		},
	}
}

func newRecentCmd(a *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "recent",
		Short: "List recently looked-up symbols",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.services(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), display.RecentList(svc.session.RecentSymbols(), ""))
			return nil
		},
	}
}

func newClearCmd(a *cliApp) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the saved chat history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				if !stdinIsTerminal() {
					return fmt.Errorf("refusing to clear without --yes when stdin is not a terminal")
				}
				ok, err := surveyPrompter{}.ConfirmClear()
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
			}
			svc, err := a.services(cmd)
			if err != nil {
				return err
			}
			svc.assistant.Clear()
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "GenieGo v%s\n", Version)
		},
	}
}

// newConfigCmd creates the config command
func newConfigCmd(a *cliApp) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration (secrets masked)",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openConfig(a.opts)
			if err != nil {
				return err
			}
			return showConfig(cmd.OutOrStdout(), mgr.Get())
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openConfig(a.opts)
			if err != nil {
				return err
			}
			return validateConfig(cmd.OutOrStdout(), mgr.Get())
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openConfig(a.opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), mgr.Path())
			return nil
		},
	})

	return configCmd
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

func showConfig(w io.Writer, cfg config.Config) error {
	cfg.DeepSeekAPIKey = maskSecret(cfg.DeepSeekAPIKey)
	cfg.MarketAPIKey = maskSecret(cfg.MarketAPIKey)
	cfg.LongportAppKey = maskSecret(cfg.LongportAppKey)
	cfg.LongportAppSecret = maskSecret(cfg.LongportAppSecret)
	cfg.LongportAccessToken = maskSecret(cfg.LongportAccessToken)
	cfg.RedisPassword = maskSecret(cfg.RedisPassword)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}

// validateConfig checks the config and reports missing credentials as
// warnings; only invalid values are errors.
func validateConfig(w io.Writer, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(w, "Configuration invalid.")
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("directory validation failed: %w", err)
	}

	var warnings []string
	if cfg.DeepSeekAPIKey == "" {
		warnings = append(warnings, "DEEPSEEK_API_KEY not configured: chat replies will fail")
	}
	switch cfg.MarketProvider {
	case config.MarketYFAPI:
		if cfg.MarketAPIKey == "" {
			warnings = append(warnings, "MARKET_API_KEY not configured: quotes will use sample data")
		}
	case config.MarketLongport:
		if cfg.LongportAppKey == "" || cfg.LongportAppSecret == "" || cfg.LongportAccessToken == "" {
			warnings = append(warnings, "Longport credentials incomplete")
		}
	}
	if cfg.StorageBackend == config.StorageRedis && cfg.RedisAddr == "" {
		warnings = append(warnings, "REDIS_ADDR not configured")
	}

	for _, warning := range warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	if len(warnings) == 0 {
		fmt.Fprintln(w, "Configuration valid.")
	} else {
		fmt.Fprintf(w, "Configuration valid with %d warnings.\n", len(warnings))
	}
	return nil
}
