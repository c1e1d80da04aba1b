package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/serpdriver/serpdriver/internal/history"
	"github.com/serpdriver/serpdriver/pkg/search"
)

var (
	version = "1.0.0"

	// Global flags
	configFile string
	debug      bool
	logLevel   string

	// Search flags
	limit       int
	timeoutSecs int
	locale      string
	googleURL   string
	visible     bool
	noSaveState bool
	noHistory   bool
	stateFile   string
	browserBin  string
	outputFile  string
	pretty      bool
	staggerSecs int

	// History flags
	historyCount int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "serpdriver",
		Short: "serpdriver - Google search via a real browser",
		Long: `serpdriver - Drive Google searches through a real Chrome instance.

Presents a persistent browser identity across runs, recovers from CAPTCHA
challenges by switching to a visible window, and extracts organic results
through layered selector strategies.`,
		Version: version,
	}

	searchCmd := &cobra.Command{
		Use:   "search [query...]",
		Short: "Run one or more search queries",
		Long:  "Run one or more queries. Multiple queries share one browser, each in its own incognito context.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent search runs",
		RunE:  runHistory,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file (JSON or YAML)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Debug mode: visible browser, verbose logs, keep windows open")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	searchCmd.Flags().IntVarP(&limit, "limit", "n", search.DefaultLimit, "Maximum results per query")
	searchCmd.Flags().IntVarP(&timeoutSecs, "timeout", "t", 60, "Search timeout in seconds")
	searchCmd.Flags().StringVarP(&locale, "locale", "l", "", "Locale to present (default: host locale)")
	searchCmd.Flags().StringVar(&googleURL, "google-url", "", "Google endpoint override")
	searchCmd.Flags().BoolVar(&visible, "visible", false, "Run the browser with a visible window")
	searchCmd.Flags().BoolVar(&noSaveState, "no-save-state", false, "Do not persist session state after the run")
	searchCmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record the run in history")
	searchCmd.Flags().StringVar(&stateFile, "state-file", "", "Session state file path")
	searchCmd.Flags().StringVar(&browserBin, "browser-bin", "", "Chrome binary path")
	searchCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	searchCmd.Flags().BoolVar(&pretty, "pretty", true, "Pretty-print JSON output")
	searchCmd.Flags().IntVar(&staggerSecs, "stagger", 2, "Seconds between query starts in multi-query runs")

	historyCmd.Flags().IntVarP(&historyCount, "count", "n", 20, "Number of runs to show")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(historyCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runSearch(cmd *cobra.Command, args []string) error {
	opts := []search.Option{
		search.WithLogLevel(logLevel),
		search.WithDebug(debug),
		search.WithHeadless(!visible),
		search.WithNoSaveState(noSaveState),
		search.WithHistory(!noHistory),
	}

	if configFile != "" {
		config, err := search.LoadFromFile(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config file: %w", err)
		}
		opts = append([]search.Option{search.WithConfig(config)}, opts...)
	}

	if cmd.Flags().Changed("limit") {
		opts = append(opts, search.WithLimit(limit))
	}
	if cmd.Flags().Changed("timeout") {
		opts = append(opts, search.WithTimeout(time.Duration(timeoutSecs)*time.Second))
	}
	if cmd.Flags().Changed("stagger") {
		opts = append(opts, search.WithStaggerInterval(time.Duration(staggerSecs)*time.Second))
	}
	if locale != "" {
		opts = append(opts, search.WithLocale(locale))
	}
	if googleURL != "" {
		opts = append(opts, search.WithGoogleURL(googleURL))
	}
	if stateFile != "" {
		opts = append(opts, search.WithStatePath(stateFile))
	}
	if browserBin != "" {
		opts = append(opts, search.WithBrowserBin(browserBin))
	}

	c, err := search.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create controller: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintf(os.Stderr, "\nReceived interrupt signal, stopping...\n")
		cancel()
	}()

	if len(args) == 1 {
		resp, serr := c.Search(ctx, args[0])
		if resp == nil {
			return serr
		}
		if werr := writeJSON(resp, outputFile, pretty); werr != nil {
			return werr
		}
		// The diagnostic response is already written; still exit nonzero.
		return serr
	}

	resps, merr := c.MultiSearch(ctx, args)
	if merr != nil {
		return merr
	}
	return writeJSON(resps, outputFile, pretty)
}

func runHistory(cmd *cobra.Command, args []string) error {
	env := search.LoadEnvironment()

	store, err := history.Open(filepath.Join(env.StorageDir, "history.db"))
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer store.Close()

	records, err := store.Recent(historyCount)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	if len(records) == 0 {
		fmt.Println("No recorded runs.")
		return nil
	}

	for _, rec := range records {
		status := fmt.Sprintf("%d results", rec.ResultCount)
		if rec.Failed {
			status = "FAILED: " + rec.Error
		}
		fmt.Printf("%s  %-40q  %s  (%v)\n",
			rec.Timestamp.Format("2006-01-02 15:04:05"), rec.Query, status, rec.Duration.Round(time.Millisecond))
	}
	return nil
}

func writeJSON(payload interface{}, path string, pretty bool) error {
	var data []byte
	var err error
	if pretty {
		data, err = json.MarshalIndent(payload, "", "  ")
	} else {
		data, err = json.Marshal(payload)
	}
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Results written to %s\n", path)
	return nil
}
