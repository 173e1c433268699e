// Command conda-hint explains why a set of conda package specs is
// unsatisfiable on a platform, by extracting minimal conflicting subsets.
//
// Examples:
//
//	conda-hint 'numpy 1.9*' 'python 3.5*' statsmodels
//	conda-hint -p win-64 numpy
//
// Exit codes: 0 when the specs are satisfiable, 1 when hints were produced,
// 2 for usage or spec-parse failures, 3 when the oracle failed or a budget
// was exceeded.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rmcgibbo/conda-hint/internal/extract"
	"github.com/rmcgibbo/conda-hint/internal/hint"
	"github.com/rmcgibbo/conda-hint/internal/index"
	"github.com/rmcgibbo/conda-hint/internal/logging"
	"github.com/rmcgibbo/conda-hint/internal/oracle"
	"github.com/rmcgibbo/conda-hint/internal/spec"
)

var (
	// Global flags
	platformFlag  string
	channels      []string
	repodataFiles []string
	maxHints      int
	maxQueries    int
	timeout       time.Duration
	parallel      bool
	noColor       bool
	verbose       bool

	// Logger
	logger *zap.Logger

	// runReached distinguishes usage failures (cobra rejected the
	// invocation before RunE started) from runtime failures when mapping
	// errors to exit codes.
	runReached bool
)

// errHints marks a completed run that produced hints: the input was
// unsatisfiable, which is this tool's useful outcome, not a malfunction.
var errHints = errors.New("specs are unsatisfiable")

var rootCmd = &cobra.Command{
	Use:   "conda-hint [specs...]",
	Short: "Hint as to why a given set of conda package specs is unsatisfiable",
	Long: `conda-hint checks whether a set of package specifications can be
installed together on a platform, and when they cannot, extracts minimal
conflicting subsets and explains each one.

Note that to use spaces inside a spec, enclose it in quotes on the
command line:

  conda-hint 'numpy 1.9*' 'python 3.5*' statsmodels
  conda-hint numpy`,
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runHint,
}

func init() {
	rootCmd.Flags().StringVarP(&platformFlag, "platform", "p", "",
		"platform to resolve for (default: current host platform)")
	rootCmd.Flags().StringArrayVarP(&channels, "channel", "c", nil,
		"channel URL to fetch repodata from (repeatable; default: ~/.condarc channels)")
	rootCmd.Flags().StringArrayVar(&repodataFiles, "repodata", nil,
		"local repodata.json file to load instead of fetching (repeatable)")
	rootCmd.Flags().IntVar(&maxHints, "max-hints", extract.DefaultMaxCores,
		"maximum number of independent conflicts to surface")
	rootCmd.Flags().IntVar(&maxQueries, "max-queries", 0,
		"abort after this many oracle queries (0: unlimited)")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 0,
		"abort the run after this duration (0: unlimited)")
	rootCmd.Flags().BoolVar(&parallel, "parallel", false,
		"search for additional conflicts concurrently")
	rootCmd.Flags().BoolVar(&noColor, "no-color", false,
		"disable colored output")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false,
		"enable debug logging")
}

func runHint(cmd *cobra.Command, args []string) error {
	runReached = true
	out := cmd.OutOrStdout()

	platform := spec.CurrentPlatform()
	if platformFlag != "" {
		p, err := spec.ParsePlatform(platformFlag)
		if err != nil {
			return &usageError{err}
		}
		platform = p
	}

	set, err := spec.ParseSet(args...)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ix, err := loadIndex(ctx, platform)
	if err != nil {
		return err
	}
	logger.Debug("index loaded",
		zap.Int("records", ix.Len()),
		zap.String("platform", platform.String()))

	resolver := index.NewResolver(ix, platform, logger)
	cfg := oracle.Config{MaxQueries: maxQueries}
	adapter := oracle.NewAdapter(resolver, cfg, logger)

	fmt.Fprintf(out, "Solving package specifications: %s\n", set)
	res, err := adapter.Query(ctx, set, platform)
	if err != nil {
		return err
	}
	if res.Satisfiable {
		fmt.Fprintf(out, "\nFound solution:\n")
		for _, fn := range res.Witness {
			fmt.Fprintf(out, "  %s\n", index.DisplayName(fn))
		}
		return nil
	}

	fmt.Fprintf(out, "Generating hint: %s\n", set)
	var cores []extract.Core
	if parallel {
		cores, err = extract.ParallelCores(ctx, resolver, cfg, set, platform, maxHints, logger)
	} else {
		cores, err = extract.New(adapter, maxHints, logger).Cores(ctx, set, platform)
	}
	if err != nil {
		return err
	}
	logger.Debug("extraction finished",
		zap.Int("cores", len(cores)),
		zap.Int("queries", adapter.Queries()),
		zap.Int("cache_hits", adapter.CacheHits()))

	report := hint.BuildReport(cores, platform, hint.NewRenderer(!noColor))
	for _, h := range report.Hints {
		fmt.Fprintf(out, "\n%s\n", h.Text)
	}
	return errHints
}

// loadIndex builds the package universe: local repodata files when given,
// otherwise repodata fetched from the flagged channels, the condarc
// channels, or the default channel, in that priority order.
func loadIndex(ctx context.Context, platform spec.Platform) (*index.Index, error) {
	if len(repodataFiles) > 0 {
		return index.LoadFiles(repodataFiles...)
	}
	chs := channels
	if len(chs) == 0 {
		if path := index.DefaultCondarcPath(); path != "" {
			rc, err := index.ChannelsFromCondarc(path)
			if err != nil {
				return nil, err
			}
			chs = rc
		}
	}
	if len(chs) == 0 {
		chs = index.DefaultChannels()
	}
	return index.NewFetcher(logger).Fetch(ctx, chs, platform)
}

type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, errHints) {
		return 1
	}
	var parseErr *spec.ParseError
	var usageErr *usageError
	if errors.As(err, &parseErr) || errors.As(err, &usageErr) || !runReached {
		return 2
	}
	return 3
}

func main() {
	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, errHints) {
		fmt.Fprintf(os.Stderr, "conda-hint: %v\n", err)
	}
	os.Exit(exitCode(err))
}
