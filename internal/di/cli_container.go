package di

import (
	"flag"
	"os"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/phishing-filter/internal/adapters/filter"
	"github.com/mikey/phishing-filter/internal/config"
	"github.com/mikey/phishing-filter/internal/core"
	"github.com/mikey/phishing-filter/internal/factory"
	"github.com/mikey/phishing-filter/internal/logging"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// Input flags
	EMLFile string
	Subject string
	Body    string
	Sender  string
	URL     string

	// Artifact flags
	DomainsFile   string
	SafeHostsFile string
	ReputationCSV string
	Index         string
	MaxDistance   int

	// Output flags
	JSON       bool
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	return ParseFlagSet(flag.CommandLine, nil)
}

// ParseFlagSet registers the CLI flags on fs and parses args. A nil args
// slice parses the process arguments.
func ParseFlagSet(fs *flag.FlagSet, args []string) *CLIFlags {
	flags := &CLIFlags{}

	fs.StringVar(&flags.EMLFile, "eml", "", "RFC 5322 message to analyse (- for stdin)")
	fs.StringVar(&flags.Subject, "subject", "", "Email subject")
	fs.StringVar(&flags.Body, "body", "", "Email body")
	fs.StringVar(&flags.Sender, "sender", "", "Sender email address")
	fs.StringVar(&flags.URL, "url", "", "Link to check alongside the body")

	fs.StringVar(&flags.DomainsFile, "domains-file", "", "Legitimate domains CSV (overrides trust.domains_file)")
	fs.StringVar(&flags.SafeHostsFile, "safe-hosts-file", "", "Safe hostnames file (overrides trust.safe_hosts_file)")
	fs.StringVar(&flags.ReputationCSV, "reputation-csv", "", "Reputation table CSV (overrides reputation.csv_path)")
	fs.StringVar(&flags.Index, "index", "", "Lookalike index: linear or bktree")
	fs.IntVar(&flags.MaxDistance, "max-distance", 0, "Largest edit distance flagged as a lookalike")

	fs.BoolVar(&flags.JSON, "json", false, "Print the full result as JSON")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	fs.StringVar(&flags.ConfigFile, "config", "", "Path to config file")

	if args == nil {
		args = os.Args[1:]
	}
	fs.Parse(args)
	return flags
}

// BuildCLIContainer creates and configures the container of the one-shot CLI
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		cfg, err := loadCLIConfig(flags.ConfigFile)
		if err != nil {
			return nil, err
		}
		if flags.ConfigFile != "" {
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
		}
		applyFlags(cfg, flags)
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	if err := provideAnalysis(container); err != nil {
		return nil, err
	}

	// No verdict cache for one-shot runs
	if err := container.Provide(func() core.CacheRepository { return nil }); err != nil {
		return nil, err
	}

	if err := container.Provide(factory.NewFilterFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.FilterFactory) *filter.CliFilter {
		return f.CreateCliFilter()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

func loadCLIConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.NewFromFile(path)
	}
	return config.NewFromViper(config.NewEmptyViper()), nil
}

// applyFlags overrides configuration with the flags that were set
func applyFlags(cfg *config.Config, flags *CLIFlags) {
	cfg.Set("server.filter_type", "cli")
	cfg.Set("cli.verbose", flags.Verbose)
	cfg.Set("cli.json", flags.JSON)
	cfg.Set("cache.enabled", false)

	if flags.DomainsFile != "" {
		cfg.Set("trust.domains_file", flags.DomainsFile)
	}
	if flags.SafeHostsFile != "" {
		cfg.Set("trust.safe_hosts_file", flags.SafeHostsFile)
	}
	if flags.ReputationCSV != "" {
		cfg.Set("reputation.store", "csv")
		cfg.Set("reputation.csv_path", flags.ReputationCSV)
	}
	if flags.Index != "" {
		cfg.Set("lookalike.index", flags.Index)
	}
	if flags.MaxDistance > 0 {
		cfg.Set("lookalike.max_distance", flags.MaxDistance)
	}
}
