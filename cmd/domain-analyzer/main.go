package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mikey/phishing-filter/internal/config"
	"github.com/mikey/phishing-filter/internal/core"
	"github.com/mikey/phishing-filter/internal/factory"
	"github.com/mikey/phishing-filter/internal/logging"
	"github.com/mikey/phishing-filter/internal/reputation"
	"go.uber.org/zap"
)

var (
	corpusFile  = flag.String("corpus", "", "Labeled corpus CSV (label, subject, body, from, to, urls)")
	outFull     = flag.String("out-full", "domain_analysis_full.csv", "Output path of the full reputation table")
	outLegit    = flag.String("out-legit", "legitimate_domains.csv", "Output path of the legitimate domains table")
	threshold   = flag.Int("threshold", 70, "Minimum legitimacy score written to -out-legit")
	safeURLsOut = flag.String("safe-urls-out", "", "Also write the urls of every ham record to this file")
	importTable = flag.Bool("import", false, "Import the table into the configured reputation store")
	configFile  = flag.String("config", "", "Path to config file (used with -import)")
	verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog     = flag.Bool("json-log", false, "Output logs in JSON format")
)

func main() {
	flag.Parse()
	_ = godotenv.Load()

	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *corpusFile == "" {
		fmt.Fprintln(os.Stderr, "usage: domain-analyzer -corpus corpus.csv [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if err := run(logger); err != nil {
		logger.Error("Domain analysis failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger) error {
	records, err := readCorpus(*corpusFile)
	if err != nil {
		return err
	}
	logger.Info("Corpus loaded", zap.String("file", *corpusFile), zap.Int("records", len(records)))

	rows := reputation.NewAnalyzer(logger).Analyze(records)

	if err := writeFile(*outFull, func(f *os.File) error {
		return reputation.WriteTable(f, rows)
	}); err != nil {
		return err
	}
	if err := writeFile(*outLegit, func(f *os.File) error {
		return reputation.WriteLegitimate(f, rows, *threshold)
	}); err != nil {
		return err
	}

	if *safeURLsOut != "" {
		var lines int
		if err := writeFile(*safeURLsOut, func(f *os.File) error {
			lines, err = reputation.WriteSafeURLs(f, records)
			return err
		}); err != nil {
			return err
		}
		logger.Info("Safe URLs written", zap.String("file", *safeURLsOut), zap.Int("lines", lines))
	}

	printSummary(rows)

	if *importTable {
		return importRows(logger, rows)
	}
	return nil
}

func readCorpus(path string) ([]reputation.CorpusRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}
	defer f.Close()
	return reputation.ReadCorpus(f)
}

func writeFile(path string, write func(*os.File) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func importRows(logger *zap.Logger, rows []core.DomainReputation) error {
	var cfg *config.Config
	var err error
	if *configFile != "" {
		cfg, err = config.NewFromFile(*configFile)
	} else {
		cfg, err = config.New()
	}
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	store, err := factory.NewReputationFactory(cfg, logger).CreateWritableStore()
	if err != nil {
		return fmt.Errorf("failed to open reputation store: %w", err)
	}
	defer store.Close()

	if err := store.ReplaceAll(context.Background(), rows); err != nil {
		return err
	}
	logger.Info("Reputation table imported",
		zap.String("store", cfg.GetString("reputation.store")),
		zap.Int("domains", len(rows)))
	return nil
}

func printSummary(rows []core.DomainReputation) {
	counts := make(map[core.Category]int)
	for _, row := range rows {
		counts[row.Category]++
	}

	fmt.Printf("\n=== Domain Analysis ===\n")
	fmt.Printf("Domains: %d\n", len(rows))
	fmt.Printf("Legitimate: %d\n", counts[core.CategoryLegitimate])
	fmt.Printf("Uncertain: %d\n", counts[core.CategoryUncertain])
	fmt.Printf("Spam: %d\n", counts[core.CategorySpam])

	top := rows
	if len(top) > 10 {
		top = top[:10]
	}
	if len(top) > 0 {
		fmt.Printf("\nTop domains:\n")
		for _, row := range top {
			fmt.Printf("  %-40s %3d  (spam %d, ham %d)\n", row.Domain, row.LegitimacyScore, row.InSpam, row.InHam)
		}
	}
}
