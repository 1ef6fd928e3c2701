package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/mikey/phishing-filter/internal/adapters/filter"
	"github.com/mikey/phishing-filter/internal/core"
	"github.com/mikey/phishing-filter/internal/di"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	spam := false
	err = container.Invoke(func(logger *zap.Logger, cli *filter.CliFilter, store core.ReputationStore) error {
		defer logger.Sync()
		if store != nil {
			defer store.Close()
		}

		record, err := readRecord(flags)
		if err != nil {
			return err
		}

		result, err := cli.ProcessRecord(context.Background(), record)
		if err != nil {
			return err
		}
		spam = result.IsSpam()
		return nil
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if spam {
		os.Exit(2)
	}
}

// readRecord builds the record from -eml, or from the field flags when no
// message is given
func readRecord(flags *di.CLIFlags) (core.EmailRecord, error) {
	if flags.EMLFile == "" {
		return core.EmailRecord{
			Subject:     flags.Subject,
			Body:        flags.Body,
			SenderEmail: flags.Sender,
			URL:         flags.URL,
		}, nil
	}

	var r io.Reader = os.Stdin
	if flags.EMLFile != "-" {
		file, err := os.Open(flags.EMLFile)
		if err != nil {
			return core.EmailRecord{}, fmt.Errorf("failed to open message: %w", err)
		}
		defer file.Close()
		r = file
	}

	record, err := filter.ParseMessage(r)
	if err != nil {
		return core.EmailRecord{}, err
	}
	if flags.Sender != "" {
		record.SenderEmail = flags.Sender
	}
	if flags.URL != "" {
		record.URL = flags.URL
	}
	return record, nil
}
