package factory

import (
	"github.com/mikey/phishing-filter/internal/utils"
	"go.uber.org/zap"
)

// TextProcessorFactory builds the sanitiser that every record passes through
// before keyword scoring and domain extraction
type TextProcessorFactory struct {
	logger *zap.Logger
}

func NewTextProcessorFactory(logger *zap.Logger) *TextProcessorFactory {
	return &TextProcessorFactory{logger: logger.Named("text")}
}

// CreateTextProcessor returns the processor the phishing service uses to cut
// bodies to analysis.max_body_size, repair invalid UTF-8 and apply NFC
func (f *TextProcessorFactory) CreateTextProcessor() *utils.TextProcessor {
	f.logger.Debug("Creating record sanitiser")
	return utils.NewTextProcessor(f.logger)
}
