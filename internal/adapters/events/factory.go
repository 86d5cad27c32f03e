package events

import (
	"log/slog"

	portssvc "github.com/SscSPs/portfolio_ledger/internal/core/ports/services"
	"github.com/SscSPs/portfolio_ledger/internal/platform/config"
	"github.com/SscSPs/portfolio_ledger/internal/utils"
)

// NewFromConfig attaches a Kafka sink when brokers are configured and a PostHog sink when
// the client is initialized. The returned func flushes and releases the Kafka writer.
func NewFromConfig(cfg *config.Config, posthog *utils.PosthogClientWrapper, logger *slog.Logger) (*MultiPublisher, func()) {
	var sinks []portssvc.EventPublisher
	closeFn := func() {}

	if len(cfg.KafkaBrokers) > 0 {
		kp := NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		sinks = append(sinks, kp)
		closeFn = func() {
			if err := kp.Close(); err != nil {
				logger.Error("Failed to close kafka writer", slog.String("error", err.Error()))
			}
		}
		logger.Info("Publishing ledger events to kafka", slog.String("topic", cfg.KafkaTopic), slog.Any("brokers", cfg.KafkaBrokers))
	}
	if posthog.IsInitialized() {
		sinks = append(sinks, NewPosthogPublisher(posthog))
	}
	return NewMultiPublisher(sinks...), closeFn
}
