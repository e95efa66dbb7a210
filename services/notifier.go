package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	pubnub "github.com/pubnub/go"

	"specimenpro/config"
	"specimenpro/utils"
)

// Notifier tells subscribed clients that something changed.
type Notifier interface {
	Notify(ctx context.Context, channel string, message map[string]any) error
}

type PubNubNotifier struct {
	pubnub  *pubnub.PubNub
	breaker *utils.CircuitBreaker
}

func NewPubNubNotifier(cfg *config.Config) *PubNubNotifier {
	pnConfig := pubnub.NewConfig()
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey
	pnConfig.UUID = cfg.PubNubUserID

	return &PubNubNotifier{
		pubnub:  pubnub.NewPubNub(pnConfig),
		breaker: utils.NewCircuitBreaker("pubnub", 3, time.Minute),
	}
}

func (n *PubNubNotifier) Notify(ctx context.Context, channel string, message map[string]any) error {
	err := n.breaker.Execute(ctx, func(context.Context) error {
		_, st, err := n.pubnub.Publish().
			Channel(channel).
			Message(message).
			Execute()
		if err != nil {
			return fmt.Errorf("pubnub publish (status %d): %w", st.StatusCode, err)
		}
		return nil
	})
	if err != nil {
		slog.Error("Failed to notify clients", "channel", channel, "breaker", n.breaker.State().String(), "error", err)
	}
	return err
}

// LogNotifier only logs. It stands in when PubNub keys are not configured.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, channel string, message map[string]any) error {
	slog.Info("Notification not sent, PubNub disabled", "channel", channel, "type", message["type"])
	return nil
}

// NewNotifier picks PubNub when keys are configured.
func NewNotifier(cfg *config.Config) Notifier {
	if cfg.PubNubEnabled() {
		return NewPubNubNotifier(cfg)
	}
	return LogNotifier{}
}
