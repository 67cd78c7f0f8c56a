package mykafka

import (
	"context"
	"time"

	"github.com/Skotchmaster/vidtube/internal/logging"
)

const (
	EventUserRegistered     = "user_registered"
	EventUserLoggedIn       = "user_logged_in"
	EventUserLoggedOut      = "user_logged_out"
	EventTokenRefreshed     = "token_refreshed"
	EventRefreshTokenReused = "refresh_token_reused"
)

// AccountEvent is the payload written to the account events topic.
// It never carries tokens or password hashes.
type AccountEvent struct {
	Type      string    `json:"type"`
	AccountID string    `json:"account_id"`
	Username  string    `json:"username,omitempty"`
	At        time.Time `json:"at"`
}

func NewAccountEvent(typ, accountID, username string) AccountEvent {
	return AccountEvent{Type: typ, AccountID: accountID, Username: username, At: time.Now().UTC()}
}

const publishTimeout = 5 * time.Second

type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

// Emit publishes ev on a context detached from the caller's cancellation and
// bounded by a short timeout. Failures are logged and otherwise ignored.
func Emit(ctx context.Context, p Publisher, topic string, ev AccountEvent) {
	if p == nil || topic == "" {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := p.PublishEvent(pctx, topic, ev.AccountID, ev); err != nil {
		logging.FromContext(ctx).Error("kafka_publish_failed", "event", ev.Type, "error", err)
	}
}
