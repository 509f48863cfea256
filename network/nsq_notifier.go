package network

import (
	"encoding/json"
	"github.com/nsqio/go-nsq"
	"github.com/op/go-logging"
	"time"
)

// Notifier delivers fire-and-forget notices to journal managers.
// Delivery failures are logged, never returned: a broken notifier
// must not stall the deposit pipeline.
type Notifier interface {
	NotifyManagers(tenantUUID, eventKind string)
}

// NSQNotifier publishes manager notifications to an NSQ topic. A
// separate mailer process consumes the topic and turns events into
// email.
type NSQNotifier struct {
	producer *nsq.Producer
	topic    string
	logger   *logging.Logger
}

// notification is the JSON body published for each event.
type notification struct {
	TenantUUID string    `json:"tenant_uuid"`
	EventKind  string    `json:"event_kind"`
	SentAt     time.Time `json:"sent_at"`
}

// NewNSQNotifier connects a producer to the nsqd at nsqdAddress
// (host:port, TCP).
func NewNSQNotifier(nsqdAddress, topic string, logger *logging.Logger) (*NSQNotifier, error) {
	producer, err := nsq.NewProducer(nsqdAddress, nsq.NewConfig())
	if err != nil {
		return nil, err
	}
	return &NSQNotifier{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}, nil
}

// NotifyManagers publishes one event. Errors are logged and dropped.
func (notifier *NSQNotifier) NotifyManagers(tenantUUID, eventKind string) {
	body, err := json.Marshal(notification{
		TenantUUID: tenantUUID,
		EventKind:  eventKind,
		SentAt:     time.Now().UTC(),
	})
	if err != nil {
		notifier.logger.Error("Cannot marshal notification %s for tenant %s: %v",
			eventKind, tenantUUID, err)
		return
	}
	err = notifier.producer.Publish(notifier.topic, body)
	if err != nil {
		notifier.logger.Error("Cannot publish notification %s for tenant %s: %v",
			eventKind, tenantUUID, err)
		return
	}
	notifier.logger.Info("Notified managers of tenant %s: %s", tenantUUID, eventKind)
}

// Stop shuts the producer down cleanly.
func (notifier *NSQNotifier) Stop() {
	if notifier.producer != nil {
		notifier.producer.Stop()
	}
}
