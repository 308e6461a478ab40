package probe

import (
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"NetMetrica/internal/config"
	"NetMetrica/internal/model"
)

// RecordHandler processes one received traffic record.
type RecordHandler func(record model.PacketRecord)

// Subscriber subscribes to a NATS subject and feeds decoded records to a
// handler.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
	log     *logrus.Entry
}

// NewSubscriber connects to the NATS server from the probe config.
func NewSubscriber(cfg config.ProbeConfig) (*Subscriber, error) {
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	log := logrus.WithField("component", "probe-subscriber")
	log.WithField("url", cfg.NATSURL).Info("connected to NATS server")
	return &Subscriber{nc: nc, subject: cfg.Subject, log: log}, nil
}

// Start subscribes and begins delivering records to the handler. Messages
// that fail to decode are logged and dropped.
func (s *Subscriber) Start(handler RecordHandler) error {
	sub, err := s.nc.Subscribe(s.subject, func(msg *nats.Msg) {
		var record model.PacketRecord
		if err := json.Unmarshal(msg.Data, &record); err != nil {
			s.log.WithError(err).Warn("dropping undecodable record")
			return
		}
		handler(record)
	})
	if err != nil {
		return err
	}
	s.sub = sub
	s.log.WithField("subject", s.subject).Info("subscribed, waiting for records")
	return nil
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
		s.log.Info("NATS connection closed")
	}
}
