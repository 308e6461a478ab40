// Package probe moves normalized traffic records over NATS so capture and
// analysis can run on different hosts.
package probe

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"NetMetrica/internal/config"
	"NetMetrica/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Publisher publishes traffic records to a NATS subject.
type Publisher struct {
	nc      *nats.Conn
	subject string
	log     *logrus.Entry
}

// NewPublisher connects to the NATS server from the probe config.
func NewPublisher(cfg config.ProbeConfig) (*Publisher, error) {
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	log := logrus.WithField("component", "probe-publisher")
	log.WithField("url", cfg.NATSURL).Info("connected to NATS server")
	return &Publisher{nc: nc, subject: cfg.Subject, log: log}, nil
}

// Publish serializes one record and publishes it to the configured subject.
func (p *Publisher) Publish(record *model.PacketRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return p.nc.Publish(p.subject, data)
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.log.Info("NATS connection drained and closed")
	}
}
