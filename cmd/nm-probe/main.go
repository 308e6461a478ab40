package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"NetMetrica/internal/config"
	"NetMetrica/internal/ingest"
	"NetMetrica/internal/probe"
	"NetMetrica/internal/storage"
)

func main() {
	mode := flag.String("mode", "sub", "operating mode: 'pub' to replay a record file, 'sub' to receive and print")
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	inputPath := flag.String("input", "", "JSONL record file to publish (required for pub mode)")
	flag.Parse()

	log := logrus.WithField("component", "nm-probe")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Warn("falling back to default configuration")
		cfg = config.Default()
	}

	switch *mode {
	case "pub":
		runPublisher(log, cfg, *inputPath)
	case "sub":
		runSubscriber(log, cfg)
	default:
		fmt.Fprintf(os.Stderr, "Invalid mode: %s\n", *mode)
		flag.Usage()
		os.Exit(1)
	}
}

// runPublisher replays a JSONL record file onto the NATS subject.
func runPublisher(log *logrus.Entry, cfg *config.Config, inputPath string) {
	if inputPath == "" {
		log.Error("-input flag is required for pub mode")
		flag.Usage()
		os.Exit(1)
	}

	raws, err := storage.ReadRawRecords(inputPath)
	if err != nil {
		log.WithError(err).Fatal("failed to read input records")
	}

	pub, err := probe.NewPublisher(cfg.Probe)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to NATS")
	}
	defer pub.Close()

	published := 0
	for _, record := range ingest.NormalizeBatch(raws) {
		if err := pub.Publish(&record); err != nil {
			log.WithError(err).Fatal("publish failed")
		}
		published++
	}
	log.WithField("records", published).Info("replay complete")
}

// runSubscriber collects records into a capture session until interrupted.
func runSubscriber(log *logrus.Entry, cfg *config.Config) {
	sub, err := probe.NewSubscriber(cfg.Probe)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to NATS")
	}
	defer sub.Close()

	session := probe.NewCaptureSession()
	if err := sub.Start(session.Append); err != nil {
		log.WithError(err).Fatal("subscribe failed")
	}
	log.WithField("session", session.ID).Info("capture session started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	session.Stop()
	log.WithFields(logrus.Fields{
		"session": session.ID,
		"records": session.Len(),
	}).Info("capture session stopped")
}
