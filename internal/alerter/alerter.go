// Package alerter periodically inspects fresh detection results and sends
// consolidated notifications when severe anomalies appear.
package alerter

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/sirupsen/logrus"

	"NetMetrica/internal/anomaly"
	"NetMetrica/internal/config"
	"NetMetrica/internal/model"
)

// Alerter watches the detection history of an anomaly engine and notifies
// on every check interval that produced anomalies at or above the
// configured severity.
type Alerter struct {
	engine        *anomaly.Engine
	notifier      model.Notifier
	minSeverity   string
	checkInterval time.Duration
	stopChan      chan struct{}
	wg            sync.WaitGroup
	log           *logrus.Entry

	seen int // detection results already evaluated
}

// NewAlerter creates a new Alerter instance.
func NewAlerter(cfg config.AlerterConfig, engine *anomaly.Engine, notifier model.Notifier) (*Alerter, error) {
	interval, err := time.ParseDuration(cfg.CheckInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid check_interval for alerter: %w", err)
	}
	minSeverity := cfg.MinSeverity
	if minSeverity == "" {
		minSeverity = model.SeverityHigh
	}
	if rank(minSeverity) < 0 {
		return nil, fmt.Errorf("invalid min_severity %q", cfg.MinSeverity)
	}

	return &Alerter{
		engine:        engine,
		notifier:      notifier,
		minSeverity:   minSeverity,
		checkInterval: interval,
		stopChan:      make(chan struct{}),
		log:           logrus.WithField("component", "alerter"),
	}, nil
}

// Start begins the periodic evaluation loop.
func (a *Alerter) Start() {
	a.log.Info("alerter started")

	a.wg.Add(1)
	defer a.wg.Done()

	ticker := time.NewTicker(a.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.evaluate()
		case <-a.stopChan:
			return
		}
	}
}

// Stop gracefully stops the evaluation loop, running one final check.
func (a *Alerter) Stop() {
	a.log.Info("stopping alerter")
	close(a.stopChan)
	a.wg.Wait()
	a.evaluate()
}

// evaluate inspects detection results added since the previous check and
// sends one consolidated notification for everything that qualifies.
func (a *Alerter) evaluate() {
	history := a.engine.History()
	if a.seen > len(history) {
		// engine was reset, start over
		a.seen = 0
	}
	fresh := history[a.seen:]
	a.seen = len(history)

	var sections []string
	total := 0
	for _, result := range fresh {
		var lines []string
		for _, rec := range result.Anomalies {
			if rank(rec.Severity) < rank(a.minSeverity) {
				continue
			}
			lines = append(lines, fmt.Sprintf("- **%s** (%s): %s", rec.Type, rec.Severity, rec.Message))
		}
		if len(lines) == 0 {
			continue
		}
		total += len(lines)
		header := fmt.Sprintf("## Window [%.3f, %.3f)\n\n", result.WindowStart, result.WindowEnd)
		sections = append(sections, header+strings.Join(lines, "\n"))
	}
	if total == 0 {
		return
	}

	a.log.WithField("anomalies", total).Info("alert evaluation triggered")

	md := fmt.Sprintf("# Traffic Anomaly Alert\n\n%d anomalies at or above severity %q:\n\n%s",
		total, a.minSeverity, strings.Join(sections, "\n\n"))
	body := string(markdown.ToHTML([]byte(md), nil, nil))

	if a.notifier == nil {
		return
	}
	subject := fmt.Sprintf("NetMetrica Alert Summary (%d Triggered)", total)
	if err := a.notifier.Send(subject, body); err != nil {
		a.log.WithError(err).Error("failed to send alert notification")
	} else {
		a.log.Info("alert notification sent")
	}
}

// rank orders severities; unknown values rank below low.
func rank(severity string) int {
	switch severity {
	case model.SeverityLow:
		return 0
	case model.SeverityMedium:
		return 1
	case model.SeverityHigh:
		return 2
	default:
		return -1
	}
}
