package live

import (
	"encoding/json"
	"log"

	"github.com/sngm3741/hushmap-services/api/internal/noise/domain"
)

// Sink is a secondary destination for live events, e.g. an MQTT broker.
type Sink interface {
	Publish(eventType string, frame []byte) error
}

// Presenter converts a report to its wire representation.
type Presenter func(domain.NoiseReport) any

// Broadcaster pushes every stored report to WebSocket subscribers and sinks.
// Failures are logged and never returned to the submitter.
type Broadcaster struct {
	registry *Registry
	present  Presenter
	sinks    []Sink
	logger   *log.Logger
}

func NewBroadcaster(registry *Registry, present Presenter, logger *log.Logger, sinks ...Sink) *Broadcaster {
	if present == nil {
		present = func(r domain.NoiseReport) any { return r }
	}
	return &Broadcaster{registry: registry, present: present, sinks: sinks, logger: logger}
}

// ReportCreated sends a new_report envelope carrying the persisted report.
func (b *Broadcaster) ReportCreated(report domain.NoiseReport) {
	defer func() {
		if r := recover(); r != nil {
			b.logf("live: broadcast of report %s panicked: %v", report.ID, r)
		}
	}()

	frame, err := encodeEnvelope(Envelope{Type: TypeNewReport, Data: b.present(report)})
	if err != nil {
		b.logf("live: encode report %s: %v", report.ID, err)
		return
	}

	delivered := 0
	if b.registry != nil {
		delivered = b.registry.BroadcastFrame(frame)
	}
	for _, sink := range b.sinks {
		if err := sink.Publish(TypeNewReport, frame); err != nil {
			b.logf("live: sink publish for report %s failed: %v", report.ID, err)
		}
	}
	b.logf("live: report %s delivered to %d client(s)", report.ID, delivered)
}

func (b *Broadcaster) logf(format string, args ...any) {
	if b.logger != nil {
		b.logger.Printf(format, args...)
	}
}

func encodeEnvelope(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}
