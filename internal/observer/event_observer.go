package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// PipelineEvent is one lifecycle step of a batch, record or report
type PipelineEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	BatchID        string                 `json:"batch_id"`
	Filename       string                 `json:"filename,omitempty"`
	Method         string                 `json:"method,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of pipeline event
type EventType string

const (
	BatchStarted     EventType = "batch_started"
	BatchCompleted   EventType = "batch_completed"
	BatchFailed      EventType = "batch_failed"
	RecordExtracted  EventType = "record_extracted"
	RecordSkipped    EventType = "record_skipped"
	ReportGenerated  EventType = "report_generated"
	ReportFailed     EventType = "report_failed"
	ArtifactUploaded EventType = "artifact_uploaded"
)

// Observer receives pipeline events
type Observer interface {
	OnEvent(ctx context.Context, event PipelineEvent)
	GetObserverName() string
}

// Subject publishes pipeline events to observers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event PipelineEvent)
}

// LoggingObserver writes every event as a structured log line
type LoggingObserver struct {
	logger *logrus.Logger
}

func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{logger: logger}
}

func (o *LoggingObserver) OnEvent(ctx context.Context, event PipelineEvent) {
	fields := logrus.Fields{
		"event_type":      event.EventType,
		"batch_id":        event.BatchID,
		"processing_time": event.ProcessingTime,
		"success":         event.Success,
	}
	if event.Filename != "" {
		fields["filename"] = event.Filename
	}
	if event.Method != "" {
		fields["method"] = event.Method
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case BatchStarted:
		entry.Info("Batch started")
	case BatchCompleted:
		entry.Info("Batch completed")
	case BatchFailed:
		entry.Error("Batch failed")
	case RecordExtracted:
		entry.Debug("Record extracted")
	case RecordSkipped:
		entry.Warn("Record skipped")
	case ReportGenerated:
		entry.Info("Report generated")
	case ReportFailed:
		entry.Error("Report generation failed")
	case ArtifactUploaded:
		entry.Info("Report artifact uploaded")
	default:
		entry.Info("Pipeline event occurred")
	}
}

func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// Stats is the snapshot served by /api/stats
type Stats struct {
	TotalBatches      int64            `json:"total_batches"`
	SuccessfulBatches int64            `json:"successful_batches"`
	FailedBatches     int64            `json:"failed_batches"`
	RecordsExtracted  int64            `json:"records_extracted"`
	RecordsSkipped    int64            `json:"records_skipped"`
	ReportsGenerated  int64            `json:"reports_generated"`
	ReportsFailed     int64            `json:"reports_failed"`
	ArtifactsUploaded int64            `json:"artifacts_uploaded"`
	ByMethod          map[string]int64 `json:"records_by_method"`
	AvgBatchTimeMS    int64            `json:"avg_batch_time_ms"`
}

// MetricsObserver counts pipeline events
type MetricsObserver struct {
	mu        sync.RWMutex
	stats     Stats
	batchTime time.Duration
}

func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{stats: Stats{ByMethod: map[string]int64{}}}
}

func (o *MetricsObserver) OnEvent(ctx context.Context, event PipelineEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case BatchStarted:
		o.stats.TotalBatches++
	case BatchCompleted:
		o.stats.SuccessfulBatches++
		o.batchTime += event.ProcessingTime
	case BatchFailed:
		o.stats.FailedBatches++
	case RecordExtracted:
		o.stats.RecordsExtracted++
		if event.Method != "" {
			o.stats.ByMethod[event.Method]++
		}
	case RecordSkipped:
		o.stats.RecordsSkipped++
	case ReportGenerated:
		o.stats.ReportsGenerated++
	case ReportFailed:
		o.stats.ReportsFailed++
	case ArtifactUploaded:
		o.stats.ArtifactsUploaded++
	}
}

func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetStats returns a copy of the current counters
func (o *MetricsObserver) GetStats() Stats {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := o.stats
	out.ByMethod = make(map[string]int64, len(o.stats.ByMethod))
	for k, v := range o.stats.ByMethod {
		out.ByMethod[k] = v
	}
	if o.stats.SuccessfulBatches > 0 {
		out.AvgBatchTimeMS = (o.batchTime / time.Duration(o.stats.SuccessfulBatches)).Milliseconds()
	}
	return out
}

// EventPublisher implements Subject. Observers are called synchronously in
// subscription order so counters are current when a request returns.
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

func NewEventPublisher() *EventPublisher {
	return &EventPublisher{observers: make([]Observer, 0)}
}

func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers stamps the event and delivers it; a panicking observer is
// logged and does not stop delivery to the others
func (p *EventPublisher) NotifyObservers(ctx context.Context, event PipelineEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, obs := range observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}()
	}
}
