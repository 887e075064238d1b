package observer

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

type panicObserver struct{}

func (panicObserver) OnEvent(ctx context.Context, event PipelineEvent) { panic("boom") }
func (panicObserver) GetObserverName() string { return "panic_observer" }

func TestMetricsObserver_Counts(t *testing.T) {
	m := NewMetricsObserver()
	p := NewEventPublisher()
	p.Subscribe(m)

	ctx := context.Background()
	p.NotifyObservers(ctx, PipelineEvent{EventType: BatchStarted})
	p.NotifyObservers(ctx, PipelineEvent{EventType: RecordExtracted, Method: "ocr"})
	p.NotifyObservers(ctx, PipelineEvent{EventType: RecordExtracted, Method: "ocr"})
	p.NotifyObservers(ctx, PipelineEvent{EventType: RecordSkipped})
	p.NotifyObservers(ctx, PipelineEvent{EventType: ReportGenerated})
	p.NotifyObservers(ctx, PipelineEvent{EventType: BatchCompleted, ProcessingTime: 40 * time.Millisecond})
	p.NotifyObservers(ctx, PipelineEvent{EventType: BatchStarted})
	p.NotifyObservers(ctx, PipelineEvent{EventType: BatchFailed})

	s := m.GetStats()
	if s.TotalBatches != 2 || s.SuccessfulBatches != 1 || s.FailedBatches != 1 {
		t.Errorf("Unexpected batch counters: %+v", s)
	}
	if s.RecordsExtracted != 2 || s.RecordsSkipped != 1 || s.ReportsGenerated != 1 {
		t.Errorf("Unexpected record counters: %+v", s)
	}
	if s.ByMethod["ocr"] != 2 {
		t.Errorf("Expected 2 ocr records, got %d", s.ByMethod["ocr"])
	}
	if s.AvgBatchTimeMS != 40 {
		t.Errorf("Expected 40ms average, got %d", s.AvgBatchTimeMS)
	}

	s.ByMethod["ocr"] = 100
	if m.GetStats().ByMethod["ocr"] != 2 {
		t.Error("Expected GetStats to return a copy")
	}
}

func TestEventPublisher_PanicIsContained(t *testing.T) {
	m := NewMetricsObserver()
	p := NewEventPublisher()
	p.Subscribe(panicObserver{})
	p.Subscribe(m)

	p.NotifyObservers(context.Background(), PipelineEvent{EventType: ReportFailed})

	if m.GetStats().ReportsFailed != 1 {
		t.Error("Expected delivery to continue after a panicking observer")
	}
}

func TestEventPublisher_Unsubscribe(t *testing.T) {
	m := NewMetricsObserver()
	p := NewEventPublisher()
	p.Subscribe(m)
	p.Unsubscribe(m)

	p.NotifyObservers(context.Background(), PipelineEvent{EventType: BatchStarted})
	if m.GetStats().TotalBatches != 0 {
		t.Error("Expected no events after unsubscribe")
	}
}

func TestLoggingObserver_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})

	NewLoggingObserver(l).OnEvent(context.Background(), PipelineEvent{
		EventType:    RecordSkipped,
		BatchID:      "b-1",
		Filename:     "cpu.png",
		ErrorMessage: "upstream down",
		Metadata:     map[string]interface{}{"index": 2},
	})

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("Expected one JSON log line, got %q", buf.String())
	}
	if entry["level"] != "warning" || entry["msg"] != "Record skipped" {
		t.Errorf("Unexpected level/msg: %v", entry)
	}
	for _, key := range []string{"batch_id", "filename", "error", "index"} {
		if _, ok := entry[key]; !ok {
			t.Errorf("Expected field %s in %s", key, strings.TrimSpace(buf.String()))
		}
	}
}
