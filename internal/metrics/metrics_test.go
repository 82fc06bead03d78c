package metrics

import (
	"errors"
	"testing"
)

type recordingBackend struct {
	counters map[string]float64
	samples  map[string][]float64
	flushErr error
	flushed  int
}

func newRecordingBackend() *recordingBackend {
	return &recordingBackend{counters: map[string]float64{}, samples: map[string][]float64{}}
}

func (r *recordingBackend) IncCounter(name string, delta float64, labels Labels) {
	r.counters[name+"|"+labels["status"]] += delta
}

func (r *recordingBackend) ObserveHistogram(name string, value float64, labels Labels) {
	r.samples[name] = append(r.samples[name], value)
}

func (r *recordingBackend) Flush() error {
	r.flushed++
	return r.flushErr
}

// Not parallel: mutates the package-level backend.
func TestSetBackend_RoutesAndRestores(t *testing.T) {
	rb := newRecordingBackend()
	rb.flushErr = errors.New("boom")
	SetBackend(rb)
	t.Cleanup(func() { SetBackend(nil) })

	IncCounter("onsalebot_runs_total", 1, Labels{"status": "ok"})
	IncCounter("onsalebot_runs_total", 2, Labels{"status": "ok"})
	ObserveHistogram("onsalebot_run_duration_seconds", 0.5, nil)

	if got := rb.counters["onsalebot_runs_total|ok"]; got != 3 {
		t.Fatalf("counter: want 3 got %v", got)
	}
	if got := rb.samples["onsalebot_run_duration_seconds"]; len(got) != 1 || got[0] != 0.5 {
		t.Fatalf("histogram: got %v", got)
	}
	if err := Flush(); !errors.Is(err, rb.flushErr) {
		t.Fatalf("Flush: want %v got %v", rb.flushErr, err)
	}

	SetBackend(nil)
	IncCounter("onsalebot_runs_total", 1, Labels{"status": "ok"})
	if got := rb.counters["onsalebot_runs_total|ok"]; got != 3 {
		t.Fatalf("nop backend should not route to old backend, got %v", got)
	}
	if err := Flush(); err != nil {
		t.Fatalf("nop Flush: %v", err)
	}
}
