// Package metrics tracks in-process counters for the OCR pipeline.
package metrics

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type Metrics struct {
	startTime time.Time

	submissionsTotal   atomic.Int64
	submissionsSuccess atomic.Int64
	submissionsFailed  atomic.Int64
	retriesTotal       atomic.Int64
	cancellations      atomic.Int64

	uploadsTotal  atomic.Int64
	bytesUploaded atomic.Int64

	pagesProcessed atomic.Int64

	failuresByKind map[string]*atomic.Int64
	failuresLock   sync.Mutex

	durations     []time.Duration
	durationsLock sync.Mutex
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = New()
	})
	return defaultMetrics
}

func New() *Metrics {
	return &Metrics{
		startTime:      time.Now(),
		failuresByKind: make(map[string]*atomic.Int64),
		durations:      make([]time.Duration, 0, 1000),
	}
}

func (m *Metrics) RecordSubmission(success bool) {
	m.submissionsTotal.Add(1)
	if success {
		m.submissionsSuccess.Add(1)
	} else {
		m.submissionsFailed.Add(1)
	}
}

func (m *Metrics) RecordRetry() {
	m.retriesTotal.Add(1)
}

func (m *Metrics) RecordCancellation() {
	m.cancellations.Add(1)
}

func (m *Metrics) RecordUpload(bytes int64) {
	m.uploadsTotal.Add(1)
	m.bytesUploaded.Add(bytes)
}

func (m *Metrics) RecordPages(count int64) {
	m.pagesProcessed.Add(count)
}

func (m *Metrics) RecordFailure(kind string) {
	m.failuresLock.Lock()
	defer m.failuresLock.Unlock()

	if m.failuresByKind[kind] == nil {
		m.failuresByKind[kind] = &atomic.Int64{}
	}
	m.failuresByKind[kind].Add(1)
}

func (m *Metrics) RecordDuration(d time.Duration) {
	m.durationsLock.Lock()
	defer m.durationsLock.Unlock()

	m.durations = append(m.durations, d)
	if len(m.durations) > 1000 {
		m.durations = m.durations[1:]
	}
}

type Snapshot struct {
	Uptime             time.Duration    `json:"uptime"`
	SubmissionsTotal   int64            `json:"submissions_total"`
	SubmissionsSuccess int64            `json:"submissions_success"`
	SubmissionsFailed  int64            `json:"submissions_failed"`
	RetriesTotal       int64            `json:"retries_total"`
	Cancellations      int64            `json:"cancellations"`
	UploadsTotal       int64            `json:"uploads_total"`
	BytesUploaded      int64            `json:"bytes_uploaded"`
	PagesProcessed     int64            `json:"pages_processed"`
	FailuresByKind     map[string]int64 `json:"failures_by_kind"`
	AvgDuration        time.Duration    `json:"avg_duration"`
	SuccessRate        float64          `json:"success_rate"`
}

func (m *Metrics) Snapshot() *Snapshot {
	s := &Snapshot{
		Uptime:             time.Since(m.startTime),
		SubmissionsTotal:   m.submissionsTotal.Load(),
		SubmissionsSuccess: m.submissionsSuccess.Load(),
		SubmissionsFailed:  m.submissionsFailed.Load(),
		RetriesTotal:       m.retriesTotal.Load(),
		Cancellations:      m.cancellations.Load(),
		UploadsTotal:       m.uploadsTotal.Load(),
		BytesUploaded:      m.bytesUploaded.Load(),
		PagesProcessed:     m.pagesProcessed.Load(),
		FailuresByKind:     make(map[string]int64),
	}

	m.failuresLock.Lock()
	for kind, counter := range m.failuresByKind {
		s.FailuresByKind[kind] = counter.Load()
	}
	m.failuresLock.Unlock()

	m.durationsLock.Lock()
	if len(m.durations) > 0 {
		var total time.Duration
		for _, d := range m.durations {
			total += d
		}
		s.AvgDuration = total / time.Duration(len(m.durations))
	}
	m.durationsLock.Unlock()

	if s.SubmissionsTotal > 0 {
		s.SuccessRate = float64(s.SubmissionsSuccess) / float64(s.SubmissionsTotal)
	}
	return s
}

// Prometheus renders counters in the text exposition format.
func (m *Metrics) Prometheus() string {
	s := m.Snapshot()
	var sb strings.Builder

	write := func(name string, value int64) {
		sb.WriteString(fmt.Sprintf("# TYPE docuscan_%s counter\n", name))
		sb.WriteString(fmt.Sprintf("docuscan_%s %d\n", name, value))
	}

	write("submissions_total", s.SubmissionsTotal)
	write("submissions_success", s.SubmissionsSuccess)
	write("submissions_failed", s.SubmissionsFailed)
	write("retries_total", s.RetriesTotal)
	write("cancellations_total", s.Cancellations)
	write("uploads_total", s.UploadsTotal)
	write("bytes_uploaded_total", s.BytesUploaded)
	write("pages_processed_total", s.PagesProcessed)

	sb.WriteString("# TYPE docuscan_failures_total counter\n")
	for kind, count := range s.FailuresByKind {
		sb.WriteString(fmt.Sprintf("docuscan_failures_total{kind=%q} %d\n", kind, count))
	}

	sb.WriteString("# TYPE docuscan_uptime_seconds gauge\n")
	sb.WriteString(fmt.Sprintf("docuscan_uptime_seconds %.0f\n", s.Uptime.Seconds()))
	return sb.String()
}
