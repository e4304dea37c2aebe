package metrics

import (
	"context"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PendingCounter is the store-side count query behind the pending_jobs gauge.
type PendingCounter interface {
	CountPending(ctx context.Context) (int64, error)
}

// QueueCollector exposes the scaling signal and the summed worker counters as
// prometheus metrics, reading both sources at scrape time.
type QueueCollector struct {
	store   PendingCounter
	bridge  *Bridge
	timeout time.Duration

	pendingDesc        *prometheus.Desc
	processedDesc      *prometheus.Desc
	failedDesc         *prometheus.Desc
	downloadedDesc     *prometheus.Desc
	uploadedDesc       *prometheus.Desc
	uploadFailuresDesc *prometheus.Desc
}

func NewQueueCollector(store PendingCounter, bridge *Bridge) *QueueCollector {
	return &QueueCollector{
		store:   store,
		bridge:  bridge,
		timeout: 5 * time.Second,
		pendingDesc: prometheus.NewDesc(
			"pending_jobs", "Jobs waiting to be claimed; the worker-pool scaling signal", nil, nil),
		processedDesc: prometheus.NewDesc(
			"jobs_processed_total", "Jobs completed by workers", nil, nil),
		failedDesc: prometheus.NewDesc(
			"jobs_failed_total", "Job attempts that ended in failure", nil, nil),
		downloadedDesc: prometheus.NewDesc(
			"documents_downloaded_total", "Documents fetched and transformed", nil, nil),
		uploadedDesc: prometheus.NewDesc(
			"documents_uploaded_total", "Documents uploaded to blob storage", nil, nil),
		uploadFailuresDesc: prometheus.NewDesc(
			"upload_failures_total", "Blob uploads that failed", nil, nil),
	}
}

func (c *QueueCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.pendingDesc
	ch <- c.processedDesc
	ch <- c.failedDesc
	ch <- c.downloadedDesc
	ch <- c.uploadedDesc
	ch <- c.uploadFailuresDesc
}

func (c *QueueCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if n, err := c.store.CountPending(ctx); err == nil {
		ch <- prometheus.MustNewConstMetric(c.pendingDesc, prometheus.GaugeValue, float64(n))
	} else {
		log.Printf("[metrics] count_pending error=%v", err)
	}

	snap, err := c.bridge.Snapshot(ctx)
	if err != nil {
		log.Printf("[metrics] snapshot error=%v", err)
		return
	}
	var sum Counters
	for _, workerCounters := range snap {
		sum.Add(workerCounters)
	}
	ch <- prometheus.MustNewConstMetric(c.processedDesc, prometheus.CounterValue, float64(sum.JobsProcessed))
	ch <- prometheus.MustNewConstMetric(c.failedDesc, prometheus.CounterValue, float64(sum.JobsFailed))
	ch <- prometheus.MustNewConstMetric(c.downloadedDesc, prometheus.CounterValue, float64(sum.DocumentsDownloaded))
	ch <- prometheus.MustNewConstMetric(c.uploadedDesc, prometheus.CounterValue, float64(sum.DocumentsUploaded))
	ch <- prometheus.MustNewConstMetric(c.uploadFailuresDesc, prometheus.CounterValue, float64(sum.UploadFailures))
}
