package metrics_test

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"document-worker-service/internal/metrics"
)

type fixedPending int64

func (f fixedPending) CountPending(ctx context.Context) (int64, error) {
	return int64(f), nil
}

func TestQueueCollector_SumsWorkersAndPending(t *testing.T) {
	ctx := context.Background()
	bridge := metrics.NewBridge(newFakeHash(), "")

	_ = bridge.Push(ctx, "worker-1", metrics.Counters{JobsProcessed: 1, DocumentsDownloaded: 10, DocumentsUploaded: 10})
	_ = bridge.Push(ctx, "worker-2", metrics.Counters{JobsFailed: 1, UploadFailures: 1, DocumentsDownloaded: 4})

	collector := metrics.NewQueueCollector(fixedPending(3), bridge)

	expected := `
# HELP pending_jobs Jobs waiting to be claimed; the worker-pool scaling signal
# TYPE pending_jobs gauge
pending_jobs 3
# HELP jobs_processed_total Jobs completed by workers
# TYPE jobs_processed_total counter
jobs_processed_total 1
# HELP jobs_failed_total Job attempts that ended in failure
# TYPE jobs_failed_total counter
jobs_failed_total 1
# HELP documents_downloaded_total Documents fetched and transformed
# TYPE documents_downloaded_total counter
documents_downloaded_total 14
# HELP documents_uploaded_total Documents uploaded to blob storage
# TYPE documents_uploaded_total counter
documents_uploaded_total 10
# HELP upload_failures_total Blob uploads that failed
# TYPE upload_failures_total counter
upload_failures_total 1
`
	if err := testutil.CollectAndCompare(collector, strings.NewReader(expected)); err != nil {
		t.Fatalf("unexpected metrics output: %v", err)
	}
}
