package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRegisterAndRecordWithoutPanicking(t *testing.T) {
	FilesProcessedTotal.WithLabelValues("import").Inc()
	FilesErrorTotal.WithLabelValues("analyze", "parse").Inc()
	FilesDuplicateTotal.Inc()
	QueueDepth.WithLabelValues("import->sanitize").Set(5)
	StageBatchDuration.WithLabelValues("analyze").Observe(0.01)
	ActiveWorkers.WithLabelValues("export").Set(4)

	assert.Equal(t, float64(1), testutil.ToFloat64(FilesProcessedTotal.WithLabelValues("import")))
	assert.Equal(t, float64(1), testutil.ToFloat64(FilesDuplicateTotal))
}
