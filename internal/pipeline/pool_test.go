package pipeline

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"midi-ingest/internal/model"
	"midi-ingest/internal/pipelineerr"
	"midi-ingest/internal/queue"
)

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestPoolProcessesAndForwardsRecord(t *testing.T) {
	defer goleak.VerifyNone(t)

	in := queue.New(8)
	out := queue.New(8)
	running := int32(1)

	pool := NewPool("sanitize", in, out, func(rec model.FileRecord) ([]model.FileRecord, error) {
		rec.Analyzed = true
		return []model.FileRecord{rec}, nil
	}, 1, &running, silentLogger())

	pool.Start()
	require.True(t, in.Push(model.FileRecord{ID: 1}))

	require.Eventually(t, func() bool {
		_, ok := out.Pop()
		return ok
	}, time.Second, time.Millisecond)

	atomic.StoreInt32(&running, 0)
	pool.Wait()

	assert.Equal(t, uint64(1), pool.Processed)
}

func TestPoolStopsPipelineOnFatalError(t *testing.T) {
	defer goleak.VerifyNone(t)

	in := queue.New(8)
	running := int32(1)

	pool := NewPool("analyze", in, nil, func(rec model.FileRecord) ([]model.FileRecord, error) {
		return nil, pipelineerr.Fatal("analyze", "flush", "store unreachable").WithFile(rec.ID)
	}, 1, &running, silentLogger())

	pool.Start()
	require.True(t, in.Push(model.FileRecord{ID: 1}))

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&running) == 0
	}, time.Second, time.Millisecond)

	pool.Wait()
	assert.Equal(t, uint64(0), pool.Processed)
}

func TestPoolCountsDuplicateWithoutTreatingItAsError(t *testing.T) {
	defer goleak.VerifyNone(t)

	in := queue.New(8)
	running := int32(1)

	pool := NewPool("import", in, nil, func(rec model.FileRecord) ([]model.FileRecord, error) {
		return nil, pipelineerr.Duplicate("import", "insert", "hash already stored").WithFile(rec.ID)
	}, 1, &running, silentLogger())

	pool.Start()
	require.True(t, in.Push(model.FileRecord{ID: 1}))

	require.Eventually(t, func() bool {
		return atomic.LoadUint64(&pool.Duplicates) == 1
	}, time.Second, time.Millisecond)

	atomic.StoreInt32(&running, 0)
	pool.Wait()
	assert.Equal(t, uint64(0), pool.Errors)
}

func TestPoolCountsRecoverableErrorWithoutStopping(t *testing.T) {
	defer goleak.VerifyNone(t)

	in := queue.New(8)
	running := int32(1)

	pool := NewPool("split", in, nil, func(rec model.FileRecord) ([]model.FileRecord, error) {
		return nil, pipelineerr.Parse("split", "parse", "malformed file").WithFile(rec.ID)
	}, 1, &running, silentLogger())

	pool.Start()
	require.True(t, in.Push(model.FileRecord{ID: 1}))

	require.Eventually(t, func() bool {
		return atomic.LoadUint64(&pool.Errors) == 1
	}, time.Second, time.Millisecond)

	assert.Equal(t, int32(1), atomic.LoadInt32(&running))

	atomic.StoreInt32(&running, 0)
	pool.Wait()
}

func TestNewPoolDefaultsWorkersToOne(t *testing.T) {
	pool := NewPool("export", queue.New(8), nil, nil, 0, new(int32), silentLogger())
	assert.Equal(t, 1, pool.Workers)
}
