package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illmade-knight/socrata-archiver/pkg/catalog"
)

// mockManifestReader serves manifest bodies from memory.
type mockManifestReader struct {
	files map[string][]byte
}

func (m *mockManifestReader) ReadPath(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, errors.New("file does not exist")
	}
	return data, nil
}

// trackingProcessor records every processed ID and the peak number of
// simultaneous invocations.
type trackingProcessor struct {
	sync.Mutex
	ProcessFn   func(assetID string) catalog.Outcome
	processed   []string
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (p *trackingProcessor) Process(_ context.Context, assetID string) catalog.Outcome {
	current := p.inFlight.Add(1)
	for {
		peak := p.maxInFlight.Load()
		if current <= peak || p.maxInFlight.CompareAndSwap(peak, current) {
			break
		}
	}
	// Hold the slot briefly so overlap is observable.
	time.Sleep(5 * time.Millisecond)
	defer p.inFlight.Add(-1)

	p.Lock()
	p.processed = append(p.processed, assetID)
	p.Unlock()

	if p.ProcessFn != nil {
		return p.ProcessFn(assetID)
	}
	return catalog.Outcome{AssetID: assetID, Kind: catalog.ProcessedOK}
}

func (p *trackingProcessor) Processed() []string {
	p.Lock()
	defer p.Unlock()
	return append([]string(nil), p.processed...)
}

func TestOrchestrator_ProcessesAllAssets(t *testing.T) {
	manifest := []byte(`[{"id":"a"},{"id":"b"},{"id":"c"},{"id":"d"},{"id":"e"}]`)
	reader := &mockManifestReader{files: map[string][]byte{"cdc_data/manifest.json": manifest}}
	processor := &trackingProcessor{}

	orchestrator := NewOrchestrator(processor, reader, 2, zerolog.Nop())
	orchestrator.ProcessAssets(context.Background(), "cdc_data/manifest.json")

	assert.ElementsMatch(t, []string{"a", "b", "c", "d", "e"}, processor.Processed())
	assert.LessOrEqual(t, processor.maxInFlight.Load(), int32(2), "the pool must never exceed its concurrency bound")
}

func TestOrchestrator_SkipsRecordsWithoutID(t *testing.T) {
	manifest := []byte(`[{"name":"no-id-here"}]`)
	reader := &mockManifestReader{files: map[string][]byte{"m.json": manifest}}
	processor := &trackingProcessor{}

	orchestrator := NewOrchestrator(processor, reader, 3, zerolog.Nop())
	orchestrator.ProcessAssets(context.Background(), "m.json")

	assert.Empty(t, processor.Processed(), "a record without an id must not be processed")
}

func TestOrchestrator_MalformedManifestIsNotFatal(t *testing.T) {
	reader := &mockManifestReader{files: map[string][]byte{"m.json": []byte(`[{"id": `)}}
	processor := &trackingProcessor{}

	orchestrator := NewOrchestrator(processor, reader, 3, zerolog.Nop())
	require.NotPanics(t, func() {
		orchestrator.ProcessAssets(context.Background(), "m.json")
	})
	assert.Empty(t, processor.Processed())
}

func TestOrchestrator_NonArrayManifestProcessesNothing(t *testing.T) {
	reader := &mockManifestReader{files: map[string][]byte{"m.json": []byte(`{"id":"a"}`)}}
	processor := &trackingProcessor{}

	orchestrator := NewOrchestrator(processor, reader, 3, zerolog.Nop())
	orchestrator.ProcessAssets(context.Background(), "m.json")

	assert.Empty(t, processor.Processed())
}

func TestOrchestrator_MissingManifestFileIsNotFatal(t *testing.T) {
	reader := &mockManifestReader{files: map[string][]byte{}}
	processor := &trackingProcessor{}

	orchestrator := NewOrchestrator(processor, reader, 3, zerolog.Nop())
	require.NotPanics(t, func() {
		orchestrator.ProcessAssets(context.Background(), "missing.json")
	})
	assert.Empty(t, processor.Processed())
}

func TestOrchestrator_PanickingProcessorDoesNotStopThePool(t *testing.T) {
	manifest := []byte(`[{"id":"a"},{"id":"b"},{"id":"c"}]`)
	reader := &mockManifestReader{files: map[string][]byte{"m.json": manifest}}
	processor := &trackingProcessor{
		ProcessFn: func(assetID string) catalog.Outcome {
			if assetID == "b" {
				panic("boom")
			}
			return catalog.Outcome{AssetID: assetID, Kind: catalog.ProcessedOK}
		},
	}

	orchestrator := NewOrchestrator(processor, reader, 1, zerolog.Nop())
	require.NotPanics(t, func() {
		orchestrator.ProcessAssets(context.Background(), "m.json")
	})

	assert.ElementsMatch(t, []string{"a", "b", "c"}, processor.Processed(),
		"the assets after the panicking one must still run")
}

func TestOrchestrator_DefaultsConcurrency(t *testing.T) {
	orchestrator := NewOrchestrator(&trackingProcessor{}, &mockManifestReader{}, 0, zerolog.Nop())
	assert.Equal(t, 3, orchestrator.concurrency)
}

func TestOrchestrator_CancelledContextAbandonsRemainingAssets(t *testing.T) {
	manifest := []byte(`[{"id":"a"},{"id":"b"},{"id":"c"},{"id":"d"}]`)
	reader := &mockManifestReader{files: map[string][]byte{"m.json": manifest}}

	ctx, cancel := context.WithCancel(context.Background())
	processor := &trackingProcessor{
		ProcessFn: func(assetID string) catalog.Outcome {
			cancel()
			return catalog.Outcome{AssetID: assetID, Kind: catalog.ProcessedOK}
		},
	}

	orchestrator := NewOrchestrator(processor, reader, 1, zerolog.Nop())
	orchestrator.ProcessAssets(ctx, "m.json")

	assert.Less(t, len(processor.Processed()), 4, "cancellation must stop feeding the pool")
}
