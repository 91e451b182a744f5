package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driveingest/internal/pipeline"
	"driveingest/internal/services"
)

func newFixture(names ...string) (*fakeDownloader, *fakeProcessor, *fakeIngestor) {
	return &fakeDownloader{names: names}, &fakeProcessor{}, &fakeIngestor{}
}

func fullConfig() pipeline.RunConfiguration {
	return pipeline.NewRunConfiguration(pipeline.Flags{MaxFailures: -1})
}

func phaseNames(summary pipeline.Summary) []pipeline.Phase {
	out := make([]pipeline.Phase, 0, len(summary.Phases))
	for _, result := range summary.Phases {
		out = append(out, result.Phase)
	}
	return out
}

func TestRunFullPipelineCompletes(t *testing.T) {
	d, p, i := newFixture("a.mp3", "b.mp3")
	orch := pipeline.NewOrchestrator(pipeline.Adapters{Downloader: d, Processor: p, Ingestor: i}, pipeline.WithClock(newFakeClock()))

	summary, err := orch.Run(context.Background(), fullConfig())
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, pipeline.RunCompleted, summary.Status)
	assert.Equal(t, pipeline.StateDone, summary.FinalState)
	assert.Equal(t, []pipeline.Phase{pipeline.PhaseDownload, pipeline.PhaseProcess, pipeline.PhaseIngest}, phaseNames(summary))
	for _, result := range summary.Phases {
		assert.Equal(t, pipeline.StatusCompleted, result.Status, result.Phase)
		assert.Equal(t, 2, result.Attempted, result.Phase)
		assert.Equal(t, 2, result.Succeeded, result.Phase)
	}

	require.Len(t, p.received, 1)
	require.NotNil(t, p.received[0])
	assert.Len(t, p.received[0].Entries, 2)
	require.Len(t, i.received, 1)
	assert.Len(t, i.received[0].Artifacts, 2)
}

func TestRunAdapterErrorMarking(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantAdapter bool
	}{
		{name: "runtime failure", err: errors.New("dial tcp: connection refused"), wantAdapter: true},
		{name: "configuration", err: services.Wrap(services.ErrConfiguration, "download", "auth", "token missing", nil)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d, p, i := newFixture("a.mp3")
			d.err = tc.err
			orch := pipeline.NewOrchestrator(pipeline.Adapters{Downloader: d, Processor: p, Ingestor: i})

			summary, err := orch.Run(context.Background(), fullConfig())
			require.NoError(t, err)
			require.Len(t, summary.Phases, 1)
			download := summary.Phases[0]
			assert.Equal(t, pipeline.StatusFailed, download.Status)
			assert.Contains(t, download.AdapterError, tc.err.Error())
			assert.Equal(t, tc.wantAdapter, strings.HasPrefix(download.AdapterError, services.ErrAdapter.Error()))
			assert.Equal(t, pipeline.RunFailed, summary.Status)
		})
	}
}

func TestRunPartialSuccess(t *testing.T) {
	d, p, i := newFixture("a.mp3", "b.mp3", "c.mp3")
	p.fail = map[string]bool{"b.mp3": true}
	orch := pipeline.NewOrchestrator(pipeline.Adapters{Downloader: d, Processor: p, Ingestor: i})

	summary, err := orch.Run(context.Background(), fullConfig())
	require.NoError(t, err)

	process, ok := summary.Phase(pipeline.PhaseProcess)
	require.True(t, ok)
	assert.Equal(t, 3, process.Attempted)
	assert.Equal(t, 2, process.Succeeded)
	assert.Equal(t, 1, process.Failed)
	assert.Equal(t, pipeline.StatusCompleted, process.Status)
	require.Len(t, process.Errors, 1)
	assert.Equal(t, "transcription failed", process.Errors[0].Reason)

	require.Len(t, i.received, 1)
	assert.Len(t, i.received[0].Artifacts, 2)
	assert.Equal(t, pipeline.RunPartial, summary.Status)
	assert.Equal(t, pipeline.StateDone, summary.FinalState)
}

func TestRunDownloadAdapterFailureStopsRun(t *testing.T) {
	d, p, i := newFixture("a.mp3")
	d.err = errDriveDown
	orch := pipeline.NewOrchestrator(pipeline.Adapters{Downloader: d, Processor: p, Ingestor: i})

	rc := fullConfig()
	rc.ContinueOnError = true
	summary, err := orch.Run(context.Background(), rc)
	require.NoError(t, err)

	require.Len(t, summary.Phases, 1)
	download := summary.Phases[0]
	assert.Equal(t, pipeline.PhaseDownload, download.Phase)
	assert.Equal(t, pipeline.StatusFailed, download.Status)
	assert.Zero(t, download.Succeeded)
	assert.Contains(t, download.AdapterError, errDriveDown.Error())
	assert.Equal(t, pipeline.RunFailed, summary.Status)
	assert.Equal(t, pipeline.StateFailed, summary.FinalState)
	assert.Zero(t, p.calls)
	assert.Zero(t, i.calls)
}

func TestRunPolicyFailure(t *testing.T) {
	tests := []struct {
		name            string
		maxFailures     int
		failing         []string
		continueOnError bool
		wantStatus      pipeline.PhaseStatus
		wantPhases      int
		wantFinal       pipeline.State
	}{
		{name: "default tolerates partial loss", maxFailures: -1, failing: []string{"a.mp3"}, wantStatus: pipeline.StatusCompleted, wantPhases: 3, wantFinal: pipeline.StateDone},
		{name: "default fails when every item fails", maxFailures: -1, failing: []string{"a.mp3", "b.mp3"}, wantStatus: pipeline.StatusFailed, wantPhases: 2, wantFinal: pipeline.StateFailed},
		{name: "zero tolerance", maxFailures: 0, failing: []string{"a.mp3"}, wantStatus: pipeline.StatusFailed, wantPhases: 2, wantFinal: pipeline.StateFailed},
		{name: "threshold not exceeded", maxFailures: 1, failing: []string{"a.mp3"}, wantStatus: pipeline.StatusCompleted, wantPhases: 3, wantFinal: pipeline.StateDone},
		{name: "continue on error runs later phases", maxFailures: 0, failing: []string{"a.mp3"}, continueOnError: true, wantStatus: pipeline.StatusFailed, wantPhases: 3, wantFinal: pipeline.StateDone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, p, i := newFixture("a.mp3", "b.mp3")
			p.fail = map[string]bool{}
			for _, name := range tt.failing {
				p.fail[name] = true
			}
			orch := pipeline.NewOrchestrator(pipeline.Adapters{Downloader: d, Processor: p, Ingestor: i})
			rc := pipeline.NewRunConfiguration(pipeline.Flags{MaxFailures: tt.maxFailures, ContinueOnError: tt.continueOnError})

			summary, err := orch.Run(context.Background(), rc)
			require.NoError(t, err)

			process, ok := summary.Phase(pipeline.PhaseProcess)
			require.True(t, ok)
			assert.Equal(t, tt.wantStatus, process.Status)
			assert.Len(t, summary.Phases, tt.wantPhases)
			assert.Equal(t, tt.wantFinal, summary.FinalState)
			if tt.wantStatus == pipeline.StatusFailed {
				assert.Equal(t, pipeline.RunFailed, summary.Status)
			}
		})
	}
}

func TestRunSingleModes(t *testing.T) {
	tests := []struct {
		name  string
		flags pipeline.Flags
		want  pipeline.Phase
	}{
		{name: "download only", flags: pipeline.Flags{DownloadOnly: true}, want: pipeline.PhaseDownload},
		{name: "process only", flags: pipeline.Flags{ProcessOnly: true}, want: pipeline.PhaseProcess},
		{name: "ingest only", flags: pipeline.Flags{IngestOnly: true}, want: pipeline.PhaseIngest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, p, i := newFixture("a.mp3")
			p.discover = []pipeline.ManifestEntry{{Name: "local.m4a", LocalPath: "/downloads/001_x/local.m4a", Kind: pipeline.KindAudio}}
			i.onDisk = []pipeline.Artifact{{Path: "/processed/local.json", SourcePath: "/downloads/001_x/local.m4a"}}
			orch := pipeline.NewOrchestrator(pipeline.Adapters{Downloader: d, Processor: p, Ingestor: i})

			tt.flags.MaxFailures = -1
			summary, err := orch.Run(context.Background(), pipeline.NewRunConfiguration(tt.flags))
			require.NoError(t, err)

			assert.Equal(t, []pipeline.Phase{tt.want}, phaseNames(summary))
			assert.Equal(t, pipeline.RunCompleted, summary.Status)
			assert.Equal(t, pipeline.StateDone, summary.FinalState)
		})
	}
}

func TestRunProcessOnlyDiscovers(t *testing.T) {
	_, p, _ := newFixture()
	p.discover = []pipeline.ManifestEntry{{Name: "x.wav", LocalPath: "/downloads/x.wav"}}
	orch := pipeline.NewOrchestrator(pipeline.Adapters{Processor: p})

	summary, err := orch.Run(context.Background(), pipeline.NewRunConfiguration(pipeline.Flags{ProcessOnly: true, MaxFailures: -1}))
	require.NoError(t, err)

	require.Len(t, p.received, 1)
	assert.Nil(t, p.received[0], "process-only hands the processor a nil manifest")
	assert.Equal(t, 1, summary.Phases[0].Succeeded)
}

func TestRunIngestOnlyLoadsFromDisk(t *testing.T) {
	_, _, i := newFixture()
	i.onDisk = []pipeline.Artifact{{Path: "/processed/a.json", SourcePath: "/downloads/a.mp3"}}
	orch := pipeline.NewOrchestrator(pipeline.Adapters{Ingestor: i})

	summary, err := orch.Run(context.Background(), pipeline.NewRunConfiguration(pipeline.Flags{IngestOnly: true, MaxFailures: -1}))
	require.NoError(t, err)

	require.Len(t, summary.Phases, 1)
	assert.Equal(t, pipeline.PhaseIngest, summary.Phases[0].Phase)
	require.Len(t, i.received, 1)
	assert.Nil(t, i.received[0])
}

func TestRunEmptyDownloadSkipsLaterPhases(t *testing.T) {
	d, p, i := newFixture()
	p.discover = []pipeline.ManifestEntry{{Name: "stale.mp3", LocalPath: "/downloads/stale.mp3"}}
	orch := pipeline.NewOrchestrator(pipeline.Adapters{Downloader: d, Processor: p, Ingestor: i})

	summary, err := orch.Run(context.Background(), fullConfig())
	require.NoError(t, err)

	require.Len(t, summary.Phases, 3)
	for _, result := range summary.Phases {
		assert.Equal(t, pipeline.StatusSkipped, result.Status, result.Phase)
		assert.Zero(t, result.Attempted)
	}
	require.Len(t, p.received, 1)
	require.NotNil(t, p.received[0], "full mode never lets process discover files on its own")
	assert.Empty(t, p.received[0].Entries)
	assert.Equal(t, pipeline.RunCompleted, summary.Status)
}

func TestRunIngestIdempotent(t *testing.T) {
	d, p, i := newFixture("a.mp3", "b.mp3")
	orch := pipeline.NewOrchestrator(pipeline.Adapters{Downloader: d, Processor: p, Ingestor: i})

	_, err := orch.Run(context.Background(), fullConfig())
	require.NoError(t, err)
	second, err := orch.Run(context.Background(), fullConfig())
	require.NoError(t, err)

	ingest, ok := second.Phase(pipeline.PhaseIngest)
	require.True(t, ok)
	assert.Equal(t, 2, ingest.Attempted)
	assert.Zero(t, ingest.Succeeded)
	assert.Equal(t, 2, ingest.Skipped)
	assert.Equal(t, pipeline.StatusCompleted, ingest.Status)
	assert.Equal(t, pipeline.RunCompleted, second.Status)
}

func TestRunDryRunMatchesLiveShape(t *testing.T) {
	dryD, dryP, dryI := newFixture("a.mp3", "b.mp3", "c.mp3")
	dryP.fail = map[string]bool{"c.mp3": true}
	dry := pipeline.NewOrchestrator(pipeline.Adapters{Downloader: dryD, Processor: dryP, Ingestor: dryI})

	rc := fullConfig()
	rc.DryRun = true
	planned, err := dry.Run(context.Background(), rc)
	require.NoError(t, err)

	assert.True(t, planned.DryRun)
	assert.Zero(t, dryD.calls)
	assert.Zero(t, dryP.calls)
	assert.Zero(t, dryI.calls)
	assert.Empty(t, dryD.written)
	assert.Empty(t, dryP.artifacts)
	assert.Empty(t, dryI.stored)
	assert.Equal(t, 1, dryD.plans)
	assert.Equal(t, 1, dryP.plans)
	assert.Equal(t, 1, dryI.plans)

	liveD, liveP, liveI := newFixture("a.mp3", "b.mp3", "c.mp3")
	liveP.fail = map[string]bool{"c.mp3": true}
	live, err := pipeline.NewOrchestrator(pipeline.Adapters{Downloader: liveD, Processor: liveP, Ingestor: liveI}).Run(context.Background(), fullConfig())
	require.NoError(t, err)

	require.Equal(t, phaseNames(live), phaseNames(planned))
	for idx := range live.Phases {
		assert.Equal(t, live.Phases[idx].Status, planned.Phases[idx].Status)
		assert.Equal(t, live.Phases[idx].Attempted, planned.Phases[idx].Attempted)
		assert.Equal(t, live.Phases[idx].Succeeded, planned.Phases[idx].Succeeded)
		assert.Equal(t, live.Phases[idx].Failed, planned.Phases[idx].Failed)
	}
	assert.Equal(t, live.Status, planned.Status)
}

func TestRunDryRunSimulatesWithoutPlanner(t *testing.T) {
	d, p, i := newFixture("a.mp3", "b.mp3")
	orch := pipeline.NewOrchestrator(pipeline.Adapters{
		Downloader: d,
		Processor:  liveOnlyProcessor{p},
		Ingestor:   liveOnlyIngestor{i},
	})

	rc := fullConfig()
	rc.DryRun = true
	summary, err := orch.Run(context.Background(), rc)
	require.NoError(t, err)

	assert.Zero(t, p.calls)
	assert.Zero(t, i.calls)
	for _, result := range summary.Phases {
		assert.Equal(t, 2, result.Attempted, result.Phase)
		assert.Equal(t, 2, result.Succeeded, result.Phase)
	}
}

func TestRunRejectsInvalidConfiguration(t *testing.T) {
	d, p, i := newFixture("a.mp3")
	orch := pipeline.NewOrchestrator(pipeline.Adapters{Downloader: d, Processor: p, Ingestor: i})

	rc := pipeline.NewRunConfiguration(pipeline.Flags{DownloadOnly: true, IngestOnly: true})
	summary, err := orch.Run(context.Background(), rc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrConfiguration))
	assert.Empty(t, summary.Phases)
	assert.Zero(t, d.calls)
	assert.Equal(t, 2, services.ExitCode(err))
}

func TestRunMissingAdapterIsConfigurationError(t *testing.T) {
	orch := pipeline.NewOrchestrator(pipeline.Adapters{})
	_, err := orch.Run(context.Background(), fullConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrConfiguration)
}

func TestRunIgnoresCancellationOnceStarted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	d, p, i := newFixture("a.mp3")
	d.onCall = cancel
	orch := pipeline.NewOrchestrator(pipeline.Adapters{Downloader: d, Processor: p, Ingestor: i})

	summary, err := orch.Run(ctx, fullConfig())
	require.NoError(t, err)
	assert.Len(t, summary.Phases, 3)
	assert.Equal(t, pipeline.RunCompleted, summary.Status)
}

func TestRunElapsedFromClock(t *testing.T) {
	clock := newFakeClock()
	d, p, i := newFixture("a.mp3")
	d.onCall = func() { clock.Advance(1500 * time.Millisecond) }
	orch := pipeline.NewOrchestrator(pipeline.Adapters{Downloader: d, Processor: p, Ingestor: i}, pipeline.WithClock(clock))

	summary, err := orch.Run(context.Background(), fullConfig())
	require.NoError(t, err)
	assert.Equal(t, "1.5s", summary.Phases[0].Elapsed.String())
	assert.Equal(t, "1.5s", summary.Elapsed.String())
}
