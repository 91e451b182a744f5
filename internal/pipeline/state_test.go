package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		from, to State
		ok       bool
	}{
		{StateIdle, StateDownloading, true},
		{StateIdle, StateIngesting, true},
		{StateDownloading, StateProcessing, true},
		{StateProcessing, StateIngesting, true},
		{StateIngesting, StateDone, true},
		{StateDownloading, StateDone, true},
		{StateDownloading, StateFailed, true},
		{StateProcessing, StateFailed, true},
		{StateIngesting, StateFailed, true},
		{StateIdle, StateDone, false},
		{StateIdle, StateFailed, false},
		{StateProcessing, StateDownloading, false},
		{StateIngesting, StateIngesting, false},
		{StateDone, StateDownloading, false},
		{StateFailed, StateDone, false},
		{StateDownloading, StateIdle, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			got, err := transition(tt.from, tt.to)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.to, got)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.from, got)
		})
	}
}

func TestRunMoveToPanicsOnIllegalTransition(t *testing.T) {
	r := &run{state: StateDone}
	assert.Panics(t, func() { r.moveTo(StateDownloading) })
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name   string
		phases []PhaseResult
		want   RunStatus
	}{
		{name: "no phases", want: RunCompleted},
		{name: "all clean", phases: []PhaseResult{{Status: StatusCompleted}, {Status: StatusSkipped}}, want: RunCompleted},
		{name: "item failures", phases: []PhaseResult{{Status: StatusCompleted, Failed: 1}}, want: RunPartial},
		{name: "failed phase wins", phases: []PhaseResult{{Status: StatusCompleted, Failed: 1}, {Status: StatusFailed}}, want: RunFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, deriveStatus(tt.phases))
		})
	}
}

func TestFailurePolicy(t *testing.T) {
	all := PhaseResult{Attempted: 3, Failed: 3}
	some := PhaseResult{Attempted: 3, Succeeded: 2, Failed: 1}
	none := PhaseResult{Attempted: 3, Succeeded: 3}

	assert.True(t, DefaultFailurePolicy().failed(all))
	assert.False(t, DefaultFailurePolicy().failed(some))
	assert.False(t, FailurePolicy{MaxFailures: 0}.failed(none))
	assert.True(t, FailurePolicy{MaxFailures: 0}.failed(some))
	assert.False(t, FailurePolicy{MaxFailures: 1}.failed(some))
}

func TestReportForwarding(t *testing.T) {
	download := DownloadReport{Items: []Item[ManifestEntry]{
		Ok("a", ManifestEntry{LocalPath: "/d/a"}),
		Skip("b", ManifestEntry{LocalPath: "/d/b"}, "already downloaded"),
		Skip("c", ManifestEntry{}, "unsupported type"),
		Fail[ManifestEntry]("d", "empty file"),
	}}
	manifest := download.Manifest()
	require.Len(t, manifest.Entries, 2)
	assert.Equal(t, "/d/a", manifest.Entries[0].LocalPath)
	assert.Equal(t, "/d/b", manifest.Entries[1].LocalPath)

	process := ProcessReport{Items: []Item[Artifact]{
		Ok("a", Artifact{Path: "/p/a.json"}),
		Skip("b", Artifact{Path: "/p/b.json"}, "cached artifact"),
		Skip("c", Artifact{}, "already ingested"),
	}}
	set := process.Artifacts()
	require.Len(t, set.Artifacts, 2)
	assert.Equal(t, "/p/b.json", set.Artifacts[1].Path)

	var result PhaseResult
	tally(&result, download.Items)
	assert.Equal(t, 4, result.Attempted)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []ItemError{{Key: "d", Reason: "empty file"}}, result.Errors)
}
