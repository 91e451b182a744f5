package pipeline

// Phase names one step of the pipeline.
type Phase string

const (
	PhaseDownload Phase = "download"
	PhaseProcess  Phase = "process"
	PhaseIngest   Phase = "ingest"
)

// Phases lists every phase in execution order.
var Phases = []Phase{PhaseDownload, PhaseProcess, PhaseIngest}

func (p Phase) String() string { return string(p) }

// activeState is the run state entered while the phase executes.
func (p Phase) activeState() State {
	switch p {
	case PhaseDownload:
		return StateDownloading
	case PhaseProcess:
		return StateProcessing
	case PhaseIngest:
		return StateIngesting
	default:
		return StateFailed
	}
}

// PhaseStatus tracks a phase through a run.
type PhaseStatus string

const (
	StatusPending   PhaseStatus = "pending"
	StatusRunning   PhaseStatus = "running"
	StatusCompleted PhaseStatus = "completed"
	StatusFailed    PhaseStatus = "failed"
	// StatusSkipped marks a selected phase that had nothing to do.
	StatusSkipped PhaseStatus = "skipped"
)
