package enrichment

// Stage names the steps of a background enrichment run, in order.
type Stage string

const (
	StageReceived     Stage = "received"
	StageCompressed   Stage = "compressed"
	StageAreaAnalyzed Stage = "area_analyzed"
	StageIdentified   Stage = "identified"
	StageReclassified Stage = "reclassified"
	StageSimilarity   Stage = "similarity_computed"
	StageReply        Stage = "reply_generated"
	StagePersisted    Stage = "persisted"
)

// Status classifies the outcome of a single stage.
type Status string

const (
	// StatusSuccess means the stage completed with a full-quality result.
	StatusSuccess Status = "success"
	// StatusDegraded means the stage fell back to a lower-quality local
	// result. The run continues.
	StatusDegraded Status = "degraded"
	// StatusFailed means the stage could not produce a usable result. Only
	// the received and persisted stages abort the run on failure.
	StatusFailed Status = "failed"
	// StatusSkipped means the stage had nothing to do for this image.
	StatusSkipped Status = "skipped"
)

// StageResult records how one stage went.
type StageResult struct {
	Stage  Stage
	Status Status
	Err    error
	Detail string
}

// Trace is the ordered list of stage results for one run.
type Trace []StageResult

// Result returns the entry for a stage, or nil when the run never reached it.
func (t Trace) Result(stage Stage) *StageResult {
	for i := range t {
		if t[i].Stage == stage {
			return &t[i]
		}
	}
	return nil
}

// Failed reports whether any stage failed outright.
func (t Trace) Failed() bool {
	for i := range t {
		if t[i].Status == StatusFailed {
			return true
		}
	}
	return false
}
