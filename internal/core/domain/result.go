package domain

// Stage names a step of the per-file pipeline.
type Stage string

const (
	StageConvert  Stage = "convert"
	StageSeed     Stage = "seed"
	StageClassify Stage = "classify"
	StageAssemble Stage = "assemble"
	StageEnrich   Stage = "enrich"
	StageSave     Stage = "save"
	StageLoad     Stage = "load"
	// StageQueue marks a file that was queued but never picked up.
	StageQueue Stage = "queue"
)

// PipelineStats counts what happened to one file.
type PipelineStats struct {
	Documents        int `json:"documents"`
	IndexTerms       int `json:"index_terms"`
	TermsKnown       int `json:"terms_known"`
	TermsClassified  int `json:"terms_classified"`
	TermsDegraded    int `json:"terms_degraded"`
	BatchesSent      int `json:"batches_sent"`
	BatchesDegraded  int `json:"batches_degraded"`
	AuthorityMatches int `json:"authority_matches"`
	DocumentsLoaded  int `json:"documents_loaded"`
	DocumentsSkipped int `json:"documents_skipped"`
}

// ClassificationReport summarises one merge pass.
type ClassificationReport struct {
	Known           int
	Classified      int
	Degraded        int
	BatchesSent     int
	BatchesDegraded int
}

// FileResult represents the outcome of running the pipeline for one file
type FileResult struct {
	Path       string        `json:"path"`
	OutputPath string        `json:"output_path,omitempty"`
	Success    bool          `json:"success"`
	Stage      Stage         `json:"stage,omitempty"` // stage that failed
	Stats      PipelineStats `json:"stats"`
	Error      string        `json:"error,omitempty"`
	Duration   float64       `json:"duration_seconds"`
}
