package domain

// StepStatus is the lifecycle state of a research step.
type StepStatus string

// Step statuses.
const (
	StepWaiting    StepStatus = "waiting"
	StepProcessing StepStatus = "processing"
	StepCompleted  StepStatus = "completed"
	StepSkipped    StepStatus = "skipped"
	StepFailed     StepStatus = "failed"
)

// ResearchStep is one stage of a research session as seen by the client.
type ResearchStep struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Status      StepStatus  `json:"status"`
	Message     string      `json:"message,omitempty"`
	Result      interface{} `json:"result,omitempty"`
	Timestamp   string      `json:"timestamp,omitempty"` // RFC3339 of last transition
}

// ProgressMessageType is the type tag of every streamed progress message.
const ProgressMessageType = "research_progress"

// ProgressMessage is streamed to the client on every step transition.
type ProgressMessage struct {
	Type            string           `json:"type"`
	Steps           []ResearchStep   `json:"steps"`
	CurrentStep     *string          `json:"currentStep"`
	OverallProgress int              `json:"overallProgress"`
	Completed       bool             `json:"completed,omitempty"`
	Summary         *ResearchSummary `json:"summary,omitempty"`
}

// ResearchSummary is attached to the final progress message of a completed run.
type ResearchSummary struct {
	MintAddress       string  `json:"mintAddress"`
	Name              string  `json:"name"`
	Symbol            string  `json:"symbol"`
	MarketCap         float64 `json:"marketCap"` // USD
	Sentiment         string  `json:"sentiment"`
	RiskLevel         string  `json:"riskLevel"`
	RecommendedAction string  `json:"recommendedAction"`
}

// Research finish reasons.
const (
	FinishCompleted = "completed"
	FinishPartial   = "partial"
)

// ResearchResult is the terminal value of a research run.
type ResearchResult struct {
	FinishReason string                 `json:"finish_reason"`
	Data         map[string]interface{} `json:"data,omitempty"`
	Error        string                 `json:"error,omitempty"`
	Summary      *ResearchSummary       `json:"summary,omitempty"`
}
