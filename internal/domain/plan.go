package domain

// WorkflowStep is one planned tool invocation.
type WorkflowStep struct {
	Index              int            `json:"index"`
	Text               string         `json:"text"`
	RequiredCategory   Category       `json:"requiredCategory"`
	ToolHint           string         `json:"toolHint,omitempty"`
	AssignedCapability *CapabilityRef `json:"assignedCapability,omitempty"`
}

// WorkflowPlan is an ordered, contiguously indexed list of steps (never empty).
type WorkflowPlan struct {
	ID        string         `json:"id"`
	Query     string         `json:"query"`
	MultiStep bool           `json:"multiStep"`
	Steps     []WorkflowStep `json:"steps"`
}
