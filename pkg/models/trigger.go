package models

// TriggerType is the closed set of trigger variants. Dispatch is always on
// the explicit tag, never on field presence.
type TriggerType string

const (
	TriggerManual   TriggerType = "manual"
	TriggerCron     TriggerType = "cron"
	TriggerPipeline TriggerType = "pipeline"
)

// Artifact is a named reference produced by a parent execution and handed to
// the child through its trigger.
type Artifact struct {
	Name      string `json:"name"`
	Type      string `json:"type,omitempty"`
	Reference string `json:"reference,omitempty"`
}

// Trigger describes what started an execution.
//
// A pipeline trigger initially holds only ParentExecutionID; the mapper
// resolves it into the fully hydrated form (parent pipeline name, id,
// parameters, artifacts) at load time. Consumers that need full detail must
// check Resolved: when the parent execution has been purged the trigger is
// left unresolved rather than failing the load.
type Trigger struct {
	Type       TriggerType    `json:"type"`
	User       string         `json:"user,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Artifacts  []Artifact     `json:"artifacts,omitempty"`

	// Pipeline variant fields.
	ParentExecutionID  string `json:"parentExecutionId,omitempty"`
	ParentPipelineID   string `json:"parentPipelineId,omitempty"`
	ParentPipelineName string `json:"parentPipelineName,omitempty"`
	Resolved           bool   `json:"resolved,omitempty"`
}

// IsPipeline reports whether the trigger references a parent execution.
func (t Trigger) IsPipeline() bool {
	return t.Type == TriggerPipeline
}

// ResolvedPipelineTrigger builds the hydrated trigger for a child execution
// from its located parent, preserving the original parent execution id.
func ResolvedPipelineTrigger(original Trigger, parent *PipelineExecution) Trigger {
	return Trigger{
		Type:               TriggerPipeline,
		User:               original.User,
		Parameters:         parent.Trigger.Parameters,
		Artifacts:          parent.Trigger.Artifacts,
		ParentExecutionID:  original.ParentExecutionID,
		ParentPipelineID:   parent.ID,
		ParentPipelineName: parent.Name,
		Resolved:           true,
	}
}
