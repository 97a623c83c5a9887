package models

/*
Status, type, priority and role constants used throughout the codebase.
Centralizing these avoids magic strings and improves maintainability.
*/

// TaskStatus is the lifecycle state of a Task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusRetrying  TaskStatus = "retrying"
	TaskStatusCanceled  TaskStatus = "canceled"
)

// Terminal reports whether the status is final. Terminal tasks never
// transition again.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCanceled:
		return true
	}
	return false
}

// TaskType classifies the logical operation a task performs.
type TaskType string

const (
	TaskTypeDocumentProcessing TaskType = "document_processing"
	TaskTypeRFPAnalysis        TaskType = "rfp_analysis"
	TaskTypeProposalAnalysis   TaskType = "proposal_analysis"
	TaskTypeOther              TaskType = "other"
)

// TaskPriority is informational; it affects dispatch ordering only through
// the queue each priority maps to.
type TaskPriority string

const (
	TaskPriorityLow      TaskPriority = "low"
	TaskPriorityNormal   TaskPriority = "normal"
	TaskPriorityHigh     TaskPriority = "high"
	TaskPriorityCritical TaskPriority = "critical"
)

// Queue maps a priority to the worker queue it is dispatched on.
func (p TaskPriority) Queue() string {
	switch p {
	case TaskPriorityCritical:
		return "critical"
	case TaskPriorityHigh:
		return "high"
	case TaskPriorityLow:
		return "low"
	default:
		return "default"
	}
}

// PipelineStatus mirrors a simplified subset of TaskStatus.
type PipelineStatus string

const (
	PipelineStatusPending   PipelineStatus = "pending"
	PipelineStatusRunning   PipelineStatus = "running"
	PipelineStatusCompleted PipelineStatus = "completed"
	PipelineStatusFailed    PipelineStatus = "failed"
)

// PipelineType discriminates the pipeline variant and its step order.
type PipelineType string

const (
	PipelineTypeRFPAnalysis      PipelineType = "rfp_analysis"
	PipelineTypeProposalAnalysis PipelineType = "proposal_analysis"
)

// Valid reports whether t is a known pipeline type.
func (t PipelineType) Valid() bool {
	return t == PipelineTypeRFPAnalysis || t == PipelineTypeProposalAnalysis
}

// TaskTypeFor returns the task type recorded for a pipeline of type t.
func (t PipelineType) TaskType() TaskType {
	if t == PipelineTypeProposalAnalysis {
		return TaskTypeProposalAnalysis
	}
	return TaskTypeRFPAnalysis
}

// DocumentRole tags a document's part in a pipeline.
type DocumentRole string

const (
	DocumentRolePrimary       DocumentRole = "primary"
	DocumentRoleSecondary     DocumentRole = "secondary"
	DocumentRoleSupplementary DocumentRole = "supplementary"
)
