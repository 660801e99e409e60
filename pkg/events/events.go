// Package events defines event types and structures for execution lifecycle
// notifications.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries every execution lifecycle event.
const Topic = "stepflow.executions"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Execution lifecycle events.
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	ExecutionCancelledEvent EventType = "execution.cancelled"

	// Per-step events.
	StepStartedEvent   EventType = "execution.step.started"
	StepCompletedEvent EventType = "execution.step.completed"
	StepFailedEvent    EventType = "execution.step.failed"
	StepSkippedEvent   EventType = "execution.step.skipped"
)

type BaseEvent struct {
	ID           string         `json:"id"`
	Type         EventType      `json:"type"`
	Timestamp    time.Time      `json:"timestamp"`
	AutomationID string         `json:"automation_id"`
	ExecutionID  string         `json:"execution_id"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

type ExecutionStarted struct {
	BaseEvent

	AutomationTitle string         `json:"automation_title"`
	TotalSteps      int            `json:"total_steps"`
	Inputs          map[string]any `json:"inputs,omitempty"`
	Initiator       string         `json:"initiator,omitempty"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	DurationMs     int64          `json:"duration_ms"`
	StepsCompleted int            `json:"steps_completed"`
	FinalVariables map[string]any `json:"final_variables,omitempty"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	DurationMs     int64  `json:"duration_ms"`
	Error          string `json:"error"`
	ErrorKind      string `json:"error_kind"`
	StepsCompleted int    `json:"steps_completed"`
	FailedStep     *int   `json:"failed_step,omitempty"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

type ExecutionCancelled struct {
	BaseEvent

	DurationMs     int64  `json:"duration_ms"`
	Reason         string `json:"reason"`
	StepsCompleted int    `json:"steps_completed"`
}

func (e ExecutionCancelled) GetType() EventType {
	return ExecutionCancelledEvent
}

type StepStarted struct {
	BaseEvent

	StepID    string `json:"step_id"`
	StepType  string `json:"step_type"`
	StepIndex int    `json:"step_index"`
}

func (e StepStarted) GetType() EventType {
	return StepStartedEvent
}

type StepCompleted struct {
	BaseEvent

	StepID     string `json:"step_id"`
	StepType   string `json:"step_type"`
	StepIndex  int    `json:"step_index"`
	DurationMs int64  `json:"duration_ms"`
	Output     any    `json:"output,omitempty"`
}

func (e StepCompleted) GetType() EventType {
	return StepCompletedEvent
}

type StepFailed struct {
	BaseEvent

	StepID    string `json:"step_id"`
	StepType  string `json:"step_type"`
	StepIndex int    `json:"step_index"`
	Error     string `json:"error"`
	ErrorKind string `json:"error_kind"`
}

func (e StepFailed) GetType() EventType {
	return StepFailedEvent
}

type StepSkipped struct {
	BaseEvent

	StepID    string `json:"step_id"`
	StepType  string `json:"step_type"`
	StepIndex int    `json:"step_index"`
	Reason    string `json:"reason"`
}

func (e StepSkipped) GetType() EventType {
	return StepSkippedEvent
}

func NewBaseEvent(eventType EventType, automationID, executionID string) BaseEvent {
	return BaseEvent{
		ID:           uuid.New().String(),
		Type:         eventType,
		Timestamp:    time.Now().UTC(),
		AutomationID: automationID,
		ExecutionID:  executionID,
		Metadata:     make(map[string]any),
	}
}
