package models

// ErrorKind classifies why an execution or step failed. Callers use it to
// render failures appropriately; a cancelled run is "stopped", not "broken".
type ErrorKind string

const (
	// ErrorKindValidation marks a malformed step config, detected before any
	// side effect.
	ErrorKindValidation ErrorKind = "validation"

	// ErrorKindSecurity marks a policy rejection or a declined confirmation,
	// detected before the step's side effect.
	ErrorKindSecurity ErrorKind = "security"

	// ErrorKindExecution marks a failed executor side effect, scoped to
	// exactly one step.
	ErrorKindExecution ErrorKind = "execution"

	// ErrorKindTimeout marks a bounded wait that exceeded its budget.
	ErrorKindTimeout ErrorKind = "timeout"

	// ErrorKindCancelled marks an explicit user or caller cancellation.
	ErrorKindCancelled ErrorKind = "cancelled"

	// ErrorKindBusy marks an Execute call rejected because the engine
	// instance already has a run in flight.
	ErrorKindBusy ErrorKind = "busy"

	// ErrorKindInternal marks an unexpected condition (panic, programmer
	// error) converted into a structured failure at the step boundary.
	ErrorKindInternal ErrorKind = "internal"
)

// Failure builds a failed step-level result.
func Failure(kind ErrorKind, message string) ExecutionResult {
	return ExecutionResult{
		Success:   false,
		Error:     message,
		ErrorKind: kind,
	}
}

// StepSuccess builds a successful step-level result carrying the executor's
// output payload.
func StepSuccess(output any, durationMs int64) ExecutionResult {
	return ExecutionResult{
		Success:        true,
		ExecutionTime:  durationMs,
		Output:         output,
		StepsCompleted: 1,
		TotalSteps:     1,
	}
}
