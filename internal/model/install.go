package model

// Phase is the state of an installation attempt's state machine.
type Phase string

const (
	// PhaseGeneratingScript renders the scripts before anything runs.
	PhaseGeneratingScript Phase = "generating-script"
	// PhaseProvisioning acquires an execution environment from the pool.
	PhaseProvisioning Phase = "provisioning"
	// PhaseExecuting runs the install script inside the environment.
	PhaseExecuting Phase = "executing"
	// PhaseVerifying runs the post-install verification checks.
	PhaseVerifying Phase = "verifying"
	// PhaseRollingBack runs the best-effort compensating script.
	PhaseRollingBack Phase = "rolling-back"
	// PhaseCompleted is the terminal success state.
	PhaseCompleted Phase = "completed"
	// PhaseFailed is the terminal failure state.
	PhaseFailed Phase = "failed"
)

// InstallResult is the structured result every orchestration call returns to
// the caller, success or not. Logs carry the phase-appropriate output
// excerpts (install output, verification output, rollback output) so the
// operator can diagnose without re-running. All text in it is secret-redacted.
type InstallResult struct {
	Success bool
	Message string
	Logs    []string
	Phase   Phase
	// Script is only set on dry runs, it carries the rendered install script.
	Script string
}
