package model

import "time"

// ExecutionResult contains the result of a script or command run inside an
// environment. Output is combined stdout/stderr and is secret-redacted before
// it leaves the executor.
type ExecutionResult struct {
	ExitCode int
	Output   string
	Duration time.Duration
}

// Success returns true if the command exited with code zero.
func (r ExecutionResult) Success() bool { return r.ExitCode == 0 }

// VerificationCheck is a post-install command expected to produce a specific
// exit code, used to confirm a successful installation.
type VerificationCheck struct {
	Command          string
	ExpectedExitCode int
	Description      string
	RetryCount       int
	RetryDelay       time.Duration
	Timeout          time.Duration
}

// VerificationCheckResult is the outcome of a single verification check.
type VerificationCheckResult struct {
	Check    VerificationCheck
	Passed   bool
	ExitCode int
	Output   string
}

// VerificationResult aggregates the outcome of every verification check.
type VerificationResult struct {
	Checks  []VerificationCheckResult
	Success bool
}
