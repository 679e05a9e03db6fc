// Package stkerrors provides sentinel errors and typed error values for the
// stack engine. Callers use errors.Is/errors.As rather than type switches.
package stkerrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions checked across the engine.
var (
	ErrNotOnBranch         = errors.New("not on a branch")
	ErrBranchNotFound      = errors.New("branch not found")
	ErrRebaseConflict      = errors.New("rebase conflict")
	ErrRebaseNotInProgress = errors.New("no rebase in progress")
	ErrTrunkOperation      = errors.New("invalid operation on trunk branch")
	ErrPreconditionsFailed = errors.New("preconditions failed")
	ErrValidationFailed    = errors.New("validation failed")
	ErrStackBuild          = errors.New("stack build error")
	ErrKilled              = errors.New("operation cancelled by user")
)

// BranchNotFoundError names the branch that could not be resolved.
type BranchNotFoundError struct {
	BranchName string
}

func (e *BranchNotFoundError) Error() string {
	return fmt.Sprintf("branch %q does not exist", e.BranchName)
}

func (e *BranchNotFoundError) Is(target error) bool {
	return target == ErrBranchNotFound
}

func NewBranchNotFoundError(branchName string) *BranchNotFoundError {
	return &BranchNotFoundError{BranchName: branchName}
}

// RebaseConflictError names the branch whose rebase hit a conflict.
type RebaseConflictError struct {
	BranchName string
	Message    string
}

func (e *RebaseConflictError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("rebase conflict on branch %s: %s", e.BranchName, e.Message)
	}
	return fmt.Sprintf("rebase conflict on branch %s", e.BranchName)
}

func (e *RebaseConflictError) Is(target error) bool {
	return target == ErrRebaseConflict
}

func NewRebaseConflictError(branchName, message string) *RebaseConflictError {
	return &RebaseConflictError{BranchName: branchName, Message: message}
}

// GitCommandError wraps a failed git invocation with its stdout/stderr.
type GitCommandError struct {
	Command string
	Args    []string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *GitCommandError) Error() string {
	msg := fmt.Sprintf("git command failed: %s %v", e.Command, e.Args)
	if e.Stderr != "" {
		msg += fmt.Sprintf("\nstderr: %s", e.Stderr)
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n%v", e.Err)
	}
	return msg
}

func (e *GitCommandError) Unwrap() error { return e.Err }

func NewGitCommandError(command string, args []string, stdout, stderr string, err error) *GitCommandError {
	return &GitCommandError{Command: command, Args: args, Stdout: stdout, Stderr: stderr, Err: err}
}

// PreconditionsFailedError reports a dirty tree, in-progress rebase, detached
// HEAD, or missing parent metadata that blocks an engine operation.
type PreconditionsFailedError struct {
	Reason      string
	Remediation string
}

func (e *PreconditionsFailedError) Error() string {
	if e.Remediation != "" {
		return fmt.Sprintf("%s (%s)", e.Reason, e.Remediation)
	}
	return e.Reason
}

func (e *PreconditionsFailedError) Is(target error) bool {
	return target == ErrPreconditionsFailed
}

func NewPreconditionsFailedError(reason, remediation string) *PreconditionsFailedError {
	return &PreconditionsFailedError{Reason: reason, Remediation: remediation}
}

// Divergence is a single validator finding: the branch whose stored parent
// tip is not an ancestor of it in Git's history.
type Divergence struct {
	Branch         string
	ExpectedParent string
	ActualBase     string
}

// ValidationFailedError carries the first divergence a validator pass found.
type ValidationFailedError struct {
	Divergence Divergence
}

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("branch %s: stored parent %s is not an ancestor (actual base %s)",
		e.Divergence.Branch, e.Divergence.ExpectedParent, e.Divergence.ActualBase)
}

func (e *ValidationFailedError) Is(target error) bool {
	return target == ErrValidationFailed
}

func NewValidationFailedError(d Divergence) *ValidationFailedError {
	return &ValidationFailedError{Divergence: d}
}

// StackBuildError reports a structural problem in meta: an unknown parent,
// a cycle, or an untracked branch encountered while walking the forest.
type StackBuildError struct {
	BranchName string
	Reason     string
}

func (e *StackBuildError) Error() string {
	return fmt.Sprintf("cannot build stack at %s: %s", e.BranchName, e.Reason)
}

func (e *StackBuildError) Is(target error) bool {
	return target == ErrStackBuild
}

func NewStackBuildError(branchName, reason string) *StackBuildError {
	return &StackBuildError{BranchName: branchName, Reason: reason}
}

// SubmitGatedError reports that a branch in a submit batch already has a
// MERGED or CLOSED pull request, which hard-stops the whole batch: no API
// call is issued and no meta mutation occurs.
type SubmitGatedError struct {
	Branch string
	State  string // MERGED or CLOSED
}

func (e *SubmitGatedError) Error() string {
	switch e.State {
	case "MERGED":
		return fmt.Sprintf("%s's pull request was merged; run 'stacker sync' before submitting again", e.Branch)
	case "CLOSED":
		return fmt.Sprintf("%s's pull request was closed; reopen it on the remote before submitting again", e.Branch)
	default:
		return fmt.Sprintf("%s's pull request is %s and cannot be submitted", e.Branch, e.State)
	}
}

func NewSubmitGatedError(branch, state string) *SubmitGatedError {
	return &SubmitGatedError{Branch: branch, State: state}
}

// RemoteErrorKind classifies a review-host transport failure.
type RemoteErrorKind int

const (
	// RemoteErrorAuthExpired is a 401 response; the user must reauthenticate.
	RemoteErrorAuthExpired RemoteErrorKind = iota
	// RemoteErrorUnexpectedServerResponse is any other non-2xx response.
	RemoteErrorUnexpectedServerResponse
	// RemoteErrorSubmit is a per-branch status=error entry in a batch response.
	RemoteErrorSubmit
)

// RemoteError reports a review-host transport failure.
type RemoteError struct {
	Kind          RemoteErrorKind
	Branch        string // set for RemoteErrorSubmit
	Message       string
	ActivationURL string // set for RemoteErrorAuthExpired
	RequestID     string // set for RemoteErrorUnexpectedServerResponse
	StatusCode    int
}

func (e *RemoteError) Error() string {
	switch e.Kind {
	case RemoteErrorAuthExpired:
		return fmt.Sprintf("authentication expired; reauthenticate at %s", e.ActivationURL)
	case RemoteErrorSubmit:
		return fmt.Sprintf("submit failed for %s: %s", e.Branch, e.Message)
	default:
		return fmt.Sprintf("unexpected server response (status %d, request-id %s): %s", e.StatusCode, e.RequestID, e.Message)
	}
}

// ExitCode maps err onto the process exit codes: 0 success, 1 validation
// failure (the default for anything else too), 2 preconditions failed, 3
// remote failure, 4 user abort.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var remoteErr *RemoteError
	switch {
	case errors.Is(err, ErrKilled):
		return 4
	case errors.Is(err, ErrPreconditionsFailed):
		return 2
	case errors.As(err, &remoteErr):
		return 3
	default:
		return 1
	}
}
