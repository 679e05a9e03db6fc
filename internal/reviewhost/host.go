// Package reviewhost models the review-host capability set used by the
// submit pipeline, with a GitHub implementation. The Host interface exists
// so the stack engine never branches on which host a repo is configured
// for; only one concrete implementation ships, but the seam is load-bearing
// for the submit pipeline regardless.
package reviewhost

import "context"

// Request is a single branch's submit request: either create a new pull
// request or update an existing one.
type Request struct {
	Branch         string
	Base           string
	Title          string
	Body           string
	Draft          bool
	ExistingNumber int // 0 means "create"
	Reviewers      []string
	TeamReviewers  []string
}

// Response is the per-branch outcome of a submit request.
type Response struct {
	Branch string
	Number int
	URL    string
	Base   string
	State  string
	Draft  bool
	Err    error
}

// ChecksStatus reports the combined CI status for a pull request.
type ChecksStatus struct {
	Passing bool
	Pending bool
}

// PrInfo is the host's view of a pull request's current state, used to
// sync local metadata before a submit decides whether a branch's PR is
// already MERGED or CLOSED.
type PrInfo struct {
	Number int
	URL    string
	Base   string
	Title  string
	Body   string
	State  string // OPEN, MERGED, CLOSED
	Draft  bool
}

// Host is the review-host capability set a submit pipeline depends on.
// GitHub has no real batch-submit endpoint, so SubmitBatch is expected to
// fan out to N sequential per-branch calls internally; callers get the
// batch-shaped API regardless of host so future hosts with a true batch
// endpoint can implement it directly.
type Host interface {
	// SubmitBatch creates or updates a pull request per request, applying
	// each result independently. It returns one Response per Request, in
	// the same order, even when some entries carry a non-nil Err. Callers
	// are expected to apply successful responses before surfacing the first
	// error, per the submit pipeline's partial-batch semantics.
	SubmitBatch(ctx context.Context, requests []Request) ([]Response, error)

	// FetchStatus returns the current PR state for branch, or nil if no PR
	// exists for it.
	FetchStatus(ctx context.Context, branch string) (*PrInfo, error)

	// Merge merges the pull request associated with branch.
	Merge(ctx context.Context, branch string) error

	// ChecksStatus returns the CI status for branch's pull request.
	ChecksStatus(ctx context.Context, branch string) (ChecksStatus, error)

	// OwnerRepo returns the configured owner and repository name.
	OwnerRepo() (owner, repo string)
}

// SubmittableStates is the set of PR states a branch may still be submitted
// against; MERGED and CLOSED PRs hard-stop a submit batch.
var SubmittableStates = map[string]bool{
	"OPEN": true,
}
