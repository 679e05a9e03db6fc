package testhelper

import (
	"context"
	"fmt"

	"stacker.dev/stacker/internal/reviewhost"
)

// FakeHost is an in-memory reviewhost.Host, built as a plain struct instead
// of a mock HTTP server. The submit pipeline only depends on the Host
// interface, so nothing here needs to round-trip through go-github's wire
// types.
type FakeHost struct {
	Owner, Repo string
	nextNumber  int
	byNumber    map[int]*reviewhost.PrInfo
	byBranch    map[string]int

	// FailBranch, if set, makes SubmitBatch return an error response for
	// that branch instead of creating or updating it.
	FailBranch string
	FailErr    error

	// SubmitBatchCalls counts invocations of SubmitBatch, so tests can
	// assert a gated submit never reached the host at all.
	SubmitBatchCalls int
}

// NewFakeHost returns a FakeHost with no existing pull requests.
func NewFakeHost(owner, repo string) *FakeHost {
	return &FakeHost{
		Owner:      owner,
		Repo:       repo,
		nextNumber: 1,
		byNumber:   make(map[int]*reviewhost.PrInfo),
		byBranch:   make(map[string]int),
	}
}

func (h *FakeHost) OwnerRepo() (string, string) { return h.Owner, h.Repo }

func (h *FakeHost) SubmitBatch(ctx context.Context, requests []reviewhost.Request) ([]reviewhost.Response, error) {
	h.SubmitBatchCalls++
	responses := make([]reviewhost.Response, len(requests))
	for i, req := range requests {
		if h.FailBranch != "" && req.Branch == h.FailBranch {
			responses[i] = reviewhost.Response{Branch: req.Branch, Err: h.FailErr}
			continue
		}

		number := req.ExistingNumber
		if number == 0 {
			number = h.nextNumber
			h.nextNumber++
		}
		info := &reviewhost.PrInfo{
			Number: number,
			URL:    fmt.Sprintf("https://github.com/%s/%s/pull/%d", h.Owner, h.Repo, number),
			Base:   req.Base,
			Title:  req.Title,
			Body:   req.Body,
			State:  "OPEN",
			Draft:  req.Draft,
		}
		h.byNumber[number] = info
		h.byBranch[req.Branch] = number

		responses[i] = reviewhost.Response{
			Branch: req.Branch,
			Number: number,
			URL:    info.URL,
			Base:   info.Base,
			State:  info.State,
			Draft:  info.Draft,
		}
	}
	return responses, nil
}

func (h *FakeHost) FetchStatus(ctx context.Context, branch string) (*reviewhost.PrInfo, error) {
	number, ok := h.byBranch[branch]
	if !ok {
		return nil, nil
	}
	return h.byNumber[number], nil
}

func (h *FakeHost) Merge(ctx context.Context, branch string) error {
	number, ok := h.byBranch[branch]
	if !ok {
		return fmt.Errorf("no pull request for branch %s", branch)
	}
	h.byNumber[number].State = "MERGED"
	return nil
}

func (h *FakeHost) ChecksStatus(ctx context.Context, branch string) (reviewhost.ChecksStatus, error) {
	return reviewhost.ChecksStatus{Passing: true}, nil
}

// SetState forces the stored PR state for branch, used to simulate a PR
// having been merged or closed out-of-band before a submit runs.
func (h *FakeHost) SetState(branch, state string) {
	if number, ok := h.byBranch[branch]; ok {
		h.byNumber[number].State = state
	}
}
