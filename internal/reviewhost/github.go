package reviewhost

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	"stacker.dev/stacker/internal/stkerrors"
)

// githubHost is the GitHub-backed Host implementation.
type githubHost struct {
	client        *github.Client
	owner         string
	repo          string
	hostname      string
	activationURL string
}

// NewGitHubHost constructs a Host authenticated with token, targeting
// owner/repo on hostname ("github.com" or a GitHub Enterprise hostname).
// appServerURL is surfaced back to the user as the reauthentication link
// when a request comes back 401.
func NewGitHubHost(ctx context.Context, hostname, token, owner, repo, appServerURL string) (Host, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)
	client := github.NewClient(tc)

	if hostname != "" && hostname != "github.com" {
		baseURL, err := url.Parse(fmt.Sprintf("https://%s/api/v3/", hostname))
		if err != nil {
			return nil, fmt.Errorf("parse base URL for %s: %w", hostname, err)
		}
		uploadURL, err := url.Parse(fmt.Sprintf("https://%s/api/uploads/", hostname))
		if err != nil {
			return nil, fmt.Errorf("parse upload URL for %s: %w", hostname, err)
		}
		client.BaseURL = baseURL
		client.UploadURL = uploadURL
	}

	return &githubHost{client: client, owner: owner, repo: repo, hostname: hostname, activationURL: appServerURL}, nil
}

func (h *githubHost) OwnerRepo() (string, string) { return h.owner, h.repo }

// SubmitBatch fans out to one create-or-update call per request, since
// GitHub has no batch pull-request endpoint. Every response is populated
// (with Err set on failure) rather than returning early, so the caller can
// apply successes before raising.
func (h *githubHost) SubmitBatch(ctx context.Context, requests []Request) ([]Response, error) {
	responses := make([]Response, len(requests))
	for i, req := range requests {
		resp, err := h.submitOne(ctx, req)
		if err != nil {
			resp.Err = err
		}
		responses[i] = resp
	}
	return responses, nil
}

func (h *githubHost) submitOne(ctx context.Context, req Request) (Response, error) {
	if req.ExistingNumber == 0 {
		return h.create(ctx, req)
	}
	return h.update(ctx, req)
}

func (h *githubHost) create(ctx context.Context, req Request) (Response, error) {
	pr := &github.NewPullRequest{
		Title: github.String(req.Title),
		Head:  github.String(req.Branch),
		Base:  github.String(req.Base),
		Draft: github.Bool(req.Draft),
	}
	if req.Body != "" {
		pr.Body = github.String(req.Body)
	}

	created, _, err := h.client.PullRequests.Create(ctx, h.owner, h.repo, pr)
	if err != nil {
		return Response{Branch: req.Branch}, h.classifyErr(req.Branch, err)
	}

	if len(req.Reviewers) > 0 || len(req.TeamReviewers) > 0 {
		_, _, _ = h.client.PullRequests.RequestReviewers(ctx, h.owner, h.repo, created.GetNumber(), github.ReviewersRequest{
			Reviewers:     req.Reviewers,
			TeamReviewers: req.TeamReviewers,
		})
	}

	return Response{
		Branch: req.Branch,
		Number: created.GetNumber(),
		URL:    created.GetHTMLURL(),
		Base:   created.GetBase().GetRef(),
		State:  strings.ToUpper(created.GetState()),
		Draft:  created.GetDraft(),
	}, nil
}

func (h *githubHost) update(ctx context.Context, req Request) (Response, error) {
	update := &github.PullRequest{
		Title: github.String(req.Title),
	}
	if req.Body != "" {
		update.Body = github.String(req.Body)
	}
	if req.Base != "" {
		update.Base = &github.PullRequestBranch{Ref: github.String(req.Base)}
	}

	updated, _, err := h.client.PullRequests.Edit(ctx, h.owner, h.repo, req.ExistingNumber, update)
	if err != nil {
		return Response{Branch: req.Branch}, h.classifyErr(req.Branch, err)
	}

	if len(req.Reviewers) > 0 || len(req.TeamReviewers) > 0 {
		_, _, _ = h.client.PullRequests.RequestReviewers(ctx, h.owner, h.repo, req.ExistingNumber, github.ReviewersRequest{
			Reviewers:     req.Reviewers,
			TeamReviewers: req.TeamReviewers,
		})
	}

	return Response{
		Branch: req.Branch,
		Number: updated.GetNumber(),
		URL:    updated.GetHTMLURL(),
		Base:   updated.GetBase().GetRef(),
		State:  strings.ToUpper(updated.GetState()),
		Draft:  updated.GetDraft(),
	}, nil
}

func (h *githubHost) FetchStatus(ctx context.Context, branch string) (*PrInfo, error) {
	prs, _, err := h.client.PullRequests.List(ctx, h.owner, h.repo, &github.PullRequestListOptions{
		Head:        fmt.Sprintf("%s:%s", h.owner, branch),
		State:       "all",
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		return nil, h.classifyErr(branch, err)
	}
	if len(prs) == 0 {
		return nil, nil
	}
	pr := prs[0]
	return &PrInfo{
		Number: pr.GetNumber(),
		URL:    pr.GetHTMLURL(),
		Base:   pr.GetBase().GetRef(),
		Title:  pr.GetTitle(),
		Body:   pr.GetBody(),
		State:  strings.ToUpper(pr.GetState()),
		Draft:  pr.GetDraft(),
	}, nil
}

func (h *githubHost) Merge(ctx context.Context, branch string) error {
	pr, err := h.FetchStatus(ctx, branch)
	if err != nil {
		return err
	}
	if pr == nil {
		return fmt.Errorf("no pull request found for branch %s", branch)
	}
	_, _, err = h.client.PullRequests.Merge(ctx, h.owner, h.repo, pr.Number, "", &github.PullRequestOptions{MergeMethod: "merge"})
	if err != nil {
		return h.classifyErr(branch, err)
	}
	return nil
}

func (h *githubHost) ChecksStatus(ctx context.Context, branch string) (ChecksStatus, error) {
	pr, err := h.FetchStatus(ctx, branch)
	if err != nil || pr == nil {
		return ChecksStatus{Passing: true}, nil
	}

	prDetail, _, err := h.client.PullRequests.Get(ctx, h.owner, h.repo, pr.Number)
	if err != nil || prDetail.GetHead().GetSHA() == "" {
		return ChecksStatus{Passing: true}, nil
	}
	headSHA := prDetail.GetHead().GetSHA()

	checkRuns, _, err := h.client.Checks.ListCheckRunsForRef(ctx, h.owner, h.repo, headSHA, &github.ListCheckRunsOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	})
	if err != nil {
		return h.combinedStatusFallback(ctx, headSHA)
	}

	var pending, failing bool
	for _, run := range checkRuns.CheckRuns {
		status := strings.ToUpper(run.GetStatus())
		if status == "QUEUED" || status == "IN_PROGRESS" {
			pending = true
		}
		switch strings.ToUpper(run.GetConclusion()) {
		case "FAILURE", "CANCELED", "TIMED_OUT", "ACTION_REQUIRED":
			failing = true
		}
	}
	return ChecksStatus{Passing: !failing, Pending: pending}, nil
}

func (h *githubHost) combinedStatusFallback(ctx context.Context, ref string) (ChecksStatus, error) {
	status, _, err := h.client.Repositories.GetCombinedStatus(ctx, h.owner, h.repo, ref, nil)
	if err != nil || status == nil {
		return ChecksStatus{Passing: true}, nil
	}
	state := strings.ToUpper(status.GetState())
	return ChecksStatus{
		Passing: state != "FAILURE" && state != "ERROR",
		Pending: state == "PENDING",
	}, nil
}

// classifyErr maps a go-github error into the RemoteError taxonomy.
func (h *githubHost) classifyErr(branch string, err error) error {
	if err == nil {
		return nil
	}
	if ghErr, ok := err.(*github.ErrorResponse); ok {
		switch ghErr.Response.StatusCode {
		case 401:
			return &stkerrors.RemoteError{
				Kind:          stkerrors.RemoteErrorAuthExpired,
				Branch:        branch,
				Message:       ghErr.Message,
				ActivationURL: h.activationURL,
			}
		default:
			return &stkerrors.RemoteError{
				Kind:       stkerrors.RemoteErrorUnexpectedServerResponse,
				Branch:     branch,
				Message:    ghErr.Message,
				StatusCode: ghErr.Response.StatusCode,
				RequestID:  ghErr.Response.Header.Get("X-GitHub-Request-Id"),
			}
		}
	}
	return &stkerrors.RemoteError{Kind: stkerrors.RemoteErrorSubmit, Branch: branch, Message: err.Error()}
}
