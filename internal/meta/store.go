// Package meta persists per-branch metadata (parent name, prev-ref, and PR
// info) in a private Git ref namespace. Git's own ref graph remains the
// sole authority on commit content; this package is the sole authority on
// parent/prevRef.
package meta

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"stacker.dev/stacker/internal/gitexec"
)

// refPrefix is the namespace under which every branch's metadata blob is
// stored, keyed by branch name.
const refPrefix = "refs/branch-metadata/"

// PrInfo is the persisted shape of a branch's pull request state.
type PrInfo struct {
	Number  *int    `json:"number,omitempty"`
	Base    *string `json:"base,omitempty"`
	URL     *string `json:"url,omitempty"`
	Title   *string `json:"title,omitempty"`
	Body    *string `json:"body,omitempty"`
	State   *string `json:"state,omitempty"`
	IsDraft *bool   `json:"isDraft,omitempty"`
}

// Meta is the JSON document stored at refs/branch-metadata/<branch>.
// Sequence is an insertion-order counter used to make sibling iteration
// order reproducible, since a plain ref scan has no defined order.
type Meta struct {
	ParentBranchName     *string `json:"parentBranchName,omitempty"`
	ParentBranchRevision *string `json:"parentBranchRevision,omitempty"`
	PrInfo               *PrInfo `json:"prInfo,omitempty"`
	Sequence             int64   `json:"sequence,omitempty"`
}

// Store is the meta-store capability set.
type Store interface {
	// Track registers branch as tracked with the given parent, assigning it
	// the next insertion sequence number if it has none yet.
	Track(ctx context.Context, branch, parent string) error
	GetParent(ctx context.Context, branch string) (string, bool, error)
	SetParent(ctx context.Context, branch, parent string) error
	GetPrevRef(ctx context.Context, branch string) (string, bool, error)
	SetPrevRef(ctx context.Context, branch, sha string) error
	GetPRInfo(ctx context.Context, branch string) (*PrInfo, error)
	UpsertPRInfo(ctx context.Context, branch string, patch *PrInfo) error
	ListTracked(ctx context.Context) ([]string, error)
	Untrack(ctx context.Context, branch string) error
}

type refStore struct {
	adapter  gitexec.Adapter
	seq      int64
	seqReady bool
}

// NewStore returns a Store backed by the given Git adapter.
func NewStore(adapter gitexec.Adapter) Store {
	return &refStore{adapter: adapter}
}

func refName(branch string) string {
	return refPrefix + branch
}

func (s *refStore) read(ctx context.Context, branch string) (Meta, error) {
	sha, err := s.adapter.ReadRef(ctx, refName(branch))
	if err != nil {
		return Meta{}, nil // missing ref => empty meta
	}
	content, err := s.adapter.ReadBlob(ctx, sha)
	if err != nil {
		return Meta{}, nil
	}
	var m Meta
	if err := json.Unmarshal([]byte(content), &m); err != nil {
		return Meta{}, nil
	}
	return m, nil
}

func (s *refStore) write(ctx context.Context, branch string, m Meta) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal metadata for %s: %w", branch, err)
	}
	sha, err := s.adapter.CreateBlob(ctx, string(data))
	if err != nil {
		return fmt.Errorf("write metadata blob for %s: %w", branch, err)
	}
	if err := s.adapter.UpdateRef(ctx, refName(branch), sha); err != nil {
		return fmt.Errorf("update metadata ref for %s: %w", branch, err)
	}
	return nil
}

// nextSeq assigns the next insertion sequence number, priming the counter
// from the highest sequence already persisted the first time it is called.
func (s *refStore) nextSeq(ctx context.Context) (int64, error) {
	if !s.seqReady {
		refs, err := s.adapter.ListRefs(ctx, refPrefix)
		if err != nil {
			return 0, fmt.Errorf("scan metadata refs: %w", err)
		}
		for ref := range refs {
			branch := strings.TrimPrefix(ref, refPrefix)
			m, err := s.read(ctx, branch)
			if err != nil {
				return 0, err
			}
			if m.Sequence > s.seq {
				s.seq = m.Sequence
			}
		}
		s.seqReady = true
	}
	s.seq++
	return s.seq, nil
}

func (s *refStore) Track(ctx context.Context, branch, parent string) error {
	m, err := s.read(ctx, branch)
	if err != nil {
		return err
	}
	if m.Sequence == 0 {
		seq, err := s.nextSeq(ctx)
		if err != nil {
			return err
		}
		m.Sequence = seq
	}
	m.ParentBranchName = &parent
	return s.write(ctx, branch, m)
}

func (s *refStore) GetParent(ctx context.Context, branch string) (string, bool, error) {
	m, err := s.read(ctx, branch)
	if err != nil {
		return "", false, err
	}
	if m.ParentBranchName == nil {
		return "", false, nil
	}
	return *m.ParentBranchName, true, nil
}

func (s *refStore) SetParent(ctx context.Context, branch, parent string) error {
	m, err := s.read(ctx, branch)
	if err != nil {
		return err
	}
	if m.Sequence == 0 {
		seq, err := s.nextSeq(ctx)
		if err != nil {
			return err
		}
		m.Sequence = seq
	}
	m.ParentBranchName = &parent
	return s.write(ctx, branch, m)
}

func (s *refStore) GetPrevRef(ctx context.Context, branch string) (string, bool, error) {
	m, err := s.read(ctx, branch)
	if err != nil {
		return "", false, err
	}
	if m.ParentBranchRevision == nil {
		return "", false, nil
	}
	return *m.ParentBranchRevision, true, nil
}

func (s *refStore) SetPrevRef(ctx context.Context, branch, sha string) error {
	m, err := s.read(ctx, branch)
	if err != nil {
		return err
	}
	m.ParentBranchRevision = &sha
	return s.write(ctx, branch, m)
}

func (s *refStore) GetPRInfo(ctx context.Context, branch string) (*PrInfo, error) {
	m, err := s.read(ctx, branch)
	if err != nil {
		return nil, err
	}
	return m.PrInfo, nil
}

// UpsertPRInfo merges non-nil fields of patch into the branch's stored
// PrInfo, creating it if absent. Fields left nil in patch are untouched.
func (s *refStore) UpsertPRInfo(ctx context.Context, branch string, patch *PrInfo) error {
	m, err := s.read(ctx, branch)
	if err != nil {
		return err
	}
	if m.PrInfo == nil {
		m.PrInfo = &PrInfo{}
	}
	if patch.Number != nil {
		m.PrInfo.Number = patch.Number
	}
	if patch.Base != nil {
		m.PrInfo.Base = patch.Base
	}
	if patch.URL != nil {
		m.PrInfo.URL = patch.URL
	}
	if patch.Title != nil {
		m.PrInfo.Title = patch.Title
	}
	if patch.Body != nil {
		m.PrInfo.Body = patch.Body
	}
	if patch.State != nil {
		m.PrInfo.State = patch.State
	}
	if patch.IsDraft != nil {
		m.PrInfo.IsDraft = patch.IsDraft
	}
	return s.write(ctx, branch, m)
}

// ListTracked returns every branch with a metadata ref, ordered by
// insertion sequence so sibling traversal during restack is reproducible.
func (s *refStore) ListTracked(ctx context.Context) ([]string, error) {
	refs, err := s.adapter.ListRefs(ctx, refPrefix)
	if err != nil {
		return nil, fmt.Errorf("list metadata refs: %w", err)
	}

	type entry struct {
		name string
		seq  int64
	}
	entries := make([]entry, 0, len(refs))
	for ref := range refs {
		branch := strings.TrimPrefix(ref, refPrefix)
		m, err := s.read(ctx, branch)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{name: branch, seq: m.Sequence})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].seq != entries[j].seq {
			return entries[i].seq < entries[j].seq
		}
		return entries[i].name < entries[j].name
	})

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names, nil
}

func (s *refStore) Untrack(ctx context.Context, branch string) error {
	return s.adapter.DeleteRef(ctx, refName(branch))
}
