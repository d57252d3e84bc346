package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"devis/model"
)

// Draft is an in-progress quote state with its sync bookkeeping.
type Draft struct {
	ID       string      `json:"id"`
	State    model.State `json:"state"`
	Version  int         `json:"version"`
	Updated  time.Time   `json:"updated"`
	RemoteID string      `json:"remote_id,omitempty"`
	Synced   time.Time   `json:"synced,omitempty"`
}

// newerThan reports whether d should win over other.
func (d Draft) newerThan(other Draft) bool {
	if d.Version != other.Version {
		return d.Version > other.Version
	}
	return d.Updated.After(other.Updated)
}

// DraftStore is one side of the draft mirror.
type DraftStore interface {
	Ping(ctx context.Context) error
	Save(ctx context.Context, d Draft) error
	Load(ctx context.Context, id string) (Draft, error)
	List(ctx context.Context) ([]Draft, error)
	Delete(ctx context.Context, id string) error
}

// KVDrafts stores drafts as JSON values of a KV.
type KVDrafts struct {
	kv KV
}

// NewKVDrafts wraps kv.
func NewKVDrafts(kv KV) *KVDrafts {
	return &KVDrafts{kv: kv}
}

const draftKeyPrefix = "draft:"

func (s *KVDrafts) Ping(ctx context.Context) error {
	return s.kv.Ping(ctx)
}

func (s *KVDrafts) Save(ctx context.Context, d Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft %s: %w", d.ID, err)
	}
	return s.kv.Set(ctx, draftKeyPrefix+d.ID, data)
}

func (s *KVDrafts) Load(ctx context.Context, id string) (Draft, error) {
	data, err := s.kv.Get(ctx, draftKeyPrefix+id)
	if err != nil {
		return Draft{}, err
	}
	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return Draft{}, fmt.Errorf("decode draft %s: %w: %v", id, ErrCorruptDraft, err)
	}
	return d, nil
}

func (s *KVDrafts) List(ctx context.Context) ([]Draft, error) {
	keys, err := s.kv.Keys(ctx, draftKeyPrefix)
	if err != nil {
		return nil, err
	}
	drafts := make([]Draft, 0, len(keys))
	for _, k := range keys {
		d, err := s.Load(ctx, k[len(draftKeyPrefix):])
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrCorruptDraft) {
			continue // deleted between Keys and Get, or unreadable
		}
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, d)
	}
	sortDrafts(drafts)
	return drafts, nil
}

func (s *KVDrafts) Delete(ctx context.Context, id string) error {
	return s.kv.Delete(ctx, draftKeyPrefix+id)
}

// sortDrafts orders by most recently updated first.
func sortDrafts(drafts []Draft) {
	sort.SliceStable(drafts, func(i, j int) bool {
		return drafts[i].Updated.After(drafts[j].Updated)
	})
}
