package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"devis/model"
)

// StoreStatus reports the last known availability of one side of the mirror.
type StoreStatus struct {
	Name      string    `json:"name"`
	Available bool      `json:"available"`
	CheckedAt time.Time `json:"checked_at"`
	Error     string    `json:"error,omitempty"`
}

type side struct {
	name  string
	store DraftStore

	available bool
	checked   time.Time
	lastErr   error
}

// Mirror keeps drafts in two stores at once. Every operation goes to each
// available store; a store that fails is marked unavailable until the next
// check succeeds. Reads return the newest copy and repair the stale side.
type Mirror struct {
	mu    sync.Mutex
	sides []*side

	checkTTL time.Duration
	timeout  time.Duration
	log      *zap.Logger
	now      func() time.Time
}

// MirrorOption configures a Mirror.
type MirrorOption func(*Mirror)

// WithLogger sets the logger used for availability transitions.
func WithLogger(l *zap.Logger) MirrorOption {
	return func(m *Mirror) {
		if l != nil {
			m.log = l
		}
	}
}

// WithCheckTTL sets how long a check result is trusted.
func WithCheckTTL(ttl time.Duration) MirrorOption {
	return func(m *Mirror) { m.checkTTL = ttl }
}

// WithTimeout bounds each ping.
func WithTimeout(d time.Duration) MirrorOption {
	return func(m *Mirror) { m.timeout = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) MirrorOption {
	return func(m *Mirror) { m.now = now }
}

// NewMirror mirrors drafts between the key-value store and the local database.
// Either may be nil, in which case it is reported as unavailable.
func NewMirror(kv DraftStore, local DraftStore, opts ...MirrorOption) *Mirror {
	m := &Mirror{
		checkTTL: 30 * time.Second,
		timeout:  2 * time.Second,
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	for _, s := range []struct {
		name  string
		store DraftStore
	}{{"kv", kv}, {"localdb", local}} {
		if s.store == nil {
			continue
		}
		m.sides = append(m.sides, &side{name: s.name, store: s.store})
	}
	return m
}

// Check pings the stores whose last check is older than the check TTL and
// returns the availability of each.
func (m *Mirror) Check(ctx context.Context) []StoreStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkLocked(ctx, false)
	return m.statusLocked()
}

// Status returns the last known availability without pinging.
func (m *Mirror) Status() []StoreStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusLocked()
}

// Refresh pings every store regardless of the check TTL.
func (m *Mirror) Refresh(ctx context.Context) []StoreStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkLocked(ctx, true)
	return m.statusLocked()
}

func (m *Mirror) checkLocked(ctx context.Context, force bool) {
	now := m.now()
	for _, s := range m.sides {
		if !force && !s.checked.IsZero() && now.Sub(s.checked) < m.checkTTL {
			continue
		}
		pctx, cancel := context.WithTimeout(ctx, m.timeout)
		err := s.store.Ping(pctx)
		cancel()
		m.setLocked(s, err)
	}
}

// setLocked records the outcome of a call on s and logs transitions.
func (m *Mirror) setLocked(s *side, err error) {
	was := s.available
	first := s.checked.IsZero()
	s.checked = m.now()
	s.lastErr = err
	s.available = err == nil

	switch {
	case s.available && (!was || first):
		m.log.Info("draft store available", zap.String("store", s.name))
	case !s.available && (was || first):
		m.log.Warn("draft store unavailable", zap.String("store", s.name), zap.Error(err))
	}
}

func (m *Mirror) statusLocked() []StoreStatus {
	out := make([]StoreStatus, 0, len(m.sides))
	for _, s := range m.sides {
		st := StoreStatus{Name: s.name, Available: s.available, CheckedAt: s.checked}
		if s.lastErr != nil {
			st.Error = s.lastErr.Error()
		}
		out = append(out, st)
	}
	return out
}

func (m *Mirror) availableLocked(ctx context.Context) []*side {
	m.checkLocked(ctx, false)
	var out []*side
	for _, s := range m.sides {
		if s.available {
			out = append(out, s)
		}
	}
	return out
}

// Save writes d to every available store. It fails only when no store
// accepted the write.
func (m *Mirror) Save(ctx context.Context, d Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked(ctx, d, m.availableLocked(ctx))
}

func (m *Mirror) saveLocked(ctx context.Context, d Draft, sides []*side) error {
	if d.ID == "" {
		return fmt.Errorf("save draft: empty id")
	}
	d.Version = d.State.Version
	if d.Updated.IsZero() || d.State.UpdatedAt.After(d.Updated) {
		d.Updated = d.State.UpdatedAt
	}
	if d.Updated.IsZero() {
		d.Updated = m.now()
	}
	d.State.RemoteID = d.RemoteID

	var errs []error
	saved := 0
	for _, s := range sides {
		if err := s.store.Save(ctx, d); err != nil {
			m.setLocked(s, err)
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
			continue
		}
		saved++
	}
	if saved == 0 {
		if len(errs) == 0 {
			return ErrNoStorageAvailable
		}
		return fmt.Errorf("%w: %w", ErrNoStorageAvailable, errors.Join(errs...))
	}
	return nil
}

// Load returns the newest copy of the draft across the available stores
// and writes it back to any store holding an older, unreadable or no copy.
func (m *Mirror) Load(ctx context.Context, id string) (Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked(ctx, id)
}

func (m *Mirror) loadLocked(ctx context.Context, id string) (Draft, error) {
	type found struct {
		side  *side
		draft Draft
		ok    bool
	}

	var answers []found
	for _, s := range m.availableLocked(ctx) {
		d, err := s.store.Load(ctx, id)
		switch {
		case errors.Is(err, ErrNotFound):
			answers = append(answers, found{side: s})
		case errors.Is(err, ErrCorruptDraft):
			m.log.Warn("corrupt draft copy", zap.String("store", s.name), zap.String("id", id), zap.Error(err))
			answers = append(answers, found{side: s})
		case err != nil:
			m.setLocked(s, err)
		default:
			answers = append(answers, found{side: s, draft: d, ok: true})
		}
	}
	if len(answers) == 0 {
		return Draft{}, ErrNoStorageAvailable
	}

	var best *Draft
	for i := range answers {
		if answers[i].ok && (best == nil || answers[i].draft.newerThan(*best)) {
			best = &answers[i].draft
		}
	}
	if best == nil {
		return Draft{}, fmt.Errorf("draft %s: %w", id, ErrNotFound)
	}

	for _, a := range answers {
		if a.ok && !best.newerThan(a.draft) {
			continue
		}
		if err := a.side.store.Save(ctx, *best); err != nil {
			m.setLocked(a.side, err)
			continue
		}
		m.log.Debug("draft repaired", zap.String("store", a.side.name), zap.String("id", id), zap.Int("version", best.Version))
	}
	return *best, nil
}

// List returns the newest copy of every draft known to any available store.
func (m *Mirror) List(ctx context.Context) ([]Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byID := make(map[string]Draft)
	answered := 0
	for _, s := range m.availableLocked(ctx) {
		drafts, err := s.store.List(ctx)
		if err != nil {
			m.setLocked(s, err)
			continue
		}
		answered++
		for _, d := range drafts {
			if cur, ok := byID[d.ID]; !ok || d.newerThan(cur) {
				byID[d.ID] = d
			}
		}
	}
	if answered == 0 {
		return nil, ErrNoStorageAvailable
	}

	out := make([]Draft, 0, len(byID))
	for _, d := range byID {
		out = append(out, d)
	}
	sortDrafts(out)
	return out, nil
}

// Delete removes the draft from every available store.
func (m *Mirror) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for _, s := range m.availableLocked(ctx) {
		if err := s.store.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
			m.setLocked(s, err)
			continue
		}
		deleted++
	}
	if deleted == 0 {
		return ErrNoStorageAvailable
	}
	return nil
}

// Create stores a new draft holding s and returns it.
func (m *Mirror) Create(ctx context.Context, s model.State) (Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = m.now()
	}
	d := Draft{ID: uuid.NewString(), State: s, RemoteID: s.RemoteID}
	if err := m.saveLocked(ctx, d, m.availableLocked(ctx)); err != nil {
		return Draft{}, err
	}
	return m.loadLocked(ctx, d.ID)
}

// Dispatch applies action to the stored draft and saves the result.
func (m *Mirror) Dispatch(ctx context.Context, id string, action model.Action) (Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.loadLocked(ctx, id)
	if err != nil {
		return Draft{}, err
	}
	next, err := model.Reduce(d.State, action, m.now())
	if err != nil {
		return Draft{}, err
	}
	d.State = next
	if _, isReset := action.(model.Reset); isReset {
		d.RemoteID, d.Synced = "", time.Time{}
	} else if _, isReset := action.(*model.Reset); isReset {
		d.RemoteID, d.Synced = "", time.Time{}
	}
	if err := m.saveLocked(ctx, d, m.availableLocked(ctx)); err != nil {
		return Draft{}, err
	}
	return m.loadLocked(ctx, id)
}

// Push saves the draft to the remote backend and records the remote id and
// sync time on the draft.
func (m *Mirror) Push(ctx context.Context, id string, remote Remote) (Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.loadLocked(ctx, id)
	if err != nil {
		return Draft{}, err
	}
	d.State.RemoteID = d.RemoteID
	saved, err := remote.SaveQuote(ctx, d.State)
	if err != nil {
		return Draft{}, fmt.Errorf("push draft %s: %w", id, err)
	}

	d.State = saved
	d.RemoteID = saved.RemoteID
	d.Synced = m.now()
	if err := m.saveLocked(ctx, d, m.availableLocked(ctx)); err != nil {
		return Draft{}, err
	}
	m.log.Info("draft pushed", zap.String("id", id), zap.String("remote_id", d.RemoteID))
	return d, nil
}

// Pull loads a remote quote into the draft already linked to it, or into a
// new draft when none is.
func (m *Mirror) Pull(ctx context.Context, remoteID string, remote Remote) (Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, err := remote.LoadQuote(ctx, remoteID)
	if err != nil {
		return Draft{}, fmt.Errorf("pull quote %s: %w", remoteID, err)
	}

	d := Draft{ID: uuid.NewString()}
	for _, s := range m.availableLocked(ctx) {
		drafts, err := s.store.List(ctx)
		if err != nil {
			m.setLocked(s, err)
			continue
		}
		for _, existing := range drafts {
			if existing.RemoteID == remoteID && existing.newerThan(d) {
				d = existing
			}
		}
	}

	next, err := model.Reduce(d.State, model.Hydrate{State: state}, m.now())
	if err != nil {
		return Draft{}, err
	}
	d.State = next
	d.RemoteID = remoteID
	d.Synced = m.now()
	if err := m.saveLocked(ctx, d, m.availableLocked(ctx)); err != nil {
		return Draft{}, err
	}
	m.log.Info("draft pulled", zap.String("id", d.ID), zap.String("remote_id", remoteID))
	return d, nil
}
