package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"fleetchat/internal/client"
	"fleetchat/internal/logging"
	"fleetchat/internal/types"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotConfiguring  = errors.New("fleet configuration is not open")
	ErrInvalidSlot     = errors.New("invalid fleet slot")
	ErrSessionLive     = errors.New("session already established")
)

type LoginChoice int

const (
	LoginPreloaded LoginChoice = iota
	LoginCustom
)

type SessionClient interface {
	CreateSession(ctx context.Context, fleet types.FleetConfig) (string, error)
	GetSession(ctx context.Context, id string) (types.FleetConfig, error)
}

// Announcer is told about every session that becomes live.
type Announcer interface {
	Announce(ctx context.Context, session types.Session)
}

// Recorder keeps a local list of sessions the user has used.
type Recorder interface {
	RecordSession(ctx context.Context, session types.Session) error
}

type Options struct {
	Client    SessionClient
	Announcer Announcer
	Recorder  Recorder
	Logger    logging.Logger
	Now       func() time.Time
}

// SlotPatch changes the fields that are set.
type SlotPatch struct {
	Name       *string
	Capacity   *int
	Attributes *[]types.AttributeKey
}

type Store struct {
	client    SessionClient
	announcer Announcer
	recorder  Recorder
	logger    logging.Logger
	now       func() time.Time
	filters   *FilterSet

	mu      sync.Mutex
	session types.Session
}

func NewStore(opts Options) *Store {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		client:    opts.Client,
		announcer: opts.Announcer,
		recorder:  opts.Recorder,
		logger:    logging.Component(opts.Logger, "session"),
		now:       now,
		filters:   NewFilterSet(),
		session:   types.Session{Status: types.SessionStatusUnconfigured},
	}
}

func (s *Store) Snapshot() types.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.session.Clone()
}

func (s *Store) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.ID
}

func (s *Store) Status() types.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Status
}

func (s *Store) Filters() *FilterSet {
	return s.filters
}

// Login opens the fleet configuration for the chosen demo user. The
// preloaded user starts from the ready-made three-fleet setup.
func (s *Store) Login(choice LoginChoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.Status.Live() {
		return ErrSessionLive
	}
	switch choice {
	case LoginPreloaded:
		s.session.Fleet = PreloadedFleet()
	case LoginCustom:
		s.session.Fleet = types.FleetConfig{Slots: []types.FleetSlot{{}}}
	default:
		return fmt.Errorf("unknown login choice %d", choice)
	}
	s.session.Status = types.SessionStatusConfiguring
	return nil
}

func (s *Store) SetSelectedFleetCount(count int) error {
	if count < 1 || count > types.MaxFleetSlots {
		return fmt.Errorf("%w: fleet count %d", ErrInvalidSlot, count)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.Status != types.SessionStatusConfiguring {
		return ErrNotConfiguring
	}
	slots := s.session.Fleet.Slots
	if count < len(slots) {
		slots = slots[:count]
	}
	for len(slots) < count {
		slots = append(slots, types.FleetSlot{})
	}
	s.session.Fleet.Slots = slots
	return nil
}

func (s *Store) UpdateFleetSlot(index int, patch SlotPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.Status != types.SessionStatusConfiguring {
		return ErrNotConfiguring
	}
	if index < 0 || index >= len(s.session.Fleet.Slots) {
		return fmt.Errorf("%w: index %d", ErrInvalidSlot, index)
	}
	slot := s.session.Fleet.Slots[index]
	if patch.Name != nil {
		slot.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Capacity != nil {
		slot.Capacity = types.ClampCapacity(*patch.Capacity)
	}
	if patch.Attributes != nil {
		attrs := types.NormalizeAttributes(*patch.Attributes)
		for _, key := range attrs {
			attr, ok := LookupAttribute(key)
			if !ok || !attr.Selectable {
				return fmt.Errorf("%w: attribute %q is not selectable", ErrInvalidSlot, key)
			}
		}
		slot.ReportedAttributes = attrs
	}
	s.session.Fleet.Slots[index] = slot
	return nil
}

// FinishConfiguring closes the form and returns the configuration with
// defaults filled in, ready for CreateSession.
func (s *Store) FinishConfiguring() (types.FleetConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.Status != types.SessionStatusConfiguring {
		return types.FleetConfig{}, ErrNotConfiguring
	}
	s.session.Fleet = applyFleetDefaults(s.session.Fleet)
	return s.session.Fleet.Clone(), nil
}

// CreateSession registers fleet with the session service. On failure the
// store is left as it was; the caller may try again.
func (s *Store) CreateSession(ctx context.Context, fleet types.FleetConfig) (string, error) {
	if s.Status().Live() {
		return "", ErrSessionLive
	}
	fleet = applyFleetDefaults(fleet)
	id, err := s.client.CreateSession(ctx, fleet)
	if err != nil {
		s.logger.Error("session_create_failed", logging.F("fleets", fleet.SelectedFleetCount()), logging.Err(err))
		return "", fmt.Errorf("create session: %w", err)
	}
	snapshot, ok := s.establish(id, fleet, types.SessionStatusActive)
	if !ok {
		s.logger.Warn("session_create_raced", logging.F("session_id", id))
		return "", ErrSessionLive
	}
	s.logger.Info("session_created", logging.F("session_id", id), logging.F("fleet_total", fleet.Total()))
	s.afterLive(ctx, snapshot)
	return id, nil
}

// RestoreSession loads a previously created session by id. Unknown or
// malformed ids yield ErrSessionNotFound and leave the store untouched.
func (s *Store) RestoreSession(ctx context.Context, id string) (types.FleetConfig, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return types.FleetConfig{}, ErrSessionNotFound
	}
	if s.Status().Live() {
		return types.FleetConfig{}, ErrSessionLive
	}
	fleet, err := s.client.GetSession(ctx, id)
	if err != nil {
		if isMissingSession(err) {
			s.logger.Warn("session_restore_not_found", logging.F("session_id", id), logging.Err(err))
			return types.FleetConfig{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		s.logger.Error("session_restore_failed", logging.F("session_id", id), logging.Err(err))
		return types.FleetConfig{}, fmt.Errorf("restore session: %w", err)
	}
	fleet = applyRestoreDefaults(fleet)
	snapshot, ok := s.establish(id, fleet, types.SessionStatusRestored)
	if !ok {
		s.logger.Warn("session_restore_raced", logging.F("session_id", id))
		return types.FleetConfig{}, ErrSessionLive
	}
	s.logger.Info("session_restored", logging.F("session_id", id), logging.F("fleets", fleet.SelectedFleetCount()))
	s.afterLive(ctx, snapshot)
	return fleet.Clone(), nil
}

// establish makes the session live. It reports false, leaving the store
// untouched, when another call went live first.
func (s *Store) establish(id string, fleet types.FleetConfig, status types.SessionStatus) (types.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.Status.Live() {
		return types.Session{}, false
	}
	s.session = types.Session{
		ID:         id,
		Fleet:      fleet.Clone(),
		Status:     status,
		LastUsedAt: s.now().UTC(),
	}
	return *s.session.Clone(), true
}

func (s *Store) afterLive(ctx context.Context, snapshot types.Session) {
	if s.recorder != nil {
		if err := s.recorder.RecordSession(ctx, snapshot); err != nil {
			s.logger.Warn("session_record_failed", logging.F("session_id", snapshot.ID), logging.Err(err))
		}
	}
	if s.announcer != nil {
		s.announcer.Announce(ctx, snapshot)
	}
}

func isMissingSession(err error) bool {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusNotFound || apiErr.StatusCode == http.StatusBadRequest
}
