package room

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"tilekeep/pkg/mapgrid"
	"tilekeep/pkg/persistence"

	"github.com/sirupsen/logrus"
)

// Status is the room's lifecycle state.
type Status int

const (
	StatusLoading Status = iota
	StatusOpen
	StatusDisposing
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusOpen:
		return "open"
	case StatusDisposing:
		return "disposing"
	default:
		return "unknown"
	}
}

var (
	// ErrWorldNotFound means onCreate could not load the world row.
	ErrWorldNotFound = errors.New("room: world not found")
	// ErrNotOwner means a non-owner attempted to cold-open a room with no
	// current players.
	ErrNotOwner = errors.New("room: not the world owner")
	// ErrRoomFull means the room already holds MaxPartySize players.
	ErrRoomFull = errors.New("room: party is full")
	// ErrJoinFailed wraps a persistence failure encountered during join;
	// it is fatal for the joining session but not for the room.
	ErrJoinFailed = errors.New("room: join failed")
)

// MaxPartySize is the hard cap on simultaneous players in a room.
const MaxPartySize = 8

// Config bundles the runtime knobs a WorldRoom is constructed with. All
// durations come from pkg/config so operators can tune them without a
// rebuild.
type Config struct {
	TickPeriod        time.Duration
	AutoSaveInterval  time.Duration
	IdleCheckInterval time.Duration
	IdleWarnAfter     time.Duration
	IdleKickAfter     time.Duration
	MaxPartySize      int
}

// DefaultConfig mirrors the constants pinned in the client contract: 20 Hz
// ticks, 60 s autosave, 30 s idle checks, 14/15 minute warn/kick.
func DefaultConfig() Config {
	return Config{
		TickPeriod:        50 * time.Millisecond,
		AutoSaveInterval:  60 * time.Second,
		IdleCheckInterval: 30 * time.Second,
		IdleWarnAfter:     14 * time.Minute,
		IdleKickAfter:     15 * time.Minute,
		MaxPartySize:      MaxPartySize,
	}
}

// WorldRoom owns the state and lifecycle for exactly one world save. All
// mutating operations are serialized through mu; the tick, idle-check, and
// autosave loops each acquire it for the duration of their work, matching
// the "one mutation at a time" contract regardless of how many goroutines
// call in from the gateway.
type WorldRoom struct {
	mu sync.Mutex

	worldID       string
	hostAccountID string
	hostSessionID string

	state              *State
	queues             map[string]*InputQueue
	accountBySession   map[string]string
	characterBySession map[string]string
	idle               *idleTracker

	status Status
	saving bool

	cfg       Config
	mapModel  *mapgrid.Model
	store     persistence.Store
	outbox    Outbox
	validator *Validator
	onDispose func(worldID string)

	stopCh chan struct{}
	wg     sync.WaitGroup

	logger *logrus.Entry
}

// New constructs a WorldRoom in the Loading state. Call OnCreate before
// Start.
func New(worldID string, mapModel *mapgrid.Model, store persistence.Store, outbox Outbox, cfg Config, onDispose func(string)) *WorldRoom {
	return &WorldRoom{
		worldID:            worldID,
		state:              NewState(),
		queues:             make(map[string]*InputQueue),
		accountBySession:   make(map[string]string),
		characterBySession: make(map[string]string),
		idle:               newIdleTracker(),
		status:             StatusLoading,
		cfg:                cfg,
		mapModel:           mapModel,
		store:              store,
		outbox:             outbox,
		validator:          NewValidator(),
		onDispose:          onDispose,
		stopCh:             make(chan struct{}),
		logger:             logrus.WithFields(logrus.Fields{"component": "WorldRoom", "worldId": worldID}),
	}
}

// WorldID returns the world this room serves.
func (r *WorldRoom) WorldID() string { return r.worldID }

// Status reports the room's lifecycle state.
func (r *WorldRoom) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// OnCreate loads the owning world row from persistence and pins
// hostAccountID. It must succeed before Start is called; a not-found world
// maps to ErrWorldNotFound so the caller can close the requesting session
// with 4003.
func (r *WorldRoom) OnCreate(ctx context.Context) error {
	world, err := r.store.GetWorld(ctx, r.worldID)
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrWorldNotFound
	}
	if err != nil {
		return fmt.Errorf("room: failed to load world %s: %w", r.worldID, err)
	}

	r.mu.Lock()
	r.hostAccountID = world.OwnerAccountID
	r.mu.Unlock()

	r.logger.WithField("hostAccountId", world.OwnerAccountID).Info("room created")
	return nil
}

// Start launches the tick, autosave, and idle-check loops. The room
// transitions to Open.
func (r *WorldRoom) Start() {
	r.mu.Lock()
	r.status = StatusOpen
	r.mu.Unlock()

	r.wg.Add(3)
	go r.runLoop(r.cfg.TickPeriod, r.tick)
	go r.runLoop(r.cfg.AutoSaveInterval, func() { r.autoSave(context.Background()) })
	go r.runLoop(r.cfg.IdleCheckInterval, r.checkIdle)
}

func (r *WorldRoom) runLoop(period time.Duration, fn func()) {
	defer r.wg.Done()
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fn()
		case <-r.stopCh:
			return
		}
	}
}

// OnJoin admits sessionID, authenticated as accountID/email, into the room.
// characterName is used only when a new character is created.
func (r *WorldRoom) OnJoin(ctx context.Context, sessionID, accountID, email, characterName string) error {
	r.mu.Lock()
	empty := r.state.Len() == 0
	full := r.state.Len() >= r.partySize()
	r.mu.Unlock()

	if empty && accountID != r.hostAccountIDSafe() {
		r.logger.WithFields(logrus.Fields{"sessionId": sessionID, "accountId": accountID}).Warn("cold-open attempt by non-owner")
		return ErrNotOwner
	}
	if full {
		return ErrRoomFull
	}

	character, err := r.store.GetCharacter(ctx, accountID, r.worldID)
	if errors.Is(err, persistence.ErrNotFound) {
		name := strings.TrimSpace(characterName)
		if name == "" {
			name = email
		}
		sx, sy := r.mapModel.Spawn()
		character, err = r.store.CreateCharacter(ctx, accountID, r.worldID, name, sx, sy)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrJoinFailed, err)
		}
	} else if err != nil {
		return fmt.Errorf("%w: %v", ErrJoinFailed, err)
	}

	rec := PlayerRecord{
		SessionID: sessionID,
		AccountID: accountID,
		Name:      character.Name,
		X:         character.X,
		Y:         character.Y,
	}

	r.mu.Lock()
	if r.state.Len() >= r.partySize() {
		r.mu.Unlock()
		return ErrRoomFull
	}
	r.state.Insert(rec)
	r.accountBySession[sessionID] = accountID
	r.characterBySession[sessionID] = character.ID
	r.queues[sessionID] = NewInputQueue()
	if accountID == r.hostAccountID {
		r.hostSessionID = sessionID
	}
	r.mu.Unlock()
	r.idle.init(sessionID, time.Now())

	r.logger.WithFields(logrus.Fields{"sessionId": sessionID, "accountId": accountID}).Info("player joined")
	return nil
}

func (r *WorldRoom) partySize() int {
	if r.cfg.MaxPartySize > 0 {
		return r.cfg.MaxPartySize
	}
	return MaxPartySize
}

func (r *WorldRoom) hostAccountIDSafe() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hostAccountID
}

// HandleInput validates raw and, if accepted, enqueues it for the next
// tick. The idle timer resets for any well-formed input from a known
// session, even a stale one, before the stale check runs.
func (r *WorldRoom) HandleInput(sessionID string, raw RawInput) {
	rec, hasRec := r.state.Get(sessionID)
	lastProcessed := 0
	if hasRec {
		lastProcessed = rec.LastProcessedSequenceNumber
	}

	if raw.SequenceNumber > 0 && mapgrid.Direction(raw.Direction).Valid() && hasRec {
		r.idle.touch(sessionID, time.Now())
	}

	msg, err := r.validator.Validate(raw, hasRec, lastProcessed)
	if err != nil {
		r.logReject(sessionID, err)
		return
	}

	r.mu.Lock()
	q, ok := r.queues[sessionID]
	r.mu.Unlock()
	if !ok {
		return
	}
	if !q.Push(msg) {
		r.logger.WithFields(logrus.Fields{"sessionId": sessionID, "seq": msg.SequenceNumber}).Debug("input queue full, dropping newest")
	}
}

func (r *WorldRoom) logReject(sessionID string, err error) {
	fields := logrus.Fields{"sessionId": sessionID}
	switch {
	case errors.Is(err, ErrMalformed):
		r.logger.WithFields(fields).Warn("rejected malformed input")
	case errors.Is(err, ErrNoPlayer):
		r.logger.WithFields(fields).Debug("rejected input for unknown session")
	case errors.Is(err, ErrStale):
		r.logger.WithFields(fields).Debug("rejected stale input")
	default:
		r.logger.WithFields(fields).WithError(err).Warn("rejected input")
	}
}

// tick pops one input per non-empty queue, evaluates movement, and always
// advances lastProcessedSequenceNumber, then flushes patches to every
// connected session.
func (r *WorldRoom) tick() {
	r.mu.Lock()
	if r.status != StatusOpen {
		r.mu.Unlock()
		return
	}
	sessionIDs := make([]string, 0, len(r.queues))
	for id := range r.queues {
		sessionIDs = append(sessionIDs, id)
	}
	r.mu.Unlock()

	for _, sessionID := range sessionIDs {
		r.mu.Lock()
		q, ok := r.queues[sessionID]
		r.mu.Unlock()
		if !ok {
			continue
		}
		input, ok := q.Pop()
		if !ok {
			continue
		}

		r.state.Mutate(sessionID, func(rec *PlayerRecord) {
			nx, ny, _ := mapgrid.Evaluate(r.mapModel, rec.X, rec.Y, mapgrid.Direction(input.Direction))
			rec.X, rec.Y = nx, ny
			rec.LastProcessedSequenceNumber = input.SequenceNumber
		})
	}

	patches := r.state.FlushPatches()
	if len(patches) == 0 {
		return
	}
	r.broadcast(OutboundMessage{Kind: OutboundPatches, Patches: patches})
}

func (r *WorldRoom) broadcast(msg OutboundMessage) {
	r.mu.Lock()
	sessionIDs := make([]string, 0, len(r.accountBySession))
	for id := range r.accountBySession {
		sessionIDs = append(sessionIDs, id)
	}
	r.mu.Unlock()

	for _, id := range sessionIDs {
		r.outbox.Send(id, msg)
	}
}

// checkIdle warns or kicks sessions based on elapsed time since their last
// input. Warnings fire at >=14 minutes, kicks at >=15 minutes; both use
// >= so the boundary cases in the client contract hold exactly.
func (r *WorldRoom) checkIdle() {
	now := time.Now()
	for _, sessionID := range r.idle.sessions() {
		elapsed, ok := r.idle.elapsedSince(sessionID, now)
		if !ok {
			continue
		}

		if elapsed >= r.cfg.IdleKickAfter {
			r.outbox.Send(sessionID, OutboundMessage{Kind: OutboundIdleKick, Reason: "idle timeout"})
			r.outbox.Close(sessionID, CloseIdleTimeout, "idle timeout")
			continue
		}
		if elapsed >= r.cfg.IdleWarnAfter && !r.idle.isWarned(sessionID) {
			secondsRemaining := int((r.cfg.IdleKickAfter - r.cfg.IdleWarnAfter).Seconds())
			r.outbox.Send(sessionID, OutboundMessage{Kind: OutboundIdleWarning, SecondsRemaining: secondsRemaining})
			r.idle.markWarned(sessionID)
		}
	}
}

// autoSave snapshots state and persists it, guarded by a single-flight
// flag so overlapping timer firings and onLeave/onDispose calls never run
// concurrently.
func (r *WorldRoom) autoSave(ctx context.Context) {
	r.mu.Lock()
	if r.saving {
		r.mu.Unlock()
		return
	}
	r.saving = true
	characterBySession := make(map[string]string, len(r.characterBySession))
	for k, v := range r.characterBySession {
		characterBySession[k] = v
	}
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.saving = false
		r.mu.Unlock()
	}()

	snapshot := r.state.Snapshot()
	positions := make([]persistence.CharacterPosition, 0, len(snapshot))
	for sessionID, rec := range snapshot {
		characterID, ok := characterBySession[sessionID]
		if !ok {
			continue
		}
		positions = append(positions, persistence.CharacterPosition{CharacterID: characterID, X: rec.X, Y: rec.Y})
	}

	worldData := r.encodeWorldData(snapshot)
	if err := r.store.SaveAll(ctx, r.worldID, worldData, positions); err != nil {
		r.logger.WithError(err).Error("autosave failed")
		return
	}
	r.logger.WithField("players", len(positions)).Debug("autosave committed")
}

// encodeWorldData produces the opaque worldData blob handed to
// Persistence.saveAll. The core treats its contents as opaque; this
// encoding exists only so a restart has something to round-trip.
func (r *WorldRoom) encodeWorldData(snapshot map[string]PlayerRecord) []byte {
	return []byte(fmt.Sprintf(`{"worldId":%q,"playerCount":%d}`, r.worldID, len(snapshot)))
}

// OnLeave removes sessionID from the room. The character's position is
// saved fire-and-forget so the leave itself never blocks. Calling OnLeave
// twice for the same session is a no-op the second time.
func (r *WorldRoom) OnLeave(sessionID string, consented bool) {
	r.mu.Lock()
	if _, ok := r.accountBySession[sessionID]; !ok {
		r.mu.Unlock()
		return
	}
	characterID := r.characterBySession[sessionID]
	delete(r.queues, sessionID)
	delete(r.accountBySession, sessionID)
	delete(r.characterBySession, sessionID)
	if sessionID == r.hostSessionID {
		r.hostSessionID = ""
	}
	remaining := len(r.accountBySession)
	r.mu.Unlock()

	r.idle.remove(sessionID)
	rec, hadRecord := r.state.Get(sessionID)
	r.state.Remove(sessionID)

	if hadRecord && characterID != "" {
		go r.saveOnLeave(characterID, rec.X, rec.Y)
	}

	r.logger.WithFields(logrus.Fields{"sessionId": sessionID, "consented": consented}).Info("player left")

	if remaining == 0 {
		r.dispose()
	}
}

func (r *WorldRoom) saveOnLeave(characterID string, x, y int) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.store.SaveAll(ctx, r.worldID, nil, []persistence.CharacterPosition{{CharacterID: characterID, X: x, Y: y}}); err != nil {
		r.logger.WithError(err).Warn("leave-time save failed")
	}
}

// dispose cancels all timers and performs one final synchronous save.
// onDispose (typically RoomRegistry.Dispose) is invoked last so the
// registry never hands out a reference to a room mid-teardown.
func (r *WorldRoom) dispose() {
	r.mu.Lock()
	if r.status == StatusDisposing {
		r.mu.Unlock()
		return
	}
	r.status = StatusDisposing
	r.mu.Unlock()

	close(r.stopCh)
	r.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	r.mu.Lock()
	r.saving = true
	r.mu.Unlock()
	worldData := r.encodeWorldData(r.state.Snapshot())
	if err := r.store.SaveAll(ctx, r.worldID, worldData, nil); err != nil {
		r.logger.WithError(err).Error("final save on dispose failed")
	}

	r.logger.Info("room disposed")
	if r.onDispose != nil {
		r.onDispose(r.worldID)
	}
}
