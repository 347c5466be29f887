package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	statex "github.com/romulo94/poc-healthcare-appointment-chatbot/chat/state"
	stagex "github.com/romulo94/poc-healthcare-appointment-chatbot/chat/stage"
)

var (
	ErrInvalidMessage   = errors.New("message is empty")
	ErrStoreUnavailable = errors.New("session store unavailable")
)

// maxTransitions bounds the handler loop; the longest legal path is
// introduction -> authenticate -> dispatch -> terminal stage.
const maxTransitions = 8

// TurnResult is the outward-facing outcome of one turn.
type TurnResult struct {
	Reply         string `json:"message"`
	SessionID     string `json:"session_id"`
	Authenticated bool   `json:"authenticated"`
}

// Orchestrator drives one turn at a time per session: load state, route,
// run handlers until a terminal stage, persist, reply.
type Orchestrator struct {
	store statex.Store
	deps  stagex.Deps

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	now func() time.Time
}

func New(store statex.Store, deps stagex.Deps) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	if deps.Models == nil {
		return nil, errors.New("model capability is required")
	}
	if deps.Patrons == nil {
		return nil, errors.New("patron directory is required")
	}
	if deps.Book == nil {
		return nil, errors.New("appointment book is required")
	}

	return &Orchestrator{
		store: store,
		deps:  deps,
		locks: make(map[string]*sync.Mutex),
		now:   time.Now,
	}, nil
}

// HandleTurn processes one inbound user message. A blank session id gets a
// fresh one; capability failures inside handlers never surface here, only
// store faults do.
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionID, text string) (TurnResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return TurnResult{}, ErrInvalidMessage
	}

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	// Single writer per session: a second turn for the same id waits until
	// the prior turn's merge has been persisted.
	lock := o.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	st, err := o.loadOrCreate(ctx, sessionID)
	if err != nil {
		return TurnResult{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	st.AppendUser(text)

	current := stagex.Entry(st)
	for steps := 0; current != stagex.StageEnd && steps < maxTransitions; steps++ {
		if err := o.runStage(ctx, current, st); err != nil {
			return TurnResult{}, err
		}
		current = stagex.Next(current, st)
	}

	st.Touch(o.now())
	if err := o.store.Save(ctx, st); err != nil {
		return TurnResult{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	log.Debug().
		Str("session_id", sessionID).
		Bool("authenticated", st.Authenticated).
		Int("messages", len(st.Messages)).
		Msg("turn completed")

	return TurnResult{
		Reply:         st.LastAssistant(),
		SessionID:     sessionID,
		Authenticated: st.Authenticated,
	}, nil
}

func (o *Orchestrator) runStage(ctx context.Context, s stagex.Stage, st *statex.ConversationState) error {
	switch s {
	case stagex.StageIntroduction:
		return stagex.Introduction(ctx, st, o.deps)
	case stagex.StageAuthenticate:
		return stagex.Authenticate(ctx, st, o.deps)
	case stagex.StageDispatch:
		return stagex.Dispatch(ctx, st, o.deps)
	case stagex.StageList:
		return stagex.List(ctx, st, o.deps)
	case stagex.StageConfirm:
		return stagex.Confirm(ctx, st, o.deps)
	case stagex.StageCancel:
		return stagex.Cancel(ctx, st, o.deps)
	default:
		return fmt.Errorf("unknown stage %q", s)
	}
}

func (o *Orchestrator) loadOrCreate(ctx context.Context, sessionID string) (*statex.ConversationState, error) {
	st, err := o.store.Load(ctx, sessionID)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, statex.ErrStateNotFound) {
		return nil, err
	}
	return statex.NewConversationState(sessionID, o.now()), nil
}

func (o *Orchestrator) sessionLock(sessionID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	lock, ok := o.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[sessionID] = lock
	}
	return lock
}
