// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conv assembles the conversation view: server messages merged with
// the locally-simulated peer history, ownership flags resolved, and delayed
// peer replies scheduled after each send.
package conv

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jeranaias/chatify-tui/internal/api"
	"github.com/jeranaias/chatify-tui/internal/cache"
	"github.com/jeranaias/chatify-tui/internal/identity"
	"github.com/jeranaias/chatify-tui/internal/message"
	"github.com/jeranaias/chatify-tui/internal/sanitize"
	"github.com/jeranaias/chatify-tui/internal/store"
)

// ErrEmptyMessage rejects blank sends before anything touches the network.
var ErrEmptyMessage = errors.New("message is empty")

// State tracks the view lifecycle. A failed load keeps the previous
// messages on screen; only the state and error change.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateLoaded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// API is the slice of the REST client the assembler consumes.
type API interface {
	Messages(ctx context.Context) ([]message.Raw, error)
	SendMessage(ctx context.Context, text string) (any, error)
	DeleteMessage(ctx context.Context, id string) error
	Users(ctx context.Context) (map[string]string, error)
}

var _ API = (*api.Client)(nil)

// =============================================================================
// ASSEMBLER
// =============================================================================

// Assembler owns the conversation view for one identity. All exported
// methods are safe for concurrent use; the reply worker mutates the view
// through the same lock.
type Assembler struct {
	api     API
	bots    *store.BotStore
	views   *cache.ViewCache // optional
	profile identity.Profile
	script  *Script
	delay   time.Duration

	mu      sync.Mutex
	state   State
	lastErr error
	msgs    []message.Message
	users   map[string]string

	// Replies are serialized through a single worker so rapid sends cannot
	// interleave persisted histories.
	queue     chan string
	replies   chan message.Message
	done      chan struct{}
	closeOnce sync.Once
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithViewCache attaches the snapshot cache used for instant startup paint.
func WithViewCache(vc *cache.ViewCache) Option {
	return func(a *Assembler) { a.views = vc }
}

// WithScript overrides the canned reply rotation.
func WithScript(lines []string) Option {
	return func(a *Assembler) { a.script = NewScript(lines) }
}

// WithReplyDelay sets how long the simulated peer waits before answering.
func WithReplyDelay(d time.Duration) Option {
	return func(a *Assembler) { a.delay = d }
}

// NewAssembler builds the view for one identity and starts the reply
// worker. Callers must Close it.
func NewAssembler(client API, bots *store.BotStore, profile identity.Profile, opts ...Option) *Assembler {
	a := &Assembler{
		api:     client,
		bots:    bots,
		profile: profile,
		script:  NewScript(nil),
		delay:   900 * time.Millisecond,
		state:   StateIdle,
		users:   map[string]string{},
		queue:   make(chan string, 64),
		replies: make(chan message.Message, 16),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}

	// Paint from the last snapshot before the first fetch lands.
	if a.views != nil {
		if cached := a.views.Get(profile.NamespaceKey); len(cached) > 0 {
			a.msgs = cached
		}
	}

	go a.replyWorker()
	return a
}

// Close stops the reply worker, which closes Replies on its way out so
// channel pumps drain instead of blocking forever. Queued replies that have
// not fired yet are dropped; they were never promised durability.
func (a *Assembler) Close() {
	a.closeOnce.Do(func() { close(a.done) })
}

// =============================================================================
// VIEW ACCESS
// =============================================================================

// State returns the current lifecycle state.
func (a *Assembler) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Err returns the error from the most recent failed operation.
func (a *Assembler) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

// Messages returns a copy of the current view in display order.
func (a *Assembler) Messages() []message.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]message.Message, len(a.msgs))
	copy(out, a.msgs)
	return out
}

// Replies delivers simulated-peer messages as they fire, after they are
// already persisted and merged into the view. The channel closes when the
// assembler does.
func (a *Assembler) Replies() <-chan message.Message {
	return a.replies
}

// DisplayName resolves the name shown for a message author: the directory
// name for the uid, then the embedded user, then a generic fallback.
func (a *Assembler) DisplayName(m message.Message) string {
	if m.Bot {
		return "bot"
	}
	if m.Mine {
		return a.profile.DisplayName
	}
	a.mu.Lock()
	name := a.users[m.UID]
	a.mu.Unlock()
	if name != "" {
		return name
	}
	if m.User.Username != "" {
		return m.User.Username
	}
	return "User"
}

// =============================================================================
// LOAD
// =============================================================================

// LoadUsers refreshes the uid -> display-name directory. Best-effort: a
// failure leaves the previous directory in place and is only logged, since
// the view can render without it.
func (a *Assembler) LoadUsers(ctx context.Context) {
	users, err := a.api.Users(ctx)
	if err != nil {
		log.Printf("user directory fetch skipped: %v", err)
		return
	}
	if users == nil {
		users = make(map[string]string)
	}
	users[message.BotUID] = "bot"
	a.mu.Lock()
	a.users = users
	// Ownership may resolve differently with the directory in hand.
	for i := range a.msgs {
		a.msgs[i].Mine = a.isMine(a.msgs[i])
	}
	a.mu.Unlock()
}

// Load fetches the server history, normalizes it, and merges the simulated-
// peer history on top. On failure the previous view stays put and the error
// is surfaced through Err.
func (a *Assembler) Load(ctx context.Context) error {
	a.mu.Lock()
	a.state = StateLoading
	a.mu.Unlock()

	records, err := a.api.Messages(ctx)
	if err != nil {
		a.mu.Lock()
		a.state = StateFailed
		a.lastErr = err
		a.mu.Unlock()
		return err
	}

	merged := make([]message.Message, 0, len(records))
	for _, rec := range records {
		merged = append(merged, message.Normalize(rec))
	}
	merged = append(merged, a.bots.Load(a.profile.NamespaceKey)...)

	a.mu.Lock()
	a.msgs = merged
	for i := range a.msgs {
		a.msgs[i].Mine = a.isMine(a.msgs[i])
	}
	a.state = StateLoaded
	a.lastErr = nil
	a.snapshotLocked()
	a.mu.Unlock()
	return nil
}

// MergeBotHistory re-reads the persisted peer history and replaces the bot
// messages in the view with it. The storage watcher calls this when another
// instance writes the file.
func (a *Assembler) MergeBotHistory() {
	fresh := a.bots.Load(a.profile.NamespaceKey)
	a.mu.Lock()
	kept := make([]message.Message, 0, len(a.msgs)+len(fresh))
	for _, m := range a.msgs {
		if !m.Bot {
			kept = append(kept, m)
		}
	}
	a.msgs = append(kept, fresh...)
	a.snapshotLocked()
	a.mu.Unlock()
}

// =============================================================================
// SEND
// =============================================================================

// Send posts the text and optimistically appends the resulting message to
// the view, then schedules one simulated-peer reply. The script cursor
// advances exactly once per successful send, even though the reply itself
// lands later.
func (a *Assembler) Send(ctx context.Context, text string) (message.Message, error) {
	clean := sanitize.Text(text)
	if clean == "" {
		return message.Message{}, ErrEmptyMessage
	}

	created, err := a.api.SendMessage(ctx, clean)
	if err != nil {
		a.mu.Lock()
		a.lastErr = err
		a.mu.Unlock()
		return message.Message{}, err
	}

	// The create response's shape is unreliable; dig for an id and fall
	// back to a local one so the view row stays addressable.
	id := message.ExtractID(created)
	if id == "" {
		id = message.NewID()
	}

	mine := message.Message{
		ID:   id,
		Text: clean,
		UID:  a.profile.UID,
		User: message.User{
			ID:       a.profile.UID,
			Username: a.profile.DisplayName,
			Avatar:   a.profile.Avatar,
		},
		CreatedAt: time.Now().UTC(),
		Mine:      true,
	}

	reply := a.script.Advance()

	a.mu.Lock()
	a.msgs = append(a.msgs, mine)
	a.lastErr = nil
	a.snapshotLocked()
	a.mu.Unlock()

	select {
	case a.queue <- reply:
	default:
		// Queue full means dozens of unanswered sends; dropping the reply
		// beats blocking the send path.
		log.Printf("reply queue full, dropping one simulated reply")
	}

	return mine, nil
}

// replyWorker delivers queued replies one at a time, waiting out the delay
// for each. Serialization is the point: two quick sends produce two replies
// in order, never interleaved writes to the history file.
func (a *Assembler) replyWorker() {
	// Sole sender on replies; closing here is what ends the UI's pump.
	defer close(a.replies)
	for {
		select {
		case <-a.done:
			return
		case text := <-a.queue:
			select {
			case <-a.done:
				return
			case <-time.After(a.delay):
			}

			bot := message.Message{
				ID:        message.NewID(),
				Text:      text,
				UID:       message.BotUID,
				User:      message.BotUser,
				CreatedAt: time.Now().UTC(),
				Bot:       true,
			}

			if err := a.bots.Append(a.profile.NamespaceKey, bot); err != nil {
				log.Printf("failed to persist simulated reply: %v", err)
			}

			a.mu.Lock()
			a.msgs = append(a.msgs, bot)
			a.snapshotLocked()
			a.mu.Unlock()

			select {
			case a.replies <- bot:
			case <-a.done:
				return
			}
		}
	}
}

// =============================================================================
// DELETE
// =============================================================================

// Delete removes a message. Simulated-peer messages are purely local; own
// messages get a best-effort server delete and disappear from the view
// regardless of whether the server cooperated. Messages that are neither
// are left alone.
func (a *Assembler) Delete(ctx context.Context, m message.Message) error {
	if m.Bot {
		a.removeFromView(m.ID)
		if err := a.bots.Delete(a.profile.NamespaceKey, m.ID); err != nil {
			return fmt.Errorf("failed to delete simulated message: %w", err)
		}
		return nil
	}

	a.mu.Lock()
	mine := a.isMine(m)
	a.mu.Unlock()
	if !mine {
		return nil
	}

	if m.ID != "" {
		if err := a.api.DeleteMessage(ctx, m.ID); err != nil {
			// The row still leaves the local view; the next full load is
			// the reconciliation point.
			log.Printf("server delete failed for %s: %v", m.ID, err)
		}
	}
	a.removeFromView(m.ID)
	return nil
}

func (a *Assembler) removeFromView(id string) {
	a.mu.Lock()
	kept := a.msgs[:0]
	for _, m := range a.msgs {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	a.msgs = kept
	a.snapshotLocked()
	a.mu.Unlock()
}

// =============================================================================
// INTERNAL
// =============================================================================

// isMine must be called with a.mu held (it reads the user directory).
func (a *Assembler) isMine(m message.Message) bool {
	if m.Bot {
		return false
	}
	return identity.IsMine(m.UID, m.User.Username, a.profile.Set, a.users, a.profile.StoredID)
}

// snapshotLocked persists the current view to the cache. Must be called
// with a.mu held. Cache failures are advisory only.
func (a *Assembler) snapshotLocked() {
	if a.views == nil {
		return
	}
	if err := a.views.Put(a.profile.NamespaceKey, a.msgs); err != nil {
		log.Printf("view snapshot skipped: %v", err)
	}
}
