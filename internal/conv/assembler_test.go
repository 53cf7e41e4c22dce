// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conv

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jeranaias/chatify-tui/internal/identity"
	"github.com/jeranaias/chatify-tui/internal/message"
	"github.com/jeranaias/chatify-tui/internal/store"
)

// fakeAPI scripts the REST client for assembler tests.
type fakeAPI struct {
	mu          sync.Mutex
	messages    []message.Raw
	messagesErr error
	sendResp    any
	sendErr     error
	deleted     []string
	deleteErr   error
	users       map[string]string
	usersErr    error
	sentTexts   []string
}

func (f *fakeAPI) Messages(ctx context.Context) ([]message.Raw, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messages, f.messagesErr
}

func (f *fakeAPI) SendMessage(ctx context.Context, text string) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentTexts = append(f.sentTexts, text)
	return f.sendResp, f.sendErr
}

func (f *fakeAPI) DeleteMessage(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

func (f *fakeAPI) Users(ctx context.Context) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users, f.usersErr
}

func testProfile() identity.Profile {
	return identity.NewProfile("", map[string]any{"id": "7", "username": "ada"}, "ada", "7")
}

func newTestAssembler(t *testing.T, f *fakeAPI, opts ...Option) (*Assembler, *store.BotStore) {
	t.Helper()
	bots := store.NewBotStore(t.TempDir())
	opts = append([]Option{WithReplyDelay(10 * time.Millisecond)}, opts...)
	a := NewAssembler(f, bots, testProfile(), opts...)
	t.Cleanup(a.Close)
	return a, bots
}

func TestLoadMergesServerAndBotHistory(t *testing.T) {
	f := &fakeAPI{messages: []message.Raw{
		{"id": "m1", "text": "mine", "uid": "7"},
		{"id": "m2", "text": "other", "uid": "99", "user": map[string]any{"username": "grace"}},
	}}
	a, bots := newTestAssembler(t, f)

	key := testProfile().NamespaceKey
	if err := bots.Append(key, message.Message{ID: "b1", Text: "stored", UID: message.BotUID, User: message.BotUser, Bot: true}); err != nil {
		t.Fatal(err)
	}

	if err := a.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if a.State() != StateLoaded {
		t.Errorf("state = %v", a.State())
	}

	msgs := a.Messages()
	if len(msgs) != 3 {
		t.Fatalf("view len = %d: %+v", len(msgs), msgs)
	}
	if !msgs[0].Mine {
		t.Error("own message not flagged")
	}
	if msgs[1].Mine {
		t.Error("stranger's message flagged as mine")
	}
	if !msgs[2].Bot || msgs[2].ID != "b1" {
		t.Errorf("bot history not merged: %+v", msgs[2])
	}
}

func TestLoadFailureKeepsPriorView(t *testing.T) {
	f := &fakeAPI{messages: []message.Raw{{"id": "m1", "text": "hi"}}}
	a, _ := newTestAssembler(t, f)

	if err := a.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	f.mu.Lock()
	f.messagesErr = errors.New("boom")
	f.mu.Unlock()

	if err := a.Load(context.Background()); err == nil {
		t.Fatal("expected load error")
	}
	if a.State() != StateFailed {
		t.Errorf("state = %v", a.State())
	}
	if a.Err() == nil {
		t.Error("Err not surfaced")
	}
	if got := a.Messages(); len(got) != 1 || got[0].ID != "m1" {
		t.Errorf("prior view lost: %+v", got)
	}
}

func TestLoadUsersResolvesOwnership(t *testing.T) {
	// The message only carries a uid the login never exposed; the user
	// directory maps it back to the current user's name.
	f := &fakeAPI{
		messages: []message.Raw{{"id": "m1", "text": "hi", "uid": "srv-55"}},
		users:    map[string]string{"srv-55": "Ada"},
	}
	a, _ := newTestAssembler(t, f)

	if err := a.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if a.Messages()[0].Mine {
		t.Fatal("should not match before directory load")
	}

	a.LoadUsers(context.Background())
	if !a.Messages()[0].Mine {
		t.Error("directory match did not flip ownership")
	}
}

func TestSendRejectsBlankInput(t *testing.T) {
	f := &fakeAPI{}
	a, _ := newTestAssembler(t, f)

	for _, input := range []string{"", "   ", "\n\t", "<div></div>"} {
		if _, err := a.Send(context.Background(), input); !errors.Is(err, ErrEmptyMessage) {
			t.Errorf("Send(%q) err = %v, want ErrEmptyMessage", input, err)
		}
	}
	if len(f.sentTexts) != 0 {
		t.Errorf("network touched for blank input: %v", f.sentTexts)
	}
}

func TestSendOptimisticAppendAndReply(t *testing.T) {
	f := &fakeAPI{sendResp: map[string]any{"data": map[string]any{"id": "created-9"}}}
	a, bots := newTestAssembler(t, f, WithScript([]string{"scripted reply"}))

	mine, err := a.Send(context.Background(), "  hello <b>there</b>  ")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if mine.ID != "created-9" {
		t.Errorf("id = %q, want extracted id", mine.ID)
	}
	if mine.Text != "hello there" {
		t.Errorf("text = %q, want sanitized", mine.Text)
	}
	if !mine.Mine || mine.UID != "7" {
		t.Errorf("mine = %+v", mine)
	}
	if len(f.sentTexts) != 1 || f.sentTexts[0] != "hello there" {
		t.Errorf("sent = %v", f.sentTexts)
	}

	select {
	case reply := <-a.Replies():
		if reply.Text != "scripted reply" || !reply.Bot || reply.User != message.BotUser {
			t.Errorf("reply = %+v", reply)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no reply delivered")
	}

	// Reply is in the view and persisted.
	msgs := a.Messages()
	if len(msgs) != 2 || !msgs[1].Bot {
		t.Errorf("view = %+v", msgs)
	}
	stored := bots.Load(testProfile().NamespaceKey)
	if len(stored) != 1 || stored[0].Text != "scripted reply" {
		t.Errorf("persisted = %+v", stored)
	}
}

func TestSendFallsBackToLocalID(t *testing.T) {
	f := &fakeAPI{sendResp: map[string]any{"ok": true}}
	a, _ := newTestAssembler(t, f)

	mine, err := a.Send(context.Background(), "hi")
	if err != nil {
		t.Fatal(err)
	}
	if mine.ID == "" {
		t.Error("no fallback id generated")
	}
}

func TestSendFailureSurfacesError(t *testing.T) {
	f := &fakeAPI{sendErr: errors.New("dead server")}
	a, _ := newTestAssembler(t, f)

	if _, err := a.Send(context.Background(), "hi"); err == nil {
		t.Fatal("expected error")
	}
	if len(a.Messages()) != 0 {
		t.Error("failed send appended to view")
	}
	if a.Err() == nil {
		t.Error("Err not surfaced")
	}
}

func TestRepliesAreSequential(t *testing.T) {
	f := &fakeAPI{sendResp: map[string]any{"id": "x"}}
	a, _ := newTestAssembler(t, f, WithScript([]string{"first", "second"}))

	if _, err := a.Send(context.Background(), "one"); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Send(context.Background(), "two"); err != nil {
		t.Fatal(err)
	}

	var got []string
	for len(got) < 2 {
		select {
		case r := <-a.Replies():
			got = append(got, r.Text)
		case <-time.After(2 * time.Second):
			t.Fatalf("replies stalled after %v", got)
		}
	}
	if got[0] != "first" || got[1] != "second" {
		t.Errorf("reply order = %v", got)
	}
}

func TestCloseEndsReplies(t *testing.T) {
	// Re-login builds a fresh assembler; the old one's reply channel must
	// close so the pump waiting on it returns instead of leaking.
	f := &fakeAPI{}
	a, _ := newTestAssembler(t, f)
	a.Close()

	select {
	case _, ok := <-a.Replies():
		if ok {
			t.Error("unexpected reply from closed assembler")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Replies still open after Close")
	}

	// Close is idempotent.
	a.Close()
}

func TestScriptRoundRobin(t *testing.T) {
	s := NewScript([]string{"a", "b"})
	want := []string{"a", "b", "a"}
	for i, w := range want {
		if got := s.Advance(); got != w {
			t.Errorf("advance %d = %q, want %q", i, got, w)
		}
	}
	if NewScript(nil).Advance() == "" {
		t.Error("default script empty")
	}
}

func TestDeleteBotMessageIsLocalOnly(t *testing.T) {
	f := &fakeAPI{}
	a, bots := newTestAssembler(t, f, WithScript([]string{"r"}))
	key := testProfile().NamespaceKey

	bot := message.Message{ID: "b1", Text: "r", UID: message.BotUID, User: message.BotUser, Bot: true}
	if err := bots.Append(key, bot); err != nil {
		t.Fatal(err)
	}
	a.MergeBotHistory()

	if err := a.Delete(context.Background(), bot); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(f.deleted) != 0 {
		t.Errorf("server touched for bot delete: %v", f.deleted)
	}
	if got := bots.Load(key); len(got) != 0 {
		t.Errorf("store still has %+v", got)
	}
	if got := a.Messages(); len(got) != 0 {
		t.Errorf("view still has %+v", got)
	}
}

func TestDeleteOwnMessageBestEffort(t *testing.T) {
	f := &fakeAPI{
		messages:  []message.Raw{{"id": "m1", "text": "hi", "uid": "7"}},
		deleteErr: errors.New("server says no"),
	}
	a, _ := newTestAssembler(t, f)
	if err := a.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := a.Delete(context.Background(), a.Messages()[0]); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(f.deleted) != 1 || f.deleted[0] != "m1" {
		t.Errorf("server delete calls = %v", f.deleted)
	}
	// Removed from the view even though the server refused.
	if got := a.Messages(); len(got) != 0 {
		t.Errorf("view = %+v", got)
	}
}

func TestDeleteStrangersMessageIsNoop(t *testing.T) {
	f := &fakeAPI{messages: []message.Raw{
		{"id": "m1", "text": "hi", "uid": "99", "user": map[string]any{"username": "grace"}},
	}}
	a, _ := newTestAssembler(t, f)
	if err := a.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := a.Delete(context.Background(), a.Messages()[0]); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(f.deleted) != 0 {
		t.Errorf("server touched: %v", f.deleted)
	}
	if got := a.Messages(); len(got) != 1 {
		t.Errorf("view = %+v", got)
	}
}
