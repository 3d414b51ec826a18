package testutil

import (
	"context"
	"errors"
	"sync"

	"librarian/internal/domain"
)

// ErrMessengerDown is returned by a FakeMessenger configured to fail
var ErrMessengerDown = errors.New("messenger unavailable")

// SentMessage is a message recorded by FakeMessenger
type SentMessage struct {
	Ref domain.MessageRef
	domain.Outgoing
}

// Answer is a recorded callback answer
type Answer struct {
	CallbackID string
	Text       string
	Alert      bool
}

// FakeMessenger records every call made to the chat transport
type FakeMessenger struct {
	mu       sync.Mutex
	nextID   int
	sent     []SentMessage
	edits    map[domain.MessageRef][]string
	restores map[domain.MessageRef][]domain.Outgoing
	deletes  map[domain.MessageRef]int
	answers  []Answer
	files    map[string][]byte

	FailSend   bool
	FailEdit   bool
	FailDelete bool
}

// NewFakeMessenger creates an empty recorder
func NewFakeMessenger() *FakeMessenger {
	return &FakeMessenger{
		nextID:   100,
		edits:    make(map[domain.MessageRef][]string),
		restores: make(map[domain.MessageRef][]domain.Outgoing),
		deletes:  make(map[domain.MessageRef]int),
		files:    make(map[string][]byte),
	}
}

func (f *FakeMessenger) Send(_ context.Context, chatID int64, msg domain.Outgoing) (domain.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailSend {
		return domain.MessageRef{}, ErrMessengerDown
	}
	f.nextID++
	ref := domain.MessageRef{ChatID: chatID, MessageID: f.nextID}
	f.sent = append(f.sent, SentMessage{Ref: ref, Outgoing: msg})
	return ref, nil
}

func (f *FakeMessenger) Edit(_ context.Context, ref domain.MessageRef, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailEdit {
		return ErrMessengerDown
	}
	f.edits[ref] = append(f.edits[ref], text)
	return nil
}

func (f *FakeMessenger) Restore(_ context.Context, ref domain.MessageRef, msg domain.Outgoing) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailEdit {
		return ErrMessengerDown
	}
	f.restores[ref] = append(f.restores[ref], msg)
	return nil
}

func (f *FakeMessenger) Delete(_ context.Context, ref domain.MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deletes[ref]++
	if f.FailDelete {
		return ErrMessengerDown
	}
	return nil
}

func (f *FakeMessenger) Answer(_ context.Context, callbackID, text string, alert bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.answers = append(f.answers, Answer{CallbackID: callbackID, Text: text, Alert: alert})
	return nil
}

func (f *FakeMessenger) Download(_ context.Context, fileID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, ok := f.files[fileID]
	if !ok {
		return nil, ErrMessengerDown
	}
	return append([]byte(nil), data...), nil
}

// AddFile makes data downloadable under fileID
func (f *FakeMessenger) AddFile(fileID string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[fileID] = data
}

// Sent returns every message sent so far
func (f *FakeMessenger) Sent() []SentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SentMessage(nil), f.sent...)
}

// LastSent returns the latest message sent to chatID
func (f *FakeMessenger) LastSent(chatID int64) (SentMessage, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].Ref.ChatID == chatID {
			return f.sent[i], true
		}
	}
	return SentMessage{}, false
}

// Deletes returns how many times ref was deleted
func (f *FakeMessenger) Deletes(ref domain.MessageRef) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deletes[ref]
}

// TotalDeletes returns the number of delete calls
func (f *FakeMessenger) TotalDeletes() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	total := 0
	for _, n := range f.deletes {
		total += n
	}
	return total
}

// Edits returns the texts ref was edited to
func (f *FakeMessenger) Edits(ref domain.MessageRef) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.edits[ref]...)
}

// Restores returns the messages ref was put back to
func (f *FakeMessenger) Restores(ref domain.MessageRef) []domain.Outgoing {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Outgoing(nil), f.restores[ref]...)
}

// Answers returns the recorded callback answers
func (f *FakeMessenger) Answers() []Answer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Answer(nil), f.answers...)
}

// SetFailEdit toggles edit failures
func (f *FakeMessenger) SetFailEdit(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FailEdit = fail
}

// SetFailSend toggles send failures
func (f *FakeMessenger) SetFailSend(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FailSend = fail
}
