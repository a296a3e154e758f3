package transcript

import (
	"strings"
	"sync"
	"time"

	"pitchlab/app/domain"
)

// Sink receives text fragments from whichever transport produced them: the
// realtime control channel or chunk/done callbacks of a streaming completion.
type Sink interface {
	OnFragment(kind domain.Sender, text string)
	OnTurnComplete(kind domain.Sender)
}

var _ Sink = (*Accumulator)(nil)

// Accumulator reconstructs discrete conversation turns from a fragment
// stream. User fragments arrive whole and close immediately; avatar
// fragments accumulate until the matching turn-complete signal.
type Accumulator struct {
	mu    sync.Mutex
	turns []domain.ConversationMessage
}

func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

func (a *Accumulator) OnFragment(kind domain.Sender, text string) {
	if text == "" {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if kind == domain.SenderUser {
		a.turns = append(a.turns, domain.ConversationMessage{
			Sender:    domain.SenderUser,
			Text:      strings.TrimSpace(text),
			Timestamp: time.Now(),
		})
		return
	}

	if n := len(a.turns); n > 0 && a.turns[n-1].Sender == domain.SenderAvatar && a.turns[n-1].IsLoading {
		a.turns[n-1].Text += text
		return
	}

	a.turns = append(a.turns, domain.ConversationMessage{
		Sender:    domain.SenderAvatar,
		Text:      text,
		IsLoading: true,
		Timestamp: time.Now(),
	})
}

func (a *Accumulator) OnTurnComplete(kind domain.Sender) {
	if kind == domain.SenderUser {
		// user turns arrive whole, nothing is open
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if n := len(a.turns); n > 0 && a.turns[n-1].Sender == domain.SenderAvatar && a.turns[n-1].IsLoading {
		a.turns[n-1].Text = strings.TrimSpace(a.turns[n-1].Text)
		a.turns[n-1].IsLoading = false
	}
}

// AddAvatarLine records a complete scripted avatar turn in one step.
func (a *Accumulator) AddAvatarLine(text string) {
	a.OnFragment(domain.SenderAvatar, text)
	a.OnTurnComplete(domain.SenderAvatar)
}

// DropOpenAvatarTurn removes a trailing incomplete avatar turn, used when a
// streamed generation fails midway.
func (a *Accumulator) DropOpenAvatarTurn() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n := len(a.turns); n > 0 && a.turns[n-1].Sender == domain.SenderAvatar && a.turns[n-1].IsLoading {
		a.turns = a.turns[:n-1]
	}
}

func (a *Accumulator) Turns() []domain.ConversationMessage {
	a.mu.Lock()
	defer a.mu.Unlock()

	result := make([]domain.ConversationMessage, len(a.turns))
	copy(result, a.turns)

	return result
}

func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.turns)
}

func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.turns = nil
}
