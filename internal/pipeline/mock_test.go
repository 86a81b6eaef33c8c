package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/serroba/linkbot/internal/chat"
	"github.com/serroba/linkbot/internal/pipeline"
	"github.com/serroba/linkbot/internal/shortener"
	"github.com/serroba/linkbot/internal/tokens"
)

var errMock = errors.New("mock error")

// mockTokens is a tokens.Store test double.
type mockTokens struct {
	token  tokens.Token
	getErr error
	gets   int
	mu     sync.Mutex
}

func (m *mockTokens) Get(_ context.Context, _ chat.ID) (tokens.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gets++

	if m.getErr != nil {
		return "", m.getErr
	}

	if m.token == "" {
		return "", tokens.ErrNotFound
	}

	return m.token, nil
}

func (m *mockTokens) Set(_ context.Context, _ chat.ID, token tokens.Token) error {
	m.token = token

	return nil
}

type shortenCall struct {
	token tokens.Token
	url   string
}

// mockShortener answers calls in order from responses; an empty response
// string means failure.
type mockShortener struct {
	responses []string
	delays    []time.Duration
	calls     []shortenCall
	mu        sync.Mutex
}

func (m *mockShortener) Shorten(ctx context.Context, token tokens.Token, rawURL string) (string, error) {
	m.mu.Lock()
	i := len(m.calls)
	m.calls = append(m.calls, shortenCall{token: token, url: rawURL})

	var delay time.Duration
	if i < len(m.delays) {
		delay = m.delays[i]
	}
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if i >= len(m.responses) || m.responses[i] == "" {
		return "", fmt.Errorf("%w: mock", shortener.ErrShortenFailed)
	}

	return m.responses[i], nil
}

// urlShortener answers by url, for order independent assertions.
type urlShortener struct {
	byURL  map[string]string
	delays map[string]time.Duration
}

func (m *urlShortener) Shorten(_ context.Context, _ tokens.Token, rawURL string) (string, error) {
	time.Sleep(m.delays[rawURL])

	short, ok := m.byURL[rawURL]
	if !ok {
		return "", shortener.ErrShortenFailed
	}

	return short, nil
}

// mockSender records outbound messages.
type mockSender struct {
	sent    []chat.OutboundMessage
	sendErr error
	mu      sync.Mutex
}

func (m *mockSender) Send(_ context.Context, msg chat.OutboundMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sendErr != nil {
		return m.sendErr
	}

	m.sent = append(m.sent, msg)

	return nil
}

// replies returns messages that reply to an inbound message.
func (m *mockSender) replies() []chat.OutboundMessage {
	var out []chat.OutboundMessage

	for _, msg := range m.sent {
		if msg.ReplyTo != 0 {
			out = append(out, msg)
		}
	}

	return out
}

// notices returns messages that are not replies.
func (m *mockSender) notices() []chat.OutboundMessage {
	var out []chat.OutboundMessage

	for _, msg := range m.sent {
		if msg.ReplyTo == 0 {
			out = append(out, msg)
		}
	}

	return out
}

type mockObserver struct {
	links    []pipeline.Status
	messages []pipeline.State
	mu       sync.Mutex
}

func (m *mockObserver) LinkResolved(status pipeline.Status, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.links = append(m.links, status)
}

func (m *mockObserver) MessageProcessed(state pipeline.State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = append(m.messages, state)
}
