package voice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pitchlab/app/client/openairt"
	"pitchlab/app/domain"
	"pitchlab/app/service/transcript"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	calls  []string
	closed int
}

func (c *fakeConn) Commit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, "commit")
	return nil
}

func (c *fakeConn) CreateResponse(string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, "response.create")
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

type fakeTransport struct {
	mu       sync.Mutex
	connects int
	err      error
	conn     *fakeConn
	lastOpts openairt.ConnectOptions
	block    chan struct{}
}

func (t *fakeTransport) Connect(_ context.Context, opts openairt.ConnectOptions) (Conn, error) {
	t.mu.Lock()
	t.connects++
	t.lastOpts = opts
	block := t.block
	t.mu.Unlock()

	if block != nil {
		<-block
	}

	if t.err != nil {
		return nil, t.err
	}
	return t.conn, nil
}

func (t *fakeTransport) connectCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connects
}

func newTestSession(t *fakeTransport, serverVAD bool) (*Session, *transcript.Accumulator) {
	acc := transcript.NewAccumulator()
	return &Session{
		transport:    t,
		serverVAD:    serverVAD,
		instructions: "instructions",
		sink:         acc,
	}, acc
}

func TestConnectSingleFlight(t *testing.T) {
	tr := &fakeTransport{conn: &fakeConn{}}
	s, _ := newTestSession(tr, false)

	require.NoError(t, s.Connect(context.Background()))
	require.NoError(t, s.Connect(context.Background()))

	assert.Equal(t, 1, tr.connectCount())
}

func TestConnectWhileConnectingIsNoop(t *testing.T) {
	tr := &fakeTransport{conn: &fakeConn{}, block: make(chan struct{})}
	s, _ := newTestSession(tr, false)

	done := make(chan error, 1)
	go func() {
		done <- s.Connect(context.Background())
	}()

	// wait until the first attempt holds the guard
	require.Eventually(t, func() bool {
		return tr.connectCount() == 1
	}, time.Second, time.Millisecond)

	require.NoError(t, s.Connect(context.Background()))
	assert.Equal(t, 1, tr.connectCount())

	close(tr.block)
	require.NoError(t, <-done)
}

func TestConnectFailureResetsAndAllowsRetry(t *testing.T) {
	tr := &fakeTransport{err: errors.New("negotiation refused")}
	s, _ := newTestSession(tr, false)

	require.Error(t, s.Connect(context.Background()))
	assert.Error(t, s.State().Err)
	assert.False(t, s.State().IsConnected)

	// the guard is cleared, a retry hits the transport again
	tr.mu.Lock()
	tr.err = nil
	tr.conn = &fakeConn{}
	tr.mu.Unlock()

	require.NoError(t, s.Connect(context.Background()))
	assert.Equal(t, 2, tr.connectCount())
	assert.NoError(t, s.State().Err)
}

func TestDisconnectIdempotent(t *testing.T) {
	conn := &fakeConn{}
	tr := &fakeTransport{conn: conn}
	s, _ := newTestSession(tr, false)

	require.NoError(t, s.Connect(context.Background()))

	s.Disconnect()
	s.Disconnect()

	assert.Equal(t, 1, conn.closed)
	assert.Equal(t, State{}, s.State())
}

func TestDisconnectConcurrent(t *testing.T) {
	conn := &fakeConn{}
	tr := &fakeTransport{conn: conn}
	s, _ := newTestSession(tr, false)

	require.NoError(t, s.Connect(context.Background()))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Disconnect()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, conn.closed)
}

func TestDisconnectDuringConnectClosesLateConnection(t *testing.T) {
	conn := &fakeConn{}
	tr := &fakeTransport{conn: conn, block: make(chan struct{})}
	s, _ := newTestSession(tr, false)

	done := make(chan error, 1)
	go func() {
		done <- s.Connect(context.Background())
	}()

	require.Eventually(t, func() bool {
		return tr.connectCount() == 1
	}, time.Second, time.Millisecond)

	// teardown lands while negotiation is still in flight
	s.Disconnect()

	close(tr.block)
	require.NoError(t, <-done)

	conn.mu.Lock()
	closed := conn.closed
	conn.mu.Unlock()
	assert.Equal(t, 1, closed, "late connection must be closed, not kept")
	assert.Equal(t, State{}, s.State())

	// the session is idle again, a fresh connect goes through
	tr.mu.Lock()
	tr.block = nil
	tr.conn = &fakeConn{}
	tr.mu.Unlock()

	require.NoError(t, s.Connect(context.Background()))
	assert.Equal(t, 2, tr.connectCount())
}

func TestStopListeningManualModeSendsCommitThenResponse(t *testing.T) {
	conn := &fakeConn{}
	tr := &fakeTransport{conn: conn}
	s, _ := newTestSession(tr, false)

	require.NoError(t, s.Connect(context.Background()))
	s.StartListening()
	require.NoError(t, s.StopListening())

	assert.Equal(t, []string{"commit", "response.create"}, conn.calls)
	assert.False(t, s.State().IsListening)
}

func TestStopListeningServerVADIsAdvisory(t *testing.T) {
	conn := &fakeConn{}
	tr := &fakeTransport{conn: conn}
	s, _ := newTestSession(tr, true)

	require.NoError(t, s.Connect(context.Background()))
	s.StartListening()
	require.NoError(t, s.StopListening())

	assert.Empty(t, conn.calls)
}

func TestStopListeningWhileDisconnectedIsNoop(t *testing.T) {
	tr := &fakeTransport{conn: &fakeConn{}}
	s, _ := newTestSession(tr, false)

	require.NoError(t, s.StopListening())
}

func TestEventTransitions(t *testing.T) {
	tr := &fakeTransport{conn: &fakeConn{}}
	s, acc := newTestSession(tr, false)

	require.NoError(t, s.Connect(context.Background()))
	events := tr.lastOpts.OnEvent

	events(openairt.ServerEvent{Type: openairt.EventSessionUpdated})
	assert.True(t, s.State().IsConnected)

	events(openairt.ServerEvent{Type: openairt.EventSpeechStarted})
	assert.True(t, s.State().IsListening)

	events(openairt.ServerEvent{Type: openairt.EventSpeechStopped})
	assert.False(t, s.State().IsListening)

	events(openairt.ServerEvent{Type: openairt.EventUserTranscriptDone, Transcript: "Le ofrezco Aviva Tu Casa."})

	events(openairt.ServerEvent{Type: openairt.EventResponseCreated})
	assert.True(t, s.State().IsSpeaking)

	events(openairt.ServerEvent{Type: openairt.EventResponseTranscriptDelta, Delta: "¿Cuánto "})
	events(openairt.ServerEvent{Type: openairt.EventResponseTranscriptDelta, Delta: "cuesta?"})
	events(openairt.ServerEvent{Type: openairt.EventResponseDone})
	assert.False(t, s.State().IsSpeaking)

	turns := acc.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, domain.SenderUser, turns[0].Sender)
	assert.Equal(t, "Le ofrezco Aviva Tu Casa.", turns[0].Text)
	assert.Equal(t, domain.SenderAvatar, turns[1].Sender)
	assert.Equal(t, "¿Cuánto cuesta?", turns[1].Text)
	assert.False(t, turns[1].IsLoading)
}

func TestAgentErrorDoesNotDisconnect(t *testing.T) {
	conn := &fakeConn{}
	tr := &fakeTransport{conn: conn}
	s, _ := newTestSession(tr, false)

	require.NoError(t, s.Connect(context.Background()))
	tr.lastOpts.OnEvent(openairt.ServerEvent{Type: openairt.EventSessionUpdated})
	tr.lastOpts.OnEvent(openairt.ServerEvent{
		Type:  openairt.EventError,
		Error: &openairt.ErrorDetail{Message: "rate limited"},
	})

	state := s.State()
	assert.Error(t, state.Err)
	assert.True(t, state.IsConnected)
	assert.Zero(t, conn.closed)
}
