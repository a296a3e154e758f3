package voice

import (
	"context"

	"pitchlab/app/client/openairt"
)

// State mirrors the connection flags tracked for one realtime session.
type State struct {
	IsConnected bool
	IsListening bool
	IsSpeaking  bool
	Err         error
}

type phase int

const (
	phaseIdle phase = iota
	phaseConnecting
	phaseConnected
)

// Transport establishes realtime connections. The production implementation
// wraps openairt.Client.
type Transport interface {
	Connect(ctx context.Context, opts openairt.ConnectOptions) (Conn, error)
}

// Conn is one live control channel.
type Conn interface {
	Commit() error
	CreateResponse(instructions string) error
	Close() error
}

type realtimeTransport struct {
	client *openairt.Client
}

func (t realtimeTransport) Connect(ctx context.Context, opts openairt.ConnectOptions) (Conn, error) {
	handle, err := t.client.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}

	return handle, nil
}
