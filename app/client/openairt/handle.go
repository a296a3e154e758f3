package openairt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
)

const dataChannelLabel = "oai-events"

type ConnectOptions struct {
	Instructions string
	// OnEvent is invoked for every parsed control-channel event.
	OnEvent func(ServerEvent)
}

// Connect establishes one realtime voice session: credential, microphone
// capture, peer connection with a single outbound audio track, control data
// channel, then the SDP offer/answer exchange. Failure at any step tears
// down everything acquired so far and is terminal for the attempt.
func (c *Client) Connect(ctx context.Context, opts ConnectOptions) (*Handle, error) {
	token, err := c.MintSession(ctx, opts.Instructions)
	if err != nil {
		return nil, err
	}

	captureCtx, captureCancel := context.WithCancel(context.Background())

	capture, err := NewCapture(captureCtx, c.cfg.Audio.CaptureFormat, c.cfg.Audio.CaptureInput)
	if err != nil {
		captureCancel()
		return nil, &StageError{Stage: StageMedia, Err: err}
	}

	if err = capture.Start(); err != nil {
		captureCancel()
		return nil, &StageError{Stage: StageMedia, Err: err}
	}

	h := &Handle{
		capture:       capture,
		captureCancel: captureCancel,
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		},
	})
	if err != nil {
		h.Close()
		return nil, &StageError{Stage: StageNegotiation, Err: err}
	}
	h.pc = pc

	track, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{
		MimeType:  webrtc.MimeTypeOpus,
		ClockRate: 48000,
		Channels:  1,
	}, "audio", "microphone")
	if err != nil {
		h.Close()
		return nil, &StageError{Stage: StageMedia, Err: err}
	}

	if _, err = pc.AddTrack(track); err != nil {
		h.Close()
		return nil, &StageError{Stage: StageMedia, Err: err}
	}

	// one inbound track is expected: the agent's synthesized voice
	pc.OnTrack(func(remote *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		slog.Info("Inbound track received", "kind", remote.Kind().String())
		go drainTrack(captureCtx, remote)
	})

	dc, err := pc.CreateDataChannel(dataChannelLabel, nil)
	if err != nil {
		h.Close()
		return nil, &StageError{Stage: StageControl, Err: err}
	}
	h.dc = dc

	dc.OnOpen(func() {
		if err := h.Send(c.sessionUpdate(opts.Instructions)); err != nil {
			slog.Error("Failed to send session configuration", "error", err)
		}
	})

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		var event ServerEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			slog.Warn("Failed to parse control event", "error", err)
			return
		}

		if opts.OnEvent != nil {
			opts.OnEvent(event)
		}
	})

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		h.Close()
		return nil, &StageError{Stage: StageNegotiation, Err: err}
	}

	gatherComplete := webrtc.GatheringCompletePromise(pc)

	if err = pc.SetLocalDescription(offer); err != nil {
		h.Close()
		return nil, &StageError{Stage: StageNegotiation, Err: err}
	}

	select {
	case <-gatherComplete:
	case <-ctx.Done():
		h.Close()
		return nil, &StageError{Stage: StageNegotiation, Err: ctx.Err()}
	}

	answer, err := c.ExchangeSDP(ctx, token.Value, pc.LocalDescription().SDP)
	if err != nil {
		h.Close()
		return nil, err
	}

	if err = pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answer,
	}); err != nil {
		h.Close()
		return nil, &StageError{Stage: StageNegotiation, Err: err}
	}

	go h.pumpCapture(captureCtx, track)

	return h, nil
}

func (c *Client) sessionUpdate(instructions string) sessionUpdateEvent {
	var detection *turnDetection
	if c.cfg.OpenAI.Realtime.ServerVAD {
		detection = &turnDetection{Type: "server_vad"}
	}

	return sessionUpdateEvent{
		Type: eventSessionUpdateMsg,
		Session: sessionPayload{
			Modalities:        []string{"text", "audio"},
			Instructions:      instructions,
			Voice:             c.cfg.OpenAI.Realtime.Voice,
			InputAudioFormat:  "pcm16",
			OutputAudioFormat: "pcm16",
			InputAudioTranscription: &transcriptionConfig{
				Model: c.cfg.OpenAI.Realtime.TranscriptionModel,
			},
			TurnDetection:           detection,
			Temperature:             0.8,
			MaxResponseOutputTokens: 4096,
		},
	}
}

// Handle owns the live peer connection and the resources behind it. Close is
// safe to call multiple times and from concurrent goroutines.
type Handle struct {
	pc *webrtc.PeerConnection
	dc *webrtc.DataChannel

	capture       *Capture
	captureCancel context.CancelFunc

	closeOnce sync.Once
}

func (h *Handle) Send(event any) error {
	if h.dc == nil {
		return fmt.Errorf("control channel is not open")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal control event: %w", err)
	}

	return h.dc.SendText(string(data))
}

// Commit signals end of the buffered user audio. In manual turn detection it
// must be followed by CreateResponse, in that order, or the agent stays
// silent.
func (h *Handle) Commit() error {
	return h.Send(commitEvent{Type: eventInputAudioBufferCommitMsg})
}

func (h *Handle) CreateResponse(instructions string) error {
	return h.Send(responseCreateEvent{
		Type: eventResponseCreateMsg,
		Response: responsePayload{
			Modalities:   []string{"text", "audio"},
			Instructions: instructions,
		},
	})
}

// Close stops the microphone before discarding any reference to it, then
// closes the control channel and the peer connection.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		if h.capture != nil {
			if err := h.capture.Stop(); err != nil {
				slog.Warn("Failed to stop capture", "error", err)
			}
		}
		if h.captureCancel != nil {
			h.captureCancel()
		}

		if h.dc != nil {
			if err := h.dc.Close(); err != nil {
				slog.Warn("Failed to close data channel", "error", err)
			}
		}

		if h.pc != nil {
			if err := h.pc.Close(); err != nil {
				slog.Warn("Failed to close peer connection", "error", err)
			}
		}
	})

	return nil
}

// pumpCapture feeds Ogg pages from the recorder into the outbound track.
func (h *Handle) pumpCapture(ctx context.Context, track *webrtc.TrackLocalStaticSample) {
	ogg, _, err := oggreader.NewWith(h.capture.AudioStream())
	if err != nil {
		slog.Error("Failed to read capture stream", "error", err)
		return
	}

	var lastGranule uint64

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		pageData, pageHeader, err := ogg.ParseNextPage()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			slog.Warn("Capture stream error", "error", err)
			return
		}

		sampleCount := pageHeader.GranulePosition - lastGranule
		lastGranule = pageHeader.GranulePosition
		duration := time.Duration(sampleCount) * time.Second / 48000

		if err = track.WriteSample(media.Sample{Data: pageData, Duration: duration}); err != nil {
			slog.Warn("Failed to write audio sample", "error", err)
			return
		}
	}
}

func drainTrack(ctx context.Context, track *webrtc.TrackRemote) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if _, _, err := track.ReadRTP(); err != nil {
			return
		}
	}
}
