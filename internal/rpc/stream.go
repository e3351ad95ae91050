// Package rpc is the inter-component protocol binding Frontline to the
// Core Router (§4.4): a request/action pair carried over a streaming
// RPC. This repository runs Frontline, the Core Router, the Peer Agent
// and the Config Feeder in one process, so the "stream" here is a pair
// of buffered Go channels rather than a generated gRPC client/server —
// the same PacketRequest/PacketAction contract a future out-of-process
// deployment would put behind protobuf, grounded in the teacher's own
// gateway.go channel-wiring between its inbound server and its DRA
// pool (receiveChan / aggregator pattern).
package rpc

import (
	"context"
	"errors"
)

// ErrStreamClosed is returned by Send/Recv once the stream has been
// closed by either side.
var ErrStreamClosed = errors.New("rpc: stream closed")

// Kind is one of the three actions the Core Router can hand back for a
// processed packet.
type Kind int

const (
	Forward Kind = iota
	Reply
	Discard
)

func (k Kind) String() string {
	switch k {
	case Forward:
		return "FORWARD"
	case Reply:
		return "REPLY"
	case Discard:
		return "DISCARD"
	default:
		return "UNKNOWN"
	}
}

// PacketRequest is Frontline's F→CR message: a received Diameter packet
// plus enough context for the Core Router to route and, on a local
// answer, reply to it without ever touching socket state itself.
type PacketRequest struct {
	ConnectionID         uint64
	VRID                 string
	ReceptionTimestampNs int64
	RawPayload           []byte
	SessionTxID          string // F-assigned, echoed back on the matching action
}

// PacketAction is the Core Router's CR→F response: what to do with the
// (possibly rewritten) payload.
type PacketAction struct {
	Action               Kind
	TargetHost           string // set for Forward
	OriginalConnectionID uint64 // set for Reply
	ResponsePayload      []byte
	SessionTxID          string
}

// Stream is one bidirectional channel pair between Frontline and the
// Core Router. Streams survive across many transactions; per-packet
// correlation is via SessionTxID, not stream identity. Transaction state
// lives in internal/transaction.Manager, not in the stream, so closing a
// stream does not discard it; nothing reissues in-flight requests over a
// new stream (§4.4).
type Stream struct {
	requests chan PacketRequest
	actions  chan PacketAction
	done     chan struct{}
}

// NewStream returns a Stream with the given per-direction buffer depth.
func NewStream(bufSize int) *Stream {
	return &Stream{
		requests: make(chan PacketRequest, bufSize),
		actions:  make(chan PacketAction, bufSize),
		done:     make(chan struct{}),
	}
}

// Send is Frontline's half: hand a received packet to the Core Router.
func (s *Stream) Send(ctx context.Context, req PacketRequest) error {
	select {
	case s.requests <- req:
		return nil
	case <-s.done:
		return ErrStreamClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recv is the Core Router's half: block for the next packet to process.
func (s *Stream) Recv(ctx context.Context) (PacketRequest, error) {
	select {
	case req := <-s.requests:
		return req, nil
	case <-s.done:
		return PacketRequest{}, ErrStreamClosed
	case <-ctx.Done():
		return PacketRequest{}, ctx.Err()
	}
}

// Reply is the Core Router's half: hand back the forwarding decision
// for a packet it has finished processing.
func (s *Stream) Reply(ctx context.Context, action PacketAction) error {
	select {
	case s.actions <- action:
		return nil
	case <-s.done:
		return ErrStreamClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RecvAction is Frontline's half: block for the Core Router's decision
// on a previously sent packet.
func (s *Stream) RecvAction(ctx context.Context) (PacketAction, error) {
	select {
	case action := <-s.actions:
		return action, nil
	case <-s.done:
		return PacketAction{}, ErrStreamClosed
	case <-ctx.Done():
		return PacketAction{}, ctx.Err()
	}
}

// Close unblocks every pending Send/Recv/Reply/RecvAction with
// ErrStreamClosed. Safe to call more than once.
func (s *Stream) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}
