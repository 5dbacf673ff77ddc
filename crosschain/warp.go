// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package crosschain

import (
	"context"
	"errors"
	"fmt"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/warp"
)

var ErrInvalidSignature = errors.New("invalid warp signature")

var (
	_ Transport = (*WarpTransport)(nil)
)

// Relay carries a signed warp message to a destination chain.
type Relay interface {
	Relay(ctx context.Context, dest ids.ID, msg *warp.UnsignedMessage, signature []byte) error
}

// WarpTransport wraps delta payloads in warp messages issued by the local
// chain and signs them before relaying.
type WarpTransport struct {
	networkID uint32
	source    ids.ID
	signer    warp.Signer
	relay     Relay
}

// NewWarpTransport returns a Transport that signs payloads as source on
// networkID.
func NewWarpTransport(networkID uint32, source ids.ID, signer warp.Signer, relay Relay) *WarpTransport {
	return &WarpTransport{
		networkID: networkID,
		source:    source,
		signer:    signer,
		relay:     relay,
	}
}

func (t *WarpTransport) Send(ctx context.Context, dest ids.ID, payload []byte) error {
	msg, err := warp.NewUnsignedMessage(t.networkID, t.source, payload)
	if err != nil {
		return fmt.Errorf("failed to build warp message: %w", err)
	}
	sig, err := t.signer.Sign(msg)
	if err != nil {
		return fmt.Errorf("failed to sign warp message: %w", err)
	}
	return t.relay.Relay(ctx, dest, msg, sig)
}

// WarpInbound verifies relayed warp messages and hands their payload to a
// Notifier. The source chain is taken from the verified message.
type WarpInbound struct {
	networkID uint32
	verifier  warp.Verifier
	notifier  *Notifier
}

func NewWarpInbound(networkID uint32, verifier warp.Verifier, notifier *Notifier) *WarpInbound {
	return &WarpInbound{
		networkID: networkID,
		verifier:  verifier,
		notifier:  notifier,
	}
}

// Deliver verifies msg and passes it to Receive. It reports whether the
// delta was new.
func (w *WarpInbound) Deliver(ctx context.Context, sender common.Address, msg *warp.UnsignedMessage, signature []byte) (bool, error) {
	if msg == nil {
		w.notifier.reject("malformed")
		return false, fmt.Errorf("%w: nil warp message", ErrInvalidMessage)
	}
	if msg.NetworkID != w.networkID {
		w.notifier.reject("network")
		return false, fmt.Errorf("%w: network %d, want %d", ErrInvalidMessage, msg.NetworkID, w.networkID)
	}
	if err := w.verifier.Verify(ctx, msg, signature); err != nil {
		w.notifier.reject("signature")
		w.notifier.log.Warn("rejected warp message",
			log.Stringer("chain", msg.SourceChainID),
			log.Err(err),
		)
		return false, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	return w.notifier.Receive(ctx, msg.SourceChainID, sender, msg.Payload)
}
