// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package payload defines the wire envelopes carried by gateway adapters.
// A full Message is transmitted by the primary adapter of a chain; every
// secondary adapter transmits a Proof, the hash commitment of the same
// message body. A Batch concatenates envelopes for a single outbound
// transmission and is split back into individual envelopes by the adapter
// before delivery.
package payload

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/luxfi/geth/rlp"
	"github.com/luxfi/ids"
)

// Payload type IDs
const (
	// MessageID tags a full message envelope
	MessageID uint32 = 0

	// ProofID tags a hash commitment envelope
	ProofID uint32 = 1

	// BatchID tags a concatenation of envelopes
	BatchID uint32 = 2
)

const (
	// KiB is 1024 bytes
	KiB = 1024

	// MaxBodySize bounds the canonical encoding of a message body
	MaxBodySize = 256 * KiB
)

var (
	// ErrInvalidPayload is returned when a payload is malformed
	ErrInvalidPayload = errors.New("invalid payload")
)

// Payload is an envelope deliverable to a gateway
type Payload interface {
	// Bytes returns the canonical byte representation of the envelope
	Bytes() []byte

	// Verify verifies the envelope
	Verify() error
}

// envelope is the outer wire frame: a type tag and the RLP of the inner type
type envelope struct {
	Kind uint32
	Data []byte
}

func wrap(kind uint32, v interface{}) []byte {
	data, _ := rlp.EncodeToBytes(v)
	b, _ := rlp.EncodeToBytes(&envelope{Kind: kind, Data: data})
	return b
}

// Hash computes the payload hash of a message body: the SHA-256 of its
// canonical bytes. The hash correlates a full Message with the Proofs sent
// by secondary adapters, so it must never be computed over anything other
// than the exact body bytes.
func Hash(body []byte) ids.ID {
	return ids.ID(sha256.Sum256(body))
}

// Message is a full message envelope carrying an opaque, type-tagged
// business body.
type Message struct {
	Body []byte
}

// NewMessage creates a full message envelope
func NewMessage(body []byte) (*Message, error) {
	m := &Message{Body: body}
	if err := m.Verify(); err != nil {
		return nil, err
	}
	return m, nil
}

// Verify verifies the message envelope
func (m *Message) Verify() error {
	if len(m.Body) == 0 {
		return fmt.Errorf("%w: empty message body", ErrInvalidPayload)
	}
	if len(m.Body) > MaxBodySize {
		return fmt.Errorf("%w: body size %d exceeds maximum %d", ErrInvalidPayload, len(m.Body), MaxBodySize)
	}
	return nil
}

// Bytes returns the canonical byte representation of the envelope
func (m *Message) Bytes() []byte {
	return wrap(MessageID, m)
}

// PayloadHash returns the hash commitment of the message body
func (m *Message) PayloadHash() ids.ID {
	return Hash(m.Body)
}

// Proof is a hash commitment envelope. A secondary adapter delivering a
// Proof attests that it observed the exact message whose body hashes to
// Hash, without re-transmitting the body.
type Proof struct {
	Hash ids.ID
}

// NewProof creates a proof envelope for the given payload hash
func NewProof(hash ids.ID) (*Proof, error) {
	p := &Proof{Hash: hash}
	if err := p.Verify(); err != nil {
		return nil, err
	}
	return p, nil
}

// ProofOf creates the proof envelope committing to a full message
func ProofOf(m *Message) *Proof {
	return &Proof{Hash: m.PayloadHash()}
}

// Verify verifies the proof envelope
func (p *Proof) Verify() error {
	if p.Hash == ids.Empty {
		return fmt.Errorf("%w: empty proof hash", ErrInvalidPayload)
	}
	return nil
}

// Bytes returns the canonical byte representation of the envelope
func (p *Proof) Bytes() []byte {
	return wrap(ProofID, p)
}

// Batch concatenates envelopes destined for the same remote chain into one
// adapter transmission. Adapters split a batch and deliver each entry to the
// destination gateway individually; a gateway never accepts a Batch directly.
type Batch struct {
	Entries [][]byte
}

// NewBatch creates a batch from the given envelopes
func NewBatch(payloads ...Payload) (*Batch, error) {
	if len(payloads) == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrInvalidPayload)
	}
	entries := make([][]byte, len(payloads))
	for i, p := range payloads {
		if err := p.Verify(); err != nil {
			return nil, err
		}
		entries[i] = p.Bytes()
	}
	return &Batch{Entries: entries}, nil
}

// Verify verifies the batch envelope
func (b *Batch) Verify() error {
	if len(b.Entries) == 0 {
		return fmt.Errorf("%w: empty batch", ErrInvalidPayload)
	}
	for i, entry := range b.Entries {
		if len(entry) == 0 {
			return fmt.Errorf("%w: empty batch entry %d", ErrInvalidPayload, i)
		}
	}
	return nil
}

// Bytes returns the canonical byte representation of the envelope
func (b *Batch) Bytes() []byte {
	return wrap(BatchID, b)
}

// Payloads parses every entry of the batch
func (b *Batch) Payloads() ([]Payload, error) {
	payloads := make([]Payload, len(b.Entries))
	for i, entry := range b.Entries {
		p, err := Parse(entry)
		if err != nil {
			return nil, fmt.Errorf("failed to parse batch entry %d: %w", i, err)
		}
		payloads[i] = p
	}
	return payloads, nil
}

// Parse parses an envelope from bytes
func Parse(b []byte) (Payload, error) {
	var outer envelope
	if err := rlp.DecodeBytes(b, &outer); err != nil {
		return nil, fmt.Errorf("%w: failed to decode envelope: %s", ErrInvalidPayload, err)
	}

	var p Payload
	switch outer.Kind {
	case MessageID:
		p = &Message{}
	case ProofID:
		p = &Proof{}
	case BatchID:
		p = &Batch{}
	default:
		return nil, fmt.Errorf("%w: unknown payload type %d", ErrInvalidPayload, outer.Kind)
	}

	if err := rlp.DecodeBytes(outer.Data, p); err != nil {
		return nil, fmt.Errorf("%w: failed to decode payload type %d: %s", ErrInvalidPayload, outer.Kind, err)
	}
	if err := p.Verify(); err != nil {
		return nil, err
	}
	return p, nil
}
