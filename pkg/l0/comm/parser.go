package comm

import "github.com/robotalks/avr.go/pkg/wire"

// SyncState is the link state reported after every parsed byte.
type SyncState int

// SyncStateSyncing is the zero state. The other two are bits.
const (
	SyncStateSyncing   SyncState = 0
	SyncStateReady     SyncState = 0x01
	SyncStateReceiving SyncState = 0x02
)

// IsReady reports whether both sides agreed on sequence numbers.
func (s SyncState) IsReady() bool {
	return s&SyncStateReady != 0
}

// IsReceiving reports whether a sync handshake or a packet is half way.
func (s SyncState) IsReceiving() bool {
	return s&SyncStateReceiving != 0
}

func (s SyncState) String() string {
	switch s {
	case SyncStateSyncing:
		return "syncing"
	case SyncStateSyncing | SyncStateReceiving:
		return "syncing+receiving"
	case SyncStateReady:
		return "ready"
	default:
		return "ready+receiving"
	}
}

// TimerAction tells the caller what to do with its sync timer.
type TimerAction int

// Timer actions.
const (
	TimerNoChange TimerAction = iota
	TimerRestart
	TimerStop
)

// ParseResult is the outcome of feeding one byte or a timeout.
// Sync is non-zero when a sync command must be sent to the peer, followed
// by the local sequence number.
type ParseResult struct {
	Sync   byte
	State  SyncState
	Packet *Packet
}

// WhatAboutTimer maps the result to a timer action. The timer runs while
// anything is half received and after a sync request went out.
func (r ParseResult) WhatAboutTimer() TimerAction {
	switch {
	case r.State.IsReceiving() || r.Sync == syncREQ:
		return TimerRestart
	case r.State.IsReady():
		return TimerStop
	}
	return TimerNoChange
}

const (
	syncREQ byte = 0xff
	syncACK byte = 0xfe
)

type parseState int

const (
	stateSyncing parseState = iota // REQ sent, waiting for REQ or ACK
	stateSyncSeq                   // got REQ or ACK, seq follows
	stateIdle                      // ready, between packets
	stateAckSeq                    // ACK while ready, seq must match
	stateHeader                    // collecting code and len
	stateData
)

// Parser decodes the byte stream from the peer, one byte at a time.
// The zero value is in the syncing state.
type Parser struct {
	state   parseState
	sync    byte
	peerSeq PacketSeq
	head    [HeaderSize]byte
	headLen int
	packet  *Packet
	recvLen int
}

// State gets the current sync state.
func (p *Parser) State() SyncState {
	switch p.state {
	case stateSyncing:
		return SyncStateSyncing
	case stateSyncSeq:
		return SyncStateSyncing | SyncStateReceiving
	case stateIdle:
		return SyncStateReady
	}
	return SyncStateReady | SyncStateReceiving
}

// Reset drops any partial packet and starts a new sync.
func (p *Parser) Reset() ParseResult {
	return p.result(p.resync())
}

// Parse consumes one byte.
func (p *Parser) Parse(b byte) ParseResult {
	return p.result(p.parseByte(b))
}

// Timeout tells the parser the sync timer expired. Anything but an idle
// link is resynced.
func (p *Parser) Timeout() ParseResult {
	if p.state == stateIdle {
		return p.result(0, nil)
	}
	return p.result(p.resync())
}

func (p *Parser) result(sync byte, pkt *Packet) ParseResult {
	return ParseResult{Sync: sync, State: p.State(), Packet: pkt}
}

func (p *Parser) parseByte(b byte) (byte, *Packet) {
	switch p.state {
	case stateSyncing:
		if b == syncREQ || b == syncACK {
			p.sync, p.state = b, stateSyncSeq
		}
	case stateSyncSeq:
		return p.syncSeq(PacketSeq(b))
	case stateIdle:
		switch {
		case b == syncREQ:
			p.sync, p.state = b, stateSyncSeq
		case b == syncACK:
			p.state = stateAckSeq
		case PacketSeq(b) != p.peerSeq:
			return p.resync()
		default:
			p.head[0], p.headLen = b, 1
			p.peerSeq = p.peerSeq.Next()
			p.state = stateHeader
		}
	case stateAckSeq:
		if PacketSeq(b) != p.peerSeq {
			return p.resync()
		}
		p.state = stateIdle
	case stateHeader:
		p.head[p.headLen] = b
		if p.headLen++; p.headLen == HeaderSize {
			return p.header()
		}
	case stateData:
		p.packet.Data[p.recvLen] = b
		if p.recvLen++; p.recvLen == len(p.packet.Data) {
			return p.ready()
		}
	}
	return 0, nil
}

// syncSeq completes a handshake. A REQ from the peer is answered with ACK.
func (p *Parser) syncSeq(seq PacketSeq) (byte, *Packet) {
	if !seq.IsValid() {
		return p.resync()
	}
	p.peerSeq, p.state = seq, stateIdle
	if p.sync == syncREQ {
		return syncACK, nil
	}
	return 0, nil
}

func (p *Parser) header() (byte, *Packet) {
	var h Header
	if _, err := wire.Unmarshal[Header](HeaderSerializer, &h, p.head[:]); err != nil || h.Len > MaxDataLen {
		return p.resync()
	}
	p.packet = &Packet{Seq: h.Seq, Code: h.Code}
	if h.Len == 0 {
		return p.ready()
	}
	p.packet.Data, p.recvLen = make([]byte, h.Len), 0
	p.state = stateData
	return 0, nil
}

func (p *Parser) resync() (byte, *Packet) {
	p.state, p.packet = stateSyncing, nil
	return syncREQ, nil
}

func (p *Parser) ready() (byte, *Packet) {
	p.state = stateIdle
	pkt := p.packet
	p.packet = nil
	return 0, pkt
}
