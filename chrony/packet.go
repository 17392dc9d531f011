/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package chrony implements the wire codec for the subset of the chrony
// control protocol (version 6) this system speaks: tracking state, source
// count, per-index source data and per-peer NTP data. See
// https://github.com/mlichvar/chrony/blob/master/candm.h for the original
// C definitions this mirrors.
package chrony

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net"
	"time"
)

// CommandType identifies a request/reply command.
type CommandType uint16

// ReplyType identifies a reply packet's payload shape.
type ReplyType uint16

// ModeType identifies a peer's NTP mode.
type ModeType uint16

// SourceStateType identifies a peer's selection state.
type SourceStateType uint16

// ResponseStatusType identifies a reply's status code.
type ResponseStatusType uint16

// PacketType distinguishes request from reply packets.
type PacketType uint8

const protoVersionNumber uint8 = 6
const maxDataLen = 396

const (
	pktTypeCmdRequest PacketType = 1
	pktTypeCmdReply   PacketType = 2
)

// Commands this adapter issues, see spec §6.
const (
	ReqNSources    CommandType = 14
	ReqSourceData  CommandType = 15
	ReqTracking    CommandType = 33
	ReqNTPData     CommandType = 57
)

// Reply shapes for the above commands.
const (
	RpyNSources   ReplyType = 2
	RpySourceData ReplyType = 3
	RpyTracking   ReplyType = 5
	RpyNTPData    ReplyType = 16
)

// Peer modes, spec §6.
const (
	SourceModeClient ModeType = 0
	SourceModePeer   ModeType = 1
	SourceModeRef    ModeType = 2
)

// Peer states of interest, spec §6.
const (
	SourceStateSync      SourceStateType = 0
	SourceStateCandidate SourceStateType = 4
)

const (
	sttSuccess ResponseStatusType = 0
)

// ref_id constants, spec §6: RefIDLocal1 and RefIDLocal2 mean "this is
// chrony's own reference clock"; RefIDNone means no reference at all.
const (
	RefIDLocal1 uint32 = 0x7F7F0101
	RefIDLocal2 uint32 = 0x4C4F434C
	RefIDNone   uint32 = 0x00000000
)

// ChronySocketPath is chronyd's default command socket.
const ChronySocketPath = "/var/run/chrony/chronyd.sock"

// RequestHead is the common request preamble, laid out for binary.Write.
type RequestHead struct {
	Version  uint8
	PKTType  PacketType
	Res1     uint8
	Res2     uint8
	Command  CommandType
	Attempt  uint16
	Sequence uint32
	Pad1     uint32
	Pad2     uint32
}

// SetSequence fills in the request's sequence number.
func (r *RequestHead) SetSequence(n uint32) { r.Sequence = n }

// GetCommand returns the request's command code.
func (r *RequestHead) GetCommand() CommandType { return r.Command }

// RequestPacket abstracts all outgoing packet shapes.
type RequestPacket interface {
	GetCommand() CommandType
	SetSequence(n uint32)
}

// ResponsePacket abstracts all incoming packet shapes.
type ResponsePacket interface {
	GetCommand() CommandType
	GetType() PacketType
	GetStatus() ResponseStatusType
}

// RequestSources asks for the number of known peers.
type RequestSources struct {
	RequestHead
	data [maxDataLen]uint8
}

// RequestSourceData asks for peer data at a given index.
type RequestSourceData struct {
	RequestHead
	Index int32
	EOR   int32
	data  [maxDataLen - 4]uint8
}

// RequestNTPData asks for NTP-layer data about a peer by address.
type RequestNTPData struct {
	RequestHead
	IPAddr ipAddr
	EOR    int32
	data   [maxDataLen - 16]uint8
}

// RequestTracking asks for the daemon's current reference tracking state.
type RequestTracking struct {
	RequestHead
	data [maxDataLen]uint8
}

// ReplyHead is the common reply preamble, laid out for binary.Read.
type ReplyHead struct {
	Version  uint8
	PKTType  PacketType
	Res1     uint8
	Res2     uint8
	Command  CommandType
	Reply    ReplyType
	Status   ResponseStatusType
	Pad1     uint16
	Pad2     uint16
	Pad3     uint16
	Sequence uint32
	Pad4     uint32
	Pad5     uint32
}

// GetCommand returns the echoed command code.
func (r *ReplyHead) GetCommand() CommandType { return r.Command }

// GetType returns the packet type (always a reply for decoded packets).
func (r *ReplyHead) GetType() PacketType { return r.PKTType }

// GetStatus returns the reply's status code.
func (r *ReplyHead) GetStatus() ResponseStatusType { return r.Status }

type replySourcesContent struct {
	NSources uint32
}

// ReplySources carries the peer count.
type ReplySources struct {
	ReplyHead
	NSources int
}

type replySourceDataContent struct {
	IPAddr         ipAddr
	Poll           int16
	Stratum        uint16
	State          SourceStateType
	Mode           ModeType
	Flags          uint16
	Reachability   uint16
	SinceSample    uint32
	OrigLatestMeas chronyFloat
	LatestMeas     chronyFloat
	LatestMeasErr  chronyFloat
}

// SourceData is the decoded per-index peer summary.
type SourceData struct {
	IPAddr       net.IP
	Poll         int16
	Stratum      uint16
	State        SourceStateType
	Mode         ModeType
	Flags        uint16
	Reachability uint16
}

func newSourceData(r *replySourceDataContent) *SourceData {
	return &SourceData{
		IPAddr:       r.IPAddr.ToNetIP(),
		Poll:         r.Poll,
		Stratum:      r.Stratum,
		State:        r.State,
		Mode:         r.Mode,
		Flags:        r.Flags,
		Reachability: r.Reachability,
	}
}

// ReplySourceData is the usable 'source data' reply.
type ReplySourceData struct {
	ReplyHead
	SourceData
}

type replyTrackingContent struct {
	RefID             uint32
	IPAddr            ipAddr
	Stratum           uint16
	LeapStatus        uint16
	RefTime           timeSpec
	CurrentCorrection chronyFloat
	LastOffset        chronyFloat
	RMSOffset         chronyFloat
	FreqPPM           chronyFloat
	ResidFreqPPM      chronyFloat
	SkewPPM           chronyFloat
	RootDelay         chronyFloat
	RootDispersion    chronyFloat
}

// Tracking is the decoded 'tracking' reply.
type Tracking struct {
	RefID          uint32
	IPAddr         net.IP
	Stratum        uint16
	RefTime        time.Time
	RootDispersion float64
}

func newTracking(r *replyTrackingContent) *Tracking {
	return &Tracking{
		RefID:          r.RefID,
		IPAddr:         r.IPAddr.ToNetIP(),
		Stratum:        r.Stratum,
		RefTime:        r.RefTime.ToTime(),
		RootDispersion: r.RootDispersion.toFloat(),
	}
}

// ReplyTracking is the usable 'tracking' reply.
type ReplyTracking struct {
	ReplyHead
	Tracking
}

type replyNTPDataContent struct {
	RemoteAddr      ipAddr
	LocalAddr       ipAddr
	RemotePort      uint16
	Leap            uint8
	Version         uint8
	Mode            uint8
	Stratum         uint8
	Poll            int8
	Precision       int8
	RootDelay       chronyFloat
	RootDispersion  chronyFloat
	RefID           uint32
	RefTime         timeSpec
	Offset          chronyFloat
	PeerDelay       chronyFloat
	PeerDispersion  chronyFloat
	ResponseTime    chronyFloat
	JitterAsymmetry chronyFloat
	Flags           uint16
	TXTssChar       uint8
	RXTssChar       uint8
	TotalTXCount    uint32
	TotalRXCount    uint32
	TotalValidCount uint32
	Reserved        [4]uint32
}

// NTPData is the decoded per-peer NTP-layer reply.
type NTPData struct {
	RemoteAddr     net.IP
	Mode           uint8
	Stratum        uint8
	RootDelay      float64
	RootDispersion float64
	Offset         float64
}

func newNTPData(r *replyNTPDataContent) *NTPData {
	return &NTPData{
		RemoteAddr:     r.RemoteAddr.ToNetIP(),
		Mode:           r.Mode,
		Stratum:        r.Stratum,
		RootDelay:      r.RootDelay.toFloat(),
		RootDispersion: r.RootDispersion.toFloat(),
		Offset:         r.Offset.toFloat(),
	}
}

// ReplyNTPData is the usable 'ntp data' reply.
type ReplyNTPData struct {
	ReplyHead
	NTPData
}

// NewSourcesPacket builds a GET_NUM_SOURCES request.
func NewSourcesPacket() *RequestSources {
	return &RequestSources{RequestHead: RequestHead{Version: protoVersionNumber, PKTType: pktTypeCmdRequest, Command: ReqNSources}}
}

// NewTrackingPacket builds a TRACKING_STATE request.
func NewTrackingPacket() *RequestTracking {
	return &RequestTracking{RequestHead: RequestHead{Version: protoVersionNumber, PKTType: pktTypeCmdRequest, Command: ReqTracking}}
}

// NewSourceDataPacket builds a SOURCE_DATA_ITEM request for the given index.
func NewSourceDataPacket(index int32) *RequestSourceData {
	return &RequestSourceData{
		RequestHead: RequestHead{Version: protoVersionNumber, PKTType: pktTypeCmdRequest, Command: ReqSourceData},
		Index:       index,
	}
}

// NewNTPDataPacket builds an NTP_DATA request for the given peer address.
func NewNTPDataPacket(ip net.IP) *RequestNTPData {
	return &RequestNTPData{
		RequestHead: RequestHead{Version: protoVersionNumber, PKTType: pktTypeCmdRequest, Command: ReqNTPData},
		IPAddr:      *newIPAddr(ip),
	}
}

// Encode serialises a request packet to wire bytes.
func Encode(p RequestPacket) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, p); err != nil {
		return nil, fmt.Errorf("encode packet: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a reply, checking it is well-formed per spec §4.2.1: status
// zero, and the command/sequence/type the caller expects.
func Decode(response []byte, wantCommand CommandType, wantSequence uint32) (ResponsePacket, error) {
	r := bytes.NewReader(response)
	head := new(ReplyHead)
	if err := binary.Read(r, binary.BigEndian, head); err != nil {
		return nil, fmt.Errorf("protocol: short reply: %w", err)
	}
	if head.Status != sttSuccess {
		return nil, fmt.Errorf("protocol: chronyd status %d", head.Status)
	}
	if head.Command != wantCommand || head.Sequence != wantSequence || head.PKTType != pktTypeCmdReply {
		return nil, fmt.Errorf("protocol: reply mismatch: command=%d seq=%d type=%d", head.Command, head.Sequence, head.PKTType)
	}

	switch head.Reply {
	case RpyNSources:
		data := new(replySourcesContent)
		if err := binary.Read(r, binary.BigEndian, data); err != nil {
			return nil, fmt.Errorf("protocol: %w", err)
		}
		return &ReplySources{ReplyHead: *head, NSources: int(data.NSources)}, nil
	case RpySourceData:
		data := new(replySourceDataContent)
		if err := binary.Read(r, binary.BigEndian, data); err != nil {
			return nil, fmt.Errorf("protocol: %w", err)
		}
		return &ReplySourceData{ReplyHead: *head, SourceData: *newSourceData(data)}, nil
	case RpyTracking:
		data := new(replyTrackingContent)
		if err := binary.Read(r, binary.BigEndian, data); err != nil {
			return nil, fmt.Errorf("protocol: %w", err)
		}
		return &ReplyTracking{ReplyHead: *head, Tracking: *newTracking(data)}, nil
	case RpyNTPData:
		data := new(replyNTPDataContent)
		if err := binary.Read(r, binary.BigEndian, data); err != nil {
			return nil, fmt.Errorf("protocol: %w", err)
		}
		return &ReplyNTPData{ReplyHead: *head, NTPData: *newNTPData(data)}, nil
	default:
		return nil, fmt.Errorf("protocol: unhandled reply type %d", head.Reply)
	}
}
