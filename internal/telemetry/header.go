// Package telemetry decodes the UDP telemetry packets recorded from the
// racing game into domain records.
//
// Two packet formats are understood, 2019 and 2020. Both are little-endian
// and fixed-layout; every packet starts with a header whose first two bytes
// carry the format. Fields missing from a format decode as zero so callers
// never branch on capture version.
package telemetry

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Packet formats.
const (
	Format2019 = 2019
	Format2020 = 2020
)

// Packet ids stored in the packets table.
const (
	PacketMotion       = 0
	PacketSession      = 1
	PacketLapData      = 2
	PacketEvent        = 3
	PacketParticipants = 4
	PacketCarSetups    = 5
	PacketCarTelemetry = 6
	PacketCarStatus    = 7
)

// Header sizes in bytes.
const (
	headerSize2019 = 23 // format..playerCarIndex
	headerSize2020 = 24 // adds secondaryPlayerCarIndex
)

// Header is the common prefix of every packet.
type Header struct {
	PacketFormat     int
	GameMajorVersion int
	GameMinorVersion int
	PacketVersion    int
	PacketID         int
	SessionUID       uint64
	SessionTime      float64
	FrameIdentifier  uint32
	PlayerCarIndex   int
}

// layout describes the per-format sizes the decoders need.
type layout struct {
	headerSize       int
	numCars          int
	lapDataSize      int
	participantSize  int
	carTelemetrySize int
}

var layouts = map[int]layout{
	Format2019: {headerSize: headerSize2019, numCars: 20, lapDataSize: 41, participantSize: 54, carTelemetrySize: 66},
	Format2020: {headerSize: headerSize2020, numCars: 22, lapDataSize: 53, participantSize: 54, carTelemetrySize: 58},
}

// PacketFormat peeks the format of a raw packet.
func PacketFormat(b []byte) (int, error) {
	if len(b) < 2 {
		return 0, fmt.Errorf("%w: %d bytes", ErrShortPacket, len(b))
	}
	return int(binary.LittleEndian.Uint16(b[0:2])), nil
}

// DecodeHeader parses the packet header.
func DecodeHeader(b []byte) (Header, error) {
	format, err := PacketFormat(b)
	if err != nil {
		return Header{}, err
	}
	l, ok := layouts[format]
	if !ok {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedFormat, format)
	}
	if len(b) < l.headerSize {
		return Header{}, fmt.Errorf("%w: header needs %d bytes, got %d", ErrShortPacket, l.headerSize, len(b))
	}
	r := reader{b: b, off: 2}
	return Header{
		PacketFormat:     format,
		GameMajorVersion: int(r.u8()),
		GameMinorVersion: int(r.u8()),
		PacketVersion:    int(r.u8()),
		PacketID:         int(r.u8()),
		SessionUID:       r.u64(),
		SessionTime:      float64(r.f32()),
		FrameIdentifier:  r.u32(),
		PlayerCarIndex:   int(r.u8()),
	}, nil
}

// decodeFor validates the header against the expected packet id and returns
// a reader positioned at the body.
func decodeFor(b []byte, packetID int, bodySize func(layout) int) (Header, layout, reader, error) {
	h, err := DecodeHeader(b)
	if err != nil {
		return Header{}, layout{}, reader{}, err
	}
	if h.PacketID != packetID {
		return Header{}, layout{}, reader{}, fmt.Errorf("%w: want id %d, got %d", ErrUnexpectedPacket, packetID, h.PacketID)
	}
	l := layouts[h.PacketFormat]
	need := l.headerSize + bodySize(l)
	if len(b) < need {
		return Header{}, layout{}, reader{}, fmt.Errorf("%w: packet %d needs %d bytes, got %d", ErrShortPacket, packetID, need, len(b))
	}
	return h, l, reader{b: b, off: l.headerSize}, nil
}

// reader walks a little-endian buffer. Bounds are checked once by the caller.
type reader struct {
	b   []byte
	off int
}

func (r *reader) u8() uint8 {
	v := r.b[r.off]
	r.off++
	return v
}

func (r *reader) i8() int8 { return int8(r.u8()) }

func (r *reader) u16() uint16 {
	v := binary.LittleEndian.Uint16(r.b[r.off:])
	r.off += 2
	return v
}

func (r *reader) u32() uint32 {
	v := binary.LittleEndian.Uint32(r.b[r.off:])
	r.off += 4
	return v
}

func (r *reader) u64() uint64 {
	v := binary.LittleEndian.Uint64(r.b[r.off:])
	r.off += 8
	return v
}

func (r *reader) f32() float32 {
	return math.Float32frombits(r.u32())
}

func (r *reader) skip(n int) { r.off += n }

func (r *reader) bytes(n int) []byte {
	v := r.b[r.off : r.off+n]
	r.off += n
	return v
}
