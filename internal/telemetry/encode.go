package telemetry

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/okian/f1replay/internal/domain/model"
)

// Encoders produce packets in the same layout the game sends. They exist for
// fixtures and tooling that need to write replay files.

// EncodeSession builds a session packet.
func EncodeSession(h Header, s model.SessionInfo) ([]byte, error) {
	h.PacketID = PacketSession
	w, _, err := newWriter(h)
	if err != nil {
		return nil, err
	}
	w.u8(uint8(s.Weather))
	w.u8(0) // track temperature
	w.u8(0) // air temperature
	w.u8(0) // total laps
	w.u16(uint16(s.TrackLength))
	w.u8(uint8(s.SessionType))
	w.u8(uint8(int8(s.TrackID)))
	return w.b, nil
}

// EncodeLapData builds a lap data packet. Cars are placed by SlotIndex;
// slots not present are zero.
func EncodeLapData(h Header, cars []model.CarLapState) ([]byte, error) {
	h.PacketID = PacketLapData
	w, l, err := newWriter(h)
	if err != nil {
		return nil, err
	}
	slots, err := bySlot(cars, l.numCars)
	if err != nil {
		return nil, err
	}
	for _, c := range slots {
		start := len(w.b)
		w.f32(c.LastLapTime)
		w.f32(c.CurrentLapTime)
		if h.PacketFormat == Format2020 {
			w.u16(uint16(math.Round(c.Sector1Time * msPerSecond)))
			w.u16(uint16(math.Round(c.Sector2Time * msPerSecond)))
			w.f32(c.BestLapTime)
			w.zero(lapData2020Skipped)
		} else {
			w.f32(c.BestLapTime)
			w.f32(c.Sector1Time)
			w.f32(c.Sector2Time)
		}
		w.f32(c.LapDistance)
		w.f32(c.TotalDistance)
		w.f32(0) // safety car delta
		w.u8(uint8(c.CarPosition))
		w.u8(uint8(c.CurrentLapNum))
		w.u8(uint8(c.PitStatus))
		w.zero(2)
		w.u8(uint8(c.Penalties))
		w.zero(l.lapDataSize - (len(w.b) - start))
	}
	return w.b, nil
}

// EncodeParticipants builds a participants packet. Slots not present are
// written as unused.
func EncodeParticipants(h Header, parts []model.Participant) ([]byte, error) {
	h.PacketID = PacketParticipants
	w, l, err := newWriter(h)
	if err != nil {
		return nil, err
	}
	slots := make([]*model.Participant, l.numCars)
	active := 0
	for i := range parts {
		p := parts[i]
		if p.SlotIndex < 0 || p.SlotIndex >= l.numCars {
			return nil, fmt.Errorf("participant slot %d out of range", p.SlotIndex)
		}
		slots[p.SlotIndex] = &p
		if p.Used() {
			active++
		}
	}
	w.u8(uint8(active))
	for _, p := range slots {
		start := len(w.b)
		if p == nil {
			w.u8(0)
			w.u8(model.UnusedDriverID)
			w.zero(l.participantSize - 2)
			continue
		}
		w.u8(0) // ai controlled
		w.u8(uint8(p.DriverID))
		w.u8(uint8(p.TeamID))
		w.u8(0) // race number
		w.u8(uint8(p.Nationality))
		name := make([]byte, participantNameSize)
		copy(name[:participantNameSize-1], p.Name)
		w.b = append(w.b, name...)
		w.zero(l.participantSize - (len(w.b) - start))
	}
	return w.b, nil
}

// EncodeCarTelemetry builds a car telemetry packet covering len(cars) slots
// starting at slot zero.
func EncodeCarTelemetry(h Header, cars []model.CarTelemetry) ([]byte, error) {
	h.PacketID = PacketCarTelemetry
	w, l, err := newWriter(h)
	if err != nil {
		return nil, err
	}
	if len(cars) > l.numCars {
		return nil, fmt.Errorf("%d cars exceed %d slots", len(cars), l.numCars)
	}
	for i := 0; i < l.numCars; i++ {
		start := len(w.b)
		if i < len(cars) {
			c := cars[i]
			w.u16(uint16(c.Speed))
			w.f32(c.Throttle)
			w.f32(c.Steer)
			w.f32(c.Brake)
			w.u8(0) // clutch
			w.u8(uint8(int8(c.Gear)))
			w.u16(uint16(c.EngineRPM))
		}
		w.zero(l.carTelemetrySize - (len(w.b) - start))
	}
	return w.b, nil
}

func bySlot(cars []model.CarLapState, n int) ([]model.CarLapState, error) {
	out := make([]model.CarLapState, n)
	for _, c := range cars {
		if c.SlotIndex < 0 || c.SlotIndex >= n {
			return nil, fmt.Errorf("car slot %d out of range", c.SlotIndex)
		}
		out[c.SlotIndex] = c
	}
	return out, nil
}

type writer struct {
	b []byte
}

func newWriter(h Header) (*writer, layout, error) {
	l, ok := layouts[h.PacketFormat]
	if !ok {
		return nil, layout{}, fmt.Errorf("%w: %d", ErrUnsupportedFormat, h.PacketFormat)
	}
	w := &writer{b: make([]byte, 0, l.headerSize+l.numCars*l.participantSize+1)}
	w.u16(uint16(h.PacketFormat))
	w.u8(uint8(h.GameMajorVersion))
	w.u8(uint8(h.GameMinorVersion))
	w.u8(uint8(h.PacketVersion))
	w.u8(uint8(h.PacketID))
	w.u64(h.SessionUID)
	w.f32(h.SessionTime)
	w.u32(h.FrameIdentifier)
	w.u8(uint8(h.PlayerCarIndex))
	if h.PacketFormat == Format2020 {
		w.u8(255) // no secondary player
	}
	return w, l, nil
}

func (w *writer) u8(v uint8)   { w.b = append(w.b, v) }
func (w *writer) u16(v uint16) { w.b = binary.LittleEndian.AppendUint16(w.b, v) }
func (w *writer) u32(v uint32) { w.b = binary.LittleEndian.AppendUint32(w.b, v) }
func (w *writer) u64(v uint64) { w.b = binary.LittleEndian.AppendUint64(w.b, v) }
func (w *writer) f32(v float64) {
	w.u32(math.Float32bits(float32(v)))
}

func (w *writer) zero(n int) {
	for i := 0; i < n; i++ {
		w.b = append(w.b, 0)
	}
}
