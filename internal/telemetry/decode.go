package telemetry

import (
	"strings"

	"github.com/okian/f1replay/internal/domain/model"
)

const (
	sessionBodySize     = 8  // weather..trackId
	participantNameSize = 48 // NUL padded UTF-8
	lapData2020Skipped  = 16 // bestLapNum..bestOverallSector3LapNum
	msPerSecond         = 1000.0
)

// DecodeSession parses a session packet.
func DecodeSession(b []byte) (model.SessionInfo, error) {
	_, _, r, err := decodeFor(b, PacketSession, func(layout) int { return sessionBodySize })
	if err != nil {
		return model.SessionInfo{}, err
	}
	weather := r.u8()
	r.skip(2) // track and air temperature
	r.skip(1) // total laps
	trackLength := r.u16()
	sessionType := r.u8()
	trackID := r.i8()
	return model.SessionInfo{
		TrackID:     int(trackID),
		SessionType: int(sessionType),
		TrackLength: float64(trackLength),
		Weather:     int(weather),
	}, nil
}

// DecodeLapData parses a lap data packet into one frame covering every slot.
func DecodeLapData(b []byte) (model.LapFrame, error) {
	h, l, r, err := decodeFor(b, PacketLapData, func(l layout) int { return l.numCars * l.lapDataSize })
	if err != nil {
		return model.LapFrame{}, err
	}
	cars := make([]model.CarLapState, l.numCars)
	for i := range cars {
		start := r.off
		if h.PacketFormat == Format2020 {
			cars[i] = readLapData2020(&r)
		} else {
			cars[i] = readLapData2019(&r)
		}
		cars[i].SlotIndex = i
		r.off = start + l.lapDataSize
	}
	return model.LapFrame{
		SessionTime:    h.SessionTime,
		PlayerCarIndex: h.PlayerCarIndex,
		Cars:           cars,
	}, nil
}

func readLapData2019(r *reader) model.CarLapState {
	var c model.CarLapState
	c.LastLapTime = float64(r.f32())
	c.CurrentLapTime = float64(r.f32())
	c.BestLapTime = float64(r.f32())
	c.Sector1Time = float64(r.f32())
	c.Sector2Time = float64(r.f32())
	c.LapDistance = float64(r.f32())
	c.TotalDistance = float64(r.f32())
	r.skip(4) // safety car delta
	readLapTail(r, &c)
	return c
}

func readLapData2020(r *reader) model.CarLapState {
	var c model.CarLapState
	c.LastLapTime = float64(r.f32())
	c.CurrentLapTime = float64(r.f32())
	c.Sector1Time = float64(r.u16()) / msPerSecond
	c.Sector2Time = float64(r.u16()) / msPerSecond
	c.BestLapTime = float64(r.f32())
	r.skip(lapData2020Skipped)
	c.LapDistance = float64(r.f32())
	c.TotalDistance = float64(r.f32())
	r.skip(4) // safety car delta
	readLapTail(r, &c)
	return c
}

// readLapTail reads the byte fields shared by both formats.
func readLapTail(r *reader, c *model.CarLapState) {
	c.CarPosition = int(r.u8())
	c.CurrentLapNum = int(r.u8())
	c.PitStatus = int(r.u8())
	r.skip(2) // sector, current lap invalid
	c.Penalties = int(r.u8())
}

// DecodeParticipants parses a participants packet. Every slot is returned,
// unused ones included; filtering is left to the caller.
func DecodeParticipants(b []byte) ([]model.Participant, error) {
	_, l, r, err := decodeFor(b, PacketParticipants, func(l layout) int { return 1 + l.numCars*l.participantSize })
	if err != nil {
		return nil, err
	}
	r.skip(1) // num active cars
	out := make([]model.Participant, l.numCars)
	for i := range out {
		start := r.off
		r.skip(1) // ai controlled
		driverID := r.u8()
		teamID := r.u8()
		r.skip(1) // race number
		nationality := r.u8()
		name := r.bytes(participantNameSize)
		out[i] = model.Participant{
			SlotIndex:   i,
			DriverID:    int(driverID),
			Name:        cString(name),
			TeamID:      int(teamID),
			Nationality: int(nationality),
		}
		r.off = start + l.participantSize
	}
	return out, nil
}

// DecodeCarTelemetry parses a car telemetry packet.
func DecodeCarTelemetry(b []byte) (model.TelemetryFrame, error) {
	h, l, r, err := decodeFor(b, PacketCarTelemetry, func(l layout) int { return l.numCars * l.carTelemetrySize })
	if err != nil {
		return model.TelemetryFrame{}, err
	}
	cars := make([]model.CarTelemetry, l.numCars)
	for i := range cars {
		start := r.off
		speed := r.u16()
		throttle := r.f32()
		steer := r.f32()
		brake := r.f32()
		r.skip(1) // clutch
		gear := r.i8()
		rpm := r.u16()
		cars[i] = model.CarTelemetry{
			Speed:     int(speed),
			Throttle:  float64(throttle),
			Steer:     float64(steer),
			Brake:     float64(brake),
			Gear:      int(gear),
			EngineRPM: int(rpm),
		}
		r.off = start + l.carTelemetrySize
	}
	return model.TelemetryFrame{
		SessionTime:    h.SessionTime,
		PlayerCarIndex: h.PlayerCarIndex,
		Cars:           cars,
	}, nil
}

func cString(b []byte) string {
	if i := strings.IndexByte(string(b), 0); i >= 0 {
		b = b[:i]
	}
	return strings.ToValidUTF8(string(b), "")
}
