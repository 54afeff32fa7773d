package telemetry_test

import (
	"errors"
	"testing"

	"github.com/okian/f1replay/internal/domain/model"
	"github.com/okian/f1replay/internal/telemetry"
	. "github.com/smartystreets/goconvey/convey"
)

func header(format int, sessionTime float64) telemetry.Header {
	return telemetry.Header{
		PacketFormat:     format,
		GameMajorVersion: 1,
		GameMinorVersion: 22,
		PacketVersion:    1,
		SessionUID:       0x7d7c0ab8397c4564,
		SessionTime:      sessionTime,
		FrameIdentifier:  42,
		PlayerCarIndex:   3,
	}
}

func TestDecodeHeader(t *testing.T) {
	Convey("Given an encoded 2019 lap data packet", t, func() {
		b, err := telemetry.EncodeLapData(header(telemetry.Format2019, 12.5), nil)
		So(err, ShouldBeNil)

		Convey("When decoding the header", func() {
			h, err := telemetry.DecodeHeader(b)

			Convey("Then every header field should be read back", func() {
				So(err, ShouldBeNil)
				So(h.PacketFormat, ShouldEqual, telemetry.Format2019)
				So(h.PacketID, ShouldEqual, telemetry.PacketLapData)
				So(h.SessionUID, ShouldEqual, uint64(0x7d7c0ab8397c4564))
				So(h.SessionTime, ShouldEqual, 12.5)
				So(h.FrameIdentifier, ShouldEqual, uint32(42))
				So(h.PlayerCarIndex, ShouldEqual, 3)
			})
		})
	})

	Convey("Given malformed input", t, func() {
		Convey("When the buffer is shorter than the format field", func() {
			_, err := telemetry.DecodeHeader([]byte{0xe3})
			So(errors.Is(err, telemetry.ErrShortPacket), ShouldBeTrue)
		})

		Convey("When the format is unknown", func() {
			_, err := telemetry.DecodeHeader([]byte{0xe2, 0x07, 0, 0, 0, 0})
			So(errors.Is(err, telemetry.ErrUnsupportedFormat), ShouldBeTrue)
		})

		Convey("When the header is truncated", func() {
			b, _ := telemetry.EncodeSession(header(telemetry.Format2019, 1), model.SessionInfo{})
			_, err := telemetry.DecodeHeader(b[:10])
			So(errors.Is(err, telemetry.ErrShortPacket), ShouldBeTrue)
		})
	})
}

func TestDecodeLapData(t *testing.T) {
	cars := []model.CarLapState{
		{SlotIndex: 0, CarPosition: 2, CurrentLapNum: 3, LastLapTime: 91.25, BestLapTime: 90.5,
			Sector1Time: 28.125, Sector2Time: 31.5, LapDistance: 480, TotalDistance: 10480, PitStatus: 1, Penalties: 5},
		{SlotIndex: 3, CarPosition: 1, CurrentLapNum: 3, LapDistance: 500, TotalDistance: 10500},
	}

	for _, format := range []int{telemetry.Format2019, telemetry.Format2020} {
		Convey("Given a lap data packet in format "+formatName(format), t, func() {
			b, err := telemetry.EncodeLapData(header(format, 300.25), cars)
			So(err, ShouldBeNil)

			Convey("When decoding it", func() {
				frame, err := telemetry.DecodeLapData(b)

				Convey("Then the frame should cover every slot of the format", func() {
					So(err, ShouldBeNil)
					So(frame.SessionTime, ShouldEqual, 300.25)
					So(frame.PlayerCarIndex, ShouldEqual, 3)
					if format == telemetry.Format2020 {
						So(len(frame.Cars), ShouldEqual, 22)
					} else {
						So(len(frame.Cars), ShouldEqual, 20)
					}
				})

				Convey("And per-car fields should round trip", func() {
					c := frame.Cars[0]
					So(c.SlotIndex, ShouldEqual, 0)
					So(c.CarPosition, ShouldEqual, 2)
					So(c.CurrentLapNum, ShouldEqual, 3)
					So(c.LastLapTime, ShouldEqual, 91.25)
					So(c.BestLapTime, ShouldEqual, 90.5)
					So(c.Sector1Time, ShouldAlmostEqual, 28.125, 1e-3)
					So(c.Sector2Time, ShouldAlmostEqual, 31.5, 1e-3)
					So(c.LapDistance, ShouldEqual, 480)
					So(c.TotalDistance, ShouldEqual, 10480)
					So(c.PitStatus, ShouldEqual, 1)
					So(c.Penalties, ShouldEqual, 5)

					player, ok := frame.Player()
					So(ok, ShouldBeTrue)
					So(player.CarPosition, ShouldEqual, 1)
					So(player.SlotIndex, ShouldEqual, 3)
				})

				Convey("And empty slots should decode as zero", func() {
					So(frame.Cars[5].CarPosition, ShouldEqual, 0)
					So(frame.Cars[5].SlotIndex, ShouldEqual, 5)
				})
			})
		})
	}

	Convey("Given a packet with a different id", t, func() {
		b, _ := telemetry.EncodeSession(header(telemetry.Format2019, 1), model.SessionInfo{})
		_, err := telemetry.DecodeLapData(b)
		So(errors.Is(err, telemetry.ErrUnexpectedPacket), ShouldBeTrue)
	})

	Convey("Given a truncated lap data packet", t, func() {
		b, _ := telemetry.EncodeLapData(header(telemetry.Format2020, 1), cars)
		_, err := telemetry.DecodeLapData(b[:len(b)-1])
		So(errors.Is(err, telemetry.ErrShortPacket), ShouldBeTrue)
	})
}

func TestDecodeSession(t *testing.T) {
	Convey("Given a session packet", t, func() {
		in := model.SessionInfo{TrackID: 10, SessionType: 10, TrackLength: 7004, Weather: 2}
		b, err := telemetry.EncodeSession(header(telemetry.Format2020, 0.5), in)
		So(err, ShouldBeNil)

		Convey("Then it should decode to the same session", func() {
			out, err := telemetry.DecodeSession(b)
			So(err, ShouldBeNil)
			So(out, ShouldResemble, in)
		})
	})

	Convey("Given a session on an unknown track", t, func() {
		b, _ := telemetry.EncodeSession(header(telemetry.Format2019, 0), model.SessionInfo{TrackID: -1})

		Convey("Then the signed track id should survive", func() {
			out, err := telemetry.DecodeSession(b)
			So(err, ShouldBeNil)
			So(out.TrackID, ShouldEqual, -1)
		})
	})
}

func TestDecodeParticipants(t *testing.T) {
	Convey("Given a roster with an unused slot", t, func() {
		in := []model.Participant{
			{SlotIndex: 0, DriverID: 9, Name: "Lewis HAMILTON", TeamID: 0, Nationality: 10},
			{SlotIndex: 1, DriverID: model.UnusedDriverID},
			{SlotIndex: 2, DriverID: 14, Name: "Max VERSTAPPEN", TeamID: 2, Nationality: 52},
		}
		b, err := telemetry.EncodeParticipants(header(telemetry.Format2019, 0), in)
		So(err, ShouldBeNil)

		Convey("When decoding it", func() {
			out, err := telemetry.DecodeParticipants(b)

			Convey("Then all slots should be returned with NUL-trimmed names", func() {
				So(err, ShouldBeNil)
				So(len(out), ShouldEqual, 20)
				So(out[0], ShouldResemble, in[0])
				So(out[2], ShouldResemble, in[2])
				So(out[1].Used(), ShouldBeFalse)
				So(out[7].Used(), ShouldBeFalse)
			})
		})
	})
}

func TestDecodeCarTelemetry(t *testing.T) {
	Convey("Given a car telemetry packet", t, func() {
		cars := make([]model.CarTelemetry, 4)
		cars[3] = model.CarTelemetry{Speed: 312, Throttle: 1, Steer: -0.25, Brake: 0, Gear: 8, EngineRPM: 11800}

		for _, format := range []int{telemetry.Format2019, telemetry.Format2020} {
			b, err := telemetry.EncodeCarTelemetry(header(format, 61), cars)
			So(err, ShouldBeNil)

			frame, err := telemetry.DecodeCarTelemetry(b)
			So(err, ShouldBeNil)

			player, ok := frame.Player()
			So(ok, ShouldBeTrue)
			So(player, ShouldResemble, cars[3])
		}
	})
}

func formatName(format int) string {
	if format == telemetry.Format2020 {
		return "2020"
	}
	return "2019"
}
