package snapshot_test

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/okian/f1replay/internal/adapters/repository"
	"github.com/okian/f1replay/internal/domain/model"
	"github.com/okian/f1replay/internal/domain/snapshot"
	"github.com/okian/f1replay/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func tick(ts float64, leaderSlot int) repository.Record {
	cars := []model.CarLapState{
		{SlotIndex: 0, CarPosition: 2},
		{SlotIndex: 1, CarPosition: 2},
	}
	cars[leaderSlot].CarPosition = 1
	return repository.Record{
		Kind:      repository.KindLapData,
		Timestamp: ts,
		Laps:      &model.LapFrame{SessionTime: ts, PlayerCarIndex: 1, Cars: cars},
	}
}

type failingStore struct {
	*repository.MemoryStore
	err error
}

func (f failingStore) ReadNearestAtOrBefore(context.Context, string, repository.Kind, float64) (repository.Record, error) {
	return repository.Record{}, f.err
}

func TestReconstructor(t *testing.T) {
	Convey("Given a replay with three ticks", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		store.Add("r", tick(10, 0), tick(20, 1), tick(30, 0))
		rc := snapshot.New(store)

		Convey("When asking between ticks", func() {
			snap, err := rc.At(ctx, "r", 25)

			Convey("Then the earlier tick should be served", func() {
				So(err, ShouldBeNil)
				So(snap.RequestedTime, ShouldEqual, 25)
				So(snap.EffectiveTime, ShouldEqual, 20)
				So(snap.PlayerCarIndex, ShouldEqual, 1)
				So(snap.Cars[1].CarPosition, ShouldEqual, 1)
			})
		})

		Convey("When asking beyond the end", func() {
			a, errA := rc.At(ctx, "r", 30)
			b, errB := rc.At(ctx, "r", 1e6)

			Convey("Then the last tick should be served every time", func() {
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				So(a.EffectiveTime, ShouldEqual, 30)
				So(b.EffectiveTime, ShouldEqual, 30)
				So(b.Cars, ShouldResemble, a.Cars)
			})
		})

		Convey("When asking before the start or at a negative time", func() {
			a, errA := rc.At(ctx, "r", 9.99)
			b, errB := rc.At(ctx, "r", -50)

			Convey("Then the first tick should be served", func() {
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				So(a.EffectiveTime, ShouldEqual, 10)
				So(b.EffectiveTime, ShouldEqual, 10)
				So(len(b.Cars), ShouldEqual, 2)
			})
		})

		Convey("When the caller changes the returned cars", func() {
			a, _ := rc.At(ctx, "r", 10)
			a.Cars[0].CarPosition = 99
			b, _ := rc.At(ctx, "r", 10)

			Convey("Then the stored tick should be unchanged", func() {
				So(b.Cars[0].CarPosition, ShouldEqual, 1)
			})
		})
	})

	Convey("Given a replay with no lap data", t, func() {
		store := repository.NewMemoryStore()
		store.Create("empty")

		Convey("Then an empty list and the requested time should be returned", func() {
			snap, err := snapshot.New(store).At(context.Background(), "empty", 42.5)
			So(err, ShouldBeNil)
			So(snap.Cars, ShouldBeEmpty)
			So(snap.Cars, ShouldNotBeNil)
			So(snap.EffectiveTime, ShouldEqual, 42.5)
		})
	})

	Convey("Given a corrupt tick", t, func() {
		store := repository.NewMemoryStore()
		store.Add("r", tick(10, 0))
		store.AddMalformed("r", repository.KindLapData, 20)
		rc := snapshot.New(store, snapshot.WithLogger(logger.Nop()))

		Convey("Then the query should degrade to no cars at that tick", func() {
			snap, err := rc.At(context.Background(), "r", 21)
			So(err, ShouldBeNil)
			So(snap.Cars, ShouldBeEmpty)
			So(snap.EffectiveTime, ShouldEqual, 20)
		})

		Convey("And neighbouring ticks should still be served", func() {
			snap, err := rc.At(context.Background(), "r", 15)
			So(err, ShouldBeNil)
			So(len(snap.Cars), ShouldEqual, 2)
		})
	})

	Convey("Given an unknown replay", t, func() {
		_, err := snapshot.New(repository.NewMemoryStore()).At(context.Background(), "nope", 0)
		So(errors.Is(err, repository.ErrReplayNotFound), ShouldBeTrue)
	})

	Convey("Given a storage failure", t, func() {
		boom := errors.New("io")
		rc := snapshot.New(failingStore{MemoryStore: repository.NewMemoryStore(), err: boom})

		Convey("Then it should surface unchanged", func() {
			_, err := rc.At(context.Background(), "r", 0)
			So(errors.Is(err, boom), ShouldBeTrue)
		})
	})
}
