package session_test

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/f1replay/internal/adapters/repository"
	"github.com/okian/f1replay/internal/domain/model"
	"github.com/okian/f1replay/internal/domain/session"
	"github.com/okian/f1replay/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// countingStore counts first-record reads and slows them down so
// concurrent callers overlap.
type countingStore struct {
	*repository.MemoryStore
	reads atomic.Int32
	fail  error
}

func (c *countingStore) ReadFirst(ctx context.Context, id string, kind repository.Kind) (repository.Record, error) {
	c.reads.Add(1)
	time.Sleep(5 * time.Millisecond)
	if c.fail != nil {
		return repository.Record{}, c.fail
	}
	return c.MemoryStore.ReadFirst(ctx, id, kind)
}

// gatedStore holds the first read until release is closed, honoring the
// caller's context while it waits.
type gatedStore struct {
	*repository.MemoryStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedStore) ReadFirst(ctx context.Context, id string, kind repository.Kind) (repository.Record, error) {
	g.once.Do(func() { close(g.entered) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return repository.Record{}, ctx.Err()
	}
	return g.MemoryStore.ReadFirst(ctx, id, kind)
}

func roster() []model.Participant {
	return []model.Participant{
		{SlotIndex: 2, DriverID: 14, Name: "Fernando ALONSO"},
		{SlotIndex: 0, DriverID: 9, Name: "Lewis HAMILTON"},
		{SlotIndex: 1, DriverID: model.UnusedDriverID},
	}
}

func TestIndex(t *testing.T) {
	Convey("Given a replay with a session and a roster", t, func() {
		ctx := context.Background()
		mem := repository.NewMemoryStore()
		mem.Add("monza",
			repository.Record{Kind: repository.KindSession, Timestamp: 0, Session: &model.SessionInfo{TrackID: 11, Weather: 1}},
			repository.Record{Kind: repository.KindSession, Timestamp: 5, Session: &model.SessionInfo{TrackID: 99}},
			repository.Record{Kind: repository.KindParticipants, Timestamp: 1, Participants: roster()},
		)
		store := &countingStore{MemoryStore: mem}
		idx := session.New(store)

		Convey("When loading the session", func() {
			s, err := idx.Session(ctx, "monza")

			Convey("Then the first session record should be used", func() {
				So(err, ShouldBeNil)
				So(s.TrackID, ShouldEqual, 11)
			})
		})

		Convey("When loading the participants", func() {
			ps, err := idx.Participants(ctx, "monza")

			Convey("Then unused slots should be dropped and slot order kept", func() {
				So(err, ShouldBeNil)
				So(len(ps), ShouldEqual, 2)
				So(ps[0].SlotIndex, ShouldEqual, 0)
				So(ps[1].SlotIndex, ShouldEqual, 2)
			})
		})

		Convey("When many callers ask at once", func() {
			var wg sync.WaitGroup
			for i := 0; i < 32; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, _ = idx.Participants(ctx, "monza")
					_, _ = idx.Session(ctx, "monza")
				}()
			}
			wg.Wait()

			Convey("Then the store should be read once per kind", func() {
				So(store.reads.Load(), ShouldEqual, 2)
				So(idx.Len(), ShouldEqual, 1)
			})
		})

		Convey("When the cached roster is modified by a caller", func() {
			ps, _ := idx.Participants(ctx, "monza")
			ps[0].Name = "changed"
			again, _ := idx.Participants(ctx, "monza")

			Convey("Then the cache should be unaffected", func() {
				So(again[0].Name, ShouldEqual, "Lewis HAMILTON")
			})
		})

		Convey("When the replay is warmed", func() {
			So(idx.Warm(ctx, "monza"), ShouldBeNil)
			_, _ = idx.Participants(ctx, "monza")

			Convey("Then lookups should be served from the cache", func() {
				So(idx.Len(), ShouldEqual, 1)
				So(store.reads.Load(), ShouldEqual, 2)
			})
		})

		Convey("When the entry is forgotten", func() {
			_, _ = idx.Session(ctx, "monza")
			idx.Forget("monza")
			_, _ = idx.Session(ctx, "monza")

			Convey("Then the next lookup should reload", func() {
				So(store.reads.Load(), ShouldEqual, 4)
			})
		})
	})

	Convey("Given a replay without static records", t, func() {
		ctx := context.Background()
		mem := repository.NewMemoryStore()
		mem.Create("bare")
		mem.AddMalformed("bare", repository.KindParticipants, 1)
		idx := session.New(mem)

		Convey("Then both lookups should report unavailable", func() {
			_, err := idx.Session(ctx, "bare")
			So(errors.Is(err, session.ErrUnavailable), ShouldBeTrue)
			_, err = idx.Participants(ctx, "bare")
			So(errors.Is(err, session.ErrUnavailable), ShouldBeTrue)
			So(idx.Len(), ShouldEqual, 1)
		})
	})

	Convey("Given an unknown replay", t, func() {
		idx := session.New(repository.NewMemoryStore())

		Convey("Then not found should be returned and nothing cached", func() {
			_, err := idx.Session(context.Background(), "nope")
			So(errors.Is(err, repository.ErrReplayNotFound), ShouldBeTrue)
			So(errors.Is(idx.Warm(context.Background(), "nope"), repository.ErrReplayNotFound), ShouldBeTrue)
			So(idx.Len(), ShouldEqual, 0)
		})
	})

	Convey("Given a first load whose caller gives up", t, func() {
		mem := repository.NewMemoryStore()
		mem.Add("monza", repository.Record{Kind: repository.KindSession, Session: &model.SessionInfo{TrackID: 11}})
		store := &gatedStore{MemoryStore: mem, entered: make(chan struct{}), release: make(chan struct{})}
		idx := session.New(store)

		first, cancel := context.WithCancel(context.Background())
		firstErr := make(chan error, 1)
		go func() {
			_, err := idx.Session(first, "monza")
			firstErr <- err
		}()
		<-store.entered

		secondErr := make(chan error, 1)
		go func() {
			s, err := idx.Session(context.Background(), "monza")
			if err == nil && s.TrackID != 11 {
				err = errors.New("wrong session")
			}
			secondErr <- err
		}()
		time.Sleep(10 * time.Millisecond)
		cancel()

		Convey("Then only that caller should see the cancellation", func() {
			So(errors.Is(<-firstErr, context.Canceled), ShouldBeTrue)
			close(store.release)
			So(<-secondErr, ShouldBeNil)
			So(idx.Len(), ShouldEqual, 1)
		})
	})

	Convey("Given a failing store", t, func() {
		boom := errors.New("disk gone")
		store := &countingStore{MemoryStore: repository.NewMemoryStore(), fail: boom}
		idx := session.New(store, session.WithLogger(logger.Nop()))

		Convey("Then the failure should surface unchanged and be retried later", func() {
			_, err := idx.Session(context.Background(), "any")
			So(errors.Is(err, boom), ShouldBeTrue)
			_, err = idx.Session(context.Background(), "any")
			So(errors.Is(err, boom), ShouldBeTrue)
			So(store.reads.Load(), ShouldEqual, 2)
		})
	})
}
