package worker_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/bethegolf/internal/adapters/mq/queue"
	"github.com/okian/bethegolf/internal/adapters/mq/worker"
	"github.com/okian/bethegolf/internal/domain/share"
	"github.com/okian/bethegolf/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

type countingRasterizer struct {
	calls atomic.Int32
	err   error
	delay time.Duration
}

func (c *countingRasterizer) Name() string { return "counting" }

func (c *countingRasterizer) Rasterize(ctx context.Context, _ share.Card, o share.Options) (share.Raster, error) {
	c.calls.Add(1)
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return share.Raster{}, ctx.Err()
		}
	}
	if c.err != nil {
		return share.Raster{}, c.err
	}
	return share.Raster{Data: []byte(o.AspectRatio), Width: 1, Height: 1}, nil
}

type result struct {
	img share.Image
	err error
}

func collect(n int) (func(share.Image, error), func() []result) {
	var (
		mu  sync.Mutex
		out []result
		wg  sync.WaitGroup
	)
	wg.Add(n)
	done := func(img share.Image, err error) {
		mu.Lock()
		out = append(out, result{img, err})
		mu.Unlock()
		wg.Done()
	}
	wait := func() []result {
		wg.Wait()
		mu.Lock()
		defer mu.Unlock()
		return out
	}
	return done, wait
}

func TestPool(t *testing.T) {
	convey.Convey("Given a started pool", t, func() {
		ctx := context.Background()
		r := &countingRasterizer{}
		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		p := worker.NewPool(3, q, r)
		p.Start(ctx)
		defer func() { _ = p.Shutdown(ctx) }()

		convey.So(p.Size(), convey.ShouldEqual, 3)

		convey.Convey("When jobs are dispatched", func() {
			done, wait := collect(5)
			for i := 0; i < 5; i++ {
				ok := p.Dispatch(ctx, share.Job{ID: "j", Options: share.Options{AspectRatio: share.AspectLandscape}, Done: done})
				convey.So(ok, convey.ShouldBeTrue)
			}
			results := wait()

			convey.Convey("Then every job is rendered and reported once", func() {
				convey.So(results, convey.ShouldHaveLength, 5)
				for _, res := range results {
					convey.So(res.err, convey.ShouldBeNil)
					convey.So(string(res.img.Blob), convey.ShouldEqual, "landscape")
				}
				convey.So(r.calls.Load(), convey.ShouldEqual, 5)
			})
		})
	})

	convey.Convey("Given a rasterizer that fails", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue()
		p := worker.NewPool(1, q, &countingRasterizer{err: errors.New("no fonts")})
		p.Start(ctx)
		defer func() { _ = p.Shutdown(ctx) }()

		done, wait := collect(1)
		p.Dispatch(ctx, share.Job{ID: "j", Done: done})
		res := wait()

		convey.Convey("Then the failure reaches the job as a generation error", func() {
			convey.So(errors.Is(res[0].err, share.ErrGeneration), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given queued work at shutdown", t, func() {
		ctx := context.Background()
		r := &countingRasterizer{delay: 5 * time.Millisecond}
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		p := worker.NewPool(1, q, r)
		done, wait := collect(4)
		for i := 0; i < 4; i++ {
			convey.So(p.Dispatch(ctx, share.Job{ID: "j", Done: done}), convey.ShouldBeTrue)
		}
		p.Start(ctx)

		err := p.Shutdown(ctx)

		convey.Convey("Then queued jobs are drained before workers stop", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(wait(), convey.ShouldHaveLength, 4)
			convey.So(p.Dispatch(ctx, share.Job{ID: "late"}), convey.ShouldBeFalse)
		})
	})

	convey.Convey("Given a pool that never started", t, func() {
		p := worker.NewPool(2, queue.NewInMemoryQueue(), &countingRasterizer{})

		convey.Convey("Then shutdown returns at once", func() {
			convey.So(p.Shutdown(context.Background()), convey.ShouldBeNil)
		})
	})
}

func TestPool_AsModalDispatcher(t *testing.T) {
	convey.Convey("Given a modal backed by the pool", t, func() {
		ctx := context.Background()
		p := worker.NewPool(2, queue.NewInMemoryQueue(), &countingRasterizer{})
		p.Start(ctx)
		defer func() { _ = p.Shutdown(ctx) }()

		m := share.NewModal(share.Card{PersonaName: "The Grinder"}, p, share.WithModalLogger(logger.Nop()))
		convey.So(m.SetAspectRatio(ctx, share.AspectVertical), convey.ShouldBeNil)

		img, err := m.Wait(ctx)

		convey.Convey("Then the image comes back through the workers", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(img.AspectRatio, convey.ShouldEqual, share.AspectVertical)
			convey.So(m.Filename(), convey.ShouldEqual, "bethegolf-playing-style-the-grinder.png")
		})
	})
}
