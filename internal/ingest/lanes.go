package ingest

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/picshare/activity-service/internal/domain/activity"
)

type laneJob struct {
	fn   func(ctx context.Context) error
	done chan error
}

// LanePool serializes work per entity key without a global lock. A key is
// hashed to one of N lanes; each lane is a single goroutine draining its
// queue in order, so two events for the same (userId, imageId, type) can
// never be in flight at once while different keys run in parallel.
type LanePool struct {
	lanes  []chan laneJob
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewLanePool(n int) *LanePool {
	if n < 1 {
		n = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &LanePool{
		lanes:  make([]chan laneJob, n),
		ctx:    ctx,
		cancel: cancel,
	}

	for i := range p.lanes {
		ch := make(chan laneJob)
		p.lanes[i] = ch
		p.wg.Add(1)
		go p.run(ch)
	}

	return p
}

func (p *LanePool) run(jobs <-chan laneJob) {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case job := <-jobs:
			job.done <- job.fn(p.ctx)
		}
	}
}

func (p *LanePool) laneFor(key activity.Key) chan laneJob {
	h := fnv.New32a()
	h.Write([]byte(key.UserID))
	h.Write([]byte{0})
	h.Write([]byte(key.ImageID))
	h.Write([]byte{0})
	h.Write([]byte(key.ActivityType))
	return p.lanes[h.Sum32()%uint32(len(p.lanes))]
}

// Do runs fn on the lane owning key and waits for it to finish. It returns
// ctx.Err() if the caller's context or the pool is cancelled before the
// job completes.
func (p *LanePool) Do(ctx context.Context, key activity.Key, fn func(ctx context.Context) error) error {
	job := laneJob{fn: fn, done: make(chan error, 1)}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return p.ctx.Err()
	case p.laneFor(key) <- job:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-job.done:
		return err
	}
}

// Close stops accepting work and waits for the lane goroutines to exit.
// In-flight jobs observe the cancelled pool context.
func (p *LanePool) Close() {
	p.cancel()
	p.wg.Wait()
}
