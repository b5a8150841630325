package share

import "context"

// Job is one generation request. Done is called exactly once with the outcome.
type Job struct {
	ID      string
	Card    Card
	Options Options
	Done    func(Image, error)
}

// Run generates the job's image with r and reports it through Done.
func (j Job) Run(ctx context.Context, r Rasterizer) {
	img, err := GenerateImage(ctx, r, j.Card, j.Options)
	if j.Done != nil {
		j.Done(img, err)
	}
}

// Dispatcher schedules jobs. It returns false when the job was not accepted,
// in which case Done is never called.
type Dispatcher interface {
	Dispatch(ctx context.Context, job Job) bool
}

// InlineDispatcher runs each job on its own goroutine.
type InlineDispatcher struct {
	Rasterizer Rasterizer
}

func (d InlineDispatcher) Dispatch(ctx context.Context, job Job) bool {
	go job.Run(ctx, d.Rasterizer)
	return true
}
