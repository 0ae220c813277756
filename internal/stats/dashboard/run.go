package dashboard

import (
	"context"
	"time"
)

// DefaultFrameInterval is the headless host frame rate.
const DefaultFrameInterval = 100 * time.Millisecond

// Run drives the panel as a headless host until ctx is done. Events are
// handled as soon as they are posted; sampling follows the frame ticker.
// pointerInside may be nil, which reads as the pointer being over the panel.
func (p *Panel) Run(ctx context.Context, frame time.Duration, pointerInside func() bool) error {
	if frame <= 0 {
		frame = DefaultFrameInterval
	}
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	inside := func() bool {
		if pointerInside == nil {
			return true
		}
		return pointerInside()
	}

	last := time.Now()
	p.Frame(ctx, 0, inside())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.inbox.Notify():
			p.Frame(ctx, 0, inside())
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			p.Frame(ctx, dt, inside())
		}
	}
}
