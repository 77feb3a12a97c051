package schedule

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/zsiec/syncgen/internal/marker"
	"github.com/zsiec/syncgen/internal/media"
)

// Renderable is a pattern whose distinct outputs can be generated ahead of
// multiplexing.
type Renderable interface {
	Flash(n int) (media.Frame, error)
	Codec() *marker.Codec
}

// Prerender generates every distinct flash image and tone burst the plan
// will need, one goroutine per pattern. A pattern repeats its outputs
// every marker.IndexModulo cycles, so at most that many are rendered.
// Multiplexing afterwards only reads memoized results.
func Prerender(ctx context.Context, patterns []Renderable, repeats int64) error {
	distinct := int(min(repeats, marker.IndexModulo))
	g, ctx := errgroup.WithContext(ctx)
	for pi, p := range patterns {
		g.Go(func() error {
			codec := p.Codec()
			for n := 0; n < distinct; n++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				if _, err := p.Flash(n); err != nil {
					return fmt.Errorf("schedule: prerender pattern %d index %d: %w", pi, n, err)
				}
				codec.Burst(n)
			}
			return nil
		})
	}
	return g.Wait()
}
