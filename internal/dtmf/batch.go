// internal/dtmf/batch.go
package dtmf

import (
	"context"

	"github.com/ColonelBlimp/dtmf/internal/random"
	"github.com/sourcegraph/conc/pool"
)

// BatchItem is the outcome for one key of a batch. Err holds per-key
// failures such as ErrUnknownKey; they do not stop the rest of the batch.
type BatchItem struct {
	Index  int
	Seed   uint32
	Result Result
	Err    error
}

// DetectBatch runs Detect for every key on up to workers goroutines. Key i
// draws from its own Source seeded with random.Derive(seed, i), so results
// do not depend on scheduling. Items are returned in key order. Only context
// cancellation aborts the batch.
func (d *Detector) DetectBatch(ctx context.Context, keys []rune, seed uint32, workers int) ([]BatchItem, error) {
	if workers < 1 {
		workers = 1
	}

	items := make([]BatchItem, len(keys))
	p := pool.New().WithContext(ctx).WithMaxGoroutines(workers)
	for i, key := range keys {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s := random.Derive(seed, i)
			res, err := d.Detect(key, random.New(s))
			items[i] = BatchItem{Index: i, Seed: s, Result: res, Err: err}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
