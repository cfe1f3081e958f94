package api

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/querykit/domain/key"
	"github.com/felixgeelhaar/querykit/infrastructure/logging"
)

// Prefetch warms the cache for the given keys concurrently and waits
// until every fetch has settled. Keys must already have fetchers bound,
// either through Bind or through an enabled query unit. In-flight
// requests for the same keys are joined, not duplicated, and a key that
// is already fresh costs nothing.
//
// The first failure cancels the remaining waits and is returned; keys
// that settled before the failure stay cached.
func (c *Client) Prefetch(ctx context.Context, keys ...key.Key) error {
	if len(keys) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, k := range keys {
		g.Go(func() error {
			_, err := c.store.Fetch(gctx, k)
			return err
		})
	}
	err := g.Wait()

	evt := logging.Debug()
	if err != nil {
		evt = logging.Warn().Add(logging.ErrorField(err))
	}
	evt.Add(logging.Int("keys", len(keys))).
		Add(logging.Component("api")).
		Msg("prefetch settled")
	return err
}
