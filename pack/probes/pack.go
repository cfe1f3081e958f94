package probes

import (
	"context"
	"fmt"
	"net/url"

	"github.com/felixgeelhaar/querykit/domain/transport"
	"github.com/felixgeelhaar/querykit/interfaces/api"
)

const namespace = "probes"

// Mutation names registered with the invalidation router.
const (
	MutationCreate  = "probes.create"
	MutationExecute = "probes.execute"
)

// Prefix covers every cached probe entry.
func Prefix() api.Prefix {
	return api.NewPrefix(namespace)
}

// ListKey identifies the cached probe list.
func ListKey() api.Key {
	return api.NewKey(namespace, "list")
}

// ListPrefix covers the cached probe list only.
func ListPrefix() api.Prefix {
	return api.NewPrefix(namespace, "list")
}

// ResultsKey identifies one job's cached results for one timeframe.
func ResultsKey(jobID, timeframe string) api.Key {
	return api.NewKey(namespace, "results", jobID, timeframe)
}

// ResultsPrefix covers every cached results entry.
func ResultsPrefix() api.Prefix {
	return api.NewPrefix(namespace, "results")
}

// JobResultsPrefix covers one job's cached results across timeframes.
func JobResultsPrefix(jobID string) api.Prefix {
	return api.NewPrefix(namespace, "results", jobID)
}

// NewListQuery binds the probe list endpoint as a cached query.
func NewListQuery(c *api.Client, opts ...api.QueryOption) (*api.Query[List], error) {
	return api.NewQuery(c, ListKey(), func(ctx context.Context) (List, error) {
		return transport.Get[List](ctx, c.Transport(), "/probes/", nil)
	}, opts...)
}

// NewResultsQuery binds one job's results endpoint as a cached query.
// An empty timeframe reads the default window.
func NewResultsQuery(c *api.Client, jobID, timeframe string, opts ...api.QueryOption) (*api.Query[Results], error) {
	if jobID == "" {
		return nil, ErrEmptyJobID
	}
	if timeframe == "" {
		timeframe = Timeframe30D
	}
	if !ValidTimeframe(timeframe) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimeframe, timeframe)
	}
	tf := timeframe
	path := "/probes/" + url.PathEscape(jobID) + "/results"
	return api.NewQuery(c, ResultsKey(jobID, tf), func(ctx context.Context) (Results, error) {
		return transport.Get[Results](ctx, c.Transport(), path, map[string]string{"timeframe": tf})
	}, opts...)
}

// NewCreateMutation binds the probe scheduling endpoint. Requests are
// validated before they leave the client, and success invalidates every
// cached probe entry.
func NewCreateMutation(c *api.Client) (*api.Mutation[CreateRequest, Probe], error) {
	m, err := api.NewMutation(c, MutationCreate, func(ctx context.Context, req CreateRequest) (Probe, error) {
		if err := req.Validate(); err != nil {
			return Probe{}, err
		}
		return transport.Post[CreateRequest, Probe](ctx, c.Transport(), "/probes/create", req)
	})
	if err != nil {
		return nil, err
	}
	return m.WithInvalidates(Prefix()), nil
}

// NewExecuteMutation binds the immediate execution endpoint. Input is
// the probe job ID. Success invalidates every cached probe entry so the
// list and results windows re-fetch with the new run included.
func NewExecuteMutation(c *api.Client) (*api.Mutation[string, Results], error) {
	m, err := api.NewMutation(c, MutationExecute, func(ctx context.Context, jobID string) (Results, error) {
		if jobID == "" {
			return Results{}, ErrEmptyJobID
		}
		path := "/probes/" + url.PathEscape(jobID) + "/execute"
		return transport.Post[struct{}, Results](ctx, c.Transport(), path, struct{}{})
	})
	if err != nil {
		return nil, err
	}
	return m.WithInvalidates(Prefix()), nil
}
