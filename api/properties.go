package api

import (
	"context"
	"net/http"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/propscout/propscout/enrichment"
	"github.com/propscout/propscout/errors"
)

// Search lists properties matching params.
func (u *UserClient) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	var res SearchResult
	err := u.do(ctx, call{
		op:     "search properties",
		method: http.MethodGet,
		path:   "/properties/search",
		query:  params.Values(),
		out:    &res,
	})
	if err != nil {
		return nil, err
	}
	if res.Properties == nil {
		res.Properties = []Property{}
	}
	return &res, nil
}

// Property fetches one property.
func (u *UserClient) Property(ctx context.Context, id int64) (*Property, error) {
	if id <= 0 {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "invalid property id %d", id)
	}
	var p Property
	err := u.do(ctx, call{
		op:     "get property " + strconv.FormatInt(id, 10),
		method: http.MethodGet,
		path:   "/properties/" + strconv.FormatInt(id, 10),
		out:    &p,
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Enrich runs the backend's enrichment providers for a property. Provider
// failures are reported inside the response, not as an error.
func (u *UserClient) Enrich(ctx context.Context, id int64, req EnrichRequest) (*enrichment.Response, error) {
	if id <= 0 {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "invalid property id %d", id)
	}
	var resp enrichment.Response
	err := u.do(ctx, call{
		op:     "enrich property " + strconv.FormatInt(id, 10),
		method: http.MethodPost,
		path:   "/properties/" + strconv.FormatInt(id, 10) + "/enrich",
		body:   req,
		out:    &resp,
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// maxConcurrentFetches bounds Properties' parallel requests.
const maxConcurrentFetches = 4

// Properties fetches several properties concurrently and returns them in the
// order of ids. The first failure cancels the rest.
func (u *UserClient) Properties(ctx context.Context, ids []int64) ([]Property, error) {
	out := make([]Property, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for i, id := range ids {
		g.Go(func() error {
			p, err := u.Property(ctx, id)
			if err != nil {
				return err
			}
			out[i] = *p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
