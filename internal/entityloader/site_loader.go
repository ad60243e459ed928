package entityloader

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/graph-gophers/dataloader"

	"github.com/rpattn/testbed-analytics/internal/query"
)

// SiteLoader batches site name lookups for slices within one request.
type SiteLoader struct {
	Loader *dataloader.Loader
}

// NewSiteLoader creates a loader resolving a slice id to the sorted, distinct
// names of the sites its slivers run on.
func NewSiteLoader(exec query.Executor) *SiteLoader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids := make([]int64, len(keys))
		for i, k := range keys {
			id, err := strconv.ParseInt(k.String(), 10, 64)
			if err != nil {
				return failAll(len(keys), fmt.Errorf("invalid slice id %q: %w", k.String(), err))
			}
			ids[i] = id
		}

		plan, err := query.ComposeSliceSites(ids)
		if err != nil {
			return failAll(len(keys), err)
		}
		rows, err := exec.Query(ctx, plan)
		if err != nil {
			return failAll(len(keys), err)
		}

		// Rows arrive ordered by (slice_id, site_name).
		sites := make(map[int64][]string, len(ids))
		for _, row := range rows {
			sliceID, ok := asInt64(row[query.LabelSliceID])
			if !ok {
				continue
			}
			name, ok := row[query.LabelSiteName].(string)
			if !ok {
				continue
			}
			sites[sliceID] = append(sites[sliceID], name)
		}

		results := make([]*dataloader.Result, len(keys))
		for i, id := range ids {
			names := sites[id]
			if names == nil {
				names = []string{}
			}
			results[i] = &dataloader.Result{Data: names}
		}
		return results
	}

	loader := dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(5*time.Millisecond))
	return &SiteLoader{Loader: loader}
}

// LoadMany resolves the site names of each slice, in the order of ids.
func (l *SiteLoader) LoadMany(ctx context.Context, ids []int64) ([][]string, error) {
	keys := make(dataloader.Keys, len(ids))
	for i, id := range ids {
		keys[i] = dataloader.StringKey(strconv.FormatInt(id, 10))
	}
	values, errs := l.Loader.LoadMany(ctx, keys)()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	out := make([][]string, len(values))
	for i, v := range values {
		names, _ := v.([]string)
		out[i] = names
	}
	return out, nil
}

func failAll(n int, err error) []*dataloader.Result {
	results := make([]*dataloader.Result, n)
	for i := range results {
		results[i] = &dataloader.Result{Error: err}
	}
	return results
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	}
	return 0, false
}

type ctxKey string

const siteLoaderKey ctxKey = "siteLoader"

// WithSiteLoader attaches a loader to ctx.
func WithSiteLoader(ctx context.Context, loader *SiteLoader) context.Context {
	return context.WithValue(ctx, siteLoaderKey, loader)
}

// SiteLoaderFromContext retrieves the request loader, if any.
func SiteLoaderFromContext(ctx context.Context) *SiteLoader {
	if l, ok := ctx.Value(siteLoaderKey).(*SiteLoader); ok {
		return l
	}
	return nil
}
