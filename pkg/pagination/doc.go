// Package pagination walks the paginated release-date listing of a title
// and aggregates its attribute labels.
//
// The API returns release dates in pages linked by an opaque cursor. A walk
// starts with an empty cursor, counts every record of every page and stops
// when a page reports no next page:
//
//	FETCHING(cursor) --page, hasNext--> pace --> FETCHING(endCursor)
//	FETCHING(cursor) --page, !hasNext--> DONE
//	FETCHING(cursor) --error--> FAILED(partial)
//
// Records without attributes count towards summary.BlankLabel; attribute
// texts are normalized with summary.Normalize.
//
// Example usage:
//
//	agg := pagination.NewAggregator(apiClient, cacheManager, pagination.DefaultConfig(), logger)
//	res := agg.Aggregate(ctx, "tt0371746")
//	fmt.Println(summary.Encode(res.Aggregate))
//
// Transient errors (5xx, 429, network) are retried per page with
// exponential backoff. Once retries are exhausted, or on a non-retryable
// error, the walk fails for that title only. Failed titles are not written
// to the cache unless Config.CacheFailedWalks is set.
package pagination
