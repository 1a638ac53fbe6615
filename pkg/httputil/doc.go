// Package httputil provides the HTTP plumbing used to fetch remote
// repository listings.
//
// # Overview
//
//   - [Client]: GET with default headers, response caching and retry
//   - [Retry]: retry with exponential backoff for transient failures
//
// # Caching
//
// [Client] stores response bodies in any [cache.Cache] (file, redis or
// null) under keys produced by a [cache.Keyer]:
//
//	c := httputil.NewClient(fileCache, "repo", time.Hour, nil)
//	body, err := c.Fetch(ctx, "https://mirror.example.com/repo.json", false)
//
// # Retry
//
// [Retry] only retries errors wrapped in [RetryableError]. [Client] wraps
// network failures and 5xx responses; 404 becomes [ErrNotFound] and other
// statuses fail immediately.
package httputil
