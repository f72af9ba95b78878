// Package checker is the host-facing API of the checking core.
//
// A Service ties together the result cache, the session dispatcher and the
// debouncer. Hosts construct one Service, keep it for the life of the process
// and close it on shutdown:
//
//	svc, err := checker.New(checker.Config{Logger: logger, Metrics: collector})
//	if err != nil {
//	    return err
//	}
//	defer svc.Close(ctx)
//
//	res := svc.CheckSync(ctx, "Their is a mistake here.")
//	for _, a := range res.Alerts {
//	    fmt.Println(a.FullMessage())
//	}
//
// # Caching
//
// Results are cached by text. The first request for a text decides how it is
// dispatched: async requests share the pooled sessions, sync requests run on a
// dedicated session while the caller blocks. Later requests for the same text,
// of either kind, wait on the task already cached. Failed results are evicted
// as soon as a caller sees them.
//
// # Debouncing
//
// CheckAsyncDebounced collapses rapid edits of the same document: only the
// text registered last for an identity is checked, once the identity has been
// quiet for the debounce interval.
package checker
