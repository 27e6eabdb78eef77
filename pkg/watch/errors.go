package watch

import "errors"

// errAssertion is a placeholder cause for tests exercising the aggregator's
// fatal-assertion paths; production callers supply whatever error the
// decoder surfaced from the server.
var errAssertion = errors.New("watch: simulated errored target removal")
