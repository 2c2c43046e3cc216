// Package engine orchestrates datapackage and view executions: it resolves
// a named configuration or view to its container image, enforces resource
// preconditions for views, drives the executor and records each run in the
// history store. Execution is synchronous end to end; a call blocks until
// the underlying container terminates.
package engine
