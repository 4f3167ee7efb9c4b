// Package orchestrator runs the single-worker pipeline: it polls the job
// store for pending work, executes missing stages through external
// executors, and settles every interruption deterministically. A timeout
// fails the job, an operator stop parks it paused, and a crash leaves a
// running record that startup reconciliation demotes back to pending.
package orchestrator
