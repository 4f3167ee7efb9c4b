// Package history records the footprint of completed jobs in a single SQLite
// file so the time estimator can blend real past durations into its model.
package history
