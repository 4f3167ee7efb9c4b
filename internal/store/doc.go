// Package store persists jobs as one JSON record per job folder under the
// output root. The folder layout doubles as the artifact workspace, so a job
// and everything it produced live together and survive restarts.
package store
