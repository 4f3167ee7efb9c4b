// Package services holds the cross-cutting error taxonomy and context
// helpers shared by the orchestrator, store, and stage execution layers.
//
// Errors are tagged with sentinel markers at the point of failure and
// classified via Details wherever status transitions or log records need to
// distinguish a timeout from a stage failure from an operator stop.
package services
