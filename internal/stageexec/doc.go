// Package stageexec invokes the external executor for each pipeline stage,
// streams and classifies its output, and reconciles the artifacts it left in
// the job folder back into the job record.
package stageexec
