// Package jobs contains the built-in handlers registered with the job
// orchestration engine. Each handler implements orchestrator.Handler for
// one job type: market-data collection, RAG opportunity scoring, batch
// fan-out, record enrichment, report generation, and the recurring
// maintenance update.
//
// Handlers are the only place a job may block; they observe cancellation
// and the per-job timeout through the context the dispatcher passes in.
// A handler that needs mutual exclusion must enforce it itself, since the
// engine deliberately allows two jobs of the same type to run at once.
package jobs
