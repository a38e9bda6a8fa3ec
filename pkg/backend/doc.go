// Package backend defines the uniform backend client contract and the
// scatter-gather engine that fans one query out to many models.
//
// A backend client implements Querier: one blocking request/response call per
// model. Transport failures never escape a client as errors; every failure
// path is logged and mapped to the absent Result so that the engine and the
// callers above it never need to recover from a raised error crossing a
// concurrency boundary.
//
// The engine entry points (QueryMany, QueryManyStreaming, QueryStage) are
// generic over Querier, so every backend gets the exhaustive, streaming, and
// quorum/timeout collection modes for free.
package backend
