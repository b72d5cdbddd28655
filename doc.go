// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package sitepool runs a site-indexed simulation workload on a bounded pool
// of workers while keeping host memory under a ceiling.
//
// The sites to simulate are described by a [points.PointSet] and split into
// units by a [plan.Plan]: a node-level plan spreads sites over batch-queue
// nodes, and on each node a core-level plan spreads that node's slice over
// its processes. An [Executor] submits one task per core-level unit to its
// worker pool and gathers results a round at a time, one round being as many
// units as there are workers. After each round the results are handed to a
// [Sink] and host memory is sampled. When utilization reaches the configured
// limit, the sink flushes to durable storage, its accumulator is reset, and
// the worker pool is discarded and recreated so that memory held by the
// workers can be returned to the operating system. When the units run out,
// the last partial round is gathered and the sink is flushed one final time
// regardless of memory use, so no result is ever left only in memory.
//
// Any failed unit aborts the run. Nothing is retried: results flushed before
// the failure are durable, and the rest of the run must be repeated.
package sitepool
