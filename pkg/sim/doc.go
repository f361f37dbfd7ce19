// Package sim runs discrete-event simulations of M/M/c queues and
// produces the empirical counterparts of the analytical metrics in
// pkg/mmc.
//
// # Reading Guide
//
//   - event.go: the event calendar and its strict total order
//     (timestamp, then kind with arrivals before completions, then a
//     sequence counter)
//   - fifo.go: the ring-buffer queue customers wait in
//   - simulator.go: Config, the event loop, and Result
//   - stats.go: warm-up-aware sample and time-average accumulation
//   - replicate.go: parallel independent replications with
//     confidence intervals
//
// # Model
//
// One run owns a single FIFO queue feeding c identical servers.
// Interarrival and service times are exponential draws from one seeded
// PCG stream, so a run is a pure function of its Config: same seed,
// same event order, same Result. The event loop itself is
// single-threaded because event order is causal; parallelism lives one
// level up, across independent replications.
//
// Statistics ignore everything before the configured warm-up so the
// empty-system transient does not bias the steady-state estimates.
// Memory grows with the number of arrivals: arrival times are kept for
// wait accounting, post-warm-up waits for the percentiles, and, when
// tracing, a full per-customer record.
package sim
