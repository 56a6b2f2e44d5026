// Package fetch implements the per-URL retry state machine and the batch
// orchestrator of the proxyfetch service.
//
// A batch is split into one Runner sequence per URL. Each sequence walks the
// states Attempting(1..n) until it reaches Succeeded, FailedTerminal (a 4xx
// response), or FailedExhausted (the attempt budget is spent on timeouts,
// 5xx responses, or transport errors). Between attempts a fresh proxy is
// drawn from the pool and the user agent is re-rolled.
//
// Sequences run concurrently and write their Result into a slot indexed by
// input position, so Summary.Results always mirrors the request order.
package fetch
