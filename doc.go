/*
Package feemill defines the core contracts shared by all feemill
extensions: the key-value store interfaces with cache-wrap atomicity,
custody conditions and addresses, second-precision time values and the
configuration options container.

State-changing operations are executed through Atomic, which guarantees
that a failed call leaves no partial writes behind. Extensions live under
x/ and own their state exclusively: x/voting owns the strategy registry,
weights and the global revenue index, x/auction owns per-strategy dutch
auction state and revenue custody, x/stream owns the duration-based reward
streams, and x/router composes them into single-call flows.
*/
package feemill
