/*
Package voting implements the strategy registry, epoch-gated vote
bookkeeping and the proportional revenue distributor.

Revenue accounting uses a single global index: every notification
advances the index by amount/totalWeight (fixed point), and each
strategy lazily catches up to the index whenever it is touched. This
keeps revenue ingestion O(1) regardless of how many strategies exist.

Strategy weight is owned here exclusively. The reward stream's virtual
balances mirror it on every vote and reset, and nothing else ever
writes them.
*/
package voting
