/*
Package stream implements duration-based reward streaming to the weight
holders backing a strategy.

Every strategy owns one stream group. A stream exists per reward token
and spreads each notified reward amount linearly over a configured
duration. Accounts do not hold the streamed tokens directly; their
share is derived from a virtual balance that mirrors the vote weight
they committed to the strategy. Only the voting ledger writes those
virtual balances.

The accounting is accumulator based: rewardPerToken grows with time and
every balance touch checkpoints the account against it, so the cost of
an update is independent of the number of participants.
*/
package stream
