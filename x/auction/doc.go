/*
Package auction implements a continuous Dutch auction per strategy. The
price decays linearly from the epoch's initial price to zero over the
epoch period. A purchase takes the strategy's whole accrued asset
balance, splits the payment between the strategy receiver and the
voters' reward stream, reseeds the price from the realized sale and
starts the next epoch.

An epoch never advances on its own. Once the period elapses the price
is pinned at zero until somebody buys, which may be for free.
*/
package auction
