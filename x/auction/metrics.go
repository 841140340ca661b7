package auction

import "github.com/prometheus/client_golang/prometheus"

var (
	purchaseMtc = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feemill_auction_purchases",
			Help: "Completed auction purchases",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(purchaseMtc)
}
