package voting

import "github.com/prometheus/client_golang/prometheus"

var (
	revenueMtc = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feemill_voting_revenue",
			Help: "Revenue notifications by destination",
		},
		[]string{"destination"},
	)
	distributeMtc = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "feemill_voting_distributions",
			Help: "Strategy distributions that moved funds",
		},
	)
)

func init() {
	prometheus.MustRegister(revenueMtc, distributeMtc)
}
