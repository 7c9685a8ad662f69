package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PingCollector struct {
	reachable *prometheus.GaugeVec
}

func NewPingCollector(registerer prometheus.Registerer) *PingCollector {
	pc := &PingCollector{
		reachable: promauto.With(registerer).NewGaugeVec(prometheus.GaugeOpts{
			Name:      "node_reachable",
			Namespace: namespaceFleet,
			Subsystem: subsystemRPC,
			Help:      "round trip time of the last connectivity check in milliseconds, -1 if the node was unreachable",
		}, []string{LabelEndpoint}),
	}
	return pc
}

func (pc *PingCollector) NodeReachable(endpoint string, rtt time.Duration) {
	var rttValue float64
	if rtt > 0 {
		rttValue = float64(rtt.Milliseconds())
	} else {
		rttValue = -1
	}

	pc.reachable.With(prometheus.Labels{LabelEndpoint: endpoint}).Set(rttValue)
}
