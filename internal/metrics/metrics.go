// Package metrics exposes coordinator activity as Prometheus metrics.
package metrics

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cheildo/nexus-rendezvous/internal/matchmaking"
)

const namespace = "rendezvous"

// Collector implements matchmaking.Observer on top of Prometheus metrics.
type Collector struct {
	connected        prometheus.Counter
	disconnected     *prometheus.CounterVec
	registered       prometheus.Gauge
	probesDropped    *prometheus.CounterVec
	pairsDropped     *prometheus.CounterVec
	matches          prometheus.Counter
	deliveriesFailed prometheus.Counter
}

// NewCollector creates the metrics and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		connected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "players_connected_total",
			Help:      "Control connections that were issued an identity.",
		}),
		disconnected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "players_disconnected_total",
			Help:      "Players removed on disconnect, by their last state.",
		}, []string{"state"}),
		registered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "players_registered",
			Help:      "Players currently registered.",
		}),
		probesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_dropped_total",
			Help:      "Probe datagrams that did not name a registered player.",
		}, []string{"reason"}),
		pairsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pairs_dropped_total",
			Help:      "Dequeued pairs that could not be matched, by reason.",
		}, []string{"reason"}),
		matches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_total",
			Help:      "Pairs matched and notified.",
		}),
		deliveriesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_deliveries_failed_total",
			Help:      "Match lines that could not be written to a control connection.",
		}),
	}
	reg.MustRegister(c.connected, c.disconnected, c.registered, c.probesDropped, c.pairsDropped, c.matches, c.deliveriesFailed)
	return c
}

func (c *Collector) PlayerConnected(string) {
	c.connected.Inc()
	c.registered.Inc()
}

func (c *Collector) PlayerDisconnected(_ string, last matchmaking.State) {
	c.disconnected.WithLabelValues(last.String()).Inc()
	c.registered.Dec()
}

func (c *Collector) ProbeDropped(reason error) {
	c.probesDropped.WithLabelValues(reasonLabel(reason)).Inc()
}

func (c *Collector) PairDropped(pair matchmaking.DroppedPair) {
	c.pairsDropped.WithLabelValues(reasonLabel(pair.Reason)).Inc()
}

func (c *Collector) MatchFound(_ context.Context, m matchmaking.Match) {
	c.matches.Inc()
	for _, member := range []matchmaking.MatchMember{m.First, m.Second} {
		if !member.Delivered {
			c.deliveriesFailed.Inc()
		}
	}
}

func reasonLabel(reason error) string {
	switch {
	case errors.Is(reason, matchmaking.ErrUnknownPlayer):
		return "unknown_player"
	case errors.Is(reason, matchmaking.ErrCandidateVanished):
		return "candidate_vanished"
	case errors.Is(reason, matchmaking.ErrMissingAddress):
		return "missing_address"
	default:
		return "other"
	}
}
