package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
)

// Metrics aggregates the settlement core's prometheus instruments.
type Metrics struct {
	scanCycles   *prometheus.CounterVec
	scanDuration *prometheus.HistogramVec
	transfers    *prometheus.CounterVec
	sweepJobs    *prometheus.CounterVec
	breakerState *prometheus.GaugeVec
	rpcCalls     *prometheus.HistogramVec
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		scanCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_scan_cycles_total",
			Help: "Scan cycles per chain by outcome",
		}, []string{"chain", "status"}),
		scanDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "settlement_scan_duration_seconds",
			Help:    "Duration of one scan cycle per chain",
			Buckets: prometheus.DefBuckets,
		}, []string{"chain"}),
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_transfers_observed_total",
			Help: "Decoded transfers handed to the matching engine",
		}, []string{"chain", "kind"}),
		sweepJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_sweep_jobs_total",
			Help: "Sweep queue job outcomes",
		}, []string{"result"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "settlement_circuit_breaker_state",
			Help: "Circuit breaker state per chain RPC (0 closed, 1 half-open, 2 open)",
		}, []string{"service"}),
		rpcCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "settlement_chain_rpc_duration_seconds",
			Help:    "Chain RPC call duration by method and outcome",
			Buckets: prometheus.DefBuckets,
		}, []string{"chain", "method", "status"}),
	}

	registerer.MustRegister(
		m.scanCycles,
		m.scanDuration,
		m.transfers,
		m.sweepJobs,
		m.breakerState,
		m.rpcCalls,
	)

	return m
}

func (m *Metrics) RecordScanCycle(chain string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.scanCycles.WithLabelValues(chain, status).Inc()
	m.scanDuration.WithLabelValues(chain).Observe(duration.Seconds())
}

func (m *Metrics) RecordTransfer(chain, kind string) {
	if m == nil {
		return
	}
	m.transfers.WithLabelValues(chain, kind).Inc()
}

func (m *Metrics) RecordSweepJob(result string) {
	if m == nil {
		return
	}
	m.sweepJobs.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordRPCCall(chain, method string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.rpcCalls.WithLabelValues(chain, method, status).Observe(duration.Seconds())
}

func (m *Metrics) UpdateCircuitBreakerState(service string, state gobreaker.State) {
	if m == nil {
		return
	}
	var v float64
	switch state {
	case gobreaker.StateClosed:
		v = 0
	case gobreaker.StateHalfOpen:
		v = 1
	case gobreaker.StateOpen:
		v = 2
	}
	m.breakerState.WithLabelValues(service).Set(v)
}
