package metrics

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bnb-chain/proof-relayer/logging"
)

var (
	ProcessedBlockGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "relayer_processed_block",
		Help: "Last block height whose order events have all been handled.",
	})

	ReconciledTimestampGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "relayer_reconciled_timestamp",
		Help: "Largest updatedOn of proof market orders reconciled so far, per order status.",
	}, []string{"status"})

	SubmittedOrdersCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relayer_submitted_orders_total",
		Help: "Chain orders forwarded to the proof market, by result.",
	}, []string{"result"})

	ClosedOrdersCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relayer_closed_orders_total",
		Help: "closeOrder attempts for completed proof market orders, by result.",
	}, []string{"result"})

	HandledEventsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relayer_handled_events_total",
		Help: "Endpoint events handled by the ingester, per event name.",
	}, []string{"event"})

	ChainStreamErrorsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relayer_chain_stream_errors_total",
		Help: "New-head stream failures that triggered a resubscription.",
	})

	MetricsItems = []prometheus.Collector{
		ProcessedBlockGauge,
		ReconciledTimestampGauge,
		SubmittedOrdersCounter,
		ClosedOrdersCounter,
		HandledEventsCounter,
		ChainStreamErrorsCounter,
	}
)

const (
	ResultSuccess       = "success"
	ResultFailed        = "failed"
	ResultSkipped       = "skipped"
	ResultAlreadyClosed = "already_closed"
)

type Metrics struct {
	httpAddress string
	registry    *prometheus.Registry
	httpServer  *http.Server
}

func NewMetrics(address string) *Metrics {
	return &Metrics{
		httpAddress: address,
		registry:    prometheus.NewRegistry(),
	}
}

func (m *Metrics) Start() {
	m.registry.MustRegister(MetricsItems...)
	go m.serve()
}

func (m *Metrics) Handler() http.Handler {
	router := mux.NewRouter()
	router.Path("/metrics").Handler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	return router
}

func (m *Metrics) serve() {
	m.httpServer = &http.Server{
		Addr:    m.httpAddress,
		Handler: m.Handler(),
	}
	if err := m.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logging.Logger.Errorf("failed to listen and serve metrics, err=%s", err.Error())
		panic(err)
	}
}
