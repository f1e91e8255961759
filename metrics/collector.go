package metrics

import (
	"time"

	"github.com/poiesic/crossmodal/core"
	"github.com/poiesic/crossmodal/ingestion"
	"github.com/poiesic/crossmodal/search"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "crossmodal"

// GraphStats is the read side of the relevance graph sampled at scrape time.
type GraphStats interface {
	NodeCount() int
	EdgeCount() int
}

// Collector records search and submission metrics.
type Collector struct {
	searchesTotal    *prometheus.CounterVec
	searchesInFlight prometheus.Gauge
	searchDuration   *prometheus.HistogramVec
	searchResults    prometheus.Histogram
	vectorCandidates prometheus.Histogram
	keywordHits      prometheus.Histogram
	expansionResults prometheus.Histogram
	submissionsTotal *prometheus.CounterVec
	submitDuration   *prometheus.HistogramVec
	registerer       prometheus.Registerer
	namespace        string
}

var (
	_ search.SearchMonitor    = (*Collector)(nil)
	_ ingestion.SubmitMonitor = (*Collector)(nil)
)

// NewCollector creates a collector registering its metrics with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	resultBuckets := []float64{0, 1, 2, 4, 8, 12, 24, 48, 96}

	return &Collector{
		searchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "searches_total",
				Help:      "Total number of searches by query modality and mode",
			},
			[]string{"modality", "mode"},
		),
		searchesInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "searches_in_flight",
				Help:      "Number of searches currently running",
			},
		),
		searchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_duration_seconds",
				Help:      "Search duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		searchResults: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_results",
				Help:      "Number of records returned per search",
				Buckets:   resultBuckets,
			},
		),
		vectorCandidates: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_vector_candidates",
				Help:      "Number of KNN candidates per search",
				Buckets:   resultBuckets,
			},
		),
		keywordHits: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_keyword_hits",
				Help:      "Number of exact keyword matches per hybrid search",
				Buckets:   resultBuckets,
			},
		),
		expansionResults: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_expansion_results",
				Help:      "Number of records after graph expansion",
				Buckets:   resultBuckets,
			},
		),
		submissionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "submissions_total",
				Help:      "Total number of submissions by modality and outcome",
			},
			[]string{"modality", "outcome"},
		),
		submitDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "submit_duration_seconds",
				Help:      "Submission duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"modality"},
		),
		registerer: reg,
		namespace:  namespace,
	}
}

// RegisterGraph exports the graph's node and edge counts, sampled on scrape.
func (c *Collector) RegisterGraph(g GraphStats) error {
	nodes := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: c.namespace,
			Name:      "graph_nodes",
			Help:      "Number of nodes in the relevance graph",
		},
		func() float64 { return float64(g.NodeCount()) },
	)
	edges := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: c.namespace,
			Name:      "graph_edges",
			Help:      "Number of edges in the relevance graph",
		},
		func() float64 { return float64(g.EdgeCount()) },
	)
	if err := c.registerer.Register(nodes); err != nil {
		return err
	}
	return c.registerer.Register(edges)
}

// Start implements search.SearchMonitor.
func (c *Collector) Start(_ string, modality core.Modality, mode search.Mode) {
	c.searchesTotal.WithLabelValues(modality.String(), string(mode)).Inc()
	c.searchesInFlight.Inc()
}

// AfterVectorSearch implements search.SearchMonitor.
func (c *Collector) AfterVectorSearch(candidates []core.Neighbor) {
	c.vectorCandidates.Observe(float64(len(candidates)))
}

// AfterKeywordSearch implements search.SearchMonitor.
func (c *Collector) AfterKeywordSearch(ids []core.ID) {
	c.keywordHits.Observe(float64(len(ids)))
}

// AfterRanking implements search.SearchMonitor.
func (c *Collector) AfterRanking(_ []core.Neighbor) {}

// AfterExpansion implements search.SearchMonitor.
func (c *Collector) AfterExpansion(results []core.Neighbor) {
	c.expansionResults.Observe(float64(len(results)))
}

// Finish implements search.SearchMonitor.
func (c *Collector) Finish(results []core.Neighbor, elapsed time.Duration, err error) {
	c.searchesInFlight.Dec()
	c.searchDuration.WithLabelValues(status(err)).Observe(elapsed.Seconds())
	if err == nil {
		c.searchResults.Observe(float64(len(results)))
	}
}

// Submitted implements ingestion.SubmitMonitor.
func (c *Collector) Submitted(modality core.Modality, created bool, elapsed time.Duration, err error) {
	outcome := "created"
	switch {
	case err != nil:
		outcome = "error"
	case !created:
		outcome = "duplicate"
	}
	c.submissionsTotal.WithLabelValues(modality.String(), outcome).Inc()
	c.submitDuration.WithLabelValues(modality.String()).Observe(elapsed.Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
