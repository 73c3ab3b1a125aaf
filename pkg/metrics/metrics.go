package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "explorer_init"

// Statement kinds
const (
	KindUpsert = "upsert"
	KindInsert = "insert"
	KindDelete = "delete"
	KindUpdate = "update"
	KindSelect = "select"
)

// Recorder counts what a run wrote to the explorer database
type Recorder struct {
	Rows       *prometheus.CounterVec
	Statements *prometheus.CounterVec
	Files      *prometheus.CounterVec
}

// NewRecorder registers the run counters on reg
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		Rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Rows sent to the explorer database, by table.",
		}, []string{"table"}),
		Statements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statements_total",
			Help:      "Statements issued against the explorer database, by table and kind.",
		}, []string{"table", "kind"}),
		Files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "Export and seed files read or written, by direction.",
		}, []string{"direction"}),
	}

	for _, c := range []prometheus.Collector{r.Rows, r.Statements, r.Files} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return r, nil
}

// Statement records one statement of kind against table touching n rows
func (r *Recorder) Statement(table, kind string, n int) {
	if r == nil {
		return
	}
	r.Statements.WithLabelValues(table, kind).Inc()
	if kind != KindDelete && kind != KindSelect {
		r.Rows.WithLabelValues(table).Add(float64(n))
	}
}

// File records one file read ("read") or written ("write")
func (r *Recorder) File(direction string) {
	if r == nil {
		return
	}
	r.Files.WithLabelValues(direction).Inc()
}

// WriteTextfile dumps everything gathered by g for the node_exporter textfile collector
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
