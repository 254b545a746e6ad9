package httpdebug

import (
	"net/http"
	"time"

	"github.com/tduva/bulkcoord/internal/metrics"
)

// NewHandler wires the debug routes to a running coordinator and metrics
// recorder, mirroring the teacher's NewPipelineHandler: a hand-rolled mux
// over a narrow interface rather than a third routing dependency.
func NewHandler(debug CoordinatorDebug, recorder *metrics.Recorder) http.Handler {
	if debug == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "coordinator unavailable", http.StatusServiceUnavailable)
		})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/debug", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(debug.Debug()))
	})
	mux.HandleFunc("/debug.html", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		report, err := renderReport(time.Now(), debug.Debug(), debug.PendingRequests())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(report))
	})
	mux.Handle("/metrics", recorder.Handler())
	return mux
}
