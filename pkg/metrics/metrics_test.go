package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	_ "github.com/Sternrassler/seo-insights/pkg/cache"
	_ "github.com/Sternrassler/seo-insights/pkg/client"
	_ "github.com/Sternrassler/seo-insights/pkg/credits"
	_ "github.com/Sternrassler/seo-insights/pkg/gated"
	"github.com/prometheus/client_golang/prometheus"
)

func TestRegistry(t *testing.T) {
	if Registry == nil {
		t.Error("Registry should not be nil")
	}

	if Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should be the default Prometheus registerer")
	}
}

func TestDocumentedMetricsRegistered(t *testing.T) {
	for _, name := range Names {
		dup := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: "duplicate"})
		if err := Registry.Register(dup); err == nil {
			Registry.Unregister(dup)
			t.Errorf("metric %s is documented but not registered", name)
		}
	}
}

func TestHandler(t *testing.T) {
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Error("Expected default Go collector output")
	}

	// A second handler must reuse the already registered handler metrics.
	w = httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(w.Body.String(), "promhttp_metric_handler_requests_total") {
		t.Error("Expected handler request counter")
	}
}
