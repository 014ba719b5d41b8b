package api

import (
	"net/http"

	"github.com/NYTimes/gziphandler"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// Router is the route table for the API server.
type Router struct {
	*httprouter.Router
}

// NewRouter wires every endpoint against h. The metrics exposition route is
// only registered when a metrics registry is present.
func NewRouter(h *Handler) *Router {
	r := &Router{Router: httprouter.New()}

	r.POST("/scrape", h.Scrape)
	r.GET("/", h.Index)
	r.GET("/status", h.Status)
	r.GET("/dashboard", h.Dashboard)
	if h.Metrics != nil {
		r.Handler(http.MethodGet, "/metrics", promhttp.HandlerFor(h.Metrics.Registry, promhttp.HandlerOpts{}))
	}

	return r
}

// NoCache stamps responses as uncacheable; scrape results are live data.
type NoCache struct {
	Handler http.Handler
}

func (m NoCache) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Add("Pragma", "no-cache")
	w.Header().Add("Expires", "0")
	m.Handler.ServeHTTP(w, r)
}

// SupportCORS allows any origin with credentials. The key header must be
// listed or browsers strip the API key from preflighted requests.
func SupportCORS(handler http.Handler, keyHeader string) http.Handler {
	c := cors.New(cors.Options{
		AllowCredentials: true,
		AllowOriginFunc: func(string) bool {
			return true
		},
		AllowedHeaders: []string{"Origin", "X-Requested-With", "Content-Type", "Accept", keyHeader},
	})
	return c.Handler(handler)
}

// Wrap applies the shared middleware stack around the route table.
func Wrap(handler http.Handler, keyHeader string, enableGzip bool) http.Handler {
	var wrapped http.Handler = NoCache{Handler: handler}
	if enableGzip {
		wrapped = gziphandler.GzipHandler(wrapped)
	}
	return SupportCORS(wrapped, keyHeader)
}
