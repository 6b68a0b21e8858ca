// Package metrics exposes Prometheus instrumentation for the MAA core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TrackingTicks counts simulation ticks applied to the tracking store.
	TrackingTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "maa_tracking_ticks_total",
		Help: "Number of simulation ticks applied to the tracking store.",
	})

	// ChatRequests counts assistant exchanges by outcome.
	ChatRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maa_chat_requests_total",
		Help: "Number of assistant exchanges by outcome.",
	}, []string{"outcome"}) // ok, empty, error

	// LiveAudioFrames counts PCM frames moved over the live session.
	LiveAudioFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maa_live_audio_frames_total",
		Help: "Number of PCM frames sent to and received from the live session.",
	}, []string{"direction"}) // sent, received

	// PromoPolls counts Veo operation polls.
	PromoPolls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "maa_promo_polls_total",
		Help: "Number of Veo operation polls issued.",
	})
)

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
