// Package metrics holds the Prometheus collectors of the share core.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ShareValidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "posevault",
		Name:      "share_validations_total",
		Help:      "Share token validations by result code.",
	}, []string{"result"})

	ViewerUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "posevault",
		Name:      "viewer_uploads_total",
		Help:      "Viewer upload attempts by result code.",
	}, []string{"result"})

	UploadCompensations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "posevault",
		Name:      "upload_compensations_total",
		Help:      "Orphan object deletions after a failed upload insert.",
	}, []string{"result"})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "posevault",
		Name:      "notifications_total",
		Help:      "Notification dispatch outcomes by type.",
	}, []string{"type", "outcome"})

	SweepDeactivated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "posevault",
		Name:      "sweep_deactivated_total",
		Help:      "Shares deactivated by the expiry sweep.",
	})
)

// Handler exposes the default registry.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
