// Package metrics collects Prometheus counters for the HTTP layer and the
// messaging domain and exposes them for scraping.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what services, middleware and the worker report to.
type Recorder interface {
	RecordHTTPRequest(method string, status int)
	RecordLogin(success bool)
	RecordMessageSent()
	RecordMessageRead()
	RecordNotificationDelivered(eventType string)
}

type Collector struct {
	httpRequests  *prometheus.CounterVec
	logins        *prometheus.CounterVec
	messagesSent  prometheus.Counter
	messagesRead  prometheus.Counter
	notifications *prometheus.CounterVec
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "messagely_http_requests_total",
			Help: "HTTP requests by method and status code.",
		}, []string{"method", "status"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "messagely_logins_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "messagely_messages_sent_total",
			Help: "Messages created.",
		}),
		messagesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "messagely_messages_read_total",
			Help: "Messages moved from unread to read.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "messagely_notifications_delivered_total",
			Help: "Message events handed to the notifier, by event type.",
		}, []string{"type"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.logins,
		c.messagesSent,
		c.messagesRead,
		c.notifications,
	)
	return c
}

func (c *Collector) RecordHTTPRequest(method string, status int) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

func (c *Collector) RecordLogin(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.logins.WithLabelValues(result).Inc()
}

func (c *Collector) RecordMessageSent() {
	c.messagesSent.Inc()
}

func (c *Collector) RecordMessageRead() {
	c.messagesRead.Inc()
}

func (c *Collector) RecordNotificationDelivered(eventType string) {
	c.notifications.WithLabelValues(eventType).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

type nopRecorder struct{}

// Nop discards everything.
func Nop() Recorder { return nopRecorder{} }

func (nopRecorder) RecordHTTPRequest(string, int) {}
func (nopRecorder) RecordLogin(bool) {}
func (nopRecorder) RecordMessageSent() {}
func (nopRecorder) RecordMessageRead() {}
func (nopRecorder) RecordNotificationDelivered(string) {}
