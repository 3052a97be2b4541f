package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// commandsTotal counts inbound commands by kind
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sms_dispatch_commands_total",
		Help: "Inbound SMS commands by kind",
	}, []string{"command"})

	// rejectionsTotal counts commands answered with a rejection
	rejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sms_dispatch_rejections_total",
		Help: "Rejected SMS commands by command and reason",
	}, []string{"command", "reason"})

	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sms_dispatch_notifications_total",
		Help: "Outbound notifications by type and result",
	}, []string{"type", "result"})

	locationLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sms_dispatch_location_lookups_total",
		Help: "Location lookups by result",
	}, []string{"result"})

	pendingFollowUps = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sms_dispatch_pending_follow_ups",
		Help: "Follow-up notifications waiting on a location lookup",
	})
)
