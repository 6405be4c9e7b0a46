// Package metrics объявляет метрики Prometheus сервиса учёта долгов.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "creditbook"

// LedgerEvents количество записанных событий книги по типу.
var LedgerEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "events_total",
	Help:      "Ledger events recorded, by type.",
}, []string{"type"})

// LedgerAmount сумма записанных событий в минимальных единицах по типу.
var LedgerAmount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "amount_minor_total",
	Help:      "Sum of recorded ledger amounts in minor currency units, by type.",
}, []string{"type"})

// PaymentsRejected количество оплат, отклонённых из-за превышения задолженности.
var PaymentsRejected = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "payments_rejected_total",
	Help:      "Payments rejected because they exceed the outstanding balance.",
})

// Notifications результат отправки уведомлений по каналу.
var Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "notify",
	Name:      "messages_total",
	Help:      "Notifications processed, by channel and result.",
}, []string{"channel", "result"})

// NotifyQueueDepth текущая длина очереди уведомлений.
var NotifyQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "notify",
	Name:      "queue_depth",
	Help:      "Notifications waiting to be sent.",
})

// RemindersSent количество напоминаний, отправленных заданием.
var RemindersSent = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "reminder",
	Name:      "sent_total",
	Help:      "Reminders sent by the reminder job, by kind.",
}, []string{"kind"})

// OTPVerifications результаты проверки одноразовых кодов.
var OTPVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "auth",
	Name:      "otp_verifications_total",
	Help:      "OTP verification attempts, by result.",
}, []string{"result"})
