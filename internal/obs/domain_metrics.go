package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// OrdersCreatedTotal counts submitted orders by payment method.
	OrdersCreatedTotal *prometheus.CounterVec
	// PaymentsRecordedTotal counts follow-up payments by method.
	PaymentsRecordedTotal *prometheus.CounterVec
	// OrderStatusTotal counts order status transitions.
	OrderStatusTotal *prometheus.CounterVec
	// DisplayPublishTotal counts customer display publishes by state.
	DisplayPublishTotal *prometheus.CounterVec
	// UploadFilesTotal counts stored customer artwork files.
	UploadFilesTotal prometheus.Counter
	// UploadBytesTotal accumulates stored artwork bytes.
	UploadBytesTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers shop-level Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		OrdersCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Count of orders submitted at the counter by payment method.",
		}, []string{"payment"})
		PaymentsRecordedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_recorded_total",
			Help:      "Count of follow-up payments recorded against open orders.",
		}, []string{"method"})
		OrderStatusTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_status_total",
			Help:      "Count of order status transitions.",
		}, []string{"status"})
		DisplayPublishTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "display_publish_total",
			Help:      "Count of snapshots pushed to the customer display channel.",
		}, []string{"state"})
		UploadFilesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_files_total",
			Help:      "Count of customer artwork files stored.",
		})
		UploadBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_bytes_total",
			Help:      "Total bytes of customer artwork stored.",
		})

		mustRegisterCollector(reg, OrdersCreatedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OrdersCreatedTotal = v
			}
		})
		mustRegisterCollector(reg, PaymentsRecordedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PaymentsRecordedTotal = v
			}
		})
		mustRegisterCollector(reg, OrderStatusTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OrderStatusTotal = v
			}
		})
		mustRegisterCollector(reg, DisplayPublishTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				DisplayPublishTotal = v
			}
		})
		mustRegisterCollector(reg, UploadFilesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				UploadFilesTotal = v
			}
		})
		mustRegisterCollector(reg, UploadBytesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				UploadBytesTotal = v
			}
		})
	})
}

// IncOrderCreated bumps the order creation counter. Safe to call before registration.
func IncOrderCreated(payment string) {
	if OrdersCreatedTotal != nil {
		OrdersCreatedTotal.WithLabelValues(payment).Inc()
	}
}

// IncPaymentRecorded bumps the follow-up payment counter.
func IncPaymentRecorded(method string) {
	if PaymentsRecordedTotal != nil {
		PaymentsRecordedTotal.WithLabelValues(method).Inc()
	}
}

// IncOrderStatus bumps the status transition counter.
func IncOrderStatus(status string) {
	if OrderStatusTotal != nil {
		OrderStatusTotal.WithLabelValues(status).Inc()
	}
}

// IncDisplayPublish bumps the display publish counter.
func IncDisplayPublish(state string) {
	if DisplayPublishTotal != nil {
		DisplayPublishTotal.WithLabelValues(state).Inc()
	}
}

// AddUploadStored records one stored artwork file of the given size.
func AddUploadStored(sizeBytes int64) {
	if UploadFilesTotal != nil {
		UploadFilesTotal.Inc()
	}
	if UploadBytesTotal != nil && sizeBytes > 0 {
		UploadBytesTotal.Add(float64(sizeBytes))
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
