package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names
const (
	MetricOrdersPlacedTotal   = "gridbot_orders_placed_total"
	MetricOrdersRejectedTotal = "gridbot_orders_rejected_total"
	MetricProfitRealizedTotal = "gridbot_profit_realized_total"
	MetricOpenOrders          = "gridbot_open_orders"
	MetricInventoryQty        = "gridbot_inventory_qty"
	MetricWsReconnectsTotal   = "gridbot_ws_reconnects_total"
	MetricTriggerState        = "gridbot_trigger_state"
)

// Trigger gauge values
const (
	TriggerGaugeNew int64 = iota
	TriggerGaugeBuy
	TriggerGaugeSell
)

// MetricsHolder holds initialized instruments
type MetricsHolder struct {
	OrdersPlacedTotal   metric.Int64Counter
	OrdersRejectedTotal metric.Int64Counter
	ProfitRealizedTotal metric.Float64Counter
	OpenOrders          metric.Int64ObservableGauge
	InventoryQty        metric.Float64ObservableGauge
	WsReconnectsTotal   metric.Int64Counter
	TriggerState        metric.Int64ObservableGauge

	// State for observable gauges
	mu              sync.RWMutex
	openOrdersMap   map[string]int64
	inventoryQtyMap map[string]float64
	triggerStateMap map[string]int64
}

var (
	globalMetrics *MetricsHolder
	initOnce      sync.Once
)

// GetGlobalMetrics returns the singleton metrics holder
func GetGlobalMetrics() *MetricsHolder {
	initOnce.Do(func() {
		globalMetrics = &MetricsHolder{
			openOrdersMap:   make(map[string]int64),
			inventoryQtyMap: make(map[string]float64),
			triggerStateMap: make(map[string]int64),
		}
		// Initialization of instruments happens in InitMetrics
	})
	return globalMetrics
}

// InitMetrics initializes instruments using the meter
func (m *MetricsHolder) InitMetrics(meter metric.Meter) error {
	var err error

	m.OrdersPlacedTotal, err = meter.Int64Counter(MetricOrdersPlacedTotal, metric.WithDescription("Total market orders accepted by the venue"))
	if err != nil {
		return err
	}

	m.OrdersRejectedTotal, err = meter.Int64Counter(MetricOrdersRejectedTotal, metric.WithDescription("Total order attempts refused locally or by the venue"))
	if err != nil {
		return err
	}

	m.ProfitRealizedTotal, err = meter.Float64Counter(MetricProfitRealizedTotal, metric.WithDescription("Cumulative realized profit in quote asset"))
	if err != nil {
		return err
	}

	m.WsReconnectsTotal, err = meter.Int64Counter(MetricWsReconnectsTotal, metric.WithDescription("Total websocket reconnect attempts"))
	if err != nil {
		return err
	}

	// Observables
	m.OpenOrders, err = meter.Int64ObservableGauge(MetricOpenOrders, metric.WithDescription("Open ladder orders per symbol"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			m.mu.RLock()
			defer m.mu.RUnlock()
			for sym, val := range m.openOrdersMap {
				obs.Observe(val, metric.WithAttributes(attribute.String("symbol", sym)))
			}
			return nil
		}))
	if err != nil {
		return err
	}

	m.InventoryQty, err = meter.Float64ObservableGauge(MetricInventoryQty, metric.WithDescription("Base-asset inventory held per symbol"),
		metric.WithFloat64Callback(func(ctx context.Context, obs metric.Float64Observer) error {
			m.mu.RLock()
			defer m.mu.RUnlock()
			for sym, val := range m.inventoryQtyMap {
				obs.Observe(val, metric.WithAttributes(attribute.String("symbol", sym)))
			}
			return nil
		}))
	if err != nil {
		return err
	}

	m.TriggerState, err = meter.Int64ObservableGauge(MetricTriggerState, metric.WithDescription("Indicator trigger per symbol (0=new, 1=buy, 2=sell)"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			m.mu.RLock()
			defer m.mu.RUnlock()
			for sym, val := range m.triggerStateMap {
				obs.Observe(val, metric.WithAttributes(attribute.String("symbol", sym)))
			}
			return nil
		}))
	if err != nil {
		return err
	}

	return nil
}

// Helpers to update instruments and observable state

func (m *MetricsHolder) IncOrdersPlaced(ctx context.Context, symbol, side string) {
	if m.OrdersPlacedTotal == nil {
		return
	}
	m.OrdersPlacedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("symbol", symbol),
		attribute.String("side", side),
	))
}

func (m *MetricsHolder) IncOrdersRejected(ctx context.Context, symbol, reason string) {
	if m.OrdersRejectedTotal == nil {
		return
	}
	m.OrdersRejectedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("symbol", symbol),
		attribute.String("reason", reason),
	))
}

func (m *MetricsHolder) AddProfitRealized(ctx context.Context, symbol string, value float64) {
	if m.ProfitRealizedTotal == nil {
		return
	}
	m.ProfitRealizedTotal.Add(ctx, value, metric.WithAttributes(attribute.String("symbol", symbol)))
}

func (m *MetricsHolder) IncWsReconnects(ctx context.Context, stream string) {
	if m.WsReconnectsTotal == nil {
		return
	}
	m.WsReconnectsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("stream", stream)))
}

func (m *MetricsHolder) SetOpenOrders(symbol string, count int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openOrdersMap[symbol] = count
}

func (m *MetricsHolder) SetInventoryQty(symbol string, qty float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inventoryQtyMap[symbol] = qty
}

func (m *MetricsHolder) SetTriggerState(symbol string, state int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggerStateMap[symbol] = state
}

// ForgetSymbol drops gauge state for a deleted symbol.
func (m *MetricsHolder) ForgetSymbol(symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.openOrdersMap, symbol)
	delete(m.inventoryQtyMap, symbol)
	delete(m.triggerStateMap, symbol)
}

func (m *MetricsHolder) GetOpenOrders() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make(map[string]int64)
	for k, v := range m.openOrdersMap {
		res[k] = v
	}
	return res
}

func (m *MetricsHolder) GetInventoryQty() map[string]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make(map[string]float64)
	for k, v := range m.inventoryQtyMap {
		res[k] = v
	}
	return res
}
