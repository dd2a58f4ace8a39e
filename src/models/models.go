package models

type SubmitOrderRequest struct {
	OrderID  string `json:"order_id"` // optional, assigned by the server when empty
	Symbol   string `json:"symbol"`
	Side     string `json:"side"`
	Price    uint64 `json:"price"` // limit price in ticks
	Quantity uint64 `json:"quantity"`
}

type SubmitOrderResponse struct {
	OrderID           string      `json:"order_id"`
	Sequence          uint64      `json:"sequence"`
	Status            string      `json:"status"`
	Message           string      `json:"message,omitempty"`
	FilledQuantity    uint64      `json:"filled_quantity"`
	RemainingQuantity uint64      `json:"remaining_quantity"`
	Trades            []TradeInfo `json:"trades"`
}

type TradeInfo struct {
	Symbol        string `json:"symbol"`
	OrderID       string `json:"order_id"`
	ContraOrderID string `json:"contra_order_id"`
	Price         uint64 `json:"price"`
	Quantity      uint64 `json:"quantity"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type OrderInfo struct {
	Sequence uint64 `json:"sequence"`
	OrderID  string `json:"order_id"`
	Side     string `json:"side"`
	Symbol   string `json:"symbol"`
	Quantity uint64 `json:"quantity"`
	Price    uint64 `json:"price"`
}

type OrdersResponse struct {
	Timestamp int64       `json:"timestamp"` // unix timestamp in milliseconds
	Orders    []OrderInfo `json:"orders"`
}

type OrderBookResponse struct {
	Symbol    string           `json:"symbol"`
	Timestamp int64            `json:"timestamp"` // unix timestamp in milliseconds
	Bids      []PriceLevelInfo `json:"bids"`      // sorted descending (highest first)
	Asks      []PriceLevelInfo `json:"asks"`      // sorted ascending (lowest first)
	Orders    []OrderInfo      `json:"orders"`    // asks then bids, arrival order
}

type PriceLevelInfo struct {
	Price    uint64 `json:"price"`
	Quantity uint64 `json:"quantity"` // aggregated quantity at this price
	Orders   int    `json:"orders"`
}

type HealthResponse struct {
	Status          string `json:"status"`
	UptimeSeconds   int64  `json:"uptime_seconds"`
	OrdersProcessed uint64 `json:"orders_processed"`
}

type MetricsResponse struct {
	OrdersReceived         uint64  `json:"orders_received"`
	OrdersRejected         uint64  `json:"orders_rejected"`
	OrdersMatched          uint64  `json:"orders_matched"`
	OrdersInBook           int     `json:"orders_in_book"`
	Books                  int     `json:"books"`
	TradesExecuted         uint64  `json:"trades_executed"`
	TradesPublished        uint64  `json:"trades_published"`
	TradesDropped          uint64  `json:"trades_dropped"`
	LatencyP50Ms           float64 `json:"latency_p50_ms"`
	LatencyP99Ms           float64 `json:"latency_p99_ms"`
	LatencyP999Ms          float64 `json:"latency_p999_ms"`
	ThroughputOrdersPerSec float64 `json:"throughput_orders_per_sec"`
}
