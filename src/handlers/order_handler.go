package handlers

import (
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"matchbook/src/config"
	"matchbook/src/engine"
	"matchbook/src/models"
	"matchbook/src/publisher"
)

type OrderHandler struct {
	Loop      *engine.Loop
	Publisher *publisher.Publisher // nil when Kafka is off
	StartTime time.Time

	OrdersMatched atomic.Uint64

	defaultDepth int
	maxDepth     int
	latencies    *latencyWindow
}

func NewOrderHandler(loop *engine.Loop, pub *publisher.Publisher, cfg *config.Config) *OrderHandler {
	return &OrderHandler{
		Loop:         loop,
		Publisher:    pub,
		StartTime:    time.Now(),
		defaultDepth: cfg.OrderBook.DefaultDepth,
		maxDepth:     cfg.OrderBook.MaxDepth,
		latencies:    newLatencyWindow(cfg.Metrics.MaxLatencies),
	}
}

func (h *OrderHandler) SubmitOrder(c *fiber.Ctx) error {
	var req models.SubmitOrderRequest

	if err := c.BodyParser(&req); err != nil {
		log.Warn().
			Err(err).
			Str("ip", c.IP()).
			Str("path", c.Path()).
			Msg("Invalid request: malformed JSON")
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: "Invalid request: malformed JSON",
		})
	}

	if err := validateSubmitOrderRequest(&req); err != nil {
		log.Warn().
			Err(err).
			Str("symbol", req.Symbol).
			Str("side", req.Side).
			Str("ip", c.IP()).
			Msg("Invalid order request")
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: err.Error(),
		})
	}

	if req.OrderID == "" {
		req.OrderID = uuid.New().String()
	}

	order := engine.NewOrder{
		OrderID:  req.OrderID,
		Side:     engine.ParseSide(req.Side),
		Symbol:   req.Symbol,
		Quantity: engine.Quantity(req.Quantity),
		Price:    engine.Price(req.Price),
	}

	log.Info().
		Str("order_id", req.OrderID).
		Str("symbol", req.Symbol).
		Str("side", req.Side).
		Uint64("price", req.Price).
		Uint64("quantity", req.Quantity).
		Str("ip", c.IP()).
		Msg("Order submitted")

	start := time.Now()
	result, err := h.Loop.Submit(c.UserContext(), order)
	h.latencies.record(time.Since(start))

	if err != nil {
		return h.submitError(c, req, err)
	}

	trades := make([]models.TradeInfo, 0, len(result.Trades))
	for _, t := range result.Trades {
		trades = append(trades, models.TradeInfo{
			Symbol:        t.Symbol,
			OrderID:       t.OrderID,
			ContraOrderID: t.ContraOrderID,
			Price:         uint64(t.Price),
			Quantity:      uint64(t.Quantity),
		})
	}

	response := models.SubmitOrderResponse{
		OrderID:           req.OrderID,
		Sequence:          result.Sequence,
		Status:            string(result.Status),
		FilledQuantity:    uint64(result.Filled),
		RemainingQuantity: uint64(result.Remaining),
		Trades:            trades,
	}

	log.Info().
		Str("order_id", req.OrderID).
		Uint64("sequence", result.Sequence).
		Str("status", string(result.Status)).
		Uint64("filled_quantity", uint64(result.Filled)).
		Uint64("remaining_quantity", uint64(result.Remaining)).
		Int("trades_count", len(trades)).
		Msg("Order processed")

	switch result.Status {
	case engine.StatusAccepted:
		response.Message = "Order added to book"
		return c.Status(fiber.StatusCreated).JSON(response)
	case engine.StatusPartialFill:
		h.OrdersMatched.Add(1)
		return c.Status(fiber.StatusAccepted).JSON(response)
	default:
		h.OrdersMatched.Add(1)
		return c.Status(fiber.StatusOK).JSON(response)
	}
}

func (h *OrderHandler) submitError(c *fiber.Ctx, req models.SubmitOrderRequest, err error) error {
	switch {
	case errors.Is(err, engine.ErrUnknownSide):
		log.Warn().
			Err(err).
			Str("order_id", req.OrderID).
			Msg("Order rejected by engine")
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: "Invalid order: side must be BUY or SELL",
		})
	case errors.Is(err, engine.ErrLoopStopped):
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
			Error: "Engine is shutting down",
		})
	}
	log.Error().
		Err(err).
		Str("order_id", req.OrderID).
		Str("symbol", req.Symbol).
		Msg("Error matching order")
	return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
		Error: "Internal server error",
	})
}

// DumpOrders lists every resting order across all books.
func (h *OrderHandler) DumpOrders(c *fiber.Ctx) error {
	views, err := h.Loop.Dump(c.UserContext())
	if err != nil {
		return h.readError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(models.OrdersResponse{
		Timestamp: time.Now().UnixMilli(),
		Orders:    orderInfos(views),
	})
}

func (h *OrderHandler) GetOrderBook(c *fiber.Ctx) error {
	symbol := c.Params("symbol")

	depth, err := strconv.Atoi(c.Query("depth"))
	if err != nil || depth <= 0 {
		depth = h.defaultDepth
	}
	// edge case: enforce maximum depth limit
	depth = min(depth, h.maxDepth)

	snap, err := h.Loop.Book(c.UserContext(), symbol, depth)
	if err != nil {
		return h.readError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(models.OrderBookResponse{
		Symbol:    symbol,
		Timestamp: time.Now().UnixMilli(),
		Bids:      levelInfos(snap.Bids),
		Asks:      levelInfos(snap.Asks),
		Orders:    orderInfos(snap.Orders),
	})
}

func (h *OrderHandler) HealthCheck(c *fiber.Ctx) error {
	stats, err := h.Loop.Stats(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.HealthResponse{
			Status:        "unhealthy",
			UptimeSeconds: int64(time.Since(h.StartTime).Seconds()),
		})
	}

	return c.Status(fiber.StatusOK).JSON(models.HealthResponse{
		Status:          "healthy",
		UptimeSeconds:   int64(time.Since(h.StartTime).Seconds()),
		OrdersProcessed: stats.Sequence,
	})
}

func (h *OrderHandler) Metrics(c *fiber.Ctx) error {
	stats, err := h.Loop.Stats(c.UserContext())
	if err != nil {
		return h.readError(c, err)
	}

	p50, p99, p999 := h.latencies.percentiles()

	resp := models.MetricsResponse{
		OrdersReceived:         stats.OrdersReceived,
		OrdersRejected:         stats.OrdersRejected,
		OrdersMatched:          h.OrdersMatched.Load(),
		OrdersInBook:           stats.RestingOrders,
		Books:                  stats.Books,
		TradesExecuted:         stats.TradesExecuted,
		LatencyP50Ms:           p50,
		LatencyP99Ms:           p99,
		LatencyP999Ms:          p999,
		ThroughputOrdersPerSec: h.throughput(stats.OrdersReceived),
	}
	if h.Publisher != nil {
		ps := h.Publisher.Stats()
		resp.TradesPublished = ps.Published
		resp.TradesDropped = ps.Dropped
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

func (h *OrderHandler) readError(c *fiber.Ctx, err error) error {
	if errors.Is(err, engine.ErrLoopStopped) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
			Error: "Engine is shutting down",
		})
	}
	log.Error().Err(err).Str("path", c.Path()).Msg("Engine query failed")
	return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
		Error: "Internal server error",
	})
}

func (h *OrderHandler) throughput(received uint64) float64 {
	uptime := time.Since(h.StartTime).Seconds()
	if uptime <= 0 {
		return 0
	}
	return float64(received) / uptime
}

func orderInfos(views []engine.OrderView) []models.OrderInfo {
	out := make([]models.OrderInfo, 0, len(views))
	for _, v := range views {
		out = append(out, models.OrderInfo{
			Sequence: v.Sequence,
			OrderID:  v.OrderID,
			Side:     v.Side.String(),
			Symbol:   v.Symbol,
			Quantity: uint64(v.Quantity),
			Price:    uint64(v.Price),
		})
	}
	return out
}

func levelInfos(levels []engine.Level) []models.PriceLevelInfo {
	out := make([]models.PriceLevelInfo, 0, len(levels))
	for _, l := range levels {
		out = append(out, models.PriceLevelInfo{
			Price:    uint64(l.Price),
			Quantity: uint64(l.Quantity),
			Orders:   l.Orders,
		})
	}
	return out
}

func validateSubmitOrderRequest(req *models.SubmitOrderRequest) error {
	if req.Symbol == "" {
		return &ValidationError{Message: "Invalid order: symbol is required"}
	}

	if req.Side != "BUY" && req.Side != "SELL" {
		return &ValidationError{Message: "Invalid order: side must be BUY or SELL"}
	}

	if req.Quantity == 0 {
		return &ValidationError{Message: "Invalid order: quantity must be positive"}
	}

	return nil
}

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
