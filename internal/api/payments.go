package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/steemit/birthday-payments/internal/models"
	"github.com/steemit/birthday-payments/internal/payments"
)

// PaymentHandler serves the /api/payments endpoints
type PaymentHandler struct {
	service     *payments.Service
	development bool
	logger      *zap.Logger
}

// NewPaymentHandler creates a payment handler
func NewPaymentHandler(service *payments.Service, development bool, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service:     service,
		development: development,
		logger:      logger,
	}
}

// List handles GET /api/payments
func (h *PaymentHandler) List(c *gin.Context) {
	res, err := h.service.List(c.Request.Context(), payments.ListParams{
		Page:     queryInt(c, "page"),
		Limit:    queryInt(c, "limit"),
		Status:   c.Query("status"),
		Method:   c.Query("method"),
		Currency: c.Query("currency"),
	})
	if err != nil {
		h.fail(c, err, "Error fetching payments")
		return
	}

	data := res.Payments
	if data == nil {
		data = []models.Payment{}
	}

	c.JSON(http.StatusOK, Response{
		Success:    true,
		Data:       data,
		Pagination: &res.Pagination,
	})
}

// Get handles GET /api/payments/:id
func (h *PaymentHandler) Get(c *gin.Context) {
	payment, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Error fetching payment")
		return
	}
	sendData(c, http.StatusOK, payment, "")
}

// Create handles POST /api/payments
func (h *PaymentHandler) Create(c *gin.Context) {
	var in payments.CreateInput
	if err := bindJSON(c, &in); err != nil {
		h.fail(c, err, "Error creating payment")
		return
	}

	payment, err := h.service.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err, "Error creating payment")
		return
	}
	sendData(c, http.StatusCreated, payment, "Payment record created successfully")
}

// Update handles PUT /api/payments/:id
func (h *PaymentHandler) Update(c *gin.Context) {
	var in payments.UpdateInput
	if err := bindJSON(c, &in); err != nil {
		h.fail(c, err, "Error updating payment")
		return
	}

	payment, err := h.service.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.fail(c, err, "Error updating payment")
		return
	}
	sendData(c, http.StatusOK, payment, "Payment updated successfully")
}

// Delete handles DELETE /api/payments/:id
func (h *PaymentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err, "Error deleting payment")
		return
	}
	sendMessage(c, http.StatusOK, "Payment deleted successfully")
}

// Summary handles GET /api/payments/stats/summary
func (h *PaymentHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Error fetching statistics")
		return
	}
	sendData(c, http.StatusOK, summary, "")
}

func (h *PaymentHandler) fail(c *gin.Context, err error, fallback string) {
	apiErr := toError(err, fallback)
	if apiErr.Code >= http.StatusInternalServerError {
		requestLogger(c, h.logger).Error(fallback, zap.Error(err))
	}
	sendError(c, apiErr, h.development)
}

// bindJSON decodes the request body into obj. An empty body decodes to the
// zero value so that field rules report what is missing.
func bindJSON(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return bindError(err)
	}
	return nil
}

// queryInt returns the query parameter as a base-10 integer, or 0 when it is
// absent or malformed
func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}
