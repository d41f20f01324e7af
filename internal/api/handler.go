package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"storefront-engine/internal/cart"
	"storefront-engine/internal/catalog"
	"storefront-engine/internal/checkout"
	"storefront-engine/internal/ledger"
	"storefront-engine/internal/models"
	"storefront-engine/internal/users"
	"storefront-engine/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	catalog  *catalog.Catalog
	carts    *cart.Store
	checkout *checkout.Service
	ledger   *ledger.Ledger
	users    *users.Service
}

// NewHandler creates a new HTTP handler
func NewHandler(cat *catalog.Catalog, carts *cart.Store, co *checkout.Service, led *ledger.Ledger, us *users.Service) *Handler {
	return &Handler{
		catalog:  cat,
		carts:    carts,
		checkout: co,
		ledger:   led,
		users:    us,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.getProduct)
		v1.GET("/categories", h.listCategories)

		v1.POST("/products", h.createProduct)
		v1.PUT("/products/:id", h.updateProduct)
		v1.DELETE("/products/:id", h.deleteProduct)

		v1.GET("/carts/:customerId", h.getCart)
		v1.POST("/carts/:customerId/items", h.addCartItem)
		v1.PUT("/carts/:customerId/items/:productId", h.updateCartItem)
		v1.DELETE("/carts/:customerId/items/:productId", h.removeCartItem)
		v1.DELETE("/carts/:customerId", h.clearCart)

		v1.POST("/carts/:customerId/checkout", h.checkoutCart)

		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/:id", h.getOrder)
		v1.GET("/customers/:customerId/orders", h.listCustomerOrders)
		v1.POST("/orders/:id/cancel", h.cancelOrder)
		v1.PUT("/orders/:id/status", h.updateOrderStatus)

		v1.POST("/users/register", h.registerCustomer)
		v1.POST("/users/login", h.login)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// statusFor maps domain failures to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidArgument), errors.Is(err, models.ErrEmptyCart):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrInsufficientStock), errors.Is(err, models.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

// requireAdmin verifies the X-User-ID header names an administrator.
func (h *Handler) requireAdmin(c *gin.Context) bool {
	if h.users.IsAdmin(c.GetHeader("X-User-ID")) {
		return true
	}
	c.JSON(http.StatusForbidden, gin.H{"error": "administrator access required"})
	return false
}

func (h *Handler) listProducts(c *gin.Context) {
	var result []models.Product

	switch {
	case c.Query("name") != "":
		result = h.catalog.SearchByName(c.Query("name"))
	case c.Query("category") != "":
		result = h.catalog.FilterByCategory(c.Query("category"))
	case c.Query("min_price") != "" || c.Query("max_price") != "":
		min, err := parsePrice(c.Query("min_price"), 0)
		if err != nil {
			fail(c, err)
			return
		}
		max, err := parsePrice(c.Query("max_price"), 1e12)
		if err != nil {
			fail(c, err)
			return
		}
		result = h.catalog.FilterByPriceRange(min, max)
	case c.Query("available") == "true":
		result = h.catalog.AvailableProducts()
	default:
		result = h.catalog.All()
	}

	c.JSON(http.StatusOK, gin.H{"products": result})
}

func parsePrice(raw string, fallback float64) (float64, error) {
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, models.ErrInvalidArgument
	}
	return v, nil
}

func (h *Handler) getProduct(c *gin.Context) {
	p, err := h.catalog.Get(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) listCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": h.catalog.Categories()})
}

type productRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Category    string  `json:"category"`
}

func (h *Handler) createProduct(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}

	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	p, err := h.catalog.Add(c.Request.Context(), models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) updateProduct(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}

	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	err := h.catalog.Update(c.Request.Context(), c.Param("id"), models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *Handler) deleteProduct(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}

	if err := h.catalog.Remove(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) getCart(c *gin.Context) {
	customerID := c.Param("customerId")
	items := h.carts.Items(customerID)

	total, err := h.carts.Total(customerID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
}

type cartItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
}

func (h *Handler) addCartItem(c *gin.Context) {
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	if err := h.carts.AddItem(c.Param("customerId"), req.ProductID, req.Quantity); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "added"})
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) updateCartItem(c *gin.Context) {
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	if err := h.carts.UpdateQuantity(c.Param("customerId"), c.Param("productId"), req.Quantity); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *Handler) removeCartItem(c *gin.Context) {
	if err := h.carts.RemoveItem(c.Param("customerId"), c.Param("productId")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

func (h *Handler) clearCart(c *gin.Context) {
	h.carts.Clear(c.Param("customerId"))
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

func (h *Handler) checkoutCart(c *gin.Context) {
	order, err := h.checkout.Checkout(c.Request.Context(), c.Param("customerId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *Handler) listOrders(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": h.ledger.All()})
}

func (h *Handler) getOrder(c *gin.Context) {
	order, err := h.ledger.FindByID(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) listCustomerOrders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"orders": h.ledger.FindByCustomer(c.Param("customerId"))})
}

type cancelRequest struct {
	CustomerID string `json:"customer_id" binding:"required"`
	Reason     string `json:"reason"`
}

func (h *Handler) cancelOrder(c *gin.Context) {
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	override := h.users.IsAdmin(req.CustomerID)
	err := h.checkout.Cancel(c.Request.Context(), c.Param("id"), req.CustomerID, override, req.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

type statusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	if err := h.checkout.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

func (h *Handler) registerCustomer(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	u, err := h.users.RegisterCustomer(c.Request.Context(), req.Name, req.Email, req.Password, req.Phone, req.Address)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	u, err := h.users.Authenticate(req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
