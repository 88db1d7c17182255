package api

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

type JwtCustomClaims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// requireAdmin rejects tokens that do not carry the admin role. It must run
// after the JWT middleware.
func requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := c.Get("user").(*jwt.Token)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing token"})
		}
		claims, ok := token.Claims.(*JwtCustomClaims)
		if !ok || claims.Role != "admin" {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "admin role required"})
		}
		return next(c)
	}
}

// RegisterRoutes mounts the public checkout routes and the admin-only status
// routes on e.
func RegisterRoutes(e *echo.Echo, orders *OrderHandler, payments *PaymentHandler, jwtSecret string) {
	g := e.Group("/api")

	g.POST("/stock/validate", orders.ValidateStock)
	g.POST("/promo/validate", orders.ValidatePromo)
	g.POST("/orders/finalize", orders.FinalizeOrder)
	g.GET("/orders/:id", orders.GetOrder)

	g.POST("/payments/momo/initiate", payments.InitiateMobileMoney)
	g.GET("/payments/momo/status/:reference", payments.MobileMoneyStatus)
	g.GET("/payments/exchange-rate", payments.ExchangeRate)

	adminOnly := []echo.MiddlewareFunc{
		echojwt.WithConfig(echojwt.Config{
			SigningKey: []byte(jwtSecret),
			NewClaimsFunc: func(c echo.Context) jwt.Claims {
				return new(JwtCustomClaims)
			},
		}),
		requireAdmin,
	}
	g.PUT("/orders/:id/status", orders.UpdateStatus, adminOnly...)
	g.POST("/shipping/webhook", orders.ShippingWebhook, adminOnly...)

	e.GET("/api/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":  "ok",
			"service": "checkout-service",
			"time":    time.Now().Format(time.RFC3339),
		})
	})
}
