package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flash-sale-backend/internal/handler"
	"github.com/iliyamo/flash-sale-backend/internal/middleware"
	"github.com/iliyamo/flash-sale-backend/internal/model"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check, used by load balancers and
// monitoring to verify the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints.  Register and
// login live under /v1/auth and need no session; /v1/me requires a
// valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterCatalog registers the public read-only catalog: products and
// sale events.  cache may be nil when Redis is unavailable; listings
// are then served uncached.
func RegisterCatalog(e *echo.Echo, p *handler.ProductHandler, s *handler.SaleEventHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1")
	if cache != nil {
		g.Use(cache)
	}
	g.GET("/products", p.List)
	g.GET("/products/:id", p.Get)
	g.GET("/events", s.List)
	g.GET("/events/:id", s.Get)

	// Live stock stays outside the cached group on purpose.
	e.GET("/v1/events/:id/stock/:product_id", s.Availability)
}

// RegisterAdmin registers the admin-only write endpoints for products
// and sale events.  All routes require a valid JWT carrying the ADMIN
// role.
func RegisterAdmin(e *echo.Echo, p *handler.ProductHandler, s *handler.SaleEventHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.POST("/products", p.Create)
	g.PUT("/products/:id", p.Update)
	g.POST("/events", s.Create)
	g.PUT("/events/:id", s.Update)
	g.DELETE("/events/:id", s.Delete)
}

// RegisterOrders registers the purchase endpoint and the order
// projections.  Placing an order and reading one's own history require
// authentication; the per-event leaderboard is public.
func RegisterOrders(e *echo.Echo, o *handler.OrderHandler, jwtSecret string) {
	e.GET("/v1/events/:id/orders", o.Leaderboard)

	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer, model.RoleAdmin),
	)
	g.POST("/orders", o.Place)
	g.GET("/me/orders", o.MyOrders)
}
