package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"storefront/internal/entity"
	"storefront/internal/service"
)

type DashboardService interface {
	Summary(ctx context.Context) (*service.Dashboard, error)
}

// Services are the operations behind the HTTP routes.
type Services struct {
	Orders    OrderService
	Products  ProductService
	Users     UserService
	Dashboard DashboardService
	Locations entity.PickupLocations
}

type pickupLocation struct {
	Name        string          `json:"name"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
}

// RegisterRoutes mounts every storefront route on e.
func RegisterRoutes(e *echo.Echo, jwtSecret []byte, svc Services) {
	e.Validator = NewValidator()

	orderHandler := NewOrderHandler(svc.Orders)
	productHandler := NewProductHandler(svc.Products)
	userHandler := NewUserHandler(svc.Users)

	auth := []echo.MiddlewareFunc{JWT(jwtSecret), Session(svc.Users)}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":  "ok",
			"service": "storefront",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	e.GET("/products", productHandler.ListInStock)
	e.GET("/products/:id", productHandler.GetProduct)
	e.GET("/pickup-locations", func(c echo.Context) error {
		locations := make([]pickupLocation, 0, len(svc.Locations))
		for _, name := range svc.Locations.Names() {
			fee, _ := svc.Locations.Fee(name)
			locations = append(locations, pickupLocation{Name: name, DeliveryFee: fee})
		}
		return c.JSON(http.StatusOK, locations)
	})
	e.POST("/users", userHandler.Register)
	e.POST("/login", userHandler.Login)

	e.POST("/logout", userHandler.Logout, auth...)
	e.GET("/me", userHandler.Me, auth...)
	e.POST("/orders", orderHandler.PlaceOrder, auth...)
	e.GET("/orders", orderHandler.MyOrders, auth...)
	e.GET("/orders/latest", orderHandler.LatestOrder, auth...)

	admin := e.Group("/admin", append(auth, AdminOnly)...)
	admin.GET("/orders", orderHandler.AllOrders)
	admin.GET("/orders/:id", orderHandler.GetOrder)
	admin.PUT("/orders/:id/status", orderHandler.SetStatus)
	admin.GET("/products", productHandler.ListProducts)
	admin.POST("/products", productHandler.CreateProduct)
	admin.PUT("/products/:id", productHandler.UpdateProduct)
	admin.GET("/users", userHandler.ListUsers)
	admin.PUT("/users/:id/admin", userHandler.PromoteToAdmin)
	admin.GET("/dashboard", func(c echo.Context) error {
		summary, err := svc.Dashboard.Summary(c.Request().Context())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, summary)
	})
}
