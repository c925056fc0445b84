package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/tillpoint/internal/config"
	"github.com/example/tillpoint/internal/handlers"
	"github.com/example/tillpoint/internal/middleware"
	"github.com/example/tillpoint/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	audit := services.NewLogAuditLogger()

	shiftService := services.NewShiftService(db, audit)
	orderService := services.NewOrderService(db, audit)
	cashService := services.NewCashRegisterService(db, audit)
	stockLedger := services.NewStockLedger(db, audit)

	authHandler := handlers.NewAuthHandler(db, cfg)
	shiftHandler := handlers.NewShiftHandler(shiftService)
	orderHandler := handlers.NewOrderHandler(orderService)
	cashHandler := handlers.NewCashRegisterHandler(cashService)
	catalogHandler := handlers.NewCatalogHandler(db, stockLedger)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	// Protected routes
	protected := api.Group("", middleware.AuthMiddleware(cfg, db))

	protected.Post("/users", middleware.RequireAdmin(), authHandler.CreateUser)

	shifts := protected.Group("/shifts")
	shifts.Post("/open", shiftHandler.Open)
	shifts.Post("/close", shiftHandler.Close)
	shifts.Get("/current", shiftHandler.Current)
	shifts.Post("/reconcile", shiftHandler.Reconcile)
	shifts.Get("/:id", shiftHandler.Get)
	shifts.Post("/:id/force-close", middleware.RequireAdmin(), shiftHandler.ForceClose)
	shifts.Post("/:id/handover", shiftHandler.Handover)

	orders := protected.Group("/orders")
	orders.Post("/", orderHandler.Create)
	orders.Get("/", orderHandler.List)
	orders.Get("/:id", orderHandler.Get)
	orders.Post("/:id/items", orderHandler.AddItem)
	orders.Delete("/:id/items/:itemId", orderHandler.RemoveItem)
	orders.Post("/:id/complete", orderHandler.Complete)
	orders.Post("/:id/cancel", orderHandler.Cancel)
	orders.Post("/:id/refund", orderHandler.Refund)

	register := protected.Group("/cash-register")
	register.Get("/balance", cashHandler.Balance)
	register.Get("/transactions", cashHandler.ListTransactions)
	register.Post("/deposit", cashHandler.Deposit)
	register.Post("/withdraw", cashHandler.Withdraw)
	register.Post("/transfer", middleware.RequireAdmin(), cashHandler.Transfer)

	protected.Post("/expenses", cashHandler.Expense)

	categories := protected.Group("/categories")
	categories.Get("/", catalogHandler.ListCategories)
	categories.Post("/", catalogHandler.CreateCategory)

	products := protected.Group("/products")
	products.Get("/", catalogHandler.ListProducts)
	products.Post("/", catalogHandler.CreateProduct)
	products.Get("/:id", catalogHandler.GetProduct)
	products.Put("/:id", catalogHandler.UpdateProduct)
	products.Post("/:id/stock-adjustments", catalogHandler.AdjustStock)
	products.Get("/:id/stock-movements", catalogHandler.ListStockMovements)
}
