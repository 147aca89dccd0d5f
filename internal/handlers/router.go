package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"dojo/internal/clock"
	"dojo/internal/middleware"
	"dojo/internal/services"
)

// RouterOptions tunes NewRouter.
type RouterOptions struct {
	AllowTestDate bool
}

// NewRouter builds the HTTP surface of the ledger over reg.
func NewRouter(reg *services.Registry, clk clock.Clock, opts RouterOptions) *gin.Engine {
	accountHandler := NewAccountHandler(reg.Accounts, reg.Transactions)
	categoryHandler := NewCategoryHandler(reg.Categories)
	transactionHandler := NewTransactionHandler(reg.Transactions, reg.Transfers)
	budgetHandler := NewBudgetHandler(reg.Budget, clk)
	reconciliationHandler := NewReconciliationHandler(reg.Reconciliations)
	adminHandler := NewAdminHandler(reg.Cache, reg.Events)
	netWorthHandler := NewNetWorthHandler(reg.Snapshots, clk)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.TestDate(opts.AllowTestDate))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group("/api/v1")
	v1.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	accounts := v1.Group("/accounts")
	accounts.POST("", accountHandler.CreateAccount)
	accounts.GET("", accountHandler.ListAccounts)
	accounts.GET("/:id", accountHandler.GetAccount)
	accounts.PUT("/:id", accountHandler.UpdateAccount)
	accounts.DELETE("/:id", accountHandler.RetireAccount)
	accounts.GET("/:id/balance", accountHandler.GetAccountBalance)
	accounts.GET("/:id/transactions", accountHandler.GetAccountTransactions)
	accounts.GET("/:id/reconciliation", reconciliationHandler.GetWorksheet)
	accounts.POST("/:id/reconciliations", reconciliationHandler.CommitReconciliation)
	accounts.GET("/:id/reconciliations", reconciliationHandler.ListReconciliations)
	netWorth := v1.Group("/net-worth")
	netWorth.GET("", accountHandler.GetNetWorth)
	netWorth.POST("/snapshots", netWorthHandler.RecordSnapshot)
	netWorth.GET("/snapshots", netWorthHandler.ListSnapshots)
	netWorth.GET("/history", netWorthHandler.GetHistory)

	categories := v1.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.ListCategories)
	categories.GET("/:id", categoryHandler.GetCategory)
	categories.PUT("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.RetireCategory)
	categories.GET("/:id/months/:month", budgetHandler.GetCategoryState)
	categories.POST("/:id/months/:month/rollover", budgetHandler.RolloverMonth)

	groups := v1.Group("/category-groups")
	groups.POST("", categoryHandler.CreateGroup)
	groups.GET("", categoryHandler.ListGroups)
	groups.PUT("/:id", categoryHandler.UpdateGroup)
	groups.DELETE("/:id", categoryHandler.RetireGroup)

	transactions := v1.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.ListTransactions)
	transactions.GET("/:id", transactionHandler.GetTransaction)
	transactions.GET("/:id/history", transactionHandler.GetTransactionHistory)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)
	v1.POST("/transfers", transactionHandler.CreateTransfer)

	allocations := v1.Group("/allocations")
	allocations.POST("", budgetHandler.CreateAllocation)
	allocations.GET("", budgetHandler.ListAllocations)
	allocations.GET("/:id", budgetHandler.GetAllocation)
	allocations.GET("/:id/history", budgetHandler.GetAllocationHistory)
	allocations.PUT("/:id", budgetHandler.UpdateAllocation)
	allocations.DELETE("/:id", budgetHandler.DeleteAllocation)

	budget := v1.Group("/budget")
	budget.GET("/ready-to-assign", budgetHandler.GetReadyToAssign)
	budget.GET("/months/:month", budgetHandler.GetBudgetMonth)

	v1.GET("/events", adminHandler.ListEvents)
	admin := v1.Group("/admin")
	admin.POST("/cache/rebuild", adminHandler.RebuildCache)
	admin.GET("/cache/verify", adminHandler.VerifyCache)

	return router
}
