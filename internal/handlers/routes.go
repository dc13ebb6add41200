package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/mudralaya/mudralaya-api/internal/middleware"
	"github.com/mudralaya/mudralaya-api/internal/services"
)

// Handlers bundles everything the API routes need.
type Handlers struct {
	Auth       *AuthHandler
	Tasks      *TaskHandler
	Wallet     *WalletHandler
	Kyc        *KycHandler
	Membership *MembershipHandler
	Admin      *AdminHandler

	Verifier    middleware.TokenVerifier
	Provisioner middleware.Provisioner
	Gate        services.AdminGate
}

// Register mounts the /api routes on r. Session middleware must already be
// installed for the admin login to work.
func (h *Handlers) Register(r gin.IRouter) {
	api := r.Group("/api")

	requireAuth := middleware.RequireAuth(h.Verifier, h.Provisioner)

	// User routes (protected)
	api.GET("/me", requireAuth, h.Auth.GetCurrentUser)
	api.GET("/me/tasks", requireAuth, h.Tasks.MyTasks)
	api.GET("/dashboard", requireAuth, h.Wallet.Dashboard)

	tasks := api.Group("/tasks")
	tasks.Use(requireAuth)
	{
		tasks.GET("", h.Tasks.ListTasks)
		tasks.GET("/:id", h.Tasks.GetTask)
		tasks.POST("/:id/start", h.Tasks.StartTask)
		tasks.POST("/:id/complete", h.Tasks.CompleteTask)
	}

	wallet := api.Group("/wallet")
	wallet.Use(requireAuth)
	{
		wallet.GET("/stats", h.Wallet.GetStats)
		wallet.GET("/transactions", h.Wallet.ListTransactions)
		wallet.GET("/eligibility", h.Wallet.Eligibility)
	}

	kyc := api.Group("/kyc")
	kyc.Use(requireAuth)
	{
		kyc.GET("", h.Kyc.Current)
		kyc.POST("", h.Kyc.Submit)
		kyc.POST("/upload-url", h.Kyc.UploadURL)
	}

	api.GET("/plans", requireAuth, h.Membership.Plans)

	membership := api.Group("/membership")
	membership.Use(requireAuth)
	{
		membership.POST("/orders", h.Membership.CreateOrder)
		membership.POST("/confirm", h.Membership.Confirm)
	}

	// Admin session routes (public)
	api.POST("/admin/login", h.Auth.AdminLogin)
	api.POST("/admin/logout", h.Auth.AdminLogout)

	admin := api.Group("/admin")
	admin.Use(middleware.RequireAdmin(h.Gate))
	{
		admin.GET("/overview", h.Admin.Overview)

		admin.GET("/tasks", h.Admin.ListTasks)
		admin.POST("/tasks", h.Admin.CreateTask)
		admin.PATCH("/tasks/:id", h.Admin.UpdateTask)
		admin.DELETE("/tasks/:id", h.Admin.DeleteTask)
		admin.GET("/tasks/:id/participants", h.Admin.Participants)
		admin.POST("/tasks/:id/assign", h.Admin.AssignTask)

		admin.GET("/assignments", h.Admin.ListAssignments)
		admin.POST("/assignments/:id/approve", h.Admin.Approve)
		admin.POST("/assignments/:id/reject", h.Admin.Reject)

		admin.GET("/kyc", h.Admin.ListKyc)
		admin.GET("/kyc/:id", h.Admin.GetKyc)
		admin.PATCH("/kyc/:id/status", h.Admin.SetKycStatus)

		admin.DELETE("/users/:id", h.Admin.DeleteUser)
		admin.GET("/users/:id/stats", h.Admin.UserStats)
		admin.POST("/users/:id/payouts", h.Admin.RecordPayout)
		admin.GET("/users/:id/reconcile", h.Admin.Reconcile)
	}
}
