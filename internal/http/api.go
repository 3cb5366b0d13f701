package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"loan-ledger/internal/auth"
	"loan-ledger/internal/cache"
	"loan-ledger/internal/domain"
	"loan-ledger/internal/service"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	authSvc service.AuthService
	loans   service.LoanService
	limiter *cache.Cache
	metrics *Metrics
	logger  *logrus.Logger
}

func NewHandler(authSvc service.AuthService, loans service.LoanService, limiter *cache.Cache, metrics *Metrics, logger *logrus.Logger) *Handler {
	return &Handler{
		authSvc: authSvc,
		loans:   loans,
		limiter: limiter,
		metrics: metrics,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())
	router.Use(h.requestLogger())
	if h.metrics != nil {
		router.Use(h.metrics.track())
		router.GET("/metrics", h.metrics.Handler())
	}

	api := router.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", h.rateLimit("register", 2, time.Hour, false), h.register)
			authGroup.POST("/login", h.rateLimit("login", 5, 10*time.Minute, false), h.login)
			authGroup.GET("/me", h.authenticate(), h.me)
			authGroup.PUT("/password", h.authenticate(), h.rateLimit("password", 5, time.Hour, true), h.changePassword)
			authGroup.DELETE("/account", h.authenticate(), h.rateLimit("delete", 1, 24*time.Hour, true), h.deleteAccount)
		}

		loanGroup := api.Group("/loans", h.authenticate())
		{
			loanGroup.GET("", h.listLoans)
			loanGroup.POST("", h.createLoan)
			loanGroup.GET("/:id", h.getLoan)
			loanGroup.DELETE("/:id", h.deleteLoan)
			loanGroup.POST("/:id/repayments", h.applyRepayment)
		}

		api.GET("/borrowers/:name/loans", h.authenticate(), h.listByBorrower)

		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
	}
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	IsAdmin  bool   `json:"is_admin"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

type deleteAccountRequest struct {
	Password string `json:"password" binding:"required"`
}

type createLoanRequest struct {
	BorrowerName         string          `json:"borrower_name"`
	InitialFundingAmount decimal.Decimal `json:"initial_funding_amount"`
}

type repaymentRequest struct {
	Amount decimal.Decimal `json:"repayment_amount"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validateUsername(req.Username); err != nil {
		h.respondError(c, err)
		return
	}
	if err := validatePassword(req.Password); err != nil {
		h.respondError(c, err)
		return
	}

	session, err := h.authSvc.Register(c.Request.Context(), req.Username, req.Password, req.IsAdmin)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":       gin.H{"id": session.UserID, "username": session.Username, "role": session.Role},
		"token":      session.Token,
		"expires_in": session.ExpiresIn,
		"message":    "User registered successfully",
	})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.authSvc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":       gin.H{"username": session.Username, "role": session.Role},
		"token":      session.Token,
		"expires_in": session.ExpiresIn,
	})
}

func (h *Handler) me(c *gin.Context) {
	requester := requesterFrom(c)
	user, err := h.authSvc.Lookup(c.Request.Context(), requester.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{"id": user.ID, "username": user.Username, "role": user.Role},
	})
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validatePassword(req.NewPassword); err != nil {
		h.respondError(c, err)
		return
	}

	requester := requesterFrom(c)
	if err := h.authSvc.ChangePassword(c.Request.Context(), requester.ID, req.CurrentPassword, req.NewPassword); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

func (h *Handler) deleteAccount(c *gin.Context) {
	var req deleteAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	requester := requesterFrom(c)
	if err := h.authSvc.DeleteAccount(c.Request.Context(), requester.ID, req.Password); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account deleted successfully"})
}

func (h *Handler) listLoans(c *gin.Context) {
	views, err := h.loans.ListAll(c.Request.Context(), requesterFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewsToResponse(views))
}

func (h *Handler) createLoan(c *gin.Context) {
	var req createLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	requester := requesterFrom(c)
	borrowerName := req.BorrowerName
	if borrowerName == "" {
		borrowerName = requester.Username
	}

	view, err := h.loans.Create(c.Request.Context(), borrowerName, req.InitialFundingAmount, requester)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, viewToResponse(*view))
}

func (h *Handler) getLoan(c *gin.Context) {
	id, ok := loanID(c)
	if !ok {
		return
	}
	view, err := h.loans.Get(c.Request.Context(), id, requesterFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewToResponse(*view))
}

func (h *Handler) listByBorrower(c *gin.Context) {
	requester := requesterFrom(c)
	name := c.Param("name")
	if name == "" {
		name = requester.Username
	}

	views, err := h.loans.ListByBorrowerName(c.Request.Context(), name, requester)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewsToResponse(views))
}

func (h *Handler) applyRepayment(c *gin.Context) {
	id, ok := loanID(c)
	if !ok {
		return
	}
	var req repaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.loans.ApplyRepayment(c.Request.Context(), id, req.Amount, requesterFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewToResponse(*view))
}

func (h *Handler) deleteLoan(c *gin.Context) {
	id, ok := loanID(c)
	if !ok {
		return
	}
	if err := h.loans.Delete(c.Request.Context(), id, requesterFrom(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Loan deleted successfully"})
}

func loanID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid loan id"})
		return 0, false
	}
	return id, true
}

// respondError maps domain error kinds to status codes. Internal errors are
// logged and never leaked to the client.
func (h *Handler) respondError(c *gin.Context, err error) {
	var status int
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrInvalidToken):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientFunds):
		status = http.StatusUnprocessableEntity
	default:
		h.logger.WithError(err).Error("internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

type LoanResponse struct {
	ID                   int64               `json:"id"`
	BorrowerName         string              `json:"borrower_name"`
	BorrowerID           string              `json:"borrower_id,omitempty"`
	InitialFundingAmount decimal.Decimal     `json:"initial_funding_amount"`
	CurrentBalance       decimal.Decimal     `json:"current_balance"`
	CreatedAt            string              `json:"created_at"`
	UpdatedAt            *string             `json:"updated_at,omitempty"`
	Repayments           []RepaymentResponse `json:"repayments"`
}

type RepaymentResponse struct {
	RepaymentAmount decimal.Decimal `json:"repayment_amount"`
	CreatedAt       string          `json:"created_at"`
}

func viewToResponse(view domain.LoanView) LoanResponse {
	resp := LoanResponse{
		ID:                   view.Loan.ID,
		BorrowerName:         view.Loan.BorrowerName,
		BorrowerID:           view.Loan.BorrowerID,
		InitialFundingAmount: view.Loan.InitialFundingAmount,
		CurrentBalance:       view.Loan.CurrentBalance,
		CreatedAt:            view.Loan.CreatedAt.Format(time.RFC3339),
		Repayments:           make([]RepaymentResponse, len(view.Repayments)),
	}
	if view.Loan.UpdatedAt != nil {
		v := view.Loan.UpdatedAt.Format(time.RFC3339)
		resp.UpdatedAt = &v
	}
	for i := range view.Repayments {
		resp.Repayments[i] = RepaymentResponse{
			RepaymentAmount: view.Repayments[i].Amount,
			CreatedAt:       view.Repayments[i].CreatedAt.Format(time.RFC3339),
		}
	}
	return resp
}

func viewsToResponse(views []domain.LoanView) []LoanResponse {
	resp := make([]LoanResponse, len(views))
	for i := range views {
		resp[i] = viewToResponse(views[i])
	}
	return resp
}

func requesterFrom(c *gin.Context) auth.Requester {
	value, ok := c.Get(requesterKey)
	if !ok {
		return auth.Requester{}
	}
	requester, _ := value.(auth.Requester)
	return requester
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
