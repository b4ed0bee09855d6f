package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	e "github.com/thkuo/onboarding/internal/onboarding/errors"
	"github.com/thkuo/onboarding/internal/onboarding/models"
	"go.uber.org/zap"
)

// OnboardingController defines the business logic interface the HTTP
// handlers invoke.
type OnboardingController interface {
	StartOnboarding(ctx context.Context, companyID uuid.UUID) (*models.Record, error)
	GetRecord(ctx context.Context, companyID uuid.UUID) (*models.Record, error)
	NextPrompt(ctx context.Context, companyID uuid.UUID) (models.Prompt, error)
	Progress(ctx context.Context, companyID uuid.UUID) (models.Progress, error)
	SubmitValue(ctx context.Context, companyID uuid.UUID, field, raw string) (models.Prompt, error)
	FinishCurrentProduct(ctx context.Context, companyID uuid.UUID) (*models.Product, error)
	FinishAllProducts(ctx context.Context, companyID uuid.UUID) error
	ListProducts(ctx context.Context, companyID uuid.UUID) ([]models.Product, error)
}

// OnboardingHandler maps HTTP requests onto an OnboardingController.
type OnboardingHandler struct {
	service OnboardingController
	logger  *zap.Logger
}

// NewOnboardingHandler constructs a new OnboardingHandler with the given service and logger.
func NewOnboardingHandler(service OnboardingController, logger *zap.Logger) *OnboardingHandler {
	return &OnboardingHandler{
		service: service,
		logger:  logger.Named("http_handler"),
	}
}

// RegisterRoutes attaches the onboarding endpoints to a router group.
// Mutating endpoints are expected to sit behind the auth middleware.
func (h *OnboardingHandler) RegisterRoutes(public, protected *gin.RouterGroup) {
	protected.POST("/onboardings/:company_id", h.startOnboarding)
	protected.POST("/onboardings/:company_id/values", h.submitValue)
	protected.POST("/onboardings/:company_id/products/finish", h.finishCurrentProduct)
	protected.POST("/onboardings/:company_id/finish", h.finishAllProducts)

	public.GET("/onboardings/:company_id", h.getRecord)
	public.GET("/onboardings/:company_id/prompt", h.nextPrompt)
	public.GET("/onboardings/:company_id/progress", h.progress)
	public.GET("/onboardings/:company_id/products", h.listProducts)
}

type submitValueRequest struct {
	Field string `json:"field" binding:"required"`
	Value string `json:"value"`
}

func (h *OnboardingHandler) startOnboarding(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	record, err := h.service.StartOnboarding(c.Request.Context(), companyID)
	if err != nil {
		h.logger.Error("Start onboarding failed", zap.Error(err))
		h.mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, recordToView(record))
}

func (h *OnboardingHandler) getRecord(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	record, err := h.service.GetRecord(c.Request.Context(), companyID)
	if err != nil {
		h.mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, recordToView(record))
}

func (h *OnboardingHandler) nextPrompt(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	prompt, err := h.service.NextPrompt(c.Request.Context(), companyID)
	if err != nil {
		h.mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, prompt)
}

func (h *OnboardingHandler) progress(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	progress, err := h.service.Progress(c.Request.Context(), companyID)
	if err != nil {
		h.mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

func (h *OnboardingHandler) submitValue(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	var req submitValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_REQUEST", err.Error()))
		return
	}
	prompt, err := h.service.SubmitValue(c.Request.Context(), companyID, req.Field, req.Value)
	if err != nil {
		h.logger.Info("Submission rejected",
			zap.Error(err),
			zap.String("company_id", companyID.String()),
			zap.String("field", req.Field),
		)
		h.mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accepted": true, "next_prompt": prompt})
}

func (h *OnboardingHandler) finishCurrentProduct(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	product, err := h.service.FinishCurrentProduct(c.Request.Context(), companyID)
	if err != nil {
		h.mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, productToView(product))
}

func (h *OnboardingHandler) finishAllProducts(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	if err := h.service.FinishAllProducts(c.Request.Context(), companyID); err != nil {
		h.mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"completed": true})
}

func (h *OnboardingHandler) listProducts(c *gin.Context) {
	companyID, ok := h.companyID(c)
	if !ok {
		return
	}
	products, err := h.service.ListProducts(c.Request.Context(), companyID)
	if err != nil {
		h.mapServiceError(c, err)
		return
	}
	views := make([]productView, 0, len(products))
	for i := range products {
		views = append(views, productToView(&products[i]))
	}
	c.JSON(http.StatusOK, gin.H{"products": views})
}

func (h *OnboardingHandler) companyID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("company_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_REQUEST", "invalid company ID"))
		return uuid.Nil, false
	}
	return id, true
}

// mapServiceError converts the service error taxonomy to HTTP responses.
// Every sentinel maps to a stable machine-readable code.
func (h *OnboardingHandler) mapServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, e.ErrNotFound):
		c.JSON(http.StatusNotFound, errorBody("NOT_FOUND", err.Error()))
	case errors.Is(err, e.ErrValidation):
		c.JSON(http.StatusBadRequest, errorBody("VALIDATION_FAILED", err.Error()))
	case errors.Is(err, e.ErrOutOfSequence):
		c.JSON(http.StatusConflict, errorBody("OUT_OF_SEQUENCE", err.Error()))
	case errors.Is(err, e.ErrIncompleteDraft):
		c.JSON(http.StatusConflict, errorBody("INCOMPLETE_DRAFT", err.Error()))
	case errors.Is(err, e.ErrDraftInProgress):
		c.JSON(http.StatusConflict, errorBody("DRAFT_IN_PROGRESS", err.Error()))
	case errors.Is(err, e.ErrDuplicateProductID):
		c.JSON(http.StatusConflict, errorBody("DUPLICATE_PRODUCT_ID", err.Error()))
	case errors.Is(err, e.ErrConcurrentModification):
		// Retried by the caller, not here.
		c.JSON(http.StatusConflict, errorBody("CONCURRENT_MODIFICATION", err.Error()))
	default:
		h.logger.Error("Internal error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorBody("INTERNAL", "internal error"))
	}
}

func errorBody(code, message string) gin.H {
	return gin.H{"error": gin.H{"code": code, "message": message}}
}
