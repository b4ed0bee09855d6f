package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/thkuo/onboarding/internal/onboarding/auth"
	"github.com/thkuo/onboarding/internal/onboarding/models"
	"go.uber.org/zap/zaptest"
)

const testSecret = "test_secret"

func setupServer(t *testing.T) *Server {
	gin.SetMode(gin.TestMode)
	mock := &MockController{
		startOnboarding: func(_ context.Context, id uuid.UUID) (*models.Record, error) {
			return &models.Record{CompanyID: id, Version: 1}, nil
		},
		getRecord: func(_ context.Context, id uuid.UUID) (*models.Record, error) {
			return &models.Record{CompanyID: id, Version: 1}, nil
		},
	}
	handler := NewOnboardingHandler(mock, zaptest.NewLogger(t))
	return NewServer(0, testSecret, zaptest.NewLogger(t), handler)
}

func TestMutatingRoutesRequireToken(t *testing.T) {
	server := setupServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/onboardings/"+uuid.NewString(), nil)
	w := httptest.NewRecorder()
	server.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMutatingRoutesAcceptValidToken(t *testing.T) {
	server := setupServer(t)

	token, err := auth.GenerateToken("12345", testSecret)
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/onboardings/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	server.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestReadRoutesArePublic(t *testing.T) {
	server := setupServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/onboardings/"+uuid.NewString(), nil)
	w := httptest.NewRecorder()
	server.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
