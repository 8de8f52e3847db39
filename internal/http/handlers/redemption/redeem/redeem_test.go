package redeem

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/salon-redemption-ledger/internal/ledger"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/models"
)

// MockService реализует интерфейс redeem.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Redeem(ctx context.Context, token string, salonID int, serviceName string) (*models.RedeemResult, error) {
	args := m.Called(ctx, token, salonID, serviceName)
	if res := args.Get(0); res != nil {
		return res.(*models.RedeemResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestRedeemHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешное погашение",
			body: `{"token":"42","salon_id":7,"service_name":"haircut"}`,
			setupMock: func(m *MockService) {
				result := &models.RedeemResult{
					Visit: models.Visit{
						ID:             11,
						SubscriptionID: 42,
						SalonID:        7,
						VisitDate:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
						Status:         models.VisitPending,
					},
					UsedServiceNames: []string{"manicure"},
				}
				m.On("Redeem", mock.Anything, "42", 7, "haircut").Return(result, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"Status":"PENDING"`,
		},
		{
			name:           "некорректный JSON",
			body:           `{"token":`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"invalid request body"`,
		},
		{
			name:           "пустой токен",
			body:           `{"salon_id":7}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `"status":"Error"`,
		},
		{
			name: "подписка не найдена",
			body: `{"token":"no-such","salon_id":7}`,
			setupMock: func(m *MockService) {
				m.On("Redeem", mock.Anything, "no-such", 7, "").
					Return(nil, ledger.NotFound("subscription not found"))
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"error":"subscription not found"`,
		},
		{
			name: "визиты исчерпаны",
			body: `{"token":"42","salon_id":7}`,
			setupMock: func(m *MockService) {
				m.On("Redeem", mock.Anything, "42", 7, "").
					Return(nil, ledger.VisitsExhausted(8, 0, 8))
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `"completed_count":8`,
		},
		{
			name: "чужой салон",
			body: `{"token":"42","salon_id":9}`,
			setupMock: func(m *MockService) {
				m.On("Redeem", mock.Anything, "42", 9, "").
					Return(nil, ledger.SalonMismatch(9, 7))
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `"status":"Error"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/redeem", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}
