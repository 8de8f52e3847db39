package transition

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/salon-redemption-ledger/internal/http/middlewarectx"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/ledger"
	"github.com/magabrotheeeer/salon-redemption-ledger/internal/models"
)

// MockService реализует интерфейс transition.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Transition(ctx context.Context, visitID, actorID int, newStatus models.VisitStatus) (*models.Visit, error) {
	args := m.Called(ctx, visitID, actorID, newStatus)
	if res := args.Get(0); res != nil {
		return res.(*models.Visit), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestTransitionHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		visitID        string
		actorID        int
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:    "успешное подтверждение визита",
			visitID: "11",
			actorID: 5,
			body:    `{"status":"CONFIRMED"}`,
			setupMock: func(m *MockService) {
				visit := &models.Visit{ID: 11, SubscriptionID: 42, SalonID: 7, Status: models.VisitConfirmed}
				m.On("Transition", mock.Anything, 11, 5, models.VisitConfirmed).Return(visit, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"Status":"CONFIRMED"`,
		},
		{
			name:           "некорректный id в URL",
			visitID:        "abc",
			actorID:        5,
			body:           `{"status":"CONFIRMED"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"failed to decode id from url"`,
		},
		{
			name:           "неизвестный статус",
			visitID:        "11",
			actorID:        5,
			body:           `{"status":"DONE"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `"status":"Error"`,
		},
		{
			name:           "актор не авторизован",
			visitID:        "11",
			actorID:        0,
			body:           `{"status":"CONFIRMED"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"error":"unauthorized"`,
		},
		{
			name:    "недопустимый переход",
			visitID: "11",
			actorID: 5,
			body:    `{"status":"PENDING"}`,
			setupMock: func(m *MockService) {
				m.On("Transition", mock.Anything, 11, 5, models.VisitPending).
					Return(nil, ledger.InvalidState("transition CANCELLED -> PENDING is not allowed"))
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `"status":"Error"`,
		},
		{
			name:    "чужой визит",
			visitID: "11",
			actorID: 5,
			body:    `{"status":"COMPLETED"}`,
			setupMock: func(m *MockService) {
				m.On("Transition", mock.Anything, 11, 5, models.VisitCompleted).
					Return(nil, ledger.Forbidden(5))
			},
			expectedStatus: http.StatusForbidden,
			expectedBody:   `"status":"Error"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/visits/"+tt.visitID+"/status", strings.NewReader(tt.body))
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.visitID)
			ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
			if tt.actorID > 0 {
				ctx = context.WithValue(ctx, middlewarectx.Actor, tt.actorID)
			}
			req = req.WithContext(ctx)

			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}
