package signup

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/strata-gate/internal/models"
	"github.com/magabrotheeeer/strata-gate/internal/services/account"
)

type ServiceMock struct{ mock.Mock }

func (m *ServiceMock) Register(ctx context.Context, email, name, password string) (account.Session, error) {
	args := m.Called(ctx, email, name, password)
	return args.Get(0).(account.Session), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSignupHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name       string
		req        Request
		setup      func(s *ServiceMock)
		wantStatus int
		wantCode   string
	}{
		{
			name: "created",
			req:  Request{Email: "new@example.com", Name: "New", Password: "password123"},
			setup: func(s *ServiceMock) {
				s.On("Register", mock.Anything, "new@example.com", "New", "password123").
					Return(account.Session{Token: "tok", UserID: "u-1"}, nil).Once()
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "short password",
			req:        Request{Email: "new@example.com", Name: "New", Password: "short"},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "invalidRequest",
		},
		{
			name:       "bad email",
			req:        Request{Email: "new", Name: "New", Password: "password123"},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "invalidRequest",
		},
		{
			name: "email taken",
			req:  Request{Email: "dup@example.com", Name: "Dup", Password: "password123"},
			setup: func(s *ServiceMock) {
				s.On("Register", mock.Anything, "dup@example.com", "Dup", "password123").
					Return(account.Session{}, models.ErrAlreadyExists).Once()
			},
			wantStatus: http.StatusConflict,
			wantCode:   "alreadyExists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			if tt.setup != nil {
				tt.setup(svc)
			}
			body, err := json.Marshal(tt.req)
			require.NoError(t, err)
			rec := httptest.NewRecorder()

			New(newNoopLogger(), svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/signup", bytes.NewReader(body)))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var resp map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, resp["code"])
				return
			}
			assert.Equal(t, "tok", resp["data"].(map[string]any)["token"])
			svc.AssertExpectations(t)
		})
	}
}
