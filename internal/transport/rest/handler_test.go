package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	trierrors "github.com/trilabs/tri-backend/internal/errors"
	"github.com/trilabs/tri-backend/internal/invoice"
	"github.com/trilabs/tri-backend/internal/mailer"
	"github.com/trilabs/tri-backend/internal/service"
	"github.com/trilabs/tri-backend/internal/store"
)

// mockOrderService is a mock implementation of the OrderService interface
type mockOrderService struct {
	created  *service.OrderCreatedDto
	verified *service.PaymentVerifiedDto
	orders   []service.OrderDto
	doc      *invoice.Document
	error    error
}

func (m *mockOrderService) Create(_ context.Context, _ service.OrderCreateDto) (*service.OrderCreatedDto, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.created, nil
}

func (m *mockOrderService) VerifyPayment(_ context.Context, _ service.VerifyPaymentDto) (*service.PaymentVerifiedDto, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.verified, nil
}

func (m *mockOrderService) FindByEmail(_ context.Context, _ string) ([]service.OrderDto, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.orders, nil
}

func (m *mockOrderService) InvoiceByGatewayID(_ context.Context, _ string) (*invoice.Document, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.doc, nil
}

// mockMailer records enqueued messages.
type mockMailer struct {
	messages []mailer.EmailMessage
	error    error
}

func (m *mockMailer) Enqueue(_ context.Context, msg mailer.EmailMessage) error {
	if m.error != nil {
		return m.error
	}
	m.messages = append(m.messages, msg)
	return nil
}

// mockDiagnostics fakes store connectivity for the /test endpoint.
type mockDiagnostics struct {
	pingErr error
	diag    *store.Diagnostics
	diagErr error
}

func (m *mockDiagnostics) Ping(_ context.Context) error {
	return m.pingErr
}

func (m *mockDiagnostics) Diagnostics(_ context.Context) (*store.Diagnostics, error) {
	if m.diagErr != nil {
		return nil, m.diagErr
	}
	return m.diag, nil
}

func newTestRouter(svc service.OrderService, m mailer.Mailer, diag Diagnostics, dbURLSet bool) *chi.Mux {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mux := chi.NewRouter()
	NewHandler(svc, m, diag, dbURLSet, logger).RegisterRoutes(mux)
	return mux
}

func doRequest(t *testing.T, mux *chi.Mux, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func Test_Root_And_Hello(t *testing.T) {
	mux := newTestRouter(&mockOrderService{}, &mockMailer{}, &mockDiagnostics{}, false)

	rec := doRequest(t, mux, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"TRI Backend Running"}`, rec.Body.String())

	rec = doRequest(t, mux, http.MethodGet, "/api/hello", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Hello from TRI backend API!"}`, rec.Body.String())
}

func Test_TestDatabase(t *testing.T) {
	testCases := []struct {
		name     string
		diag     *mockDiagnostics
		dbURLSet bool
		verify   func(t *testing.T, resp map[string]any)
	}{
		{
			name: "no database configured",
			diag: &mockDiagnostics{pingErr: trierrors.ErrStorageUnavailable},
			verify: func(t *testing.T, resp map[string]any) {
				assert.Equal(t, "❌ Not Available", resp["database"])
				assert.Equal(t, "Not Connected", resp["connection_status"])
				assert.Nil(t, resp["database_url"])
				assert.Empty(t, resp["collections"])
			},
		},
		{
			name:     "connected and working",
			dbURLSet: true,
			diag: &mockDiagnostics{
				diag: &store.Diagnostics{DatabaseName: "tri", Tables: []string{"invoice_sequence", "orders"}},
			},
			verify: func(t *testing.T, resp map[string]any) {
				assert.Equal(t, "✅ Connected & Working", resp["database"])
				assert.Equal(t, "Connected", resp["connection_status"])
				assert.Equal(t, "✅ Set", resp["database_url"])
				assert.Equal(t, "tri", resp["database_name"])
				assert.Equal(t, []any{"invoice_sequence", "orders"}, resp["collections"])
			},
		},
		{
			name:     "connected but introspection fails",
			dbURLSet: true,
			diag: &mockDiagnostics{
				diagErr: errors.New("permission denied for schema information_schema"),
			},
			verify: func(t *testing.T, resp map[string]any) {
				database, ok := resp["database"].(string)
				require.True(t, ok)
				assert.True(t, strings.HasPrefix(database, "⚠️ Connected but Error:"))
			},
		},
		{
			name:     "configured but unreachable",
			dbURLSet: true,
			diag:     &mockDiagnostics{pingErr: errors.New("connection refused")},
			verify: func(t *testing.T, resp map[string]any) {
				database, ok := resp["database"].(string)
				require.True(t, ok)
				assert.True(t, strings.HasPrefix(database, "❌ Error:"))
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mux := newTestRouter(&mockOrderService{}, &mockMailer{}, tc.diag, tc.dbURLSet)
			rec := doRequest(t, mux, http.MethodGet, "/test", "")

			// Diagnostics never fail outward.
			require.Equal(t, http.StatusOK, rec.Code)
			var resp map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "✅ Running", resp["backend"])
			tc.verify(t, resp)
		})
	}
}

func Test_CreateOrder(t *testing.T) {
	validBody := `{"user_email":"buyer@example.com","items":[{"product_id":"p1","title":"Widget","quantity":2,"price":10.5},{"product_id":"p2","title":"Gadget","quantity":1,"price":3}]}`

	testCases := []struct {
		name         string
		mockService  *mockOrderService
		body         string
		expectedCode int
		verify       func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{
			name: "Success - order created",
			mockService: &mockOrderService{created: &service.OrderCreatedDto{
				ID:             "123e4567-e89b-12d3-a456-426614174000",
				GatewayOrderID: "order_14174000",
				Amount:         24.0,
				Currency:       "INR",
				Status:         "created",
			}},
			body:         validBody,
			expectedCode: http.StatusOK,
			verify: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.JSONEq(t, `{"_id":"123e4567-e89b-12d3-a456-426614174000","order_id":"order_14174000","amount":24.0,"currency":"INR","status":"created"}`, rec.Body.String())
			},
		},
		{
			name:         "Malformed JSON",
			mockService:  &mockOrderService{},
			body:         `{"user_email":`,
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "Validation - missing email",
			mockService:  &mockOrderService{},
			body:         `{"items":[{"product_id":"p1","title":"Widget","quantity":1,"price":1}]}`,
			expectedCode: http.StatusUnprocessableEntity,
			verify: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Contains(t, rec.Body.String(), "validation_errors")
				assert.Contains(t, rec.Body.String(), "UserEmail")
			},
		},
		{
			name:         "Validation - empty items",
			mockService:  &mockOrderService{},
			body:         `{"user_email":"buyer@example.com","items":[]}`,
			expectedCode: http.StatusUnprocessableEntity,
		},
		{
			name:         "Validation - zero quantity",
			mockService:  &mockOrderService{},
			body:         `{"user_email":"buyer@example.com","items":[{"product_id":"p1","title":"Widget","quantity":0,"price":1}]}`,
			expectedCode: http.StatusUnprocessableEntity,
		},
		{
			name:         "Validation - negative price",
			mockService:  &mockOrderService{},
			body:         `{"user_email":"buyer@example.com","items":[{"product_id":"p1","title":"Widget","quantity":1,"price":-1}]}`,
			expectedCode: http.StatusUnprocessableEntity,
		},
		{
			name:         "Storage unavailable",
			mockService:  &mockOrderService{error: trierrors.ErrStorageUnavailable},
			body:         validBody,
			expectedCode: http.StatusInternalServerError,
			verify: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.JSONEq(t, `{"error":"Database not configured"}`, rec.Body.String())
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mux := newTestRouter(tc.mockService, &mockMailer{}, &mockDiagnostics{}, true)
			rec := doRequest(t, mux, http.MethodPost, "/api/orders", tc.body)

			assert.Equal(t, tc.expectedCode, rec.Code)
			if tc.verify != nil {
				tc.verify(t, rec)
			}
		})
	}
}

func Test_VerifyPayment(t *testing.T) {
	testCases := []struct {
		name         string
		mockService  *mockOrderService
		body         string
		expectedCode int
		expectedBody string
	}{
		{
			name: "Success - payment verified",
			mockService: &mockOrderService{verified: &service.PaymentVerifiedDto{
				Status:        "paid",
				InvoiceNumber: "TRI/2026/00042",
			}},
			body:         `{"order_id":"order_14174000","payment_id":"pay_x"}`,
			expectedCode: http.StatusOK,
			expectedBody: `{"status":"paid","invoice_number":"TRI/2026/00042"}`,
		},
		{
			name:         "Order not found",
			mockService:  &mockOrderService{error: trierrors.ErrOrderNotFound},
			body:         `{"order_id":"order_unknown"}`,
			expectedCode: http.StatusNotFound,
			expectedBody: `{"error":"Order not found"}`,
		},
		{
			name:         "Validation - missing order id",
			mockService:  &mockOrderService{},
			body:         `{"payment_id":"pay_x"}`,
			expectedCode: http.StatusUnprocessableEntity,
		},
		{
			name:         "Storage unavailable",
			mockService:  &mockOrderService{error: trierrors.ErrStorageUnavailable},
			body:         `{"order_id":"order_14174000"}`,
			expectedCode: http.StatusInternalServerError,
			expectedBody: `{"error":"Database not configured"}`,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mux := newTestRouter(tc.mockService, &mockMailer{}, &mockDiagnostics{}, true)
			rec := doRequest(t, mux, http.MethodPost, "/api/payments/verify", tc.body)

			assert.Equal(t, tc.expectedCode, rec.Code)
			if tc.expectedBody != "" {
				assert.JSONEq(t, tc.expectedBody, rec.Body.String())
			}
		})
	}
}

func Test_ListOrders(t *testing.T) {
	t.Run("Success - orders returned", func(t *testing.T) {
		mux := newTestRouter(&mockOrderService{orders: []service.OrderDto{{
			ID:             "123e4567-e89b-12d3-a456-426614174000",
			UserEmail:      "buyer@example.com",
			GatewayOrderID: "order_14174000",
			Status:         "created",
			Amount:         24.0,
		}}}, &mockMailer{}, &mockDiagnostics{}, true)

		rec := doRequest(t, mux, http.MethodGet, "/api/orders?email=buyer@example.com", "")
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Orders []service.OrderDto `json:"orders"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Orders, 1)
		assert.Equal(t, "order_14174000", resp.Orders[0].GatewayOrderID)
	})

	t.Run("No matching orders yields an empty list", func(t *testing.T) {
		mux := newTestRouter(&mockOrderService{orders: []service.OrderDto{}}, &mockMailer{}, &mockDiagnostics{}, true)

		rec := doRequest(t, mux, http.MethodGet, "/api/orders?email=nobody@example.com", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"orders":[]}`, rec.Body.String())
	})

	t.Run("Missing email parameter", func(t *testing.T) {
		mux := newTestRouter(&mockOrderService{}, &mockMailer{}, &mockDiagnostics{}, true)

		rec := doRequest(t, mux, http.MethodGet, "/api/orders", "")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("Storage unavailable", func(t *testing.T) {
		mux := newTestRouter(&mockOrderService{error: trierrors.ErrStorageUnavailable}, &mockMailer{}, &mockDiagnostics{}, true)

		rec := doRequest(t, mux, http.MethodGet, "/api/orders?email=buyer@example.com", "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func Test_Invoice(t *testing.T) {
	t.Run("Success - HTML document", func(t *testing.T) {
		mux := newTestRouter(&mockOrderService{doc: &invoice.Document{
			Number:    "TRI/2026/00042",
			UserEmail: "buyer@example.com",
			Date:      "2026-08-28",
			Items:     []invoice.Line{{Title: "Widget", Quantity: 2, Price: 10.5, Amount: 21}},
			Total:     21,
		}}, &mockMailer{}, &mockDiagnostics{}, true)

		rec := doRequest(t, mux, http.MethodGet, "/api/invoice/order_14174000", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Body.String(), "TRI/2026/00042")
		assert.Contains(t, rec.Body.String(), "Widget")
	})

	t.Run("Order not found", func(t *testing.T) {
		mux := newTestRouter(&mockOrderService{error: trierrors.ErrOrderNotFound}, &mockMailer{}, &mockDiagnostics{}, true)

		rec := doRequest(t, mux, http.MethodGet, "/api/invoice/order_unknown", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_SendEmail(t *testing.T) {
	t.Run("Success - email queued", func(t *testing.T) {
		m := &mockMailer{}
		mux := newTestRouter(&mockOrderService{}, m, &mockDiagnostics{}, true)

		rec := doRequest(t, mux, http.MethodPost, "/api/send-email",
			`{"to":"buyer@example.com","subject":"Your invoice","html":"<p>hi</p>"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"queued","to":"buyer@example.com"}`, rec.Body.String())
		require.Len(t, m.messages, 1)
		assert.Equal(t, "Your invoice", m.messages[0].Subject)
	})

	t.Run("Queue failure still reports queued", func(t *testing.T) {
		m := &mockMailer{error: errors.New("nats: connection closed")}
		mux := newTestRouter(&mockOrderService{}, m, &mockDiagnostics{}, true)

		rec := doRequest(t, mux, http.MethodPost, "/api/send-email",
			`{"to":"buyer@example.com","subject":"Your invoice"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"queued","to":"buyer@example.com"}`, rec.Body.String())
	})

	t.Run("Validation - invalid recipient", func(t *testing.T) {
		mux := newTestRouter(&mockOrderService{}, &mockMailer{}, &mockDiagnostics{}, true)

		rec := doRequest(t, mux, http.MethodPost, "/api/send-email",
			`{"to":"not-an-email","subject":"Your invoice"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("Validation - missing subject", func(t *testing.T) {
		mux := newTestRouter(&mockOrderService{}, &mockMailer{}, &mockDiagnostics{}, true)

		rec := doRequest(t, mux, http.MethodPost, "/api/send-email",
			`{"to":"buyer@example.com"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func Test_HealthCheck(t *testing.T) {
	mux := newTestRouter(&mockOrderService{}, &mockMailer{}, &mockDiagnostics{}, false)

	rec := doRequest(t, mux, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
