package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noblecapital/payments/internal/adapter/http/dto"
	"github.com/noblecapital/payments/internal/adapter/http/middleware"
	"github.com/noblecapital/payments/internal/domain"
	"github.com/noblecapital/payments/internal/usecase"
)

type depositServiceStub struct {
	initiateFn func(ctx context.Context, input usecase.InitiateDepositInput) (*domain.Transaction, error)
	statusFn   func(ctx context.Context, externalID, userID string) (*domain.Transaction, error)
}

func (s *depositServiceStub) InitiateDeposit(ctx context.Context, input usecase.InitiateDepositInput) (*domain.Transaction, error) {
	return s.initiateFn(ctx, input)
}

func (s *depositServiceStub) GetTransactionStatus(ctx context.Context, externalID, userID string) (*domain.Transaction, error) {
	return s.statusFn(ctx, externalID, userID)
}

type callbackServiceStub struct {
	reconcileFn func(ctx context.Context, input usecase.CallbackInput) error
}

func (s *callbackServiceStub) Reconcile(ctx context.Context, input usecase.CallbackInput) error {
	return s.reconcileFn(ctx, input)
}

func withIdentity(req *http.Request, userID, email string) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.IdentityContextKey, &middleware.Identity{
		UserID: userID,
		Email:  email,
	})
	return req.WithContext(ctx)
}

func TestPaymentHandler_Deposit_Success(t *testing.T) {
	txn := &domain.Transaction{
		ExternalID: "ext-1",
		Kind:       domain.KindDeposit,
		Amount:     decimal.NewFromInt(500),
		Status:     domain.StatusPending,
	}

	var captured usecase.InitiateDepositInput
	handler := NewPaymentHandler(&depositServiceStub{
		initiateFn: func(ctx context.Context, input usecase.InitiateDepositInput) (*domain.Transaction, error) {
			captured = input
			return txn, nil
		},
	}, nil, zerolog.Nop())

	body, _ := json.Marshal(dto.DepositRequest{
		Amount:      decimal.NewFromInt(500),
		PhoneNumber: "254712345678",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/deposits", bytes.NewReader(body))
	req = withIdentity(req, "user-1", "jane@example.com")
	rec := httptest.NewRecorder()

	handler.Deposit(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	if captured.UserID != "user-1" {
		t.Errorf("expected user id from token, got %s", captured.UserID)
	}

	var resp dto.TransactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ExternalID != "ext-1" {
		t.Errorf("expected ext-1, got %s", resp.ExternalID)
	}
}

func TestPaymentHandler_Deposit_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid amount", domain.ErrInvalidAmount, http.StatusBadRequest},
		{"invalid contact", domain.ErrInvalidContact, http.StatusBadRequest},
		{"provider rejected", domain.ErrProviderRejected, http.StatusBadGateway},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewPaymentHandler(&depositServiceStub{
				initiateFn: func(ctx context.Context, input usecase.InitiateDepositInput) (*domain.Transaction, error) {
					return nil, tt.err
				},
			}, nil, zerolog.Nop())

			body, _ := json.Marshal(dto.DepositRequest{
				Amount:      decimal.NewFromInt(500),
				PhoneNumber: "254712345678",
			})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/deposits", bytes.NewReader(body))
			req = withIdentity(req, "user-1", "jane@example.com")
			rec := httptest.NewRecorder()

			handler.Deposit(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestPaymentHandler_Deposit_NoIdentity(t *testing.T) {
	handler := NewPaymentHandler(&depositServiceStub{}, nil, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/deposits", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	handler.Deposit(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

const stkCallbackBody = `{
  "Body": {
    "stkCallback": {
      "MerchantRequestID": "29115-34620561-1",
      "CheckoutRequestID": "ws_CO_191220191020363925",
      "ResultCode": 0,
      "ResultDesc": "The service request is processed successfully.",
      "CallbackMetadata": {
        "Item": [
          {"Name": "Amount", "Value": 500.00},
          {"Name": "MpesaReceiptNumber", "Value": "NLJ7RT61SV"},
          {"Name": "TransactionDate", "Value": 20191219102115},
          {"Name": "PhoneNumber", "Value": 254712345678}
        ]
      }
    }
  }
}`

func TestPaymentHandler_Callback_Success(t *testing.T) {
	var captured usecase.CallbackInput
	handler := NewPaymentHandler(nil, &callbackServiceStub{
		reconcileFn: func(ctx context.Context, input usecase.CallbackInput) error {
			captured = input
			return nil
		},
	}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback", strings.NewReader(stkCallbackBody))
	rec := httptest.NewRecorder()

	handler.Callback(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	if captured.CorrelationID != "ws_CO_191220191020363925" {
		t.Errorf("unexpected correlation id %s", captured.CorrelationID)
	}
	if captured.ReceiptID != "NLJ7RT61SV" {
		t.Errorf("expected receipt from metadata, got %s", captured.ReceiptID)
	}
	if captured.ResultCode != 0 {
		t.Errorf("unexpected result code %d", captured.ResultCode)
	}

	var ack dto.STKCallbackAck
	if err := json.Unmarshal(rec.Body.Bytes(), &ack); err != nil {
		t.Fatalf("failed to decode ack: %v", err)
	}
	if ack.ResultCode != 0 || ack.ResultDesc != "Accepted" {
		t.Errorf("unexpected ack %+v", ack)
	}
}

func TestPaymentHandler_Callback_AlwaysAcks(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
	}{
		{"unknown transaction", stkCallbackBody, domain.ErrUnknownTransaction},
		{"internal failure", stkCallbackBody, errors.New("db down")},
		{"malformed body", `{"Body": `, nil},
		{"missing checkout id", `{"Body":{"stkCallback":{"ResultCode":0}}}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewPaymentHandler(nil, &callbackServiceStub{
				reconcileFn: func(ctx context.Context, input usecase.CallbackInput) error {
					return tt.err
				},
			}, zerolog.Nop())

			req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			handler.Callback(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("callback must always ack with 200, got %d", rec.Code)
			}

			var ack dto.STKCallbackAck
			if err := json.Unmarshal(rec.Body.Bytes(), &ack); err != nil {
				t.Fatalf("failed to decode ack: %v", err)
			}
			if ack.ResultDesc != "Accepted" {
				t.Errorf("unexpected ack %+v", ack)
			}
		})
	}
}

func TestPaymentHandler_Status_ScopedToOwner(t *testing.T) {
	handler := NewPaymentHandler(&depositServiceStub{
		statusFn: func(ctx context.Context, externalID, userID string) (*domain.Transaction, error) {
			if userID != "user-1" {
				return nil, domain.ErrTransactionNotFound
			}
			return &domain.Transaction{ExternalID: externalID, Status: domain.StatusPending}, nil
		},
	}, nil, zerolog.Nop())

	newStatusRequest := func(userID string) (*httptest.ResponseRecorder, *http.Request) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions/ext-1", nil)
		req = withIdentity(req, userID, userID+"@example.com")
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("externalID", "ext-1")
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
		return httptest.NewRecorder(), req
	}

	rec, req := newStatusRequest("user-1")
	handler.Status(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner lookup: expected 200, got %d", rec.Code)
	}

	rec, req = newStatusRequest("user-2")
	handler.Status(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign lookup: expected 404, got %d", rec.Code)
	}
}
