package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noblecapital/payments/internal/domain"
	"github.com/noblecapital/payments/internal/usecase"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User

	GetByIDFunc          func(ctx context.Context, id string) (*domain.User, error)
	GetByIDForUpdateFunc func(ctx context.Context, tx usecase.Transaction, id string) (*domain.User, error)
	UpdateBalanceFunc    func(ctx context.Context, tx usecase.Transaction, id string, balance decimal.Decimal, updatedAt time.Time) error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[string]*domain.User)}
}

// Seed stores a user directly, bypassing any overrides.
func (m *MockUserRepository) Seed(user *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
}

// Balance returns the stored balance for assertions.
func (m *MockUserRepository) Balance(id string) decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[id]; ok {
		return u.Balance
	}
	return decimal.Zero
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *MockUserRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.User, error) {
	if m.GetByIDForUpdateFunc != nil {
		return m.GetByIDForUpdateFunc(ctx, tx, id)
	}
	return m.GetByID(ctx, id)
}

func (m *MockUserRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, id string, balance decimal.Decimal, updatedAt time.Time) error {
	if m.UpdateBalanceFunc != nil {
		return m.UpdateBalanceFunc(ctx, tx, id, balance, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	user.Balance = balance
	user.UpdatedAt = updatedAt
	return nil
}

// MockTransactionRepository is a mock implementation of TransactionRepository.
type MockTransactionRepository struct {
	mu           sync.RWMutex
	transactions map[string]*domain.Transaction

	CreateFunc                      func(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error
	GetByExternalIDFunc             func(ctx context.Context, externalID, userID string) (*domain.Transaction, error)
	GetByCorrelationIDForUpdateFunc func(ctx context.Context, tx usecase.Transaction, correlationID string) (*domain.Transaction, error)
	GetByIDForUpdateFunc            func(ctx context.Context, tx usecase.Transaction, id string) (*domain.Transaction, error)
	UpdateStatusFunc                func(ctx context.Context, tx usecase.Transaction, id string, status domain.TransactionStatus, fields usecase.StatusFields, updatedAt time.Time) error
	MarkAdminNotifiedFunc           func(ctx context.Context, tx usecase.Transaction, id string, updatedAt time.Time) error
	ListByUserFunc                  func(ctx context.Context, userID string, limit, offset int) ([]*domain.Transaction, error)
	ListWithdrawalsFunc             func(ctx context.Context, limit, offset int) ([]*domain.WithdrawalListItem, error)
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{transactions: make(map[string]*domain.Transaction)}
}

// Seed stores a transaction directly, bypassing the duplicate check.
func (m *MockTransactionRepository) Seed(txn *domain.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[txn.ID] = txn
}

// Get returns a stored transaction for assertions.
func (m *MockTransactionRepository) Get(id string) *domain.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.transactions[id]
}

// Count returns the number of stored transactions.
func (m *MockTransactionRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.transactions)
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, txn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if txn.ProviderCorrelationID != "" {
		for _, existing := range m.transactions {
			if existing.ProviderCorrelationID == txn.ProviderCorrelationID {
				return domain.ErrDuplicateCorrelation
			}
		}
	}
	copied := *txn
	m.transactions[txn.ID] = &copied
	return nil
}

func (m *MockTransactionRepository) GetByExternalID(ctx context.Context, externalID, userID string) (*domain.Transaction, error) {
	if m.GetByExternalIDFunc != nil {
		return m.GetByExternalIDFunc(ctx, externalID, userID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, txn := range m.transactions {
		if txn.ExternalID == externalID && txn.UserID == userID {
			copied := *txn
			return &copied, nil
		}
	}
	return nil, domain.ErrTransactionNotFound
}

func (m *MockTransactionRepository) GetByCorrelationIDForUpdate(ctx context.Context, tx usecase.Transaction, correlationID string) (*domain.Transaction, error) {
	if m.GetByCorrelationIDForUpdateFunc != nil {
		return m.GetByCorrelationIDForUpdateFunc(ctx, tx, correlationID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, txn := range m.transactions {
		if txn.ProviderCorrelationID == correlationID {
			copied := *txn
			return &copied, nil
		}
	}
	return nil, domain.ErrUnknownTransaction
}

func (m *MockTransactionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Transaction, error) {
	if m.GetByIDForUpdateFunc != nil {
		return m.GetByIDForUpdateFunc(ctx, tx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	txn, ok := m.transactions[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	copied := *txn
	return &copied, nil
}

func (m *MockTransactionRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, status domain.TransactionStatus, fields usecase.StatusFields, updatedAt time.Time) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, tx, id, status, fields, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.transactions[id]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	txn.Status = status
	if fields.ProviderReceiptID != "" {
		txn.ProviderReceiptID = fields.ProviderReceiptID
	}
	if fields.FailureReason != "" {
		txn.FailureReason = fields.FailureReason
	}
	if fields.AdminNotes != "" {
		txn.AdminNotes = fields.AdminNotes
	}
	txn.UpdatedAt = updatedAt
	return nil
}

func (m *MockTransactionRepository) MarkAdminNotified(ctx context.Context, tx usecase.Transaction, id string, updatedAt time.Time) error {
	if m.MarkAdminNotifiedFunc != nil {
		return m.MarkAdminNotifiedFunc(ctx, tx, id, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	txn, ok := m.transactions[id]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	txn.AdminNotified = true
	txn.UpdatedAt = updatedAt
	return nil
}

func (m *MockTransactionRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Transaction, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Transaction
	for _, txn := range m.transactions {
		if txn.UserID == userID {
			copied := *txn
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (m *MockTransactionRepository) ListWithdrawals(ctx context.Context, limit, offset int) ([]*domain.WithdrawalListItem, error) {
	if m.ListWithdrawalsFunc != nil {
		return m.ListWithdrawalsFunc(ctx, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.WithdrawalListItem
	for _, txn := range m.transactions {
		if txn.Kind == domain.KindWithdrawal {
			result = append(result, &domain.WithdrawalListItem{Transaction: *txn})
		}
	}
	return result, nil
}

// MockTransaction is a mock database transaction that records its outcome.
type MockTransaction struct {
	mu         sync.Mutex
	Committed  int
	RolledBack int

	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Committed++
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RolledBack++
	return nil
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	mu    sync.Mutex
	Begun []*MockTransaction

	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &MockTransaction{}
	m.Begun = append(m.Begun, tx)
	return tx, nil
}

// CommittedCount returns how many begun transactions were committed.
func (m *MockTransactionManager) CommittedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, tx := range m.Begun {
		if tx.Committed > 0 {
			count++
		}
	}
	return count
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	mu      sync.Mutex
	counter int

	GenerateFunc func() string
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("id-%04d", m.counter)
}

// MockPaymentProvider is a mock implementation of PaymentProvider.
type MockPaymentProvider struct {
	mu    sync.Mutex
	Calls []usecase.PaymentRequest

	RequestPaymentFunc func(ctx context.Context, req usecase.PaymentRequest) (*usecase.PaymentResponse, error)
}

func NewMockPaymentProvider() *MockPaymentProvider {
	return &MockPaymentProvider{}
}

func (m *MockPaymentProvider) RequestPayment(ctx context.Context, req usecase.PaymentRequest) (*usecase.PaymentResponse, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	m.mu.Unlock()
	if m.RequestPaymentFunc != nil {
		return m.RequestPaymentFunc(ctx, req)
	}
	return &usecase.PaymentResponse{Accepted: true, CorrelationID: "ws_CO_" + req.Reference, Message: "Success"}, nil
}

// MockNotifier is a mock implementation of Notifier.
type MockNotifier struct {
	mu   sync.Mutex
	Sent []MockNotification

	NotifyFunc func(ctx context.Context, recipient, subject, body string) error
}

// MockNotification records one delivered notification.
type MockNotification struct {
	Recipient string
	Subject   string
	Body      string
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Notify(ctx context.Context, recipient, subject, body string) error {
	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, recipient, subject, body)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, MockNotification{Recipient: recipient, Subject: subject, Body: body})
	return nil
}

// SentCount returns how many notifications were recorded.
func (m *MockNotifier) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}
