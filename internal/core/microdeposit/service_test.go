package microdeposit

import (
	"context"
	"testing"
	"time"

	"RailSettle/internal/core/domain"
	"RailSettle/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type MockMicrodepositRepository struct {
	mock.Mock
}

var _ ports.MicrodepositRepository = (*MockMicrodepositRepository)(nil)

func (m *MockMicrodepositRepository) Create(ctx context.Context, v *domain.MicrodepositVerification) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}
func (m *MockMicrodepositRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*domain.MicrodepositVerification, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MicrodepositVerification), args.Error(1)
}
func (m *MockMicrodepositRepository) Update(ctx context.Context, v *domain.MicrodepositVerification) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

type MockBankAccountRepository struct {
	mock.Mock
}

var _ ports.BankAccountRepository = (*MockBankAccountRepository)(nil)

func (m *MockBankAccountRepository) Create(ctx context.Context, acct *domain.BankAccount) error {
	args := m.Called(ctx, acct)
	return args.Error(0)
}
func (m *MockBankAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.BankAccount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BankAccount), args.Error(1)
}
func (m *MockBankAccountRepository) Update(ctx context.Context, acct *domain.BankAccount) error {
	args := m.Called(ctx, acct)
	return args.Error(0)
}
func (m *MockBankAccountRepository) SetVerification(ctx context.Context, id uuid.UUID, method domain.VerificationMethod, status domain.VerificationStatus) error {
	args := m.Called(ctx, id, method, status)
	return args.Error(0)
}

// --- Fixtures ---

var verifyNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func pendingVerification(mutate func(*domain.MicrodepositVerification)) *domain.MicrodepositVerification {
	sent := verifyNow.Add(-48 * time.Hour)
	expires := sent.AddDate(0, 0, 10)
	v := &domain.MicrodepositVerification{
		ID:           uuid.New(),
		AccountID:    uuid.New(),
		Amount1Cents: 37,
		Amount2Cents: 82,
		SentAt:       &sent,
		ExpiresAt:    &expires,
		MaxAttempts:  3,
	}
	if mutate != nil {
		mutate(v)
	}
	return v
}

func newTestService(repo *MockMicrodepositRepository, accounts *MockBankAccountRepository) *Service {
	nop := zerolog.Nop()
	return NewService(DefaultConfig(), repo, accounts, &nop)
}

// --- Tests ---

func TestGenerateAmounts_AlwaysDistinctInRange(t *testing.T) {
	for i := 0; i < 10_000; i++ {
		a, b, err := GenerateAmounts(1, 99)
		require.NoError(t, err)
		require.NotEqual(t, a, b, "draw %d produced an equal pair", i)
		require.GreaterOrEqual(t, a, 1)
		require.LessOrEqual(t, a, 99)
		require.GreaterOrEqual(t, b, 1)
		require.LessOrEqual(t, b, 99)
	}
}

func TestInitiate_NewAccount(t *testing.T) {
	repo := new(MockMicrodepositRepository)
	accounts := new(MockBankAccountRepository)
	accountID := uuid.New()

	repo.On("GetByAccountID", mock.Anything, accountID).Return(nil, ports.ErrNotFound)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	s := newTestService(repo, accounts)
	v, err := s.Initiate(context.Background(), accountID, verifyNow)
	require.NoError(t, err)
	require.NotEqual(t, v.Amount1Cents, v.Amount2Cents)
	require.Equal(t, 0, v.Attempts)
	require.Equal(t, 3, v.MaxAttempts)
	require.NotNil(t, v.SentAt)
	require.NotNil(t, v.ExpiresAt)
	require.Equal(t, domain.MicrodepositPending, v.Status(verifyNow))
}

func TestInitiate_AlreadyVerified(t *testing.T) {
	repo := new(MockMicrodepositRepository)
	accounts := new(MockBankAccountRepository)
	v := pendingVerification(func(v *domain.MicrodepositVerification) {
		done := verifyNow.Add(-time.Hour)
		v.VerifiedAt = &done
	})
	repo.On("GetByAccountID", mock.Anything, v.AccountID).Return(v, nil)

	s := newTestService(repo, accounts)
	_, err := s.Initiate(context.Background(), v.AccountID, verifyNow)
	require.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestInitiate_ResendCooldown(t *testing.T) {
	repo := new(MockMicrodepositRepository)
	accounts := new(MockBankAccountRepository)
	v := pendingVerification(func(v *domain.MicrodepositVerification) {
		sent := verifyNow.Add(-1 * time.Hour)
		v.SentAt = &sent
	})
	repo.On("GetByAccountID", mock.Anything, v.AccountID).Return(v, nil)

	s := newTestService(repo, accounts)
	_, err := s.Initiate(context.Background(), v.AccountID, verifyNow)
	require.ErrorIs(t, err, ErrResendCooldown)
}

func TestInitiate_ResendAfterCooldownResetsAttempts(t *testing.T) {
	repo := new(MockMicrodepositRepository)
	accounts := new(MockBankAccountRepository)
	v := pendingVerification(func(v *domain.MicrodepositVerification) { v.Attempts = 2 })
	repo.On("GetByAccountID", mock.Anything, v.AccountID).Return(v, nil)
	repo.On("Update", mock.Anything, v).Return(nil)

	s := newTestService(repo, accounts)
	got, err := s.Initiate(context.Background(), v.AccountID, verifyNow)
	require.NoError(t, err)
	require.Equal(t, 0, got.Attempts)
	require.False(t, got.Failed)
	require.Equal(t, verifyNow, got.SentAt.UTC())
}

func TestVerify_OrderIndependentMatch(t *testing.T) {
	repo := new(MockMicrodepositRepository)
	accounts := new(MockBankAccountRepository)
	v := pendingVerification(nil) // stored [37, 82]
	repo.On("GetByAccountID", mock.Anything, v.AccountID).Return(v, nil)
	repo.On("Update", mock.Anything, v).Return(nil)
	accounts.On("SetVerification", mock.Anything, v.AccountID,
		domain.VerificationMethodMicrodeposits, domain.VerificationVerified).Return(nil)

	s := newTestService(repo, accounts)
	res, err := s.Verify(context.Background(), v.AccountID, 82, 37, verifyNow)
	require.NoError(t, err)
	require.True(t, res.Verified)
	require.NotNil(t, v.VerifiedAt)
	accounts.AssertExpectations(t)
}

func TestVerify_AlreadyVerifiedShortCircuits(t *testing.T) {
	repo := new(MockMicrodepositRepository)
	accounts := new(MockBankAccountRepository)
	v := pendingVerification(func(v *domain.MicrodepositVerification) {
		done := verifyNow.Add(-time.Hour)
		v.VerifiedAt = &done
	})
	repo.On("GetByAccountID", mock.Anything, v.AccountID).Return(v, nil)

	s := newTestService(repo, accounts)
	res, err := s.Verify(context.Background(), v.AccountID, 1, 2, verifyNow)
	require.NoError(t, err)
	require.True(t, res.Verified)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestVerify_MismatchConsumesAttempts(t *testing.T) {
	repo := new(MockMicrodepositRepository)
	accounts := new(MockBankAccountRepository)
	v := pendingVerification(nil)
	repo.On("GetByAccountID", mock.Anything, v.AccountID).Return(v, nil)
	repo.On("Update", mock.Anything, v).Return(nil)

	s := newTestService(repo, accounts)

	res, err := s.Verify(context.Background(), v.AccountID, 11, 22, verifyNow)
	require.NoError(t, err)
	require.False(t, res.Verified)
	require.Equal(t, 2, res.AttemptsRemaining)

	res, err = s.Verify(context.Background(), v.AccountID, 11, 23, verifyNow)
	require.NoError(t, err)
	require.Equal(t, 1, res.AttemptsRemaining)

	res, err = s.Verify(context.Background(), v.AccountID, 11, 24, verifyNow)
	require.NoError(t, err)
	require.Equal(t, 0, res.AttemptsRemaining)

	// Fourth try exceeds the budget: terminal failure.
	_, err = s.Verify(context.Background(), v.AccountID, 37, 82, verifyNow)
	require.ErrorIs(t, err, ErrVerificationFailed)
	require.True(t, v.Failed)

	// And it stays failed even with the right amounts.
	_, err = s.Verify(context.Background(), v.AccountID, 37, 82, verifyNow)
	require.ErrorIs(t, err, ErrVerificationFailed)
}

func TestVerify_Expired(t *testing.T) {
	repo := new(MockMicrodepositRepository)
	accounts := new(MockBankAccountRepository)
	v := pendingVerification(func(v *domain.MicrodepositVerification) {
		expired := verifyNow.Add(-time.Hour)
		v.ExpiresAt = &expired
	})
	repo.On("GetByAccountID", mock.Anything, v.AccountID).Return(v, nil)

	s := newTestService(repo, accounts)
	_, err := s.Verify(context.Background(), v.AccountID, 37, 82, verifyNow)
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerify_NotInitiated(t *testing.T) {
	repo := new(MockMicrodepositRepository)
	accounts := new(MockBankAccountRepository)
	accountID := uuid.New()
	repo.On("GetByAccountID", mock.Anything, accountID).Return(nil, ports.ErrNotFound)

	s := newTestService(repo, accounts)
	_, err := s.Verify(context.Background(), accountID, 1, 2, verifyNow)
	require.ErrorIs(t, err, ErrNotInitiated)
}

func TestStatusPrecedence(t *testing.T) {
	expired := verifyNow.Add(-time.Hour)
	done := verifyNow.Add(-2 * time.Hour)

	testCases := []struct {
		name   string
		mutate func(*domain.MicrodepositVerification)
		want   domain.MicrodepositStatus
	}{
		{
			name:   "verified beats expired",
			mutate: func(v *domain.MicrodepositVerification) { v.VerifiedAt = &done; v.ExpiresAt = &expired },
			want:   domain.MicrodepositVerified,
		},
		{
			name:   "failed beats expired",
			mutate: func(v *domain.MicrodepositVerification) { v.Failed = true; v.ExpiresAt = &expired },
			want:   domain.MicrodepositFailed,
		},
		{
			name:   "not sent beats expired",
			mutate: func(v *domain.MicrodepositVerification) { v.SentAt = nil; v.ExpiresAt = &expired },
			want:   domain.MicrodepositNotInitiated,
		},
		{
			name:   "expired",
			mutate: func(v *domain.MicrodepositVerification) { v.ExpiresAt = &expired },
			want:   domain.MicrodepositExpired,
		},
		{
			name:   "pending",
			mutate: nil,
			want:   domain.MicrodepositPending,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v := pendingVerification(tc.mutate)
			require.Equal(t, tc.want, v.Status(verifyNow))
		})
	}
}
