package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/onegreenvn/bizdoc-services-backend/internal/apperror"
	"github.com/onegreenvn/bizdoc-services-backend/internal/database/repository"
	"github.com/onegreenvn/bizdoc-services-backend/internal/models"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/subscription"
)

type memStore struct {
	mu       sync.Mutex
	payments map[string]*models.Payment
	subs     map[string]*models.Subscription
	seq      int
}

func newMemStore() *memStore {
	return &memStore{payments: map[string]*models.Payment{}, subs: map[string]*models.Subscription{}}
}

func (m *memStore) Create(_ context.Context, p *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	p.ID = fmt.Sprintf("pay-%d", m.seq)
	cp := *p
	m.payments[p.TxRef] = &cp
	return nil
}

func (m *memStore) GetByTxRef(_ context.Context, txRef string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[txRef]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) SetCheckoutURL(_ context.Context, id, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.ID == id {
			p.CheckoutURL = url
		}
	}
	return nil
}

// Settle holds the store mutex for the whole callback, like the row lock
func (m *memStore) Settle(_ context.Context, txRef string, apply repository.SettleFunc) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.payments[txRef]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	p := *stored
	var current *models.Subscription
	if s, ok := m.subs[p.UserID]; ok {
		cp := *s
		current = &cp
	}
	next, err := apply(&p, current)
	if err != nil {
		return nil, err
	}
	*stored = p
	if next != nil {
		m.subs[p.UserID] = next
	}
	return &p, nil
}

func (m *memStore) ListStalePending(_ context.Context, cutoff time.Time, limit int) ([]models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Payment
	for _, p := range m.payments {
		if p.Status == models.PaymentPending && p.CreatedAt.Before(cutoff) && len(out) < limit {
			out = append(out, *p)
		}
	}
	return out, nil
}

type fakeGateway struct {
	mu           sync.Mutex
	verification *Verification
	verifyErr    error
	checkoutErr  error
	verifyCalls  int
	// per tx_ref overrides
	byRef    map[string]*Verification
	errByRef map[string]error
}

func (g *fakeGateway) CreateCheckout(_ context.Context, req CheckoutRequest) (string, error) {
	if g.checkoutErr != nil {
		return "", g.checkoutErr
	}
	return "https://checkout.test/" + req.TxRef, nil
}

func (g *fakeGateway) VerifyByReference(_ context.Context, txRef string) (*Verification, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifyCalls++
	if err, ok := g.errByRef[txRef]; ok {
		return nil, err
	}
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	v := *g.verification
	if override, ok := g.byRef[txRef]; ok {
		v = *override
	}
	v.TxRef = txRef
	return &v, nil
}

type fakeUsers struct{}

func (fakeUsers) GetByID(id string) (*models.User, error) {
	if id != "user-1" {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.User{ID: id, Email: "owner@acme.test", FirstName: "Ada"}, nil
}

type recorded struct {
	mu      sync.Mutex
	actions []string
}

func (r *recorded) Record(_ context.Context, e models.ActivityLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, e.Action)
}

var now = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestService(gw *fakeGateway) (*Service, *memStore, *recorded) {
	store := newMemStore()
	rec := &recorded{}
	s := NewService(store, gw, fakeUsers{}, rec, "ngn", "hook-secret")
	s.now = func() time.Time { return now }
	return s, store, rec
}

func successful(amount float64) *fakeGateway {
	return &fakeGateway{verification: &Verification{TransactionID: "4412", Status: GatewaySuccessful, Amount: amount, Currency: "NGN"}}
}

func TestInitiate(t *testing.T) {
	s, store, rec := newTestService(successful(5000))

	resp, err := s.Initiate(context.Background(), "user-1", models.PlanStarter)
	require.NoError(t, err)
	assert.Equal(t, "NGN", resp.Currency)
	assert.EqualValues(t, 5000, resp.Amount)
	assert.Equal(t, "https://checkout.test/"+resp.TxRef, resp.CheckoutURL)

	p := store.payments[resp.TxRef]
	assert.Equal(t, models.PaymentPending, p.Status)
	assert.Equal(t, resp.CheckoutURL, p.CheckoutURL)
	assert.Equal(t, []string{models.ActionPaymentInitiated}, rec.actions)

	_, err = s.Initiate(context.Background(), "user-1", models.PlanFree)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	_, err = s.Initiate(context.Background(), "user-1", "gold")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestInitiateGatewayFailureMarksPaymentFailed(t *testing.T) {
	gw := successful(5000)
	gw.checkoutErr = errors.New("gateway down")
	s, store, _ := newTestService(gw)

	_, err := s.Initiate(context.Background(), "user-1", models.PlanStarter)
	assert.True(t, apperror.HasCode(err, apperror.CodePayment))
	require.Len(t, store.payments, 1)
	for _, p := range store.payments {
		assert.Equal(t, models.PaymentFailed, p.Status)
	}
}

func TestConfirmCompletesAndExtendsSubscription(t *testing.T) {
	s, store, rec := newTestService(successful(5000))
	resp, err := s.Initiate(context.Background(), "user-1", models.PlanStarter)
	require.NoError(t, err)

	p, err := s.Confirm(context.Background(), resp.TxRef)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, p.Status)
	assert.Equal(t, "4412", p.GatewayTransactionID)

	sub := store.subs["user-1"]
	require.NotNil(t, sub)
	assert.Equal(t, models.PlanStarter, sub.Plan)
	assert.Equal(t, now.Add(subscription.PeriodLength), *sub.CurrentPeriodEnd)
	assert.Contains(t, rec.actions, models.ActionPaymentCompleted)
}

func TestWebhookReplayDoesNotExtendTwice(t *testing.T) {
	gw := successful(5000)
	s, store, rec := newTestService(gw)
	resp, err := s.Initiate(context.Background(), "user-1", models.PlanStarter)
	require.NoError(t, err)

	event := &models.PaymentWebhookEvent{Event: "charge.completed"}
	event.Data.TxRef = resp.TxRef

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.HandleWebhook(context.Background(), "hook-secret", event)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	_, err = s.HandleWebhook(context.Background(), "hook-secret", event)
	require.NoError(t, err)

	assert.Equal(t, now.Add(subscription.PeriodLength), *store.subs["user-1"].CurrentPeriodEnd)
	completed := 0
	for _, a := range rec.actions {
		if a == models.ActionPaymentCompleted {
			completed++
		}
	}
	assert.Equal(t, 1, completed)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	s, _, _ := newTestService(successful(5000))
	event := &models.PaymentWebhookEvent{}
	event.Data.TxRef = "x"
	_, err := s.HandleWebhook(context.Background(), "guess", event)
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
}

func TestConfirmFailures(t *testing.T) {
	cases := map[string]struct {
		gateway *fakeGateway
		reason  string
	}{
		"amount mismatch":   {successful(100), "amount mismatch"},
		"currency mismatch": {&fakeGateway{verification: &Verification{Status: GatewaySuccessful, Amount: 5000, Currency: "USD"}}, "currency mismatch"},
		"declined":          {&fakeGateway{verification: &Verification{Status: "failed", Amount: 5000, Currency: "NGN"}}, `status "failed"`},
		"gateway error":     {&fakeGateway{verifyErr: errors.New("timeout")}, "verification failed"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			s, store, rec := newTestService(tc.gateway)
			resp, err := s.Initiate(context.Background(), "user-1", models.PlanStarter)
			require.NoError(t, err)

			p, err := s.Confirm(context.Background(), resp.TxRef)
			require.NoError(t, err)
			assert.Equal(t, models.PaymentFailed, p.Status)
			assert.Contains(t, p.FailureReason, tc.reason)
			assert.Nil(t, store.subs["user-1"])
			assert.Contains(t, rec.actions, models.ActionPaymentFailed)
		})
	}
}

func TestConfirmLeavesPendingGatewayTransactionsOpen(t *testing.T) {
	gw := &fakeGateway{verification: &Verification{Status: GatewayPending, Amount: 5000, Currency: "NGN"}}
	s, _, _ := newTestService(gw)
	resp, err := s.Initiate(context.Background(), "user-1", models.PlanStarter)
	require.NoError(t, err)

	p, err := s.Confirm(context.Background(), resp.TxRef)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, p.Status)

	gw.verification.Status = GatewaySuccessful
	p, err = s.Confirm(context.Background(), resp.TxRef)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, p.Status)
}

func TestConfirmUnknownTxRef(t *testing.T) {
	s, _, _ := newTestService(successful(5000))
	_, err := s.Confirm(context.Background(), "nope")
	assert.True(t, apperror.HasCode(err, apperror.CodeNotFound))
}

func TestGetForUserHidesOtherUsersPayments(t *testing.T) {
	s, _, _ := newTestService(successful(5000))
	resp, err := s.Initiate(context.Background(), "user-1", models.PlanStarter)
	require.NoError(t, err)

	_, err = s.GetForUser(context.Background(), "user-2", resp.TxRef)
	assert.True(t, apperror.HasCode(err, apperror.CodeNotFound))
	p, err := s.GetForUser(context.Background(), "user-1", resp.TxRef)
	require.NoError(t, err)
	assert.Equal(t, resp.PaymentID, p.ID)
}

func TestExpireStaleVerifiesBeforeFailing(t *testing.T) {
	gw := successful(5000)
	s, store, rec := newTestService(gw)

	refs := map[string]string{}
	for _, name := range []string{"paid", "declined", "abandoned", "unreachable", "in-flight", "fresh"} {
		resp, err := s.Initiate(context.Background(), "user-1", models.PlanStarter)
		require.NoError(t, err)
		refs[name] = resp.TxRef
		store.payments[resp.TxRef].CreatedAt = now.Add(-48 * time.Hour)
	}
	store.payments[refs["fresh"]].CreatedAt = now

	gw.byRef = map[string]*Verification{
		refs["declined"]:  {Status: "cancelled", Amount: 5000, Currency: "NGN"},
		refs["in-flight"]: {Status: GatewayPending, Amount: 5000, Currency: "NGN"},
	}
	gw.errByRef = map[string]error{
		refs["abandoned"]:   fmt.Errorf("%w: No transaction was found for this id", ErrTransactionNotFound),
		refs["unreachable"]: errors.New("failed to reach payment gateway: timeout"),
	}

	closed, err := s.ExpireStale(context.Background(), now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 3, closed)

	assert.Equal(t, models.PaymentCompleted, store.payments[refs["paid"]].Status)
	require.NotNil(t, store.subs["user-1"])
	assert.Equal(t, now.Add(subscription.PeriodLength), *store.subs["user-1"].CurrentPeriodEnd)

	assert.Equal(t, models.PaymentFailed, store.payments[refs["declined"]].Status)
	assert.Contains(t, store.payments[refs["declined"]].FailureReason, "cancelled")
	assert.Equal(t, models.PaymentFailed, store.payments[refs["abandoned"]].Status)
	assert.Equal(t, "checkout abandoned", store.payments[refs["abandoned"]].FailureReason)

	assert.Equal(t, models.PaymentPending, store.payments[refs["unreachable"]].Status)
	assert.Equal(t, models.PaymentPending, store.payments[refs["in-flight"]].Status)
	assert.Equal(t, models.PaymentPending, store.payments[refs["fresh"]].Status)
	assert.Contains(t, rec.actions, models.ActionPaymentCompleted)

	// a webhook for a payment left pending can still complete it
	delete(gw.errByRef, refs["unreachable"])
	p, err := s.Confirm(context.Background(), refs["unreachable"])
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, p.Status)
}
