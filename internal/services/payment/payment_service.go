// Package payment runs plan checkouts through the hosted payment gateway.
// tx_ref is the idempotency key: a payment is settled at most once, under a
// row lock, whichever of the browser callback or the webhook arrives first.
package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/onegreenvn/bizdoc-services-backend/internal/apperror"
	"github.com/onegreenvn/bizdoc-services-backend/internal/database/repository"
	"github.com/onegreenvn/bizdoc-services-backend/internal/metrics"
	"github.com/onegreenvn/bizdoc-services-backend/internal/models"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/activity"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/subscription"
)

// Store persists payments. Settle must hold a lock on the payment row while
// apply runs.
type Store interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByTxRef(ctx context.Context, txRef string) (*models.Payment, error)
	SetCheckoutURL(ctx context.Context, id, url string) error
	Settle(ctx context.Context, txRef string, apply repository.SettleFunc) (*models.Payment, error)
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Payment, error)
}

type UserLookup interface {
	GetByID(id string) (*models.User, error)
}

type Service struct {
	store       Store
	gateway     Gateway
	users       UserLookup
	recorder    activity.Recorder
	currency    string
	webhookHash string
	now         func() time.Time
}

func NewService(store Store, gateway Gateway, users UserLookup, recorder activity.Recorder, currency, webhookHash string) *Service {
	if recorder == nil {
		recorder = activity.Nop{}
	}
	return &Service{
		store:       store,
		gateway:     gateway,
		users:       users,
		recorder:    recorder,
		currency:    strings.ToUpper(currency),
		webhookHash: webhookHash,
		now:         time.Now,
	}
}

func newTxRef() string {
	return "bizdoc-" + uuid.New().String()
}

// Initiate creates a PENDING payment for a paid plan and opens a hosted
// checkout for it
func (s *Service) Initiate(ctx context.Context, userID, planID string) (*models.InitiatePaymentResponse, error) {
	plan, ok := subscription.GetPlan(planID)
	if !ok {
		return nil, apperror.Validation(fmt.Sprintf("unknown plan %q", planID))
	}
	if plan.Amount <= 0 {
		return nil, apperror.Validation("the free plan does not require payment")
	}
	user, err := s.users.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user not found")
		}
		return nil, apperror.Internal(err)
	}

	payment := &models.Payment{
		UserID:   userID,
		TxRef:    newTxRef(),
		Plan:     plan.ID,
		Amount:   plan.Amount,
		Currency: s.currency,
		Status:   models.PaymentPending,
	}
	if err := s.store.Create(ctx, payment); err != nil {
		return nil, apperror.Internal(fmt.Errorf("failed to create payment: %w", err))
	}

	link, err := s.gateway.CreateCheckout(ctx, CheckoutRequest{
		TxRef:         payment.TxRef,
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		CustomerEmail: user.Email,
		CustomerName:  user.FullName(),
		Title:         "BizDoc " + plan.Name,
		Description:   plan.Description,
		Meta:          map[string]string{"plan": plan.ID, "user_id": userID},
	})
	if err != nil {
		s.fail(ctx, payment.TxRef, "checkout could not be created: "+err.Error())
		return nil, apperror.Payment("failed to start checkout", err)
	}
	if err := s.store.SetCheckoutURL(ctx, payment.ID, link); err != nil {
		logrus.WithError(err).WithField("tx_ref", payment.TxRef).Warn("Failed to store checkout link")
	}

	s.recorder.Record(ctx, models.ActivityLog{
		UserID:     userID,
		Action:     models.ActionPaymentInitiated,
		EntityType: "payment",
		EntityID:   payment.ID,
		Message:    fmt.Sprintf("Started %s checkout for %s %.2f", plan.Name, payment.Currency, payment.Amount),
		Metadata:   models.JSON{"tx_ref": payment.TxRef, "plan": plan.ID},
	})

	return &models.InitiatePaymentResponse{
		PaymentID:   payment.ID,
		TxRef:       payment.TxRef,
		CheckoutURL: link,
		Amount:      payment.Amount,
		Currency:    payment.Currency,
	}, nil
}

// Confirm verifies txRef with the gateway and settles the payment. Calling
// it again for a settled payment returns the stored result without
// touching the subscription.
func (s *Service) Confirm(ctx context.Context, txRef string) (*models.Payment, error) {
	txRef = strings.TrimSpace(txRef)
	if txRef == "" {
		return nil, apperror.Validation("tx_ref is required")
	}
	existing, err := s.store.GetByTxRef(ctx, txRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("payment not found")
		}
		return nil, apperror.Internal(err)
	}
	if existing.IsTerminal() {
		return existing, nil
	}

	// the gateway call stays outside the row lock
	verification, verr := s.gateway.VerifyByReference(ctx, txRef)
	if verr != nil {
		logrus.WithError(verr).WithField("tx_ref", txRef).Warn("Payment verification failed")
	}

	settled, _, err := s.settle(ctx, txRef, verification, verr)
	return settled, err
}

// settle applies a verification to a pending payment under the row lock and
// reports whether the payment left PENDING
func (s *Service) settle(ctx context.Context, txRef string, verification *Verification, verr error) (*models.Payment, bool, error) {
	now := s.now()
	transitioned := false
	settled, err := s.store.Settle(ctx, txRef, func(p *models.Payment, sub *models.Subscription) (*models.Subscription, error) {
		if p.IsTerminal() {
			return nil, nil
		}
		status, reason := evaluate(p, verification, verr)
		if status == models.PaymentPending {
			return nil, nil
		}
		transitioned = true
		p.Status = status
		p.FailureReason = reason
		p.VerifiedAt = &now
		if verification != nil {
			p.GatewayTransactionID = verification.TransactionID
		}
		if status != models.PaymentCompleted {
			return nil, nil
		}
		return subscription.Extend(sub, p.UserID, p.Plan, p.ID, now), nil
	})
	if err != nil {
		return nil, false, apperror.Internal(fmt.Errorf("failed to settle payment %s: %w", txRef, err))
	}

	if transitioned {
		s.recordSettlement(ctx, settled)
	}
	return settled, transitioned, nil
}

const staleBatchSize = 100

// ExpireStale re-verifies pending payments created before cutoff. Payments
// the gateway completed are settled normally. A payment is failed only when
// the gateway reports it failed or has no transaction for it; gateway errors
// leave it pending for the next run.
func (s *Service) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	stale, err := s.store.ListStalePending(ctx, cutoff, staleBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale payments: %w", err)
	}

	var closed int64
	for _, p := range stale {
		if err := ctx.Err(); err != nil {
			return closed, err
		}
		verification, verr := s.gateway.VerifyByReference(ctx, p.TxRef)
		if verr != nil && !errors.Is(verr, ErrTransactionNotFound) {
			logrus.WithError(verr).WithField("tx_ref", p.TxRef).Warn("Could not verify stale payment, keeping it pending")
			continue
		}
		_, transitioned, err := s.settle(ctx, p.TxRef, verification, verr)
		if err != nil {
			logrus.WithError(err).WithField("tx_ref", p.TxRef).Error("Failed to settle stale payment")
			continue
		}
		if transitioned {
			closed++
		}
	}
	return closed, nil
}

// evaluate decides the outcome of a verification. PENDING means the
// gateway has not finished and the payment stays open.
func evaluate(p *models.Payment, v *Verification, verr error) (string, string) {
	switch {
	case errors.Is(verr, ErrTransactionNotFound):
		return models.PaymentFailed, "checkout abandoned"
	case verr != nil:
		return models.PaymentFailed, "verification failed: " + verr.Error()
	case v == nil:
		return models.PaymentFailed, "verification returned no transaction"
	case v.Status == GatewayPending:
		return models.PaymentPending, ""
	case v.Status != GatewaySuccessful:
		return models.PaymentFailed, fmt.Sprintf("gateway reported status %q", v.Status)
	case v.TxRef != "" && v.TxRef != p.TxRef:
		return models.PaymentFailed, "transaction reference mismatch"
	case !strings.EqualFold(v.Currency, p.Currency):
		return models.PaymentFailed, fmt.Sprintf("currency mismatch: expected %s, got %s", p.Currency, v.Currency)
	case v.Amount+0.005 < p.Amount:
		return models.PaymentFailed, fmt.Sprintf("amount mismatch: expected %.2f, got %.2f", p.Amount, math.Round(v.Amount*100)/100)
	}
	return models.PaymentCompleted, ""
}

// HandleWebhook authenticates a gateway notification and settles the
// referenced payment. The event body is only used to find tx_ref; amounts
// and status always come from a fresh verification.
func (s *Service) HandleWebhook(ctx context.Context, signature string, event *models.PaymentWebhookEvent) (*models.Payment, error) {
	if !ValidWebhookSignature(s.webhookHash, signature) {
		return nil, apperror.Unauthorized("invalid webhook signature")
	}
	if event == nil || event.Data.TxRef == "" {
		return nil, apperror.Validation("webhook event has no tx_ref")
	}
	return s.Confirm(ctx, event.Data.TxRef)
}

// GetForUser returns a payment owned by userID
func (s *Service) GetForUser(ctx context.Context, userID, txRef string) (*models.Payment, error) {
	p, err := s.store.GetByTxRef(ctx, txRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("payment not found")
		}
		return nil, apperror.Internal(err)
	}
	if p.UserID != userID {
		return nil, apperror.NotFound("payment not found")
	}
	return p, nil
}

func (s *Service) fail(ctx context.Context, txRef, reason string) {
	now := s.now()
	_, err := s.store.Settle(ctx, txRef, func(p *models.Payment, _ *models.Subscription) (*models.Subscription, error) {
		if !p.IsTerminal() {
			p.Status = models.PaymentFailed
			p.FailureReason = reason
			p.VerifiedAt = &now
		}
		return nil, nil
	})
	if err != nil {
		logrus.WithError(err).WithField("tx_ref", txRef).Error("Failed to mark payment as failed")
		return
	}
	metrics.Payments.WithLabelValues(models.PaymentFailed).Inc()
}

func (s *Service) recordSettlement(ctx context.Context, p *models.Payment) {
	metrics.Payments.WithLabelValues(p.Status).Inc()

	entry := models.ActivityLog{
		UserID:     p.UserID,
		EntityType: "payment",
		EntityID:   p.ID,
		Metadata:   models.JSON{"tx_ref": p.TxRef, "plan": p.Plan, "amount": p.Amount, "currency": p.Currency},
	}
	fields := logrus.Fields{"tx_ref": p.TxRef, "user_id": p.UserID, "plan": p.Plan}
	if p.Status == models.PaymentCompleted {
		entry.Action = models.ActionPaymentCompleted
		entry.Message = fmt.Sprintf("Payment of %s %.2f completed for the %s plan", p.Currency, p.Amount, p.Plan)
		logrus.WithFields(fields).Info("Payment completed")
	} else {
		entry.Action = models.ActionPaymentFailed
		entry.Message = "Payment failed: " + p.FailureReason
		logrus.WithFields(fields).WithField("reason", p.FailureReason).Warn("Payment failed")
	}
	s.recorder.Record(ctx, entry)
}
