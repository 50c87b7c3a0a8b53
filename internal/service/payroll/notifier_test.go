package payroll

import (
	"context"
	"sync"
	"testing"

	"github.com/cmlabs-hris/hris-payroll/internal/domain/notification"
	"github.com/cmlabs-hris/hris-payroll/internal/domain/payroll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type queueingNotificationService struct {
	notification.Service
	mu     sync.Mutex
	queued []notification.CreateNotificationRequest
	sent   []notification.CreateNotificationRequest
}

func (s *queueingNotificationService) Send(ctx context.Context, req notification.CreateNotificationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, req)
	return nil
}

func (s *queueingNotificationService) QueueNotification(ctx context.Context, req notification.CreateNotificationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queued = append(s.queued, req)
	return nil
}

func (s *queueingNotificationService) QueueBulkNotification(ctx context.Context, reqs []notification.CreateNotificationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queued = append(s.queued, reqs...)
	return nil
}

func TestNotifier_PayrollGenerated(t *testing.T) {
	svc := &queueingNotificationService{}
	n := NewNotifier(svc)

	records := []payroll.PayrollRecord{
		{ID: "rec-1", UserID: strPtr("user-1")},
		{ID: "rec-2"},
		{ID: "rec-3", UserID: strPtr("")},
	}
	require.NoError(t, n.PayrollGenerated(context.Background(), testCompanyID, testActorID, 4, 2024, records))

	require.Len(t, svc.queued, 2)
	summary := svc.queued[0]
	assert.Equal(t, testActorID, summary.RecipientID)
	assert.Equal(t, notification.TypePayrollGenerated, summary.Type)
	assert.Equal(t, "Payroll for 2024-04 generated for 3 employees", summary.Message)

	personal := svc.queued[1]
	assert.Equal(t, "user-1", personal.RecipientID)
	require.NotNil(t, personal.SenderID)
	assert.Equal(t, testActorID, *personal.SenderID)
	assert.Equal(t, "rec-1", personal.Data["payroll_record_id"])
}

func TestNotifier_PayrollGeneratedWithoutRecipients(t *testing.T) {
	svc := &queueingNotificationService{}
	n := NewNotifier(svc)

	require.NoError(t, n.PayrollGenerated(context.Background(), testCompanyID, "", 4, 2024, []payroll.PayrollRecord{{ID: "rec-1"}}))
	assert.Empty(t, svc.queued)
}

func TestNotifier_PayrollStatusChanged(t *testing.T) {
	svc := &queueingNotificationService{}
	n := NewNotifier(svc)

	rec := payroll.PayrollRecord{ID: "rec-1", CompanyID: testCompanyID, PeriodMonth: 4, PeriodYear: 2024, UserID: strPtr("user-1")}

	rec.Status = payroll.PayrollStatusApproved
	require.NoError(t, n.PayrollStatusChanged(context.Background(), rec, testActorID))
	rec.Status = payroll.PayrollStatusPaid
	require.NoError(t, n.PayrollStatusChanged(context.Background(), rec, testActorID))
	rec.Status = payroll.PayrollStatusDraft
	require.NoError(t, n.PayrollStatusChanged(context.Background(), rec, testActorID))

	require.Len(t, svc.queued, 2)
	assert.Equal(t, notification.TypePayrollApproved, svc.queued[0].Type)
	assert.Equal(t, notification.TypePayrollPaid, svc.queued[1].Type)
	assert.Equal(t, "paid", svc.queued[1].Data["status"])

	rec.UserID = nil
	rec.Status = payroll.PayrollStatusApproved
	require.NoError(t, n.PayrollStatusChanged(context.Background(), rec, testActorID))
	assert.Len(t, svc.queued, 2)
}

func TestNotifier_PayslipReady(t *testing.T) {
	svc := &queueingNotificationService{}
	n := NewNotifier(svc)

	ps := payroll.Payslip{
		ID:              "ps-1",
		PayrollRecordID: "rec-1",
		CompanyID:       testCompanyID,
		PayslipNumber:   "PS-202404-E1",
		PeriodMonth:     4,
		PeriodYear:      2024,
		NetPay:          dec("59336.37"),
		UserID:          strPtr("user-1"),
	}
	require.NoError(t, n.PayslipReady(context.Background(), ps, nil))

	assert.Empty(t, svc.queued)
	require.Len(t, svc.sent, 1)
	got := svc.sent[0]
	assert.Equal(t, notification.TypePayslipReady, got.Type)
	assert.Nil(t, got.SenderID)
	assert.Equal(t, "Your payslip PS-202404-E1 for 2024-04 is ready", got.Message)
	assert.Equal(t, "59336.37", got.Data["net_pay"])

	ps.UserID = nil
	assert.ErrorIs(t, n.PayslipReady(context.Background(), ps, nil), errNoRecipient)
}
