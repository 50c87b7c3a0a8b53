package payroll

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hris-payroll/internal/domain/notification"
	"github.com/cmlabs-hris/hris-payroll/internal/domain/payroll"
)

// notificationNotifier delivers payroll events through the notification queue.
type notificationNotifier struct {
	notifService notification.Service
}

func NewNotifier(notifService notification.Service) payroll.Notifier {
	return &notificationNotifier{notifService: notifService}
}

func (n *notificationNotifier) PayrollGenerated(ctx context.Context, companyID, actorID string, month, year int, records []payroll.PayrollRecord) error {
	period := periodLabel(month, year)

	reqs := make([]notification.CreateNotificationRequest, 0, len(records)+1)
	if actorID != "" {
		reqs = append(reqs, notification.CreateNotificationRequest{
			CompanyID:   companyID,
			RecipientID: actorID,
			Type:        notification.TypePayrollGenerated,
			Title:       "Payroll generated",
			Message:     fmt.Sprintf("Payroll for %s generated for %d employees", period, len(records)),
			Data: map[string]interface{}{
				"period_month": month,
				"period_year":  year,
				"records":      len(records),
			},
		})
	}

	sender := senderOf(actorID)
	for _, rec := range records {
		if rec.UserID == nil || *rec.UserID == "" {
			continue
		}
		reqs = append(reqs, notification.CreateNotificationRequest{
			CompanyID:   companyID,
			RecipientID: *rec.UserID,
			SenderID:    sender,
			Type:        notification.TypePayrollGenerated,
			Title:       "Payroll drafted",
			Message:     fmt.Sprintf("Your payroll for %s has been drafted", period),
			Data: map[string]interface{}{
				"payroll_record_id": rec.ID,
				"period_month":      month,
				"period_year":       year,
			},
		})
	}

	if len(reqs) == 0 {
		return nil
	}
	return n.notifService.QueueBulkNotification(ctx, reqs)
}

func (n *notificationNotifier) PayrollStatusChanged(ctx context.Context, rec payroll.PayrollRecord, actorID string) error {
	if rec.UserID == nil || *rec.UserID == "" {
		return nil
	}

	req := notification.CreateNotificationRequest{
		CompanyID:   rec.CompanyID,
		RecipientID: *rec.UserID,
		SenderID:    senderOf(actorID),
		Data: map[string]interface{}{
			"payroll_record_id": rec.ID,
			"period_month":      rec.PeriodMonth,
			"period_year":       rec.PeriodYear,
			"status":            string(rec.Status),
		},
	}

	period := periodLabel(rec.PeriodMonth, rec.PeriodYear)
	switch rec.Status {
	case payroll.PayrollStatusApproved:
		req.Type = notification.TypePayrollApproved
		req.Title = "Payroll approved"
		req.Message = fmt.Sprintf("Your payroll for %s has been approved", period)
	case payroll.PayrollStatusPaid:
		req.Type = notification.TypePayrollPaid
		req.Title = "Salary paid"
		req.Message = fmt.Sprintf("Your salary for %s has been paid", period)
	default:
		return nil
	}

	return n.notifService.QueueNotification(ctx, req)
}

func (n *notificationNotifier) PayslipReady(ctx context.Context, ps payroll.Payslip, actorID *string) error {
	if ps.UserID == nil || *ps.UserID == "" {
		return errNoRecipient
	}

	// Sent synchronously: the payslip is marked sent only once this is stored.
	return n.notifService.Send(ctx, notification.CreateNotificationRequest{
		CompanyID:   ps.CompanyID,
		RecipientID: *ps.UserID,
		SenderID:    actorID,
		Type:        notification.TypePayslipReady,
		Title:       "Payslip ready",
		Message:     fmt.Sprintf("Your payslip %s for %s is ready", ps.PayslipNumber, periodLabel(ps.PeriodMonth, ps.PeriodYear)),
		Data: map[string]interface{}{
			"payslip_id":        ps.ID,
			"payroll_record_id": ps.PayrollRecordID,
			"net_pay":           ps.NetPay.StringFixed(2),
		},
	})
}

func senderOf(actorID string) *string {
	if actorID == "" {
		return nil
	}
	return &actorID
}

func periodLabel(month, year int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}
