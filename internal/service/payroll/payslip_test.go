package payroll

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-payroll/internal/domain/notification"
	"github.com/cmlabs-hris/hris-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll/internal/pkg/sse"
	notificationservice "github.com/cmlabs-hris/hris-payroll/internal/service/notification"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerivePayslip_CopiesRecord(t *testing.T) {
	at := time.Date(2024, time.May, 5, 8, 0, 0, 0, time.UTC)
	rec := payroll.PayrollRecord{
		ID:              "0190a6f0-0000-7000-8000-00000000abcd",
		EmployeeID:      "emp-1",
		CompanyID:       testCompanyID,
		PeriodMonth:     4,
		PeriodYear:      2024,
		BasicSalary:     dec("45454.55"),
		HRA:             dec("18181.82"),
		DA:              dec("4545.46"),
		PF:              dec("5454.55"),
		ESI:             decimal.Zero,
		ProfessionalTax: dec("200"),
		IncomeTax:       dec("3190.91"),
		GrossSalary:     dec("68181.83"),
		TotalDeductions: dec("8845.46"),
		NetPay:          dec("59336.37"),
		AllowancesDetail: map[string]decimal.Decimal{
			"Transport": dec("1500"),
			"Meal":      dec("250"),
		},
		DeductionsDetail: map[string]decimal.Decimal{"Canteen": dec("300")},
		WorkingDays:      22,
		PresentDays:      20,
		EmployeeName:     strPtr("Rina Wijaya"),
		EmployeeCode:     strPtr("emp-001"),
		PositionName:     strPtr("Engineer"),
		UserID:           strPtr("user-1"),
	}

	ps := DerivePayslip(rec, strPtr(testActorID), at)

	assert.Equal(t, rec.ID, ps.PayrollRecordID)
	assert.Equal(t, "PS-202404-emp-001", ps.PayslipNumber)
	assert.Equal(t, "Rina Wijaya", ps.EmployeeName)
	assert.Equal(t, "emp-001", ps.EmployeeCode)
	assert.Equal(t, "Engineer", *ps.Designation)
	assert.Nil(t, ps.Department)
	assert.Equal(t, payroll.PayslipStatusGenerated, ps.Status)
	assert.Equal(t, at, ps.GeneratedAt)
	assert.Equal(t, testActorID, *ps.GeneratedBy)
	assert.True(t, rec.NetPay.Equal(ps.NetPay))
	assert.True(t, rec.GrossSalary.Equal(ps.GrossSalary))
	assert.True(t, rec.TotalDeductions.Equal(ps.TotalDeductions))
	assert.Equal(t, 22, ps.WorkingDays)
	assert.Equal(t, 20, ps.PresentDays)

	earnings := make([]string, 0, len(ps.Breakdown.Earnings))
	for _, l := range ps.Breakdown.Earnings {
		earnings = append(earnings, l.Name)
	}
	assert.Equal(t, []string{"Basic Salary", "House Rent Allowance", "Dearness Allowance", "Meal", "Transport"}, earnings)

	deductions := make([]string, 0, len(ps.Breakdown.Deductions))
	for _, l := range ps.Breakdown.Deductions {
		deductions = append(deductions, l.Name)
	}
	assert.Equal(t, []string{"Provident Fund", "Employee State Insurance", "Professional Tax", "Income Tax", "Canteen"}, deductions)
}

func TestPayslipNumber_FallsBackToRecordID(t *testing.T) {
	rec := payroll.PayrollRecord{ID: "0190a6f0-0000-7000-8000-0000deadbeef", PeriodMonth: 11, PeriodYear: 2024}
	assert.Equal(t, "PS-202411-DEADBEEF", payslipNumber(rec))

	rec.EmployeeCode = strPtr("")
	assert.Equal(t, "PS-202411-DEADBEEF", payslipNumber(rec))

	rec.ID = "short"
	assert.Equal(t, "PS-202411-SHORT", payslipNumber(rec))
}

func TestPayslipNumber_KeepsEmployeeCodeCase(t *testing.T) {
	lower := payroll.PayrollRecord{ID: "rec-1", PeriodMonth: 4, PeriodYear: 2024, EmployeeCode: strPtr("emp-1")}
	upper := payroll.PayrollRecord{ID: "rec-2", PeriodMonth: 4, PeriodYear: 2024, EmployeeCode: strPtr("EMP-1")}

	assert.Equal(t, "PS-202404-emp-1", payslipNumber(lower))
	assert.Equal(t, "PS-202404-EMP-1", payslipNumber(upper))
	assert.NotEqual(t, payslipNumber(lower), payslipNumber(upper))
}

func TestUniqueIDs(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, uniqueIDs([]string{"a", "b", "a", "c", "b"}))
	assert.Empty(t, uniqueIDs(nil))
}

func recordIDs(records []payroll.PayrollRecord) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestGeneratePayslips_DeliversToLinkedUsers(t *testing.T) {
	h := newHarness(t, payroll.RegenerationPreserveFinalized)
	linked := h.addEmployee("E1", strPtr("user-1"))
	unlinked := h.addEmployee("E2", nil)
	h.addStructure(linked.ID, "30000")
	h.addStructure(unlinked.ID, "30000")

	result, err := h.generate(t, 4, 2024)
	require.NoError(t, err)
	require.Len(t, result.Records, 2)

	payslips, err := h.svc.GeneratePayslips(context.Background(), payroll.GeneratePayslipsRequest{
		PayrollIDs: recordIDs(result.Records),
		CompanyID:  testCompanyID,
		ActorID:    testActorID,
	})
	require.NoError(t, err)
	require.Len(t, payslips, 2)

	byEmployee := map[string]payroll.Payslip{}
	for _, ps := range payslips {
		byEmployee[ps.EmployeeID] = ps
	}

	sent := byEmployee[linked.ID]
	assert.Equal(t, payroll.PayslipStatusSent, sent.Status)
	require.NotNil(t, sent.SentAt)
	assert.Equal(t, harnessNow, *sent.SentAt)

	pending := byEmployee[unlinked.ID]
	assert.Equal(t, payroll.PayslipStatusGenerated, pending.Status)
	assert.Nil(t, pending.SentAt)

	assert.Equal(t, 1, h.notifier.readyCount())

	stored, err := h.svc.GetPayslip(context.Background(), testCompanyID, sent.ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.PayslipStatusSent, stored.Status)
}

func TestGeneratePayslips_OncePerRecordUnderConcurrency(t *testing.T) {
	h := newHarness(t, payroll.RegenerationPreserveFinalized)
	for _, code := range []string{"E1", "E2", "E3", "E4"} {
		emp := h.addEmployee(code, strPtr("user-"+code))
		h.addStructure(emp.ID, "25000")
	}

	result, err := h.generate(t, 4, 2024)
	require.NoError(t, err)
	ids := recordIDs(result.Records)
	// A duplicate id in one request is collapsed.
	requested := append(append([]string(nil), ids...), ids[0])

	const callers = 8
	results := make([][]payroll.Payslip, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = h.svc.GeneratePayslips(context.Background(), payroll.GeneratePayslipsRequest{
				PayrollIDs: requested,
				CompanyID:  testCompanyID,
				ActorID:    testActorID,
			})
		}()
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Len(t, results[i], len(ids))
		for j := range ids {
			assert.Equal(t, ids[j], results[i][j].PayrollRecordID)
			assert.Equal(t, results[0][j].ID, results[i][j].ID)
		}
	}

	all, err := h.svc.ListPayslips(context.Background(), testCompanyID, payroll.PayslipFilter{})
	require.NoError(t, err)
	assert.Len(t, all, len(ids))
	assert.Equal(t, len(ids), h.notifier.readyCount(), "each payslip announced once")
}

func TestGeneratePayslips_UnknownRecord(t *testing.T) {
	h := newHarness(t, payroll.RegenerationPreserveFinalized)

	_, err := h.svc.GeneratePayslips(context.Background(), payroll.GeneratePayslipsRequest{
		PayrollIDs: []string{"0190a6f0-0000-7000-8000-00000000ffff"},
		CompanyID:  testCompanyID,
	})
	assert.ErrorIs(t, err, payroll.ErrPayrollRecordNotFound)
}

func TestGeneratePayslips_Validation(t *testing.T) {
	h := newHarness(t, payroll.RegenerationPreserveFinalized)

	_, err := h.svc.GeneratePayslips(context.Background(), payroll.GeneratePayslipsRequest{CompanyID: testCompanyID})
	assert.Error(t, err)
}

func TestDeliverPendingPayslips_RetriesFailedDelivery(t *testing.T) {
	h := newHarness(t, payroll.RegenerationPreserveFinalized)
	emp := h.addEmployee("E1", strPtr("user-1"))
	h.addStructure(emp.ID, "40000")

	result, err := h.generate(t, 4, 2024)
	require.NoError(t, err)

	h.notifier.err = errStorage
	payslips, err := h.svc.GeneratePayslips(context.Background(), payroll.GeneratePayslipsRequest{
		PayrollIDs: recordIDs(result.Records),
		CompanyID:  testCompanyID,
		ActorID:    testActorID,
	})
	require.NoError(t, err, "notification failures do not fail generation")
	require.Len(t, payslips, 1)
	assert.Equal(t, payroll.PayslipStatusGenerated, payslips[0].Status)

	h.notifier.mu.Lock()
	h.notifier.err = nil
	h.notifier.mu.Unlock()

	// Still inside the grace window.
	require.NoError(t, h.svc.DeliverPendingPayslips(context.Background()))
	stored, err := h.svc.GetPayslip(context.Background(), testCompanyID, payslips[0].ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.PayslipStatusGenerated, stored.Status)

	h.clock.Advance(2 * time.Minute)
	require.NoError(t, h.svc.DeliverPendingPayslips(context.Background()))

	stored, err = h.svc.GetPayslip(context.Background(), testCompanyID, payslips[0].ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.PayslipStatusSent, stored.Status)
	require.NotNil(t, stored.SentAt)
	assert.Equal(t, harnessNow.Add(2*time.Minute), *stored.SentAt)
}

// flakyNotificationRepo fails every insert until err is cleared.
type flakyNotificationRepo struct {
	notification.Repository
	mu      sync.Mutex
	err     error
	created []*notification.Notification
}

func (r *flakyNotificationRepo) Create(ctx context.Context, n *notification.Notification) error {
	return r.CreateBatch(ctx, []*notification.Notification{n})
}

func (r *flakyNotificationRepo) CreateBatch(ctx context.Context, ns []*notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.created = append(r.created, ns...)
	return nil
}

func (r *flakyNotificationRepo) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func TestDeliverPayslip_StaysPendingUntilNotificationIsStored(t *testing.T) {
	h := newHarness(t, payroll.RegenerationPreserveFinalized)
	emp := h.addEmployee("E1", strPtr("user-1"))
	h.addStructure(emp.ID, "40000")

	repo := &flakyNotificationRepo{err: errStorage}
	notifications := notificationservice.NewNotificationService(repo, sse.NewHub(0), h.clock, notificationservice.Config{WorkerCount: 1})
	defer notifications.Stop()
	h.wire(payroll.RegenerationPreserveFinalized, NewNotifier(notifications))

	result, err := h.generate(t, 4, 2024)
	require.NoError(t, err)

	payslips, err := h.svc.GeneratePayslips(context.Background(), payroll.GeneratePayslipsRequest{
		PayrollIDs: recordIDs(result.Records),
		CompanyID:  testCompanyID,
		ActorID:    testActorID,
	})
	require.NoError(t, err)
	require.Len(t, payslips, 1)
	assert.Equal(t, payroll.PayslipStatusGenerated, payslips[0].Status)

	stored, err := h.svc.GetPayslip(context.Background(), testCompanyID, payslips[0].ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.PayslipStatusGenerated, stored.Status)
	assert.Nil(t, stored.SentAt)

	repo.setErr(nil)
	h.clock.Advance(2 * time.Minute)
	require.NoError(t, h.svc.DeliverPendingPayslips(context.Background()))

	stored, err = h.svc.GetPayslip(context.Background(), testCompanyID, payslips[0].ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.PayslipStatusSent, stored.Status)

	ready := 0
	repo.mu.Lock()
	for _, n := range repo.created {
		if n.Type == notification.TypePayslipReady {
			ready++
		}
	}
	repo.mu.Unlock()
	assert.Equal(t, 1, ready)
}
