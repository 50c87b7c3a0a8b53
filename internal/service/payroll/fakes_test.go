package payroll

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-payroll/internal/domain/employee"
	"github.com/cmlabs-hris/hris-payroll/internal/domain/leave"
	"github.com/cmlabs-hris/hris-payroll/internal/domain/payroll"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
)

const (
	testCompanyID = "0190a6f0-0000-7000-8000-000000000001"
	testActorID   = "0190a6f0-0000-7000-8000-0000000000ad"
)

var errStorage = errors.New("storage unavailable")

// memStore backs every in-memory repository of a test so the transaction
// fake can snapshot and restore all of them together.
type memStore struct {
	mu         sync.Mutex
	records    map[string]payroll.PayrollRecord
	payslips   map[string]payroll.Payslip // keyed by payroll record id
	structures map[string][]payroll.SalaryStructure

	// failInsertAfter makes CreatePayrollRecords fail once this many rows were
	// inserted in one call. Negative disables it.
	failInsertAfter int
	insertCalls     int
}

func newMemStore() *memStore {
	return &memStore{
		records:         map[string]payroll.PayrollRecord{},
		payslips:        map[string]payroll.Payslip{},
		structures:      map[string][]payroll.SalaryStructure{},
		failInsertAfter: -1,
	}
}

type memSnapshot struct {
	records    map[string]payroll.PayrollRecord
	payslips   map[string]payroll.Payslip
	structures map[string][]payroll.SalaryStructure
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := memSnapshot{
		records:    make(map[string]payroll.PayrollRecord, len(s.records)),
		payslips:   make(map[string]payroll.Payslip, len(s.payslips)),
		structures: make(map[string][]payroll.SalaryStructure, len(s.structures)),
	}
	for k, v := range s.records {
		snap.records[k] = v
	}
	for k, v := range s.payslips {
		snap.payslips[k] = v
	}
	for k, v := range s.structures {
		snap.structures[k] = append([]payroll.SalaryStructure(nil), v...)
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = snap.records
	s.payslips = snap.payslips
	s.structures = snap.structures
}

func (s *memStore) periodRecords(month, year int) []payroll.PayrollRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []payroll.PayrollRecord
	for _, r := range s.records {
		if r.PeriodMonth == month && r.PeriodYear == year {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out
}

func (s *memStore) recordFor(employeeID string, month, year int) (payroll.PayrollRecord, bool) {
	for _, r := range s.periodRecords(month, year) {
		if r.EmployeeID == employeeID {
			return r, true
		}
	}
	return payroll.PayrollRecord{}, false
}

func (s *memStore) setStatus(id string, status payroll.PayrollStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.records[id]
	r.Status = status
	s.records[id] = r
}

// ========== TRANSACTIONS ==========

type memTxManager struct {
	store     *memStore
	mu        sync.Mutex
	commits   int
	rollbacks int
}

func (m *memTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	snap := m.store.snapshot()
	if err := fn(ctx); err != nil {
		m.store.restore(snap)
		m.mu.Lock()
		m.rollbacks++
		m.mu.Unlock()
		return err
	}
	m.mu.Lock()
	m.commits++
	m.mu.Unlock()
	return nil
}

// ========== PAYROLL RECORDS ==========

type memPayrollRepo struct{ store *memStore }

func (r *memPayrollRepo) CreatePayrollRecords(ctx context.Context, records []payroll.PayrollRecord) ([]payroll.PayrollRecord, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertCalls++

	created := make([]payroll.PayrollRecord, 0, len(records))
	for i, rec := range records {
		if s.failInsertAfter >= 0 && i >= s.failInsertAfter {
			return nil, errStorage
		}
		for _, existing := range s.records {
			if existing.EmployeeID == rec.EmployeeID && existing.PeriodMonth == rec.PeriodMonth && existing.PeriodYear == rec.PeriodYear {
				return nil, payroll.ErrPayrollRecordAlreadyExists
			}
		}
		rec.ID = uuid.Must(uuid.NewV7()).String()
		s.records[rec.ID] = rec
		created = append(created, rec)
	}
	return created, nil
}

func (r *memPayrollRepo) GetPayrollRecordByID(ctx context.Context, id string, companyID string) (payroll.PayrollRecord, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	rec, ok := r.store.records[id]
	if !ok || rec.CompanyID != companyID {
		return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
	}
	return rec, nil
}

func (r *memPayrollRepo) GetPayrollRecordForUpdate(ctx context.Context, id string, companyID string) (payroll.PayrollRecord, error) {
	return r.GetPayrollRecordByID(ctx, id, companyID)
}

func (r *memPayrollRepo) ListPayrollRecords(ctx context.Context, filter payroll.PayrollFilter) ([]payroll.PayrollRecord, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []payroll.PayrollRecord
	for _, rec := range r.store.records {
		if rec.CompanyID != filter.CompanyID {
			continue
		}
		if filter.PeriodMonth != nil && rec.PeriodMonth != *filter.PeriodMonth {
			continue
		}
		if filter.PeriodYear != nil && rec.PeriodYear != *filter.PeriodYear {
			continue
		}
		if filter.Status != nil && string(rec.Status) != *filter.Status {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *memPayrollRepo) ListPeriodRecords(ctx context.Context, companyID string, month, year int, employeeIDs []string) ([]payroll.PayrollRecord, error) {
	wanted := map[string]bool{}
	for _, id := range employeeIDs {
		wanted[id] = true
	}

	var out []payroll.PayrollRecord
	for _, rec := range r.store.periodRecords(month, year) {
		if rec.CompanyID != companyID {
			continue
		}
		if len(wanted) > 0 && !wanted[rec.EmployeeID] {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *memPayrollRepo) DeletePayrollRecords(ctx context.Context, companyID string, ids []string) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	deleted := 0
	for _, id := range ids {
		if rec, ok := r.store.records[id]; ok && rec.CompanyID == companyID {
			delete(r.store.records, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *memPayrollRepo) UpdatePayrollStatus(ctx context.Context, record payroll.PayrollRecord) (payroll.PayrollRecord, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.records[record.ID]; !ok {
		return payroll.PayrollRecord{}, payroll.ErrPayrollRecordNotFound
	}
	r.store.records[record.ID] = record
	return record, nil
}

func (r *memPayrollRepo) GetPayrollSummary(ctx context.Context, companyID string, month, year int) (payroll.PayrollSummaryResponse, error) {
	summary := payroll.PayrollSummaryResponse{PeriodMonth: month, PeriodYear: year}
	for _, rec := range r.store.periodRecords(month, year) {
		summary.TotalEmployees++
		summary.TotalNetPay = summary.TotalNetPay.Add(rec.NetPay)
	}
	return summary, nil
}

// ========== SALARY STRUCTURES ==========

type memStructureRepo struct{ store *memStore }

func (r *memStructureRepo) GetActiveByEmployeeID(ctx context.Context, employeeID string, companyID string) (payroll.SalaryStructure, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, s := range r.store.structures[employeeID] {
		if s.IsActive && s.CompanyID == companyID {
			return s, nil
		}
	}
	return payroll.SalaryStructure{}, payroll.ErrSalaryStructureNotFound
}

func (r *memStructureRepo) ListByEmployeeID(ctx context.Context, employeeID string, companyID string) ([]payroll.SalaryStructure, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := append([]payroll.SalaryStructure(nil), r.store.structures[employeeID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].EffectiveDate.After(out[j].EffectiveDate) })
	return out, nil
}

func (r *memStructureRepo) DeactivateActive(ctx context.Context, employeeID string, companyID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i := range r.store.structures[employeeID] {
		r.store.structures[employeeID][i].IsActive = false
	}
	return nil
}

func (r *memStructureRepo) Create(ctx context.Context, structure payroll.SalaryStructure) (payroll.SalaryStructure, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if structure.IsActive {
		for _, s := range r.store.structures[structure.EmployeeID] {
			if s.IsActive {
				return payroll.SalaryStructure{}, payroll.ErrActiveSalaryStructureExists
			}
		}
	}
	structure.ID = uuid.Must(uuid.NewV7()).String()
	r.store.structures[structure.EmployeeID] = append(r.store.structures[structure.EmployeeID], structure)
	return structure, nil
}

// ========== PAYSLIPS ==========

type memPayslipRepo struct{ store *memStore }

func (r *memPayslipRepo) ExistsForRecord(ctx context.Context, payrollRecordID string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	_, ok := r.store.payslips[payrollRecordID]
	return ok, nil
}

func (r *memPayslipRepo) Create(ctx context.Context, ps payroll.Payslip) (payroll.Payslip, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if existing, ok := r.store.payslips[ps.PayrollRecordID]; ok {
		return existing, nil
	}
	r.store.payslips[ps.PayrollRecordID] = ps
	return ps, nil
}

func (r *memPayslipRepo) GetByRecordID(ctx context.Context, payrollRecordID string, companyID string) (payroll.Payslip, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	ps, ok := r.store.payslips[payrollRecordID]
	if !ok || ps.CompanyID != companyID {
		return payroll.Payslip{}, payroll.ErrPayslipNotFound
	}
	return ps, nil
}

func (r *memPayslipRepo) GetByID(ctx context.Context, id string, companyID string) (payroll.Payslip, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, ps := range r.store.payslips {
		if ps.ID == id && ps.CompanyID == companyID {
			return ps, nil
		}
	}
	return payroll.Payslip{}, payroll.ErrPayslipNotFound
}

func (r *memPayslipRepo) List(ctx context.Context, companyID string, filter payroll.PayslipFilter) ([]payroll.Payslip, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []payroll.Payslip
	for _, ps := range r.store.payslips {
		if ps.CompanyID == companyID {
			out = append(out, ps)
		}
	}
	return out, nil
}

func (r *memPayslipRepo) ListPendingDelivery(ctx context.Context, olderThan time.Time, limit int) ([]payroll.Payslip, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []payroll.Payslip
	for _, ps := range r.store.payslips {
		if ps.Status == payroll.PayslipStatusGenerated && !ps.GeneratedAt.After(olderThan) && ps.UserID != nil {
			out = append(out, ps)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GeneratedAt.Before(out[j].GeneratedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memPayslipRepo) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for key, ps := range r.store.payslips {
		if ps.ID == id {
			ps.Status = payroll.PayslipStatusSent
			ps.SentAt = &sentAt
			r.store.payslips[key] = ps
			return nil
		}
	}
	return payroll.ErrPayslipNotFound
}

func (r *memPayslipRepo) DeleteByRecordIDs(ctx context.Context, companyID string, payrollRecordIDs []string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, id := range payrollRecordIDs {
		delete(r.store.payslips, id)
	}
	return nil
}

// ========== READ SIDE ==========

type memEmployeeRepo struct {
	employees []employee.Employee
}

func (r *memEmployeeRepo) GetByID(ctx context.Context, id string, companyID string) (employee.Employee, error) {
	for _, e := range r.employees {
		if e.ID == id && e.CompanyID == companyID {
			return e, nil
		}
	}
	return employee.Employee{}, employee.ErrEmployeeNotFound
}

func (r *memEmployeeRepo) GetActiveByCompanyID(ctx context.Context, companyID string, employeeIDs []string) ([]employee.Employee, error) {
	wanted := map[string]bool{}
	for _, id := range employeeIDs {
		wanted[id] = true
	}
	var out []employee.Employee
	for _, e := range r.employees {
		if e.CompanyID != companyID || e.EmploymentStatus != employee.EmploymentStatusActive {
			continue
		}
		if len(wanted) > 0 && !wanted[e.ID] {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

type memAttendanceRepo struct {
	mu      sync.Mutex
	present map[string]int
	err     error
}

func (r *memAttendanceRepo) CountPresentDays(ctx context.Context, employeeID string, companyID string, from, to time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	return r.present[employeeID], nil
}

type memLeaveRepo struct {
	leaves map[string][]leave.LeaveRequest
}

func (r *memLeaveRepo) ListApprovedOverlapping(ctx context.Context, employeeID string, companyID string, from, to time.Time) ([]leave.LeaveRequest, error) {
	return r.leaves[employeeID], nil
}

// ========== NOTIFIER ==========

type recordingNotifier struct {
	mu             sync.Mutex
	err            error
	generatedCalls int
	statusChanges  []payroll.PayrollRecord
	payslipsReady  []payroll.Payslip
}

func (n *recordingNotifier) PayrollGenerated(ctx context.Context, companyID, actorID string, month, year int, records []payroll.PayrollRecord) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.generatedCalls++
	return n.err
}

func (n *recordingNotifier) PayrollStatusChanged(ctx context.Context, record payroll.PayrollRecord, actorID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statusChanges = append(n.statusChanges, record)
	return n.err
}

func (n *recordingNotifier) PayslipReady(ctx context.Context, ps payroll.Payslip, actorID *string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if ps.UserID == nil {
		return errNoRecipient
	}
	n.payslipsReady = append(n.payslipsReady, ps)
	return n.err
}

func (n *recordingNotifier) readyCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.payslipsReady)
}

// ========== HARNESS ==========

type harness struct {
	store      *memStore
	tx         *memTxManager
	employees  *memEmployeeRepo
	attendance *memAttendanceRepo
	leaves     *memLeaveRepo
	notifier   *recordingNotifier
	clock      *clockwork.FakeClock
	svc        payroll.PayrollService
}

// Mid June 2024: April 2024 (22 weekdays) is a past period.
var harnessNow = time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC)

func newHarness(t *testing.T, policy payroll.RegenerationPolicy) *harness {
	t.Helper()

	store := newMemStore()
	h := &harness{
		store:      store,
		tx:         &memTxManager{store: store},
		employees:  &memEmployeeRepo{},
		attendance: &memAttendanceRepo{present: map[string]int{}},
		leaves:     &memLeaveRepo{leaves: map[string][]leave.LeaveRequest{}},
		notifier:   &recordingNotifier{},
		clock:      clockwork.NewFakeClockAt(harnessNow),
	}

	h.wire(policy, h.notifier)
	return h
}

// wire (re)builds the service around notifier, sharing the harness stores.
func (h *harness) wire(policy payroll.RegenerationPolicy, notifier payroll.Notifier) {
	aggregator := NewAttendanceAggregator(h.attendance, h.leaves, h.clock)
	h.svc = NewPayrollService(
		h.tx,
		&memPayrollRepo{store: h.store},
		&memStructureRepo{store: h.store},
		&memPayslipRepo{store: h.store},
		h.employees,
		aggregator,
		notifier,
		h.clock,
		Config{RegenerationPolicy: policy, Workers: 4},
	)
}

func (h *harness) addEmployee(code string, userID *string) employee.Employee {
	emp := employee.Employee{
		ID:               uuid.Must(uuid.NewV7()).String(),
		UserID:           userID,
		CompanyID:        testCompanyID,
		EmployeeCode:     code,
		FullName:         "Employee " + code,
		EmploymentStatus: employee.EmploymentStatusActive,
	}
	h.employees.employees = append(h.employees.employees, emp)
	return emp
}

func (h *harness) addStructure(employeeID string, basic string, components ...payroll.SalaryComponent) {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	h.store.structures[employeeID] = append(h.store.structures[employeeID], payroll.SalaryStructure{
		ID:            uuid.Must(uuid.NewV7()).String(),
		EmployeeID:    employeeID,
		CompanyID:     testCompanyID,
		BasicSalary:   decimal.RequireFromString(basic),
		EffectiveDate: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		IsActive:      true,
		Components:    components,
	})
}

func (h *harness) generate(t *testing.T, month, year int) (payroll.GeneratePayrollResult, error) {
	t.Helper()
	return h.svc.GeneratePayroll(context.Background(), payroll.GeneratePayrollRequest{
		PeriodMonth: month,
		PeriodYear:  year,
		CompanyID:   testCompanyID,
		ActorID:     testActorID,
	})
}

func strPtr(s string) *string { return &s }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
