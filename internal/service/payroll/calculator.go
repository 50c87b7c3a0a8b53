package payroll

import (
	"math"
	"sort"

	"github.com/cmlabs-hris/hris-payroll/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

const defaultWorkingDays = 22

var (
	hraRate  = decimal.RequireFromString("0.40")
	daRate   = decimal.RequireFromString("0.10")
	pfRate   = decimal.RequireFromString("0.12")
	esiRate  = decimal.RequireFromString("0.0175")
	cessRate = decimal.RequireFromString("1.04")

	esiGrossCeiling       = decimal.NewFromInt(21000)
	professionalTaxFloor  = decimal.NewFromInt(15000)
	professionalTaxAmount = decimal.NewFromInt(200)
	monthsPerYear         = decimal.NewFromInt(12)
	hundred               = decimal.NewFromInt(100)
	halfCent              = decimal.New(5, -1)
)

type taxBracket struct {
	lower decimal.Decimal
	base  decimal.Decimal
	rate  decimal.Decimal
}

// Annual income tax slabs, highest first. Tax is base + rate * (income - lower).
var incomeTaxBrackets = []taxBracket{
	{lower: decimal.NewFromInt(1500000), base: decimal.NewFromInt(150000), rate: decimal.RequireFromString("0.30")},
	{lower: decimal.NewFromInt(1200000), base: decimal.NewFromInt(90000), rate: decimal.RequireFromString("0.20")},
	{lower: decimal.NewFromInt(900000), base: decimal.NewFromInt(45000), rate: decimal.RequireFromString("0.15")},
	{lower: decimal.NewFromInt(600000), base: decimal.NewFromInt(15000), rate: decimal.RequireFromString("0.10")},
	{lower: decimal.NewFromInt(300000), base: decimal.Zero, rate: decimal.RequireFromString("0.05")},
}

// round2 rounds half up at the cent boundary.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Shift(2).Add(halfCent).Floor().Shift(-2)
}

// sanitizeDays maps NaN, infinities and negatives to zero.
func sanitizeDays(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// ComponentAmount is the single dispatch point for custom salary components.
// ok is false for a calculation type it does not know.
func ComponentAmount(c payroll.SalaryComponent, adjustedBasic decimal.Decimal) (amount decimal.Decimal, ok bool) {
	switch c.CalculationType {
	case payroll.CalculationTypePercentage:
		return round2(adjustedBasic.Mul(c.Value).Div(hundred)), true
	case payroll.CalculationTypeFixed:
		return round2(c.Value), true
	default:
		return decimal.Zero, false
	}
}

// MonthlyIncomeTax annualizes the monthly gross, applies the slabs and the
// 4% cess, and returns the monthly share.
func MonthlyIncomeTax(monthlyGross decimal.Decimal) decimal.Decimal {
	annual := monthlyGross.Mul(monthsPerYear)

	tax := decimal.Zero
	for _, b := range incomeTaxBrackets {
		if annual.GreaterThan(b.lower) {
			tax = b.base.Add(annual.Sub(b.lower).Mul(b.rate))
			break
		}
	}

	return round2(tax.Mul(cessRate).Div(monthsPerYear))
}

func zeroCalculation() payroll.SalaryCalculation {
	return payroll.SalaryCalculation{
		BasicSalary:      decimal.Zero,
		HRA:              decimal.Zero,
		DA:               decimal.Zero,
		OtherAllowances:  decimal.Zero,
		PF:               decimal.Zero,
		ESI:              decimal.Zero,
		ProfessionalTax:  decimal.Zero,
		IncomeTax:        decimal.Zero,
		OtherDeductions:  decimal.Zero,
		GrossSalary:      decimal.Zero,
		TotalDeductions:  decimal.Zero,
		NetPay:           decimal.Zero,
		AllowancesDetail: map[string]decimal.Decimal{},
		DeductionsDetail: map[string]decimal.Decimal{},
	}
}

// PlaceholderCalculation is the result recorded for an employee without an
// active salary structure: nothing earned, flat professional tax owed.
func PlaceholderCalculation() payroll.SalaryCalculation {
	calc := zeroCalculation()
	calc.ProfessionalTax = professionalTaxAmount
	calc.TotalDeductions = professionalTaxAmount
	calc.NetPay = professionalTaxAmount.Neg()
	return calc
}

// CalculateSalary derives one month's pay from a salary structure and an
// attendance summary. It has no side effects.
func CalculateSalary(structure payroll.SalaryStructure, summary payroll.AttendanceSummary) payroll.SalaryCalculation {
	if !structure.BasicSalary.IsPositive() {
		return zeroCalculation()
	}

	presentDays := summary.PresentDays
	if presentDays < 0 {
		presentDays = 0
	}
	effectiveDays := decimal.NewFromInt(int64(presentDays)).
		Add(decimal.NewFromFloat(sanitizeDays(summary.PaidLeaveDays)))

	workingDays := summary.WorkingDays
	if workingDays <= 0 {
		workingDays = defaultWorkingDays
	}
	dailyRate := structure.BasicSalary.Div(decimal.NewFromInt(int64(workingDays)))
	adjustedBasic := round2(dailyRate.Mul(effectiveDays))

	calc := zeroCalculation()
	calc.BasicSalary = adjustedBasic

	components := make([]payroll.SalaryComponent, len(structure.Components))
	copy(components, structure.Components)
	sort.SliceStable(components, func(i, j int) bool {
		return components[i].DisplayOrder < components[j].DisplayOrder
	})

	totalAllowances := decimal.Zero
	totalDeductions := decimal.Zero
	for _, c := range components {
		amount, ok := ComponentAmount(c, adjustedBasic)
		if !ok {
			continue
		}
		switch c.Kind {
		case payroll.ComponentKindAllowance:
			totalAllowances = totalAllowances.Add(amount)
			calc.AllowancesDetail[c.Name] = calc.AllowancesDetail[c.Name].Add(amount)
		case payroll.ComponentKindDeduction:
			totalDeductions = totalDeductions.Add(amount)
			calc.DeductionsDetail[c.Name] = calc.DeductionsDetail[c.Name].Add(amount)
		}
	}
	calc.OtherAllowances = round2(totalAllowances)
	calc.OtherDeductions = round2(totalDeductions)

	calc.HRA = round2(adjustedBasic.Mul(hraRate))
	calc.DA = round2(adjustedBasic.Mul(daRate))
	calc.PF = round2(adjustedBasic.Mul(pfRate))

	monthlyGross := round2(adjustedBasic.Add(calc.HRA).Add(calc.DA).Add(calc.OtherAllowances))
	if monthlyGross.LessThanOrEqual(esiGrossCeiling) {
		calc.ESI = round2(monthlyGross.Mul(esiRate))
	}
	if monthlyGross.GreaterThan(professionalTaxFloor) {
		calc.ProfessionalTax = professionalTaxAmount
	}
	calc.IncomeTax = MonthlyIncomeTax(monthlyGross)

	calc.GrossSalary = monthlyGross
	calc.TotalDeductions = round2(calc.PF.Add(calc.ESI).Add(calc.ProfessionalTax).Add(calc.IncomeTax).Add(calc.OtherDeductions))
	calc.NetPay = round2(calc.GrossSalary.Sub(calc.TotalDeductions))

	return calc
}
