package core

import (
	"errors"
	"strings"
	"time"
)

const (
	CategoryHome      EMICategory = "home"
	CategoryCar       EMICategory = "car"
	CategoryPersonal  EMICategory = "personal"
	CategoryEducation EMICategory = "education"
	CategoryOther     EMICategory = "other"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

type (
	EMICategory     string
	TransactionType string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// EMI is a loan installment plan. DueDay is the day of the month the
	// installment falls due; RemainingMonths is derived from StartDate and
	// Duration and must never exceed Duration.
	EMI struct {
		ID              string      `json:"id"`
		Name            string      `json:"name"`
		LoanAmount      Money       `json:"loanAmount"`
		EMIAmount       Money       `json:"emiAmount"`
		DueDay          int         `json:"dueDate"`
		StartDate       Date        `json:"startDate"`
		Duration        int         `json:"duration"`
		RemainingMonths int         `json:"remainingMonths"`
		InterestRate    float64     `json:"interestRate,omitempty"`
		Category        EMICategory `json:"category"`
	}

	Transaction struct {
		ID          string          `json:"id"`
		Amount      Money           `json:"amount"`
		Type        TransactionType `json:"type"`
		Category    string          `json:"category"`
		Description string          `json:"description"`
		Date        Date            `json:"date"`
		IsRecurring bool            `json:"isRecurring,omitempty"`
	}

	// MonthlyBudget carries the fixed recurring income. The remaining fields
	// are reserved: nothing in the system derives them yet.
	MonthlyBudget struct {
		Income           Money `json:"income"`
		FixedExpenses    Money `json:"fixedExpenses"`
		VariableExpenses Money `json:"variableExpenses"`
		Savings          Money `json:"savings"`
	}

	// FinancialSummary is derived on demand and never persisted.
	FinancialSummary struct {
		TotalIncome      Money   `json:"totalIncome"`
		TotalExpenses    Money   `json:"totalExpenses"`
		TotalEMIs        Money   `json:"totalEMIs"`
		RemainingBalance Money   `json:"remainingBalance"`
		SavingsRate      float64 `json:"savingsRate"`
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyName       = errors.New("empty name")
	ErrInvalidDueDay   = errors.New("invalid due day")
	ErrInvalidDuration = errors.New("invalid duration")
	ErrInvalidCategory = errors.New("invalid EMI category")
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrEmptyCategory   = errors.New("empty category")
)

// NewDate creates a new Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// Month returns the month as an int (1-12).
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year.
func (d Date) Year() int {
	return d.Time.Year()
}

// Day returns the day of the month.
func (d Date) Day() int {
	return d.Time.Day()
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format("2006-01-02") + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (c EMICategory) IsValid() bool {
	switch c {
	case CategoryHome, CategoryCar, CategoryPersonal, CategoryEducation, CategoryOther:
		return true
	default:
		return false
	}
}

func (t TransactionType) IsValid() bool {
	return t == Income || t == Expense
}

func (e EMI) Validate() error {
	if len(strings.TrimSpace(e.Name)) == 0 {
		return ErrEmptyName
	}
	if err := e.LoanAmount.Validate(); err != nil {
		return err
	}
	if err := e.EMIAmount.Validate(); err != nil {
		return err
	}
	if e.DueDay < 1 || e.DueDay > 31 {
		return ErrInvalidDueDay
	}
	if err := e.StartDate.Validate(); err != nil {
		return err
	}
	if e.Duration < 1 {
		return ErrInvalidDuration
	}
	if e.RemainingMonths < 0 || e.RemainingMonths > e.Duration {
		return errors.New("remaining months out of range")
	}
	if e.InterestRate < 0 {
		return errors.New("negative interest rate")
	}
	if !e.Category.IsValid() {
		return ErrInvalidCategory
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	return nil
}

func (b MonthlyBudget) Validate() error {
	if b.Income.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}
