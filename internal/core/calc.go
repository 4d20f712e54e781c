package core

import "time"

// MonthsBetween counts whole calendar months from a to b, ignoring the day
// of the month (year*12+month arithmetic). Negative when b precedes a.
func MonthsBetween(a Date, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - a.Month()
}

// RemainingMonths derives how many installments are still outstanding at
// now. The result is clamped to [0, Duration]: a fully elapsed plan reports
// zero, a plan that has not started yet reports its full duration.
func RemainingMonths(e EMI, now time.Time) int {
	remaining := e.Duration - MonthsBetween(e.StartDate, now)
	if remaining < 0 {
		return 0
	}
	if remaining > e.Duration {
		return e.Duration
	}
	return remaining
}

// NextDueDate returns the next occurrence of dueDay strictly after now, at
// day granularity. Due days past the end of a month clamp to that month's
// last day, so a plan due on the 31st falls due on Feb 28 (or 29).
func NextDueDate(dueDay int, now time.Time) time.Time {
	next := dayInMonth(now.Year(), now.Month(), dueDay, now.Location())
	if !next.After(now) {
		next = dayInMonth(now.Year(), now.Month()+1, dueDay, now.Location())
	}
	return next
}

// dayInMonth builds the date for day in year/month, clamped to the month's
// length. time.Month arithmetic past December normalizes into the next year.
func dayInMonth(year int, month time.Month, day int, loc *time.Location) time.Time {
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

// Summarize computes the financial summary for the calendar month of now.
//
// Transactions are restricted to the current month and year; EMI amounts
// count in full regardless of date because installments are a standing
// monthly obligation. Empty inputs yield a zero summary.
func Summarize(emis []EMI, transactions []Transaction, monthlyIncome Money, now time.Time) FinancialSummary {
	var incomeTxns, expenseTxns Money
	for _, t := range transactions {
		if t.Date.Year() != now.Year() || t.Date.Month() != int(now.Month()) {
			continue
		}
		switch t.Type {
		case Income:
			incomeTxns = incomeTxns.Add(t.Amount)
		case Expense:
			expenseTxns = expenseTxns.Add(t.Amount)
		}
	}

	var totalEMIs Money
	for _, e := range emis {
		totalEMIs = totalEMIs.Add(e.EMIAmount)
	}

	totalIncome := monthlyIncome.Add(incomeTxns)
	totalExpenses := expenseTxns.Add(totalEMIs)
	remaining := totalIncome.Sub(totalExpenses)

	var savingsRate float64
	if totalIncome.Cents > 0 {
		savingsRate = float64(remaining.Cents) / float64(totalIncome.Cents) * 100
	}

	return FinancialSummary{
		TotalIncome:      totalIncome,
		TotalExpenses:    totalExpenses,
		TotalEMIs:        totalEMIs,
		RemainingBalance: remaining,
		SavingsRate:      savingsRate,
	}
}
