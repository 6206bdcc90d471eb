package analytics

import (
	"time"

	"marlin/internal/domain"
)

// DrawdownPeriod is one decline from a balance high-water mark. EndDate is
// the recovery date; it is zero for the currently-open period.
type DrawdownPeriod struct {
	StartDate  time.Time // first date below the prior mark
	TroughDate time.Time
	EndDate    time.Time
	PeakValue  float64
	TroughValue float64
	DepthPct   float64 // peak-to-trough decline, >= 0
}

// DrawdownReport summarizes balance declines over the ledger. Current holds
// the still-open period, if the run ended below its high-water mark.
type DrawdownReport struct {
	MaxDrawdownPct float64
	Periods        []DrawdownPeriod
	Current        *DrawdownPeriod
}

// Drawdown walks the ledger tracking a running high-water mark. A period
// opens when the balance first falls below the mark and closes when the
// balance recovers to a new mark.
func Drawdown(ledger []domain.LedgerEntry) DrawdownReport {
	var report DrawdownReport
	if len(ledger) == 0 {
		return report
	}

	peak := ledger[0].TotalBalance
	var open *DrawdownPeriod

	for _, entry := range ledger {
		bal := entry.TotalBalance
		if bal >= peak {
			if open != nil {
				open.EndDate = entry.Date
				report.Periods = append(report.Periods, *open)
				open = nil
			}
			peak = bal
			continue
		}

		if open == nil {
			open = &DrawdownPeriod{
				StartDate:   entry.Date,
				TroughDate:  entry.Date,
				PeakValue:   peak,
				TroughValue: bal,
			}
		}
		if bal < open.TroughValue {
			open.TroughValue = bal
			open.TroughDate = entry.Date
		}
		if peak > 0 {
			open.DepthPct = (open.PeakValue - open.TroughValue) / open.PeakValue
		}
	}
	report.Current = open

	for _, p := range report.Periods {
		if p.DepthPct > report.MaxDrawdownPct {
			report.MaxDrawdownPct = p.DepthPct
		}
	}
	if open != nil && open.DepthPct > report.MaxDrawdownPct {
		report.MaxDrawdownPct = open.DepthPct
	}
	return report
}
