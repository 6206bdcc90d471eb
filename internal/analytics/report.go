package analytics

import (
	"fmt"
	"math"
	"strings"

	"marlin/internal/domain"
)

// Report bundles every analytics output for one run. It is the only data
// handed to reporting layers.
type Report struct {
	InitialCash  float64
	FinalBalance float64
	TotalReturn  float64
	Closed       []ClosedPosition
	Summary      Summary
	Drawdown     DrawdownReport
	Streaks      StreakReport
	Health       int
}

// BuildReport computes the full analytics bundle from a finished trade log
// and ledger.
func BuildReport(initialCash float64, trades []domain.Trade, ledger []domain.LedgerEntry) *Report {
	closed := MatchTradesFIFO(trades)
	r := &Report{
		InitialCash: initialCash,
		Closed:      closed,
		Summary:     Summarize(closed),
		Drawdown:    Drawdown(ledger),
		Streaks:     Streaks(closed),
		Health:      HealthScore(ledger),
	}
	if len(ledger) > 0 {
		r.FinalBalance = ledger[len(ledger)-1].TotalBalance
		if initialCash > 0 {
			r.TotalReturn = r.FinalBalance/initialCash - 1
		}
	}
	return r
}

// Render produces the plain-text report for terminal output.
func (r *Report) Render() string {
	var b strings.Builder
	line := strings.Repeat("-", 46)

	fmt.Fprintf(&b, "%s\n", line)
	fmt.Fprintf(&b, "BACKTEST RESULTS\n")
	fmt.Fprintf(&b, "%s\n", line)
	fmt.Fprintf(&b, "Initial cash     %14s\n", FormatMoney(r.InitialCash))
	fmt.Fprintf(&b, "Final balance    %14s\n", FormatMoney(r.FinalBalance))
	fmt.Fprintf(&b, "Total return     %14s\n", FormatPct(r.TotalReturn))
	fmt.Fprintf(&b, "Max drawdown     %14s\n", FormatPct(-r.Drawdown.MaxDrawdownPct))
	fmt.Fprintf(&b, "Health score     %14d\n", r.Health)
	fmt.Fprintf(&b, "%s\n", line)

	s := r.Summary
	fmt.Fprintf(&b, "Closed trades    %14d\n", s.Trades)
	fmt.Fprintf(&b, "Win rate         %14s  (%d W / %d L)\n", FormatPct(s.WinRate), s.Wins, s.Losses)
	fmt.Fprintf(&b, "Avg win          %14s\n", FormatMoney(s.AvgWin))
	fmt.Fprintf(&b, "Avg loss         %14s\n", FormatMoney(s.AvgLoss))
	fmt.Fprintf(&b, "Profit factor    %14s\n", FormatRatio(s.ProfitFactor))
	fmt.Fprintf(&b, "Expectancy       %14s\n", FormatMoney(s.Expectancy))
	fmt.Fprintf(&b, "Best / worst     %14s / %s\n", FormatMoney(s.BestTrade), FormatMoney(s.WorstTrade))
	fmt.Fprintf(&b, "Streaks          %8dW max, %dL max, current %+d\n",
		r.Streaks.MaxWins, r.Streaks.MaxLosses, r.Streaks.Current)

	if r.Drawdown.Current != nil {
		fmt.Fprintf(&b, "Open drawdown    %14s since %s\n",
			FormatPct(-r.Drawdown.Current.DepthPct),
			r.Drawdown.Current.StartDate.Format("2006-01-02"))
	}
	fmt.Fprintf(&b, "%s\n", line)
	return b.String()
}

// FormatMoney formats a dollar amount with comma separators and two decimals.
func FormatMoney(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	whole := int64(v)
	frac := int(math.Round((v - float64(whole)) * 100.0))
	if frac == 100 {
		whole++
		frac = 0
	}
	s := fmt.Sprintf("$%s.%02d", FormatInt64(whole), frac)
	if neg {
		return "-" + s
	}
	return s
}

// FormatInt64 formats an integer with comma separators.
func FormatInt64(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	start := len(s) % 3
	if start > 0 {
		b.WriteString(s[:start])
	}
	for i := start; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatPct formats a fractional value as a signed percentage.
func FormatPct(v float64) string {
	return fmt.Sprintf("%+.2f%%", v*100)
}

// FormatRatio formats a ratio, printing "inf" for +Inf (no losing trades).
func FormatRatio(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", v)
}
