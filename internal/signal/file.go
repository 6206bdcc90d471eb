package signal

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"marlin/internal/domain"
	"marlin/internal/market"
)

// Compile-time interface check.
var _ Source = (*FileSource)(nil)

// FileSource loads a precomputed signal set from a CSV file with columns
// date,symbol,side,confidence[,target_price]. Rows for symbols absent from
// the instrument table are kept; the engine skips them day by day.
type FileSource struct {
	Path string
}

// NewFileSource creates a FileSource reading from path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Name returns "file".
func (f *FileSource) Name() string { return "file" }

// Signals parses the CSV file into a signal set. The header row is required.
func (f *FileSource) Signals(_ *market.Table) ([]domain.Signal, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("opening signal file: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1 // target_price column is optional
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.Path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var signals []domain.Signal
	for i, row := range rows[1:] {
		sig, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", f.Path, i+2, err)
		}
		signals = append(signals, sig)
	}
	return signals, nil
}

func parseRow(row []string) (domain.Signal, error) {
	if len(row) < 4 {
		return domain.Signal{}, fmt.Errorf("want at least 4 fields, got %d", len(row))
	}
	date, err := time.Parse("2006-01-02", strings.TrimSpace(row[0]))
	if err != nil {
		return domain.Signal{}, fmt.Errorf("bad date %q: %w", row[0], err)
	}

	var kind domain.SignalKind
	switch strings.ToLower(strings.TrimSpace(row[2])) {
	case "buy":
		kind = domain.SignalBuy
	case "sell":
		kind = domain.SignalSell
	default:
		return domain.Signal{}, fmt.Errorf("bad side %q", row[2])
	}

	conf, err := strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
	if err != nil {
		return domain.Signal{}, fmt.Errorf("bad confidence %q: %w", row[3], err)
	}

	sig := domain.Signal{
		Date:       date,
		Symbol:     domain.SymbolID(strings.ToUpper(strings.TrimSpace(row[1]))),
		Kind:       kind,
		Confidence: conf,
	}
	if len(row) >= 5 && strings.TrimSpace(row[4]) != "" {
		tp, err := strconv.ParseFloat(strings.TrimSpace(row[4]), 64)
		if err != nil {
			return domain.Signal{}, fmt.Errorf("bad target price %q: %w", row[4], err)
		}
		sig.TargetPrice = tp
	}
	return sig, nil
}
