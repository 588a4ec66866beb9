package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoInstruments is returned when the instrument list is empty.
var ErrNoInstruments = errors.New("no instruments configured")

// LoadInstruments reads a JSON array of instrument symbols,
// e.g. ["tBTCUSD","tETHUSD"].
func LoadInstruments(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read instruments file: %w", err)
	}

	var symbols []string
	if err := json.Unmarshal(data, &symbols); err != nil {
		return nil, fmt.Errorf("parse instruments file: %w", err)
	}
	return normalizeInstruments(symbols)
}

// Instruments resolves the configured instrument list. The file named by
// InstrumentsPath wins over the inline list.
func (c *RecorderConfig) Instruments() ([]string, error) {
	if c.Input.InstrumentsPath != "" {
		return LoadInstruments(c.Input.InstrumentsPath)
	}
	return normalizeInstruments(c.Input.Instruments)
}

// normalizeInstruments trims and de-duplicates symbols, keeping input order.
// Symbols are case sensitive on the feed, so case is preserved.
func normalizeInstruments(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, ErrNoInstruments
	}
	return out, nil
}
