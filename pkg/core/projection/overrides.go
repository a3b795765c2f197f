package projection

import (
	"fmt"
	"os"
	"reit_valuation/pkg/core/utils"
)

// ParseOverrides reads overrides written as Hjson, e.g.
//
//	# annualized %
//	netIncome: 8
//	revenue: 4.5
func ParseOverrides(data string) (Overrides, error) {
	out := Overrides{}
	if err := utils.ParseHJSONToStruct(data, &out); err != nil {
		return nil, fmt.Errorf("parse overrides: %w", err)
	}
	for metric, pct := range out {
		if pct < MinOverridePct {
			return nil, fmt.Errorf("override for %s is %.2f%%, below the %.0f%% floor", metric, pct, MinOverridePct)
		}
	}
	return out, nil
}

// LoadOverrides reads an Hjson overrides file.
func LoadOverrides(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overrides file: %w", err)
	}
	return ParseOverrides(string(data))
}
