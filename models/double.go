package models

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Double accepts both JSON numbers and numeric strings, as clients send either for slippage and gas limits.
type Double float64

func (d *Double) UnmarshalJSON(input []byte) error {
	strInput := strings.Trim(string(input), `"`)
	if strInput == "" || strInput == "null" {
		return nil
	}
	var buf float64
	err := json.Unmarshal([]byte(strInput), &buf)
	if err == nil {
		*d = Double(buf)
	}
	return err
}

func (d Double) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(d))
}

func (d Double) Decimal() decimal.Decimal {
	return decimal.NewFromFloat(float64(d))
}

// Fraction converts a percentage such as 0.5 (%) into 0.005.
func (d Double) Fraction() decimal.Decimal {
	return d.Decimal().Div(decimal.NewFromInt(100))
}
