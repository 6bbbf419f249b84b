package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Token is a candidate returned by the discovery feed for one poll cycle.
type Token struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Image   string `json:"image,omitempty"`
}

func (t Token) HasImage() bool {
	return strings.TrimSpace(t.Image) != ""
}

// DisplayName falls back to the address when the feed gave no name.
func (t Token) DisplayName() string {
	if name := strings.TrimSpace(t.Name); name != "" {
		return name
	}
	return t.Address
}

// Metric is an optional analytics scalar. Providers return either numbers or
// strings for the same field, so both are kept.
type Metric struct {
	Number decimal.NullDecimal
	Text   string
}

func NumberMetric(v float64) Metric {
	return Metric{Number: decimal.NewNullDecimal(decimal.NewFromFloat(v))}
}

func TextMetric(s string) Metric {
	return Metric{Text: strings.TrimSpace(s)}
}

func (m Metric) Present() bool {
	return m.Number.Valid || m.Text != ""
}

func (m Metric) String() string {
	if m.Number.Valid {
		return m.Number.Decimal.String()
	}
	return m.Text
}

// OrElse renders the metric or the placeholder when it is absent.
func (m Metric) OrElse(placeholder string) string {
	if !m.Present() {
		return placeholder
	}
	return m.String()
}

func (m *Metric) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	*m = Metric{}
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		*m = TextMetric(s)
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return err
		}
		*m = TextMetric(fmt.Sprintf("%t", b))
		return nil
	case '{', '[':
		// Nested values have no single rendering; the field reads as absent.
		return nil
	}

	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return fmt.Errorf("metric: parse number %s: %w", raw, err)
	}
	m.Number = decimal.NewNullDecimal(d)
	return nil
}

func (m Metric) MarshalJSON() ([]byte, error) {
	switch {
	case m.Number.Valid:
		return []byte(m.Number.Decimal.String()), nil
	case m.Text != "":
		return json.Marshal(m.Text)
	default:
		return []byte("null"), nil
	}
}

// AnalysisRecord is the enrichment snapshot for one address.
type AnalysisRecord struct {
	Liquidity Metric `json:"liquidity"`
	Holders   Metric `json:"holders"`
	MarketCap Metric `json:"market_cap"`
	Price     Metric `json:"price"`
	Age       Metric `json:"age"`
	Trend     Metric `json:"trend"`
}

// IsEmpty reports whether every field is absent, which the pipeline treats as
// an enrichment failure.
func (r AnalysisRecord) IsEmpty() bool {
	for _, m := range []Metric{r.Liquidity, r.Holders, r.MarketCap, r.Price, r.Age, r.Trend} {
		if m.Present() {
			return false
		}
	}
	return true
}
