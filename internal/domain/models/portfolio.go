package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	DefaultTickerInput = "AAPL, MSFT, TSLA"
	MinTickers         = 2
	UnknownErrorText   = "Error desconocido"
	TooFewTickersText  = "Ingresa al menos 2 tickers"
)

// CompanyMatch is a single search hit.
type CompanyMatch struct {
	Name   string `json:"nombre" validate:"required"`
	Ticker string `json:"ticker" validate:"required"`
}

// TickerWeight is the optimal allocation for one ticker, as a fraction.
type TickerWeight struct {
	Ticker string `validate:"required"`
	Weight float64
}

// Weights keeps pesos_optimos in the order the backend sent them.
type Weights []TickerWeight

func (w *Weights) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*w = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("pesos_optimos: expected object, got %v", tok)
	}

	out := Weights{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var v float64
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("pesos_optimos.%s: %w", key, err)
		}
		out = append(out, TickerWeight{Ticker: key, Weight: v})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*w = out
	return nil
}

func (w Weights) MarshalJSON() ([]byte, error) {
	if w == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, tw := range w {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(tw.Ticker)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(tw.Weight)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type ValidationMetrics struct {
	GainVsBuyHold *float64 `json:"ganancia_vs_buy_hold" validate:"required"`
	RMSEModel     *float64 `json:"rmse_modelo" validate:"required"`
	RMSEBaseline  *float64 `json:"rmse_baseline" validate:"required"`
}

// ProjectedParams holds annualized drift and volatility, already in percent.
type ProjectedParams struct {
	Ticker           string   `json:"ticker" validate:"required"`
	AnnualDrift      *float64 `json:"drift_anual" validate:"required"`
	AnnualVolatility *float64 `json:"volatilidad_anual" validate:"required"`
}

// AnalysisResult is the analyze response as received. Success bodies carry
// the report fields; failure bodies carry detail or error.
type AnalysisResult struct {
	Success       bool               `json:"success"`
	Weights       Weights            `json:"pesos_optimos,omitempty" validate:"required_if=Success true,dive"`
	VaR95         float64            `json:"var_95"`
	ExecutionTime *float64           `json:"tiempo_ejecucion,omitempty" validate:"required_if=Success true"`
	SharpeRatio   *float64           `json:"sharpe_ratio,omitempty" validate:"required_if=Success true"`
	Metrics       *ValidationMetrics `json:"metricas_validacion,omitempty" validate:"required_if=Success true"`
	Projected     []ProjectedParams  `json:"parametros_proyectados,omitempty" validate:"required_if=Success true,dive"`
	Detail        json.RawMessage    `json:"detail,omitempty"`
	Error         string             `json:"error,omitempty"`
}

// FailureMessage picks detail, then error, then a generic text.
// A non-string detail is shown as its JSON text.
func (r AnalysisResult) FailureMessage() string {
	if d := bytes.TrimSpace(r.Detail); len(d) > 0 && !bytes.Equal(d, []byte("null")) {
		var s string
		if err := json.Unmarshal(d, &s); err == nil {
			return s
		}
		return string(d)
	}
	if r.Error != "" {
		return r.Error
	}
	return UnknownErrorText
}

// FailedAnalysis builds the in-band failure value.
func FailedAnalysis(cause string) AnalysisResult {
	return AnalysisResult{Success: false, Error: cause}
}

// ParseTickers splits raw on commas, trims and uppercases each token and
// drops empty ones. Duplicates are kept.
func ParseTickers(raw string) []string {
	parts := strings.Split(raw, ",")
	tickers := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.ToUpper(strings.TrimSpace(p)); t != "" {
			tickers = append(tickers, t)
		}
	}
	return tickers
}
