// internal/scoring/engine.go
package scoring

import "errors"

// ErrNotComputable is returned when required facts are missing or zero.
// It is expected and frequent while the applicant is still typing; the
// caller renders it as "no offer yet", never as a zero-dollar offer.
var ErrNotComputable = errors.New("offer not computable: required facts missing")

// ApplicationFacts is the normalized input to Score. Empty categorical
// values and zero numeric values mean the answer has not been given yet.
type ApplicationFacts struct {
	YearsInBusiness        YearsBand           `json:"yearsInBusinessBand"`
	EventCount             int                 `json:"eventCount"`
	RemittanceSource       RemittanceSource    `json:"remittanceSource"`
	RemittanceFrequency    RemittanceFrequency `json:"remittanceFrequency"`
	GrossAnnualTicketSales float64             `json:"grossAnnualTicketSales"`
}

// Complete reports whether every fact needed for a score is present.
func (f ApplicationFacts) Complete() bool {
	return f.YearsInBusiness != "" &&
		f.EventCount > 0 &&
		f.RemittanceSource != "" &&
		f.RemittanceFrequency != "" &&
		f.GrossAnnualTicketSales > 0
}

// Breakdown carries the per-factor contribution to the total score.
type Breakdown struct {
	Years               float64 `json:"years"`
	EventCount          float64 `json:"eventCount"`
	RemittanceSource    float64 `json:"remittanceSource"`
	RemittanceFrequency float64 `json:"remittanceFrequency"`
}

// Result is one underwriting computation. Created fresh on every call,
// never mutated, only replaced.
type Result struct {
	TotalRiskScore float64   `json:"totalRiskScore"`
	MatchedBand    Band      `json:"matchedBand"`
	RawAmount      float64   `json:"rawAmount"`
	FinalAmount    float64   `json:"finalAmount"`
	Capped         bool      `json:"isCapped"`
	Breakdown      Breakdown `json:"breakdown"`
}

// Score turns declared business facts into a capped funding-eligibility
// amount. It performs no I/O and is deterministic: identical facts yield
// an identical Result.
func Score(facts ApplicationFacts) (*Result, error) {
	if !facts.Complete() {
		return nil, ErrNotComputable
	}

	breakdown := Breakdown{
		Years:               yearsScores[facts.YearsInBusiness],
		EventCount:          scoreEventCount(facts.EventCount),
		RemittanceSource:    sourceScores[facts.RemittanceSource],
		RemittanceFrequency: frequencyScores[facts.RemittanceFrequency],
	}

	total := breakdown.Years +
		breakdown.EventCount +
		breakdown.RemittanceSource +
		breakdown.RemittanceFrequency

	band := matchBand(clamp(total, 0, MaxScore))

	raw := facts.GrossAnnualTicketSales * band.MaxAdvancePercent
	final := raw
	capped := raw > AdvanceCap
	if capped {
		final = AdvanceCap
	}

	return &Result{
		TotalRiskScore: total,
		MatchedBand:    band,
		RawAmount:      raw,
		FinalAmount:    final,
		Capped:         capped,
		Breakdown:      breakdown,
	}, nil
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
