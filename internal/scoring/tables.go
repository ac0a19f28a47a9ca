// internal/scoring/tables.go
package scoring

// Categorical risk factors. Every variant maps to a score in the tables
// below; out-of-enum input parses to the Unknown variant, which scores
// zero rather than failing the computation. Validation of user-entered
// categories happens upstream.

type YearsBand string

const (
	YearsUnderOne  YearsBand = "<1 year"
	YearsOneToTwo  YearsBand = "1-2 years"
	YearsTwoToFive YearsBand = "2-5 years"
	YearsFiveToTen YearsBand = "5-10 years"
	YearsTenPlus   YearsBand = "10+ years"
	YearsUnknown   YearsBand = "unknown"
)

type RemittanceSource string

const (
	SourceTicketingCompany RemittanceSource = "Ticketing company"
	SourcePaymentProcessor RemittanceSource = "Payment processor"
	SourceVenue            RemittanceSource = "Venue"
	SourceVaries           RemittanceSource = "Varies"
	SourceUnknown          RemittanceSource = "unknown"
)

type RemittanceFrequency string

const (
	FrequencyDaily     RemittanceFrequency = "Daily"
	FrequencyWeekly    RemittanceFrequency = "Weekly"
	FrequencyBiMonthly RemittanceFrequency = "Bi-monthly"
	FrequencyMonthly   RemittanceFrequency = "Monthly"
	FrequencyPostEvent RemittanceFrequency = "Post-event"
	FrequencyVaries    RemittanceFrequency = "Varies"
	FrequencyUnknown   RemittanceFrequency = "unknown"
)

// ParseYearsBand maps raw input to a YearsBand. Empty means the answer
// is missing; anything else outside the enum is Unknown.
func ParseYearsBand(raw string) YearsBand {
	switch YearsBand(raw) {
	case YearsUnderOne, YearsOneToTwo, YearsTwoToFive, YearsFiveToTen, YearsTenPlus:
		return YearsBand(raw)
	case "":
		return ""
	default:
		return YearsUnknown
	}
}

func ParseRemittanceSource(raw string) RemittanceSource {
	switch RemittanceSource(raw) {
	case SourceTicketingCompany, SourcePaymentProcessor, SourceVenue, SourceVaries:
		return RemittanceSource(raw)
	case "":
		return ""
	default:
		return SourceUnknown
	}
}

func ParseRemittanceFrequency(raw string) RemittanceFrequency {
	switch RemittanceFrequency(raw) {
	case FrequencyDaily, FrequencyWeekly, FrequencyBiMonthly, FrequencyMonthly,
		FrequencyPostEvent, FrequencyVaries:
		return RemittanceFrequency(raw)
	case "":
		return ""
	default:
		return FrequencyUnknown
	}
}

// Factor scores are real numbers, not integers: recorded underwriting
// configurations have carried fractional table values.

var yearsScores = map[YearsBand]float64{
	YearsUnderOne:  10,
	YearsOneToTwo:  8,
	YearsTwoToFive: 5,
	YearsFiveToTen: 3,
	YearsTenPlus:   0,
	YearsUnknown:   0,
}

var sourceScores = map[RemittanceSource]float64{
	SourceTicketingCompany: 1,
	SourcePaymentProcessor: 3,
	SourceVenue:            5,
	SourceVaries:           10,
	SourceUnknown:          0,
}

var frequencyScores = map[RemittanceFrequency]float64{
	FrequencyDaily:     0,
	FrequencyWeekly:    1,
	FrequencyBiMonthly: 2,
	FrequencyMonthly:   3,
	FrequencyPostEvent: 5,
	FrequencyVaries:    5,
	FrequencyUnknown:   0,
}

// Event-count buckets, first matching threshold from the top wins.
var eventCountBuckets = []struct {
	Min   int
	Score float64
}{
	{50, 0},
	{21, 4},
	{11, 5},
	{7, 6},
	{4, 7},
	{2, 8},
	{1, 10},
}

func scoreEventCount(count int) float64 {
	for _, bucket := range eventCountBuckets {
		if count >= bucket.Min {
			// Exactly one event scores 10; the table's ==1 row is the
			// last bucket, so >= matches it only when count is 1.
			return bucket.Score
		}
	}
	return 0
}

// Band maps a contiguous range of risk scores to a maximum advance
// percentage. Bounds are stored as published in the underwriting table;
// matching scans low to high and takes the first band whose upper bound
// is at or above the clamped score, so the 7/7.1 seam cannot strand a
// fractional score.
type Band struct {
	LowerBound        float64 `json:"lowerBound"`
	UpperBound        float64 `json:"upperBound"`
	MaxAdvancePercent float64 `json:"maxAdvancePercent"`
}

var riskBands = []Band{
	{LowerBound: 0, UpperBound: 7, MaxAdvancePercent: 0.10},
	{LowerBound: 7.1, UpperBound: 14, MaxAdvancePercent: 0.075},
	{LowerBound: 14.1, UpperBound: 21, MaxAdvancePercent: 0.05},
	{LowerBound: 21.1, UpperBound: 24, MaxAdvancePercent: 0.025},
}

const (
	// MaxScore is the ceiling the aggregate score is clamped to before
	// band lookup.
	MaxScore = 24.0

	// AdvanceCap is the fixed ceiling on any funding offer, in dollars.
	AdvanceCap = 500_000.0
)

// Bands returns the ordered band table.
func Bands() []Band {
	out := make([]Band, len(riskBands))
	copy(out, riskBands)
	return out
}

func matchBand(score float64) Band {
	for _, band := range riskBands {
		if score <= band.UpperBound {
			return band
		}
	}
	// Fail closed to the lowest percentage rather than erroring.
	return riskBands[len(riskBands)-1]
}
