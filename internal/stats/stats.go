package stats

// #region imports
import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/gravitylab/actuation-harness/internal/actuation"
)

// #endregion

// #region types

// Summary aggregates the outcomes of one sweep.
type Summary struct {
	Episodes     int                      `json:"episodes"`
	Successes    int                      `json:"successes"`
	SuccessRate  float64                  `json:"success_rate"`
	StatusCounts map[actuation.Status]int `json:"status_counts"`

	// Attempt percentiles over successful episodes only. Zero when no
	// episode succeeded.
	P50Attempts float64 `json:"p50_attempts"`
	P90Attempts float64 `json:"p90_attempts"`

	MeanFinalGain  float64 `json:"mean_final_gain"`
	RerouteEntered int     `json:"reroute_entered"`
	WedgeCertified int     `json:"wedge_certified"`
	Unstable       int     `json:"unstable"`
}

// #endregion types

// #region summarize

// Summarize computes sweep-level aggregates from episode outcomes.
func Summarize(outcomes []actuation.EpisodeOutcome) Summary {
	s := Summary{
		Episodes:     len(outcomes),
		StatusCounts: make(map[actuation.Status]int),
	}
	if len(outcomes) == 0 {
		return s
	}

	var successAttempts []float64
	gainSum := 0.0
	for _, out := range outcomes {
		s.StatusCounts[out.Status]++
		gainSum += out.FinalGain
		if out.Success {
			s.Successes++
			successAttempts = append(successAttempts, float64(out.Attempts))
		}
		if out.RerouteEntered {
			s.RerouteEntered++
		}
		if out.Status == actuation.StatusUnsatWedged {
			s.WedgeCertified++
		}
		if out.Instability {
			s.Unstable++
		}
	}

	s.SuccessRate = float64(s.Successes) / float64(len(outcomes))
	s.MeanFinalGain = gainSum / float64(len(outcomes))
	s.P50Attempts = percentile(successAttempts, 0.50)
	s.P90Attempts = percentile(successAttempts, 0.90)
	return s
}

// percentile uses linear interpolation between closest ranks.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	rank := p * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// #endregion summarize

// #region format

// Format renders the summary as the sweep's end-of-run report.
func (s Summary) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "episodes=%d successes=%d rate=%.1f%%\n", s.Episodes, s.Successes, s.SuccessRate*100)

	statuses := make([]string, 0, len(s.StatusCounts))
	for st := range s.StatusCounts {
		statuses = append(statuses, string(st))
	}
	sort.Strings(statuses)
	for _, st := range statuses {
		fmt.Fprintf(&b, "  %-18s %d\n", st, s.StatusCounts[actuation.Status(st)])
	}

	fmt.Fprintf(&b, "attempts: p50=%.1f p90=%.1f (successes only)\n", s.P50Attempts, s.P90Attempts)
	fmt.Fprintf(&b, "mean final gain: %.4f\n", s.MeanFinalGain)
	fmt.Fprintf(&b, "reroute entered: %d, wedge certified: %d, unstable: %d\n",
		s.RerouteEntered, s.WedgeCertified, s.Unstable)
	return b.String()
}

// #endregion format
