package stats

// #region imports
import (
	"math"
	"strings"
	"testing"

	"github.com/gravitylab/actuation-harness/internal/actuation"
)

// #endregion

// #region helpers

func outcome(status actuation.Status, attempts int, gain float64) actuation.EpisodeOutcome {
	return actuation.EpisodeOutcome{
		Success:  status == actuation.StatusSuccess,
		Status:   status,
		Attempts: attempts,
		FinalGain: gain,
	}
}

// #endregion helpers

// #region tests

func TestSummarizeCounts(t *testing.T) {
	outcomes := []actuation.EpisodeOutcome{
		outcome(actuation.StatusSuccess, 5, 0.10),
		outcome(actuation.StatusSuccess, 9, 0.12),
		outcome(actuation.StatusFailPolicy, 100, 0.08),
		outcome(actuation.StatusUnsatWedged, 12, 0.05),
	}
	outcomes[0].RerouteEntered = true
	outcomes[3].RerouteEntered = true
	outcomes[2].Instability = true

	s := Summarize(outcomes)

	if s.Episodes != 4 || s.Successes != 2 {
		t.Errorf("episodes=%d successes=%d", s.Episodes, s.Successes)
	}
	if s.SuccessRate != 0.5 {
		t.Errorf("rate = %v", s.SuccessRate)
	}
	if s.StatusCounts[actuation.StatusSuccess] != 2 || s.StatusCounts[actuation.StatusUnsatWedged] != 1 {
		t.Errorf("status counts = %v", s.StatusCounts)
	}
	if s.RerouteEntered != 2 || s.WedgeCertified != 1 || s.Unstable != 1 {
		t.Errorf("phase counts: %+v", s)
	}
	if math.Abs(s.MeanFinalGain-0.0875) > 1e-9 {
		t.Errorf("mean gain = %v", s.MeanFinalGain)
	}
}

func TestSummarizePercentiles(t *testing.T) {
	var outcomes []actuation.EpisodeOutcome
	for _, attempts := range []int{2, 4, 6, 8, 10} {
		outcomes = append(outcomes, outcome(actuation.StatusSuccess, attempts, 0.1))
	}

	s := Summarize(outcomes)
	if s.P50Attempts != 6 {
		t.Errorf("p50 = %v", s.P50Attempts)
	}
	// Rank 0.9 * 4 = 3.6 interpolates between 8 and 10.
	if math.Abs(s.P90Attempts-9.2) > 1e-9 {
		t.Errorf("p90 = %v", s.P90Attempts)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.Episodes != 0 || s.SuccessRate != 0 || s.P50Attempts != 0 {
		t.Errorf("empty summary = %+v", s)
	}
}

func TestFormat(t *testing.T) {
	s := Summarize([]actuation.EpisodeOutcome{
		outcome(actuation.StatusSuccess, 3, 0.1),
		outcome(actuation.StatusFailPolicy, 100, 0.1),
	})
	report := s.Format()
	for _, want := range []string{"episodes=2", "rate=50.0%", "SUCCESS", "FAIL_POLICY", "p50=3.0"} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}

// #endregion tests
