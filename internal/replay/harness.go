package replay

// #region imports
import (
	"fmt"
	"math"

	"github.com/gravitylab/actuation-harness/internal/actuation"
)

// #endregion

// #region types

// StepResult captures the state machine position after replaying one
// recorded attempt.
type StepResult struct {
	Attempt         int
	Mode            actuation.Mode
	Stage           actuation.Stage
	LaneIndex       int
	Classification  actuation.Classification
	StuckCounter    int
	CertifiedWedged bool
}

// Summary aggregates a replay run and its expectation checks.
type Summary struct {
	TotalAttempts   int
	Stalls          int
	Anomalies       int
	RerouteEntered  bool
	CertifiedWedged bool
	Mismatches      []string
}

// #endregion types

// #region replay

// Replay re-runs the detector and navigator over the recorded attempt
// kinematics of a fixture. It mirrors the live attempt loop exactly,
// minus planning and execution: the recorded end positions stand in for
// what the actuators did. Useful for regressing state machine changes
// against captured episodes.
func Replay(f *Fixture) []StepResult {
	cfg := f.Config.ToConfig()
	detector := actuation.NewStuckDetector(cfg)
	navigator := actuation.NewNavigator(cfg)

	agentX, agentZ := f.StartPose.AgentX, f.StartPose.AgentZ
	lastDelta := 0.0
	results := make([]StepResult, 0, len(f.Attempts))

	for _, rec := range f.Attempts {
		pose := actuation.Pose{
			AgentX:  agentX,
			AgentZ:  agentZ,
			TargetX: f.StartPose.TargetX,
			TargetZ: f.StartPose.TargetZ,
		}

		directive := navigator.Advance(pose, detector.Counter(), lastDelta)
		if directive.ResetStall {
			detector.Reset()
		}
		if directive.CertifiedWedged {
			results = append(results, StepResult{
				Attempt:         rec.Attempt,
				Mode:            navigator.Mode(),
				Stage:           navigator.Stage(),
				LaneIndex:       navigator.State().LaneIndex,
				StuckCounter:    detector.Counter(),
				CertifiedWedged: true,
			})
			break
		}

		deltaX := rec.EndX - agentX
		deltaZ := rec.EndZ - agentZ
		total := math.Hypot(deltaX, deltaZ)
		lastDelta = total

		class := detector.Classify(actuation.ClassifyInput{
			Mode:           navigator.Mode(),
			Stage:          navigator.Stage(),
			DeltaX:         deltaX,
			DeltaZ:         deltaZ,
			ExecutedSteps:  rec.ExecutedSteps,
			StartX:         agentX,
			StartZ:         agentZ,
			CurrentX:       pose.AgentX,
			ObstaclePlaneX: pose.ObstaclePlaneX(cfg),
		})
		navigator.Observe(deltaX, total)

		results = append(results, StepResult{
			Attempt:        rec.Attempt,
			Mode:           navigator.Mode(),
			Stage:          navigator.Stage(),
			LaneIndex:      navigator.State().LaneIndex,
			Classification: class,
			StuckCounter:   detector.Counter(),
		})

		agentX, agentZ = rec.EndX, rec.EndZ
	}

	return results
}

// Summarize aggregates replay results and checks them against the
// fixture's expected verdicts. Mismatch strings are human-readable and
// empty when the replay matched.
func Summarize(f *Fixture, results []StepResult) Summary {
	s := Summary{TotalAttempts: len(results)}

	byAttempt := make(map[int]StepResult, len(results))
	for _, r := range results {
		byAttempt[r.Attempt] = r
		switch r.Classification {
		case actuation.ClassStuck:
			s.Stalls++
		case actuation.ClassAnomaly:
			s.Anomalies++
		}
		if r.Mode != actuation.ModeApproach {
			s.RerouteEntered = true
		}
		if r.CertifiedWedged {
			s.CertifiedWedged = true
		}
	}

	for _, want := range f.Expected {
		got, ok := byAttempt[want.Attempt]
		if !ok {
			s.Mismatches = append(s.Mismatches, fmt.Sprintf("attempt %d: not replayed", want.Attempt))
			continue
		}
		if want.Mode != "" && string(got.Mode) != want.Mode {
			s.Mismatches = append(s.Mismatches,
				fmt.Sprintf("attempt %d: mode %s, expected %s", want.Attempt, got.Mode, want.Mode))
		}
		if want.Stage != "" && string(got.Stage) != want.Stage {
			s.Mismatches = append(s.Mismatches,
				fmt.Sprintf("attempt %d: stage %s, expected %s", want.Attempt, got.Stage, want.Stage))
		}
		if want.LaneIndex != nil && got.LaneIndex != *want.LaneIndex {
			s.Mismatches = append(s.Mismatches,
				fmt.Sprintf("attempt %d: lane %d, expected %d", want.Attempt, got.LaneIndex, *want.LaneIndex))
		}
		if want.Classification != "" && string(got.Classification) != want.Classification {
			s.Mismatches = append(s.Mismatches,
				fmt.Sprintf("attempt %d: class %s, expected %s", want.Attempt, got.Classification, want.Classification))
		}
	}

	return s
}

// #endregion replay
