package replay

// #region imports
import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gravitylab/actuation-harness/internal/actuation"
)

// #endregion

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture. It holds
// the recorded kinematics of one episode so the detector and navigator
// can be re-run against them without a live stepping service.
type Fixture struct {
	Description string            `json:"description"`
	StartPose   FixturePose       `json:"start_pose"`
	Config      FixtureConfig     `json:"config"`
	Attempts    []FixtureAttempt  `json:"attempts"`
	Expected    []ExpectedVerdict `json:"expected,omitempty"`
}

// FixturePose is the initial agent/target geometry.
type FixturePose struct {
	AgentX  float64 `json:"agent_x"`
	AgentZ  float64 `json:"agent_z"`
	TargetX float64 `json:"target_x"`
	TargetZ float64 `json:"target_z"`
}

// FixtureAttempt is the recorded result of one executed attempt: where
// the agent ended up and how many directional commands were issued.
type FixtureAttempt struct {
	Attempt       int     `json:"attempt"`
	EndX          float64 `json:"end_x"`
	EndZ          float64 `json:"end_z"`
	ExecutedSteps int     `json:"executed_steps"`
}

// ExpectedVerdict captures the expected state machine position after an
// attempt. Empty string and nil fields are not checked.
type ExpectedVerdict struct {
	Attempt        int    `json:"attempt"`
	Mode           string `json:"mode,omitempty"`
	Stage          string `json:"stage,omitempty"`
	LaneIndex      *int   `json:"lane_index,omitempty"`
	Classification string `json:"classification,omitempty"`
}

// FixtureConfig overrides controller tunables. Zero values keep defaults.
type FixtureConfig struct {
	EpsMotion          float64 `json:"eps_motion,omitempty"`
	ApproachStallLimit int     `json:"approach_stall_limit,omitempty"`
	OffsetStallLimit   int     `json:"offset_stall_limit,omitempty"`
	LaneAttemptBudget  int     `json:"lane_attempt_budget,omitempty"`
	AnomalyCeiling     float64 `json:"anomaly_ceiling,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if len(f.Attempts) == 0 {
		return nil, fmt.Errorf("fixture %s: no attempts", path)
	}
	return &f, nil
}

// ToConfig layers fixture overrides onto the default controller config.
func (fc FixtureConfig) ToConfig() actuation.Config {
	cfg := actuation.DefaultConfig()
	if fc.EpsMotion != 0 {
		cfg.EpsMotion = fc.EpsMotion
	}
	if fc.ApproachStallLimit != 0 {
		cfg.ApproachStallLimit = fc.ApproachStallLimit
	}
	if fc.OffsetStallLimit != 0 {
		cfg.OffsetStallLimit = fc.OffsetStallLimit
	}
	if fc.LaneAttemptBudget != 0 {
		cfg.LaneAttemptBudget = fc.LaneAttemptBudget
	}
	if fc.AnomalyCeiling != 0 {
		cfg.AnomalyCeiling = fc.AnomalyCeiling
	}
	return cfg
}

// ToPose converts the fixture start pose to the domain pose.
func (fp FixturePose) ToPose() actuation.Pose {
	return actuation.Pose{
		AgentX:  fp.AgentX,
		AgentZ:  fp.AgentZ,
		TargetX: fp.TargetX,
		TargetZ: fp.TargetZ,
	}
}

// #endregion fixture-loader

// #region fixture-export

// FromOutcome rebuilds a replay fixture from a recorded episode. The
// trace stores start positions and deltas, so end positions are derived.
// The target X is reconstructed from the initial distance; the target Z
// is the task center line.
func FromOutcome(out actuation.EpisodeOutcome) (*Fixture, error) {
	if len(out.Trace) == 0 {
		return nil, fmt.Errorf("episode %s: empty trace", out.EpisodeID)
	}

	first := out.Trace[0]
	f := &Fixture{
		Description: fmt.Sprintf("episode %s (seed %d, %s)", out.EpisodeID, out.Seed, out.Status),
		StartPose: FixturePose{
			AgentX:  first.PosX,
			AgentZ:  first.PosZ,
			TargetX: first.PosX + out.InitialDist,
			TargetZ: 0,
		},
	}

	for _, tr := range out.Trace {
		// Forced probe attempts run far fewer commands than planned moves;
		// the recorded stall classification only needs a nonzero count.
		executed := 1
		if tr.Status == string(actuation.ClassOK) || tr.Status == string(actuation.ClassStuck) {
			executed = 10
		}
		f.Attempts = append(f.Attempts, FixtureAttempt{
			Attempt:       tr.Attempt,
			EndX:          tr.PosX + tr.DeltaX,
			EndZ:          tr.PosZ + tr.DeltaZ,
			ExecutedSteps: executed,
		})
		f.Expected = append(f.Expected, ExpectedVerdict{
			Attempt: tr.Attempt,
			Mode:    string(tr.Mode),
			Stage:   string(tr.Stage),
		})
	}
	return f, nil
}

// Save writes a fixture as indented JSON.
func (f *Fixture) Save(path string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// #endregion fixture-export
