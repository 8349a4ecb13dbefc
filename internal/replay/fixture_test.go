package replay

// #region imports
import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gravitylab/actuation-harness/internal/actuation"
)

// #endregion

// #region tests

func writeFixture(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadFixture(t *testing.T) {
	path := writeFixture(t, `{
		"description": "approach stall",
		"start_pose": {"agent_x": 2.0, "agent_z": 0.0, "target_x": 6.0, "target_z": 0.0},
		"config": {"eps_motion": 0.05},
		"attempts": [
			{"attempt": 1, "end_x": 2.0, "end_z": 0.0, "executed_steps": 10}
		],
		"expected": [
			{"attempt": 1, "mode": "APPROACH", "classification": "STUCK"}
		]
	}`)

	f, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if f.Description != "approach stall" {
		t.Errorf("description = %q", f.Description)
	}
	if f.StartPose.TargetX != 6.0 {
		t.Errorf("target_x = %v", f.StartPose.TargetX)
	}
	if len(f.Attempts) != 1 || f.Attempts[0].ExecutedSteps != 10 {
		t.Errorf("attempts = %+v", f.Attempts)
	}
	if len(f.Expected) != 1 || f.Expected[0].Classification != "STUCK" {
		t.Errorf("expected = %+v", f.Expected)
	}
}

func TestLoadFixtureMissingFile(t *testing.T) {
	if _, err := LoadFixture(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFixtureRejectsEmptyAttempts(t *testing.T) {
	path := writeFixture(t, `{"description": "empty", "attempts": []}`)
	if _, err := LoadFixture(path); err == nil {
		t.Fatal("expected error for fixture with no attempts")
	}
}

func TestFromOutcomeRoundTrip(t *testing.T) {
	out := actuation.EpisodeOutcome{
		EpisodeID:   "ep-1",
		Seed:        4,
		Status:      actuation.StatusSuccess,
		InitialDist: 8.0,
		Trace: []actuation.AttemptTrace{
			{Attempt: 1, Mode: actuation.ModeApproach, Stage: actuation.StageOffset, PosX: -2.0, PosZ: 0.0, DeltaX: 1.0, Status: "OK"},
			{Attempt: 2, Mode: actuation.ModeApproach, Stage: actuation.StageOffset, PosX: -1.0, PosZ: 0.0, DeltaX: 1.0, Status: "OK"},
		},
	}

	f, err := FromOutcome(out)
	if err != nil {
		t.Fatalf("FromOutcome: %v", err)
	}
	if f.StartPose.AgentX != -2.0 || f.StartPose.TargetX != 6.0 {
		t.Errorf("start pose = %+v", f.StartPose)
	}
	if len(f.Attempts) != 2 || f.Attempts[1].EndX != 0.0 {
		t.Errorf("attempts = %+v", f.Attempts)
	}
	if len(f.Expected) != 2 || f.Expected[0].Mode != "APPROACH" {
		t.Errorf("expected = %+v", f.Expected)
	}

	path := filepath.Join(t.TempDir(), "exported.json")
	if err := f.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if loaded.Description != f.Description || len(loaded.Attempts) != 2 {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestFromOutcomeEmptyTrace(t *testing.T) {
	if _, err := FromOutcome(actuation.EpisodeOutcome{EpisodeID: "ep-2"}); err == nil {
		t.Fatal("expected error for empty trace")
	}
}

func TestFixtureConfigOverrides(t *testing.T) {
	fc := FixtureConfig{EpsMotion: 0.05, LaneAttemptBudget: 10}
	cfg := fc.ToConfig()
	if cfg.EpsMotion != 0.05 {
		t.Errorf("EpsMotion = %v", cfg.EpsMotion)
	}
	if cfg.LaneAttemptBudget != 10 {
		t.Errorf("LaneAttemptBudget = %v", cfg.LaneAttemptBudget)
	}
	if cfg.OffsetStallLimit == 0 {
		t.Error("unset override should keep default")
	}
}

// #endregion tests
