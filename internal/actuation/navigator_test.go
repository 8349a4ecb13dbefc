package actuation

import (
	"math"
	"testing"
)

// testPose is an agent short of the obstacle plane, on the target line.
func testPose() Pose {
	return Pose{AgentX: 2.0, AgentZ: 0, TargetX: 6.0, TargetZ: 0}
}

func TestAdvance_ApproachSwitchesToRerouteOnSecondStall(t *testing.T) {
	nav := NewNavigator(DefaultConfig())

	nav.Advance(testPose(), 1, 0)
	if nav.Mode() != ModeApproach {
		t.Fatalf("mode = %s after one stall, want APPROACH", nav.Mode())
	}

	nav.Advance(testPose(), 2, 0)
	if nav.Mode() != ModeReroute || nav.Stage() != StageOffset {
		t.Fatalf("mode/stage = %s/%s, want REROUTE/OFFSET", nav.Mode(), nav.Stage())
	}
	if nav.State().LaneIndex != 0 {
		t.Errorf("lane = %d, want 0 (tightest candidate first)", nav.State().LaneIndex)
	}
	entered, _, _ := nav.Phases()
	if !entered {
		t.Error("reroute phase not recorded")
	}
}

func TestAdvance_OffsetRetreatsThenGoesLateral(t *testing.T) {
	cfg := DefaultConfig()
	nav := NewNavigator(cfg)
	nav.state.Mode = ModeReroute
	nav.state.Stage = StageOffset

	// Too close to the plane (5.25): subgoal X retreats to 5.25 - 1.2.
	pose := testPose()
	pose.AgentX = 4.8
	d := nav.Advance(pose, 0, 0)
	if want := 4.05; math.Abs(d.SubgoalX-want) > 1e-9 {
		t.Errorf("subgoal X = %v, want retreat target %v", d.SubgoalX, want)
	}

	// Far enough back: subgoal is the lane offset.
	pose.AgentX = 2.0
	d = nav.Advance(pose, 0, 0)
	if want := -1.5; math.Abs(d.SubgoalZ-want) > 1e-9 {
		t.Errorf("subgoal Z = %v, want lane offset %v", d.SubgoalZ, want)
	}
}

func TestAdvance_OffsetToleranceEntersProbe(t *testing.T) {
	nav := NewNavigator(DefaultConfig())
	nav.state.Mode = ModeReroute
	nav.state.Stage = StageOffset

	pose := testPose()
	pose.AgentZ = -1.4 // within 0.2 of lane 0 offset (-1.5)
	d := nav.Advance(pose, 3, 0)
	if nav.Stage() != StageProbe {
		t.Fatalf("stage = %s, want PROBE", nav.Stage())
	}
	if !d.ResetStall {
		t.Error("entering PROBE must reset the stall counter")
	}
	if !d.Forced || d.Move.MoveX != 0.5 {
		t.Errorf("directive = %+v, want forced 0.5m probe", d)
	}
}

func TestObserve_ProbeValidatesLane(t *testing.T) {
	nav := NewNavigator(DefaultConfig())
	nav.state.Mode = ModeReroute
	nav.state.Stage = StageProbe

	nav.Observe(0.08, 0.08)
	res := nav.Observe(0.07, 0.07) // accumulated 0.15 > 0.10
	if !res.LaneValidated {
		t.Fatal("lane should validate at 0.15 accumulated")
	}
	if nav.Stage() != StagePass {
		t.Errorf("stage = %s, want PASS", nav.Stage())
	}
	_, offsetReached, _ := nav.Phases()
	if !offsetReached {
		t.Error("PASS phase not recorded")
	}
}

func TestObserve_ProbeBlockedAdvancesLane(t *testing.T) {
	nav := NewNavigator(DefaultConfig())
	nav.state.Mode = ModeReroute
	nav.state.Stage = StageProbe

	nav.Observe(0.02, 0.02)
	res := nav.Observe(0.01, 0.01) // accumulated 0.03 < 0.10
	if !res.LaneBlocked {
		t.Fatal("lane should be judged blocked at 0.03 accumulated")
	}
	if nav.Stage() != StageOffset {
		t.Errorf("stage = %s, want OFFSET", nav.Stage())
	}
	if nav.State().LaneIndex != 1 {
		t.Errorf("lane = %d, want 1", nav.State().LaneIndex)
	}
}

func TestAdvance_PassToReturnToApproach(t *testing.T) {
	nav := NewNavigator(DefaultConfig())
	nav.state.Mode = ModeReroute
	nav.state.Stage = StagePass

	// Past plane + margin (5.25 + 0.50): PASS completes.
	pose := testPose()
	pose.AgentX = 5.9
	pose.AgentZ = -1.5
	nav.Advance(pose, 0, 0)
	if nav.Stage() != StageReturn {
		t.Fatalf("stage = %s, want RETURN", nav.Stage())
	}

	// Back near the target line: RETURN completes.
	pose.AgentZ = -0.2
	d := nav.Advance(pose, 0, 0)
	if nav.Mode() != ModeApproach {
		t.Fatalf("mode = %s, want APPROACH", nav.Mode())
	}
	if !d.ResetStall {
		t.Error("returning to APPROACH must reset the stall counter")
	}
	_, _, passCompleted := nav.Phases()
	if !passCompleted {
		t.Error("RETURN phase not recorded")
	}
}

func TestAdvance_PassHesitationForcesLaneSwitch(t *testing.T) {
	cfg := DefaultConfig()
	nav := NewNavigator(cfg)
	nav.state.Mode = ModeReroute
	nav.state.Stage = StagePass

	pose := testPose() // still short of the pass target
	for i := 0; i < cfg.PassHesitationLimit; i++ {
		nav.Advance(pose, 0, 0)
		nav.Observe(0.01, 0.01) // below pass progress epsilon
	}
	d := nav.Advance(pose, 0, 0)
	if nav.Stage() != StageOffset || nav.State().LaneIndex != 1 {
		t.Errorf("stage/lane = %s/%d, want OFFSET/1 after hesitation",
			nav.Stage(), nav.State().LaneIndex)
	}
	if !d.ResetStall {
		t.Error("forced lane switch must reset the stall counter")
	}
}

func TestAdvance_LaneTimeoutForcesSwitch(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LaneAttemptBudget = 3
	nav := NewNavigator(cfg)
	nav.state.Mode = ModeReroute
	nav.state.Stage = StageOffset

	pose := testPose()
	for i := 0; i < cfg.LaneAttemptBudget+1; i++ {
		nav.Advance(pose, 0, 0)
	}
	if nav.State().LaneIndex != 1 {
		t.Errorf("lane = %d, want 1 after timeout", nav.State().LaneIndex)
	}
}

func TestAdvance_OffsetStallEntersDiagnostic(t *testing.T) {
	cfg := DefaultConfig()
	nav := NewNavigator(cfg)
	nav.state.Mode = ModeReroute
	nav.state.Stage = StageOffset

	d := nav.Advance(testPose(), cfg.OffsetStallLimit, 0)
	if nav.Mode() != ModeDiagnostic {
		t.Fatalf("mode = %s, want DIAGNOSTIC", nav.Mode())
	}
	if !d.Forced || d.Move.Strength != "strong" {
		t.Errorf("directive = %+v, want forced maximal-strength probe", d)
	}
}

func TestAdvance_DiagnosticEntryOutranksLaneTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LaneAttemptBudget = 3
	nav := NewNavigator(cfg)
	nav.state.Mode = ModeReroute
	nav.state.Stage = StageOffset
	nav.state.LaneAttempts = cfg.LaneAttemptBudget // next Advance exceeds the budget

	// Budget expiry and the offset stall limit land on the same Advance:
	// the diagnostic wins, and its first probe must still be the forced
	// maximal-strength move, not a lane switch back to planner control.
	d := nav.Advance(testPose(), cfg.OffsetStallLimit, 0)
	if nav.Mode() != ModeDiagnostic {
		t.Fatalf("mode = %s, want DIAGNOSTIC", nav.Mode())
	}
	if !d.Forced || d.Move.Strength != "strong" {
		t.Fatalf("directive = %+v, want forced maximal-strength probe", d)
	}
	if nav.State().LaneIndex != 0 {
		t.Errorf("lane = %d, want 0 (switch abandoned on diagnostic entry)", nav.State().LaneIndex)
	}
	if !d.ResetStall {
		t.Error("diagnostic entry must reset the stall counter")
	}

	// The verdict still comes from the four probes themselves.
	for i := 0; i < 3; i++ {
		nav.Advance(testPose(), 0, 0.01)
	}
	d = nav.Advance(testPose(), 0, 0.01)
	if !d.CertifiedWedged || len(d.Diagnostics) != 4 {
		t.Errorf("directive = %+v, want certification from 4 probe records", d)
	}
}

func TestAdvance_DiagnosticCertifiesWedge(t *testing.T) {
	cfg := DefaultConfig()
	nav := NewNavigator(cfg)
	nav.state.Mode = ModeReroute
	nav.state.Stage = StageOffset

	// Enter the diagnostic; the first probe is issued immediately.
	nav.Advance(testPose(), cfg.OffsetStallLimit, 0)

	// Three more probes, each measuring nothing.
	for i := 0; i < 3; i++ {
		d := nav.Advance(testPose(), 0, 0.01)
		if !d.Forced {
			t.Fatalf("probe %d: expected forced move", i+2)
		}
	}

	// Final advance records the last probe and certifies.
	d := nav.Advance(testPose(), 0, 0.01)
	if !d.CertifiedWedged {
		t.Fatal("expected certified wedge")
	}
	if len(d.Diagnostics) != 4 {
		t.Fatalf("diagnostics = %d records, want 4", len(d.Diagnostics))
	}
	for _, rec := range d.Diagnostics {
		if !rec.Wedged {
			t.Errorf("direction %s not wedged: %+v", rec.Direction, rec)
		}
	}
}

func TestAdvance_DiagnosticWithFreeDirectionResumesReroute(t *testing.T) {
	cfg := DefaultConfig()
	nav := NewNavigator(cfg)
	nav.state.Mode = ModeReroute
	nav.state.Stage = StageOffset

	nav.Advance(testPose(), cfg.OffsetStallLimit, 0)
	nav.Advance(testPose(), 0, 0.30) // forward probe moved: FREE
	for i := 0; i < 2; i++ {
		nav.Advance(testPose(), 0, 0.01)
	}

	d := nav.Advance(testPose(), 0, 0.01)
	if d.CertifiedWedged {
		t.Fatal("one free direction must not certify a wedge")
	}
	if nav.Mode() != ModeReroute || nav.Stage() != StageOffset {
		t.Errorf("mode/stage = %s/%s, want REROUTE/OFFSET", nav.Mode(), nav.Stage())
	}
	if nav.State().LaneIndex != 1 {
		t.Errorf("lane = %d, want forced advance to 1", nav.State().LaneIndex)
	}
}

func TestLaneIndexNeverDecreases(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LaneAttemptBudget = 2
	nav := NewNavigator(cfg)
	nav.state.Mode = ModeReroute
	nav.state.Stage = StageOffset

	last := 0
	pose := testPose()
	for i := 0; i < 40; i++ {
		nav.Advance(pose, 0, 0)
		if lane := nav.State().LaneIndex; lane < last {
			t.Fatalf("lane decreased from %d to %d at attempt %d", last, lane, i)
		} else {
			last = lane
		}
	}
	if last == 0 {
		t.Error("expected timeouts to advance the lane index")
	}
}

func TestConfigLane_WrapsCandidates(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.Lane(5); got != cfg.LaneCandidates[0] {
		t.Errorf("Lane(5) = %v, want wrap to %v", got, cfg.LaneCandidates[0])
	}
	if got := cfg.Lane(7); got != cfg.LaneCandidates[2] {
		t.Errorf("Lane(7) = %v, want %v", got, cfg.LaneCandidates[2])
	}
}
