package actuation

// #region imports
import (
	"fmt"
	"log"
	"math"
)

// #endregion

// #region directive

// Directive is the navigator's instruction for one attempt: the active
// subgoal, an optional forced move that overrides the planner oracle, and
// any terminal verdict from the wedge diagnostic.
type Directive struct {
	SubgoalX float64
	SubgoalZ float64
	Subgoal  string

	Forced bool
	Move   Proposal

	// ResetStall tells the executive to clear the stall counter because a
	// stage completed and accumulated stalls no longer apply.
	ResetStall bool

	// CertifiedWedged terminates the episode: all four diagnostic probes
	// read below the wedge threshold.
	CertifiedWedged bool
	Diagnostics     []DiagnosticRecord
}

// ObserveResult reports lane verdicts reached after a move executed.
type ObserveResult struct {
	LaneValidated bool
	LaneBlocked   bool
}

// #endregion directive

// #region navigator

// Navigator is the lane-search state machine. It owns NavigatorState
// exclusively; all mutation happens in Advance, Observe, and the lane
// switch they trigger. The lane index never decreases within an episode.
type Navigator struct {
	cfg    Config
	state  NavigatorState
	prober *Prober

	enteredReroute bool
	visitedPass    bool
	visitedReturn  bool
}

// NewNavigator starts in APPROACH on the tightest lane candidate.
func NewNavigator(cfg Config) *Navigator {
	return &Navigator{
		cfg:    cfg,
		prober: NewProber(cfg),
		state: NavigatorState{
			Mode:       ModeApproach,
			Stage:      StageOffset,
			DetourSign: cfg.DetourSign,
		},
	}
}

// Mode returns the active top-level mode.
func (n *Navigator) Mode() Mode { return n.state.Mode }

// Stage returns the active REROUTE sub-stage.
func (n *Navigator) Stage() Stage { return n.state.Stage }

// State returns a copy of the full navigator state.
func (n *Navigator) State() NavigatorState { return n.state }

// Phases reports which reroute phases the episode has visited.
func (n *Navigator) Phases() (rerouteEntered, offsetReached, passCompleted bool) {
	return n.enteredReroute, n.visitedPass, n.visitedReturn
}

// #endregion navigator

// #region advance

// Advance runs the pre-attempt state transitions and returns the
// directive for this attempt. stallCount is the detector's consecutive
// stall counter; prevDelta is the total displacement measured on the
// previous attempt, consumed by a pending diagnostic probe.
func (n *Navigator) Advance(pose Pose, stallCount int, prevDelta float64) Directive {
	n.state.LaneAttempts++

	d := Directive{SubgoalX: pose.TargetX, SubgoalZ: pose.TargetZ}
	plane := pose.ObstaclePlaneX(n.cfg)
	laneZ := pose.TargetZ + n.state.DetourSign*n.cfg.Lane(n.state.LaneIndex)
	passX := plane + n.cfg.PassMargin
	forceSwitch := false

	if n.state.Mode == ModeApproach && stallCount >= n.cfg.ApproachStallLimit {
		log.Printf("[NAV] stuck x%d at X=%.2f, switching to REROUTE", stallCount, pose.AgentX)
		n.state.Mode = ModeReroute
		n.state.Stage = StageOffset
		n.state.LaneAttempts = 0
		n.enteredReroute = true
	}

	if n.state.Mode == ModeReroute {
		if n.state.LaneAttempts > n.cfg.LaneAttemptBudget {
			log.Printf("[NAV] lane %d timeout (>%d attempts), switching",
				n.state.LaneIndex, n.cfg.LaneAttemptBudget)
			forceSwitch = true
		}

		if n.state.Stage == StageOffset && stallCount >= n.cfg.OffsetStallLimit {
			log.Printf("[NAV] lane %d blocked laterally (stuck x%d), starting wedge diagnostic",
				n.state.LaneIndex, stallCount)
			n.state.Mode = ModeDiagnostic
			n.prober.Begin()
			d.ResetStall = true
			// A pending lane switch is abandoned: the probe must execute this
			// attempt, or the verdict would measure an arbitrary planner move.
			forceSwitch = false
		}
	}

	if n.state.Mode == ModeReroute && !forceSwitch {
		switch n.state.Stage {
		case StageOffset:
			// Retreat from the plane if too close to slide, then go lateral.
			safeX := plane - n.cfg.SafeOffsetMargin
			d.SubgoalX = math.Min(pose.AgentX, safeX)
			d.SubgoalZ = laneZ
			if pose.AgentX > safeX+n.cfg.RetreatSlack {
				d.Subgoal = fmt.Sprintf("SUBGOAL: RETREAT to X=%.2f (Current X=%.2f).", safeX, pose.AgentX)
			} else {
				d.Subgoal = fmt.Sprintf("SUBGOAL: MOVE LATERALLY to Z=%.2f (Lane %d).", laneZ, n.state.LaneIndex)
			}
			if math.Abs(pose.AgentZ-laneZ) < n.cfg.OffsetTolerance {
				log.Printf("[NAV] offset achieved (lane %d), switching to PROBE", n.state.LaneIndex)
				n.state.Stage = StageProbe
				n.state.ProbeSteps = 0
				n.state.ProbeAccum = 0
				d.ResetStall = true
				d.Subgoal = fmt.Sprintf("SUBGOAL: PROBE FORWARD. Testing Lane %d.", n.state.LaneIndex)
			}

		case StageProbe:
			d.Subgoal = fmt.Sprintf("SUBGOAL: PROBE FORWARD. Testing Lane %d.", n.state.LaneIndex)

		case StagePass:
			d.SubgoalX = passX
			d.SubgoalZ = laneZ
			d.Subgoal = fmt.Sprintf("SUBGOAL: MOVE FORWARD past X=%.2f (Lane %d).", passX, n.state.LaneIndex)
			if pose.AgentX > passX {
				log.Printf("[NAV] passed obstacle plane, switching to RETURN")
				n.state.Stage = StageReturn
				n.state.LaneAttempts = 0
				n.visitedReturn = true
				d.Subgoal = fmt.Sprintf("SUBGOAL: RETURN Z to %.2f.", pose.TargetZ)
			} else if n.state.PassHesitation >= n.cfg.PassHesitationLimit {
				log.Printf("[NAV] stuck in PASS (lane %d) despite validated probe, switching lane",
					n.state.LaneIndex)
				forceSwitch = true
			}

		case StageReturn:
			d.SubgoalX = pose.TargetX
			d.SubgoalZ = pose.TargetZ
			d.Subgoal = fmt.Sprintf("SUBGOAL: RETURN Z to %.2f.", pose.TargetZ)
			if math.Abs(pose.AgentZ-pose.TargetZ) < n.cfg.ReturnTolerance {
				log.Printf("[NAV] returned to center, switching to APPROACH")
				n.state.Mode = ModeApproach
				d.ResetStall = true
			}
		}
	}

	// Forced probe command: two small fixed forward moves, never planned.
	if n.state.Mode == ModeReroute && n.state.Stage == StageProbe && !forceSwitch {
		d.Forced = true
		d.Move = Proposal{MoveX: n.cfg.ProbeMoveX, MoveZ: 0, Strength: "medium"}
	}

	if n.state.Mode == ModeDiagnostic {
		n.prober.RecordPrevious(prevDelta)
		if n.prober.Done() {
			wedged, records := n.prober.Verdict()
			d.Diagnostics = records
			if wedged {
				log.Printf("[NAV] conclusion: UNSAT_WEDGED, terminating episode")
				d.CertifiedWedged = true
				return d
			}
			log.Printf("[NAV] conclusion: escapable, resuming REROUTE on next lane")
			n.state.Mode = ModeReroute
			forceSwitch = true
		} else {
			label, move := n.prober.NextMove()
			d.Forced = true
			d.Move = move
			d.Subgoal = "DIAGNOSTIC: " + label
			log.Printf("[DIAG] executing %s", label)
		}
	}

	if forceSwitch {
		n.switchLane()
		d.ResetStall = true
		d.Forced = false
	}

	return d
}

// switchLane advances to the next candidate lane and restarts OFFSET.
func (n *Navigator) switchLane() {
	n.state.LaneIndex++
	n.state.Stage = StageOffset
	n.state.LaneAttempts = 0
	n.state.ProbeSteps = 0
	n.state.ProbeAccum = 0
	n.state.PassHesitation = 0
	log.Printf("[NAV] switching to lane %d (%.1fm)", n.state.LaneIndex, n.cfg.Lane(n.state.LaneIndex))
}

// #endregion advance

// #region observe

// Observe feeds the measured displacement of the attempt just executed
// back into the state machine: probe accumulation and verdicts, and the
// PASS hesitation watchdog.
func (n *Navigator) Observe(deltaX, totalDelta float64) ObserveResult {
	var res ObserveResult
	if n.state.Mode != ModeReroute {
		return res
	}

	switch n.state.Stage {
	case StagePass:
		if deltaX < n.cfg.PassProgressEps {
			n.state.PassHesitation++
		} else {
			n.state.PassHesitation = 0
		}

	case StageProbe:
		n.state.ProbeSteps++
		n.state.ProbeAccum += deltaX
		log.Printf("[PROBE] step %d: dx=%.4f accum=%.4f",
			n.state.ProbeSteps, deltaX, n.state.ProbeAccum)
		if n.state.ProbeSteps >= n.cfg.ProbeSteps {
			if n.state.ProbeAccum > n.cfg.ProbeValidation {
				log.Printf("[NAV] lane %d validated (dx=%.2f), proceeding to PASS",
					n.state.LaneIndex, n.state.ProbeAccum)
				n.state.Stage = StagePass
				n.state.PassHesitation = 0
				n.visitedPass = true
				res.LaneValidated = true
			} else {
				log.Printf("[NAV] lane %d blocked (dx=%.2f < %.2f), switching",
					n.state.LaneIndex, n.state.ProbeAccum, n.cfg.ProbeValidation)
				n.state.LaneIndex++
				n.state.Stage = StageOffset
				n.state.LaneAttempts = 0
				res.LaneBlocked = true
			}
			n.state.ProbeSteps = 0
		}
	}
	return res
}

// #endregion observe
