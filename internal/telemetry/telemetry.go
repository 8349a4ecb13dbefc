package telemetry

// #region imports
import (
	"fmt"
	"math"
	"strings"

	"github.com/gravitylab/actuation-harness/internal/actuation"
)

// #endregion

// #region build-prompt

// BuildPrompt renders the planner oracle's view of one attempt: goal
// geometry, measured actuation gains, stuck telemetry, the navigator's
// active subgoal, and the output contract. The oracle sees only this
// text; everything it needs must be in it.
func BuildPrompt(req actuation.PlanRequest) string {
	currentX := req.Obs.AgentPosition[0]
	currentZ := req.Obs.AgentPosition[2]
	targetX := req.Obs.BasketPosition[0]
	targetZ := req.Obs.BasketPosition[2]

	distX := targetX - currentX
	distZ := targetZ - currentZ
	dist := math.Hypot(distX, distZ)

	var b strings.Builder
	fmt.Fprintf(&b, "GOAL: Get the block into the basket at (X=%.2f, Z=%.2f).\n", targetX, targetZ)
	fmt.Fprintf(&b, "CURRENT: (X=%.2f, Z=%.2f). DELTA: dX=%.2fm, dZ=%.2fm. DIST=%.2fm.\n\n",
		currentX, currentZ, distX, distZ, dist)
	fmt.Fprintf(&b, "ACTUATION GAINS (measured): gain_x=%.4f m/step, gain_z=%.4f m/step.\n\n",
		req.Gain, req.Gain)

	b.WriteString("STUCK TELEMETRY:\n")
	fmt.Fprintf(&b, "stuck_flag=%v, stuck_count=%d,\n", req.Telemetry.StuckFlag, req.Telemetry.StuckCount)
	fmt.Fprintf(&b, "last_stuck=%s, last_escape=%s.\n\n",
		req.Telemetry.LastStallString(), req.Telemetry.LastEscapeDir)

	if req.Telemetry.Subgoal != "" {
		b.WriteString(req.Telemetry.Subgoal)
		b.WriteString("\n\n")
	}

	b.WriteString("OBSTACLE HINT:\n")
	fmt.Fprintf(&b, "There may be a wall near X = %.2f. If you are repeatedly stuck at the same X, you must DETOUR in Z.\n\n",
		req.ObstaclePlaneX)

	b.WriteString("POLICY:\n")
	b.WriteString("1) Normal approach: reduce |dX| while keeping Z near target_z.\n")
	b.WriteString("2) If stuck_count >= 2 OR you see you are stuck at similar X repeatedly:\n")
	b.WriteString("   - DETOUR: move laterally to reach |Z - target_z| >= 2.0.\n")
	fmt.Fprintf(&b, "   - PASS: move forward until X > %.2f.\n", req.PassTargetX)
	b.WriteString("   - RETURN: move Z back toward target_z (usually 0.0).\n")
	b.WriteString("3) Always output small, safe moves in meters. You are allowed to move in both X and Z in the same step.\n\n")

	b.WriteString("OUTPUT ONLY JSON with:\n")
	b.WriteString(`{"move_x_meters": float, "move_z_meters": float, "throw_strength": "weak"|"medium"|"strong"}`)
	return b.String()
}

// #endregion build-prompt
