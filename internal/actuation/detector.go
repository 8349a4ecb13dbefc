package actuation

// #region imports
import (
	"log"
	"math"
)

// #endregion

// #region detector

// StuckDetector classifies each executed move as progressing, stalled, or
// anomalous, and tracks the consecutive-stall counter the navigator keys
// its transitions on.
type StuckDetector struct {
	cfg        Config
	counter    int
	lastStallX float64
	lastStallZ float64
	hasStall   bool
	lastEscape string
}

// NewStuckDetector creates a detector with a zeroed stall counter.
func NewStuckDetector(cfg Config) *StuckDetector {
	return &StuckDetector{cfg: cfg, lastEscape: "none"}
}

// Counter returns the current consecutive-stall count.
func (d *StuckDetector) Counter() int {
	return d.counter
}

// Reset clears the stall counter. Called by the executive when the
// navigator completes a stage that invalidates accumulated stalls.
func (d *StuckDetector) Reset() {
	d.counter = 0
}

// #endregion detector

// #region classify-input

// ClassifyInput carries one executed move and the context needed to judge
// it. StartX/StartZ are the position before the move; CurrentX is the
// position the attempt was planned from.
type ClassifyInput struct {
	Mode           Mode
	Stage          Stage
	DeltaX         float64
	DeltaZ         float64
	ExecutedSteps  int
	StartX         float64
	StartZ         float64
	CurrentX       float64
	ObstaclePlaneX float64
}

// #endregion classify-input

// #region classify

// Classify judges one executed move. Anomalies (teleport-scale jumps)
// neither increment nor reset the stall counter and must never feed the
// gain estimate. A move that executed no directional commands cannot
// change an existing STUCK verdict.
func (d *StuckDetector) Classify(in ClassifyInput) Classification {
	total := math.Hypot(in.DeltaX, in.DeltaZ)

	if total > d.cfg.AnomalyCeiling {
		log.Printf("[STUCK] anomaly: jump %.2fm from (%.2f,%.2f)",
			total, in.StartX, in.StartZ)
		return ClassAnomaly
	}

	if in.ExecutedSteps == 0 {
		if d.counter > 0 {
			return ClassStuck
		}
		return ClassOK
	}

	stalled := false
	if in.Mode == ModeApproach {
		// Short of the obstacle plane with no X progress: blocked, not slow.
		stalled = math.Abs(in.DeltaX) < d.cfg.EpsMotion && in.CurrentX < in.ObstaclePlaneX
	} else {
		// All reroute stages, probes included. A blocked probe is a stall:
		// it must never feed the gain estimate, or the estimate collapses
		// to the clamp floor on zero-displacement samples.
		stalled = total < d.cfg.EpsMotion
	}

	if stalled {
		d.counter++
		d.lastStallX = in.StartX
		d.lastStallZ = in.StartZ
		d.hasStall = true
		log.Printf("[STUCK] mode=%s dx=%.4f dz=%.4f counter=%d",
			in.Mode, in.DeltaX, in.DeltaZ, d.counter)
		return ClassStuck
	}

	d.counter = 0
	d.lastEscape = "none"
	return ClassOK
}

// #endregion classify

// #region telemetry

// Telemetry snapshots the detector state for the planner oracle.
func (d *StuckDetector) Telemetry(subgoal string) Telemetry {
	return Telemetry{
		StuckFlag:     d.counter > 0,
		StuckCount:    d.counter,
		LastStallX:    d.lastStallX,
		LastStallZ:    d.lastStallZ,
		HasStall:      d.hasStall,
		LastEscapeDir: d.lastEscape,
		Subgoal:       subgoal,
	}
}

// #endregion telemetry
