package actuation

// #region imports
import (
	"context"
	"fmt"

	"github.com/gravitylab/actuation-harness/internal/envclient"
)

// #endregion

// #region mode

// Mode is the top-level control mode. Exactly one is active at a time.
type Mode string

const (
	ModeApproach   Mode = "APPROACH"
	ModeReroute    Mode = "REROUTE"
	ModeDiagnostic Mode = "DIAGNOSTIC"
)

// #endregion

// #region stage

// Stage is the REROUTE sub-stage. Meaningful only while Mode is REROUTE.
type Stage string

const (
	StageOffset Stage = "OFFSET"
	StageProbe  Stage = "PROBE"
	StagePass   Stage = "PASS"
	StageReturn Stage = "RETURN"
)

// #endregion

// #region classification

// Classification is the verdict on a single executed move.
type Classification string

const (
	ClassOK      Classification = "OK"
	ClassStuck   Classification = "STUCK"
	ClassAnomaly Classification = "ANOMALY"
)

// #endregion

// #region status

// Status classifies how an episode terminated.
type Status string

const (
	StatusSuccess     Status = "SUCCESS"
	StatusUnsatWedged Status = "UNSAT_WEDGED"
	StatusFailPolicy  Status = "FAIL_POLICY"
	// StatusFailInstability marks a non-success episode that recorded at
	// least one anomalous displacement; anomalies never end an episode
	// mid-flight, they only reclassify it at termination.
	StatusFailInstability Status = "FAIL_INSTABILITY"
)

// #endregion

// #region estimator-mode

// EstimatorMode selects how the gain estimate is obtained and maintained.
type EstimatorMode string

const (
	// EstimatorAdaptive runs the calibration pass and keeps tracking via EMA.
	EstimatorAdaptive EstimatorMode = "adaptive"
	// EstimatorPhase0Only runs the calibration pass and then freezes the gain.
	EstimatorPhase0Only EstimatorMode = "phase0_only"
	// EstimatorEMAOnly skips calibration, starts from a deliberately bad
	// prior, and relies entirely on EMA tracking to converge.
	EstimatorEMAOnly EstimatorMode = "ema_only"
)

// #endregion

// #region telemetry

// Telemetry is the stuck-state summary handed to the planner oracle.
// Rebuilt every attempt from detector and navigator state.
type Telemetry struct {
	StuckFlag     bool
	StuckCount    int
	LastStallX    float64
	LastStallZ    float64
	HasStall      bool
	LastEscapeDir string
	Subgoal       string
}

// LastStallString formats the last stall position for prompt text.
func (t Telemetry) LastStallString() string {
	if !t.HasStall {
		return "None"
	}
	return fmt.Sprintf("(X=%.2f, Z=%.2f)", t.LastStallX, t.LastStallZ)
}

// #endregion

// #region navigator-state

// NavigatorState is the explicit state of the lane-search state machine.
// Mutated only by Navigator transitions.
type NavigatorState struct {
	Mode           Mode
	Stage          Stage
	LaneIndex      int
	DetourSign     float64
	LaneAttempts   int
	ProbeSteps     int
	ProbeAccum     float64
	PassHesitation int
}

// #endregion

// #region diagnostic-record

// DiagnosticRecord is one (direction, displacement) measurement from a
// wedge diagnostic pass.
type DiagnosticRecord struct {
	Direction    string  `json:"direction"`
	Displacement float64 `json:"displacement"`
	Wedged       bool    `json:"wedged"`
}

// #endregion

// #region attempt-trace

// AttemptTrace is the append-only per-attempt log entry. Written once by
// the executive; never read back for control decisions.
type AttemptTrace struct {
	Attempt      int     `json:"attempt"`
	Mode         Mode    `json:"mode"`
	Stage        Stage   `json:"stage"`
	LaneIndex    int     `json:"lane_index"`
	PosX         float64 `json:"pos_x"`
	PosZ         float64 `json:"pos_z"`
	DeltaX       float64 `json:"delta_x"`
	DeltaZ       float64 `json:"delta_z"`
	Gain         float64 `json:"gain"`
	StuckCounter int     `json:"stuck_counter"`
	PlanX        float64 `json:"plan_x"`
	PlanZ        float64 `json:"plan_z"`
	Status       string  `json:"status"`
}

// #endregion

// #region episode-outcome

// EpisodeOutcome is the terminal record for one episode.
type EpisodeOutcome struct {
	EpisodeID      string             `json:"episode_id"`
	Seed           int64              `json:"seed"`
	Success        bool               `json:"success"`
	Status         Status             `json:"status"`
	Attempts       int                `json:"attempts"`
	InitialDist    float64            `json:"initial_dist"`
	FinalDist      float64            `json:"final_dist"`
	InitialGain    float64            `json:"initial_gain"`
	FinalGain      float64            `json:"final_gain"`
	RerouteEntered bool               `json:"reroute_entered"`
	OffsetReached  bool               `json:"offset_reached"`
	PassCompleted  bool               `json:"pass_completed"`
	Instability    bool               `json:"instability"`
	Diagnostics    []DiagnosticRecord `json:"diagnostics,omitempty"`
	Trace          []AttemptTrace     `json:"trace"`
}

// #endregion

// #region proposal

// Proposal is a planned move in meters plus a throw strength. Produced by
// the planner oracle or forced by the navigator/prober.
type Proposal struct {
	MoveX    float64
	MoveZ    float64
	Strength string // "weak" | "medium" | "strong"
}

// NeutralProposal is the substitute for any malformed or failed oracle
// response: zero movement, default strength.
func NeutralProposal() Proposal {
	return Proposal{MoveX: 0, MoveZ: 0, Strength: "medium"}
}

// #endregion

// #region plan-request

// PlanRequest bundles everything the planner oracle sees for one attempt.
type PlanRequest struct {
	Obs       envclient.Observation
	Gain      float64
	Telemetry Telemetry

	// Obstacle geometry as the executive plans it, so the oracle's hints
	// agree with the navigator's thresholds.
	ObstaclePlaneX float64
	PassTargetX    float64
}

// #endregion

// #region interfaces

// Planner proposes the next move from the current state and telemetry.
// Implementations are untrusted: the executive substitutes a neutral
// proposal on any error.
type Planner interface {
	Propose(ctx context.Context, req PlanRequest) (Proposal, error)
}

// Session is the per-episode slice of the stepping service the executive
// drives. One command in flight at a time.
type Session interface {
	Reset(ctx context.Context, params envclient.ResetParams) (envclient.Observation, error)
	Step(ctx context.Context, action string, granularity envclient.Granularity) (envclient.Observation, error)
}

// #endregion

// #region pose

// Pose is the agent/target geometry the navigator plans against.
type Pose struct {
	AgentX  float64
	AgentZ  float64
	TargetX float64
	TargetZ float64
}

// ObstaclePlaneX is the suspected wall plane in front of the target.
func (p Pose) ObstaclePlaneX(cfg Config) float64 {
	return p.TargetX - cfg.ObstacleOffset
}

// #endregion
