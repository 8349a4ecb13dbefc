package actuation

// #region imports
import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/google/uuid"

	"github.com/gravitylab/actuation-harness/internal/envclient"
)

// #endregion

// #region executive

// Executive drives the attempt loop for one episode: it consults the
// planner oracle unless the navigator or prober forces an action, applies
// dynamic safety clamps, converts meters to actuator commands through the
// gain estimate, executes, and classifies the result. Episodes are
// independent; run parallel episodes on separate sessions.
type Executive struct {
	cfg     Config
	env     Session
	planner Planner
}

// NewExecutive wires an executive to a stepping session and a planner.
func NewExecutive(cfg Config, env Session, planner Planner) *Executive {
	return &Executive{cfg: cfg, env: env, planner: planner}
}

// #endregion executive

// #region run-episode

// RunEpisode resets the environment for the seed, calibrates the
// actuator, and runs attempts until success, a certified wedge, or the
// retry budget is exhausted. Stepping-service failures are fatal to the
// episode and propagate; retrying a whole episode is the caller's call.
// Every termination path returns a complete outcome with a full trace.
func (e *Executive) RunEpisode(ctx context.Context, seed int64) (EpisodeOutcome, error) {
	outcome := EpisodeOutcome{
		EpisodeID: uuid.New().String(),
		Seed:      seed,
		Status:    StatusFailPolicy,
	}

	obs, err := e.env.Reset(ctx, envclient.ResetParams{
		Task:        e.cfg.Task,
		TaskVersion: e.cfg.TaskVersion,
		Gravity:     e.cfg.Gravity,
		Seed:        seed,
	})
	if err != nil {
		return outcome, fmt.Errorf("reset seed %d: %w", seed, err)
	}
	outcome.InitialDist = math.Abs(obs.BasketPosition[0] - obs.AgentPosition[0])

	estimator := NewGainEstimator(e.cfg)
	if _, err := estimator.Calibrate(ctx, e.env); err != nil {
		return outcome, fmt.Errorf("calibrate seed %d: %w", seed, err)
	}
	outcome.InitialGain = estimator.InitialGain()

	detector := NewStuckDetector(e.cfg)
	navigator := NewNavigator(e.cfg)

	success := false
	anomalySeen := false
	lastDelta := 0.0

	for attempt := 1; attempt <= e.cfg.MaxRetries; attempt++ {
		outcome.Attempts = attempt
		pose := Pose{
			AgentX:  obs.AgentPosition[0],
			AgentZ:  obs.AgentPosition[2],
			TargetX: obs.BasketPosition[0],
			TargetZ: obs.BasketPosition[2],
		}

		directive := navigator.Advance(pose, detector.Counter(), lastDelta)
		if directive.ResetStall {
			detector.Reset()
		}
		if len(directive.Diagnostics) > 0 {
			outcome.Diagnostics = directive.Diagnostics
		}
		if directive.CertifiedWedged {
			e.finalize(&outcome, navigator, estimator, obs, false, anomalySeen)
			outcome.Status = StatusUnsatWedged
			return outcome, nil
		}

		proposal := directive.Move
		if !directive.Forced {
			plane := pose.ObstaclePlaneX(e.cfg)
			req := PlanRequest{
				Obs:            obs,
				Gain:           estimator.Gain(),
				Telemetry:      detector.Telemetry(directive.Subgoal),
				ObstaclePlaneX: plane,
				PassTargetX:    plane + e.cfg.PassMargin,
			}
			p, err := e.planner.Propose(ctx, req)
			if err != nil {
				log.Printf("[EXEC] planner failed, substituting no-op: %v", err)
				p = NeutralProposal()
			}
			proposal = p
		}

		// Dynamic clamp: bigger moves allowed far from the subgoal.
		distSub := math.Hypot(directive.SubgoalX-pose.AgentX, directive.SubgoalZ-pose.AgentZ)
		maxMove := e.cfg.MaxMoveNear
		if distSub > e.cfg.FarSubgoalDist {
			maxMove = e.cfg.MaxMoveFar
		}
		moveX := clampAbs(proposal.MoveX, maxMove)
		moveZ := clampAbs(proposal.MoveZ, maxMove)

		actions := expandActions(estimator.StepsFor(moveX), estimator.StepsFor(moveZ), proposal.Strength)

		startX, startZ := pose.AgentX, pose.AgentZ
		executed := 0
		for _, act := range actions {
			obs, err = e.env.Step(ctx, act, e.cfg.Granularity)
			if err != nil {
				e.finalize(&outcome, navigator, estimator, obs, success, anomalySeen)
				return outcome, fmt.Errorf("step seed %d attempt %d: %w", seed, attempt, err)
			}
			if directionalCommands[act] {
				executed++
			}
			if obs.IsTaskComplete {
				success = true
			}
		}

		deltaX := obs.AgentPosition[0] - startX
		deltaZ := obs.AgentPosition[2] - startZ
		total := math.Hypot(deltaX, deltaZ)
		lastDelta = total

		class := detector.Classify(ClassifyInput{
			Mode:           navigator.Mode(),
			Stage:          navigator.Stage(),
			DeltaX:         deltaX,
			DeltaZ:         deltaZ,
			ExecutedSteps:  executed,
			StartX:         startX,
			StartZ:         startZ,
			CurrentX:       pose.AgentX,
			ObstaclePlaneX: pose.ObstaclePlaneX(e.cfg),
		})
		switch class {
		case ClassAnomaly:
			anomalySeen = true
		case ClassOK:
			estimator.Update(executed, total)
		}

		navigator.Observe(deltaX, total)

		status := string(class)
		if navigator.Mode() == ModeDiagnostic {
			status = string(ModeDiagnostic)
		}
		outcome.Trace = append(outcome.Trace, AttemptTrace{
			Attempt:      attempt,
			Mode:         navigator.Mode(),
			Stage:        navigator.Stage(),
			LaneIndex:    navigator.State().LaneIndex,
			PosX:         startX,
			PosZ:         startZ,
			DeltaX:       deltaX,
			DeltaZ:       deltaZ,
			Gain:         estimator.Gain(),
			StuckCounter: detector.Counter(),
			PlanX:        moveX,
			PlanZ:        moveZ,
			Status:       status,
		})

		log.Printf("[EXEC] attempt %d: mode=%s stage=%s plan=(%.2f,%.2f) delta=%.4f gain=%.4f",
			attempt, navigator.Mode(), navigator.Stage(), moveX, moveZ, total, estimator.Gain())

		if success {
			break
		}
	}

	e.finalize(&outcome, navigator, estimator, obs, success, anomalySeen)
	return outcome, nil
}

// finalize fills the terminal fields shared by every exit path.
func (e *Executive) finalize(
	outcome *EpisodeOutcome,
	navigator *Navigator,
	estimator *GainEstimator,
	obs envclient.Observation,
	success, anomalySeen bool,
) {
	outcome.Success = success
	outcome.FinalGain = estimator.Gain()
	outcome.FinalDist = math.Abs(obs.AgentPosition[0] - obs.BasketPosition[0])
	outcome.RerouteEntered, outcome.OffsetReached, outcome.PassCompleted = navigator.Phases()
	outcome.Instability = anomalySeen

	switch {
	case success:
		outcome.Status = StatusSuccess
	case anomalySeen:
		outcome.Status = StatusFailInstability
	default:
		outcome.Status = StatusFailPolicy
	}
}

// #endregion run-episode

// #region actions

// directionalCommands are the actions counted as moved units for gain
// estimation and stall detection.
var directionalCommands = map[string]bool{
	"forward": true,
	"back":    true,
	"left":    true,
	"right":   true,
}

// throwActions maps a proposal strength to its actuator command.
var throwActions = map[string]string{
	"weak":   "throw_weak",
	"medium": "throw_medium",
	"strong": "throw_strong",
}

// expandActions turns signed per-axis step counts into the command
// sequence for one attempt: X moves, Z moves, a pick, the throw, and two
// settle idles so the measurement excludes residual momentum.
func expandActions(stepsX, stepsZ int, strength string) []string {
	var actions []string
	appendRun := func(action string, count int) {
		for i := 0; i < count; i++ {
			actions = append(actions, action)
		}
	}
	if stepsX > 0 {
		appendRun("forward", stepsX)
	} else {
		appendRun("back", -stepsX)
	}
	if stepsZ > 0 {
		appendRun("right", stepsZ)
	} else {
		appendRun("left", -stepsZ)
	}

	throw, ok := throwActions[strength]
	if !ok {
		throw = throwActions["medium"]
	}
	return append(actions, "pick", throw, "idle", "idle")
}

// clampAbs bounds v to [-limit, limit].
func clampAbs(v, limit float64) float64 {
	return math.Max(math.Min(v, limit), -limit)
}

// #endregion actions
