package actuation

// #region imports
import (
	"context"
	"fmt"
	"log"
	"math"
)

// #endregion

// #region estimator

// GainEstimator maintains the running estimate of actuator gain: meters
// of displacement per commanded unit. The estimate always lies within
// [GainMin, GainMax]; it is the only component allowed to mutate it.
type GainEstimator struct {
	cfg     Config
	gain    float64
	initial float64
}

// NewGainEstimator creates an estimator with the clamp midpoint as a
// placeholder until Calibrate runs.
func NewGainEstimator(cfg Config) *GainEstimator {
	mid := cfg.clampGain((cfg.GainMin + cfg.GainMax) / 2)
	return &GainEstimator{cfg: cfg, gain: mid, initial: mid}
}

// Gain returns the current estimate.
func (g *GainEstimator) Gain() float64 {
	return g.gain
}

// InitialGain returns the estimate as of the end of calibration.
func (g *GainEstimator) InitialGain() float64 {
	return g.initial
}

// #endregion estimator

// #region calibration

// CalibrationResult reports the phase-0 measurement against the known
// reference step length for the configured granularity.
type CalibrationResult struct {
	Gain          float64
	Reference     float64
	RelativeError float64
}

// Calibrate runs the phase-0 actuator identification: an idle settle, a
// fixed forward sequence, another settle, an equal backward sequence, and
// a final settle. The settles exclude residual momentum from the per-leg
// displacement. In EMA-only mode calibration is skipped and the estimate
// starts from a deliberately bad prior.
func (g *GainEstimator) Calibrate(ctx context.Context, env Session) (CalibrationResult, error) {
	if g.cfg.EstimatorMode == EstimatorEMAOnly {
		g.gain = g.cfg.clampGain(1.0)
		g.initial = g.gain
		return g.result(), nil
	}

	obs, err := env.Step(ctx, "idle", g.cfg.Granularity)
	if err != nil {
		return CalibrationResult{}, fmt.Errorf("calibration settle: %w", err)
	}
	startX := obs.AgentPosition[0]

	for i := 0; i < g.cfg.CalibrationSteps; i++ {
		if obs, err = env.Step(ctx, "forward", g.cfg.Granularity); err != nil {
			return CalibrationResult{}, fmt.Errorf("calibration forward %d: %w", i, err)
		}
	}
	if obs, err = env.Step(ctx, "idle", g.cfg.Granularity); err != nil {
		return CalibrationResult{}, fmt.Errorf("calibration settle: %w", err)
	}
	midX := obs.AgentPosition[0]

	for i := 0; i < g.cfg.CalibrationSteps; i++ {
		if obs, err = env.Step(ctx, "back", g.cfg.Granularity); err != nil {
			return CalibrationResult{}, fmt.Errorf("calibration back %d: %w", i, err)
		}
	}
	if obs, err = env.Step(ctx, "idle", g.cfg.Granularity); err != nil {
		return CalibrationResult{}, fmt.Errorf("calibration settle: %w", err)
	}
	endX := obs.AgentPosition[0]

	n := float64(g.cfg.CalibrationSteps)
	gainFwd := math.Abs(midX-startX) / n
	gainBk := math.Abs(endX-midX) / n

	g.gain = g.cfg.clampGain((gainFwd + gainBk) / 2)
	g.initial = g.gain

	res := g.result()
	log.Printf("[GAIN] calibrated %.4f m/step (fwd=%.4f bk=%.4f ref=%.4f err=%.1f%%)",
		g.gain, gainFwd, gainBk, res.Reference, res.RelativeError*100)
	return res, nil
}

func (g *GainEstimator) result() CalibrationResult {
	res := CalibrationResult{Gain: g.gain, Reference: g.cfg.ReferenceGain()}
	if res.Reference > 0 {
		res.RelativeError = math.Abs(res.Gain-res.Reference) / res.Reference
	}
	return res
}

// #endregion calibration

// #region update

// Update blends one non-stalled, non-anomalous observation into the
// estimate and returns the clamped result. movedUnits is the count of
// directional commands actually executed. In phase0-only mode the
// calibrated value is frozen and Update is a no-op.
func (g *GainEstimator) Update(movedUnits int, observedDisplacement float64) float64 {
	if movedUnits <= 0 || g.cfg.EstimatorMode == EstimatorPhase0Only {
		return g.gain
	}
	instantaneous := math.Abs(observedDisplacement) / float64(movedUnits)
	g.gain = g.cfg.clampGain((1-g.cfg.GainAlpha)*g.gain + g.cfg.GainAlpha*instantaneous)
	return g.gain
}

// StepsFor converts a planned move in meters into a signed command count
// using the current estimate, guarded against a collapsed divisor.
func (g *GainEstimator) StepsFor(meters float64) int {
	return int(math.Round(meters / math.Max(g.gain, g.cfg.GainFloor)))
}

// #endregion update
