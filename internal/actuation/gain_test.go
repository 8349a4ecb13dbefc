package actuation

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/gravitylab/actuation-harness/internal/envclient"
)

// #region fake-env

// scriptEnv simulates the stepping service: every directional command
// displaces the agent by gainPerStep, optionally with a one-off jump and
// an injected failure.
type scriptEnv struct {
	x, z        float64
	gainPerStep float64
	frozen      bool

	completeAtX float64 // 0 disables
	wallAtX     float64 // forward motion blocked past this X, 0 disables
	jumpAtStep  int     // directional step ordinal that teleports, 0 disables
	jumpDX      float64
	failAtStep  int // directional step ordinal that errors, 0 disables

	dirSteps int
	complete bool
}

func newScriptEnv(startX float64, gainPerStep float64) *scriptEnv {
	return &scriptEnv{x: startX, gainPerStep: gainPerStep}
}

func (s *scriptEnv) obs() envclient.Observation {
	return envclient.Observation{
		AgentPosition:  [3]float64{s.x, 1.0, s.z},
		BasketPosition: [3]float64{6.0, 1.5, 0},
		IsGrounded:     true,
		IsTaskComplete: s.complete,
	}
}

func (s *scriptEnv) Reset(ctx context.Context, params envclient.ResetParams) (envclient.Observation, error) {
	return s.obs(), nil
}

func (s *scriptEnv) Step(ctx context.Context, action string, g envclient.Granularity) (envclient.Observation, error) {
	if directionalCommands[action] {
		s.dirSteps++
		if s.failAtStep > 0 && s.dirSteps == s.failAtStep {
			return envclient.Observation{}, errors.New("connection reset")
		}
		if !s.frozen {
			step := s.gainPerStep
			switch action {
			case "forward":
				if s.wallAtX == 0 || s.x+step <= s.wallAtX {
					s.x += step
				}
			case "back":
				s.x -= step
			case "right":
				s.z += step
			case "left":
				s.z -= step
			}
			if s.jumpAtStep > 0 && s.dirSteps == s.jumpAtStep {
				s.x += s.jumpDX
			}
		}
	}
	if s.completeAtX != 0 && s.x >= s.completeAtX {
		s.complete = true
	}
	return s.obs(), nil
}

// #endregion fake-env

// #region calibration-tests

func TestCalibrate_UniformDisplacement(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReferenceGains[cfg.Granularity] = 0.1

	env := newScriptEnv(-2.0, 0.1)
	est := NewGainEstimator(cfg)

	res, err := est.Calibrate(context.Background(), env)
	if err != nil {
		t.Fatalf("calibrate: %v", err)
	}
	if math.Abs(res.Gain-0.1) > 1e-9 {
		t.Errorf("gain = %v, want 0.1", res.Gain)
	}
	if res.RelativeError > 1e-9 {
		t.Errorf("relative error = %v, want 0", res.RelativeError)
	}
	if est.InitialGain() != res.Gain {
		t.Errorf("initial gain = %v, want %v", est.InitialGain(), res.Gain)
	}
}

func TestCalibrate_FrozenActuatorClampsToFloor(t *testing.T) {
	cfg := DefaultConfig()
	env := newScriptEnv(0, 0)
	env.frozen = true

	est := NewGainEstimator(cfg)
	res, err := est.Calibrate(context.Background(), env)
	if err != nil {
		t.Fatalf("calibrate: %v", err)
	}
	if res.Gain != cfg.GainMin {
		t.Errorf("gain = %v, want clamp floor %v", res.Gain, cfg.GainMin)
	}
}

func TestCalibrate_EMAOnlySkipsProbing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EstimatorMode = EstimatorEMAOnly

	env := newScriptEnv(0, 0.1)
	est := NewGainEstimator(cfg)
	res, err := est.Calibrate(context.Background(), env)
	if err != nil {
		t.Fatalf("calibrate: %v", err)
	}
	if env.dirSteps != 0 {
		t.Errorf("issued %d probe commands, want 0", env.dirSteps)
	}
	// The deliberately bad prior still respects the clamp bounds.
	if res.Gain != cfg.GainMax {
		t.Errorf("gain = %v, want %v", res.Gain, cfg.GainMax)
	}
}

// #endregion calibration-tests

// #region update-tests

func TestUpdate_AlwaysWithinBounds(t *testing.T) {
	cfg := DefaultConfig()
	samples := []struct {
		units    int
		observed float64
	}{
		{1, 0.0},
		{1, 0.0001},
		{1, 1000.0},
		{10, 0.5},
		{3, -2.4},
		{100, 0.0},
	}

	for _, start := range []float64{cfg.GainMin, 0.12, cfg.GainMax} {
		est := NewGainEstimator(cfg)
		est.gain = start
		for _, s := range samples {
			got := est.Update(s.units, s.observed)
			if got < cfg.GainMin || got > cfg.GainMax {
				t.Fatalf("gain %v outside [%v, %v] after units=%d observed=%v",
					got, cfg.GainMin, cfg.GainMax, s.units, s.observed)
			}
		}
	}
}

func TestUpdate_EMABlending(t *testing.T) {
	cfg := DefaultConfig()
	est := NewGainEstimator(cfg)
	est.gain = 0.10

	// instantaneous = 0.20, blended = 0.7*0.10 + 0.3*0.20 = 0.13
	got := est.Update(1, 0.20)
	if math.Abs(got-0.13) > 1e-9 {
		t.Errorf("gain = %v, want 0.13", got)
	}
}

func TestUpdate_ZeroUnitsNoOp(t *testing.T) {
	cfg := DefaultConfig()
	est := NewGainEstimator(cfg)
	est.gain = 0.12
	if got := est.Update(0, 0.5); got != 0.12 {
		t.Errorf("gain = %v, want unchanged 0.12", got)
	}
}

func TestUpdate_Phase0OnlyFreezesGain(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EstimatorMode = EstimatorPhase0Only
	est := NewGainEstimator(cfg)
	est.gain = 0.12
	if got := est.Update(2, 0.5); got != 0.12 {
		t.Errorf("gain = %v, want frozen 0.12", got)
	}
}

func TestStepsFor_GuardsCollapsedGain(t *testing.T) {
	cfg := DefaultConfig()
	est := NewGainEstimator(cfg)
	est.gain = 0 // below the divisor floor

	if got := est.StepsFor(0.1); got != 10 {
		t.Errorf("steps = %d, want 10 (floored divisor %v)", got, cfg.GainFloor)
	}

	est.gain = 0.1
	if got := est.StepsFor(-0.55); got != -6 {
		t.Errorf("steps = %d, want -6", got)
	}
}

// #endregion update-tests
