package actuation

// #region imports
import (
	"os"
	"strconv"

	"github.com/gravitylab/actuation-harness/internal/envclient"
)

// #endregion

// #region config

// Config holds every tunable of the actuation core. The defaults are the
// empirically tuned values from the validation sweeps; none of them is
// known to be optimal, so everything is exposed here rather than fixed.
type Config struct {
	// Gain estimation
	EstimatorMode    EstimatorMode
	GainMin          float64 // clamp floor for the gain estimate
	GainMax          float64 // clamp ceiling for the gain estimate
	GainAlpha        float64 // EMA smoothing constant
	GainFloor        float64 // divisor floor when converting meters to steps
	CalibrationSteps int     // commands per direction in the phase-0 pass

	// ReferenceGains are the empirically known per-granularity step
	// lengths used to report calibration error.
	ReferenceGains map[envclient.Granularity]float64

	// Stuck / anomaly detection
	EpsMotion      float64 // displacement below this is a stall
	AnomalyCeiling float64 // displacement above this is a measurement glitch

	// Navigator thresholds
	ApproachStallLimit  int // stalls before APPROACH gives way to REROUTE
	OffsetStallLimit    int // stalls in OFFSET before the wedge diagnostic
	PassHesitationLimit int // near-zero-progress PASS attempts before a lane switch
	LaneAttemptBudget   int // attempts per lane before a forced switch
	PassProgressEps     float64

	// Probe
	ProbeSteps      int     // forward probes per lane
	ProbeMoveX      float64 // meters commanded per probe
	ProbeValidation float64 // accumulated forward displacement that clears a lane

	// Geometry
	LaneCandidates   []float64 // lateral offsets, tightest first
	DetourSign       float64
	ObstacleOffset   float64 // obstacle plane = target X minus this
	PassMargin       float64 // clearance past the plane before RETURN
	SafeOffsetMargin float64 // retreat distance from the plane while offsetting
	RetreatSlack     float64
	OffsetTolerance  float64
	ReturnTolerance  float64

	// Wedge diagnostic
	WedgeThreshold float64 // probe displacement below this reads WEDGED

	// Executive
	MaxRetries     int
	MaxMoveNear    float64 // per-attempt clamp near the subgoal
	MaxMoveFar     float64 // per-attempt clamp far from the subgoal
	FarSubgoalDist float64 // distance at which the far clamp applies
	Granularity    envclient.Granularity
	Task           string
	TaskVersion    string
	Gravity        float64
}

// #endregion config

// #region defaults

// DefaultConfig returns the tuned sweep defaults. Env overrides:
// ACTUATION_ESTIMATOR_MODE, ACTUATION_GRANULARITY, ACTUATION_MAX_RETRIES.
func DefaultConfig() Config {
	cfg := Config{
		EstimatorMode:    EstimatorAdaptive,
		GainMin:          0.05,
		GainMax:          0.25,
		GainAlpha:        0.3,
		GainFloor:        0.01,
		CalibrationSteps: 10,
		ReferenceGains: map[envclient.Granularity]float64{
			envclient.GranularityCoarse: 0.4973,
			envclient.GranularityMedium: 0.2479,
			envclient.GranularityFine:   0.1233,
		},

		EpsMotion:      0.02,
		AnomalyCeiling: 0.8,

		ApproachStallLimit:  2,
		OffsetStallLimit:    5,
		PassHesitationLimit: 8,
		LaneAttemptBudget:   25,
		PassProgressEps:     0.05,

		ProbeSteps:      2,
		ProbeMoveX:      0.5,
		ProbeValidation: 0.10,

		LaneCandidates:   []float64{1.5, 2.0, 2.2, 2.5, 3.0},
		DetourSign:       -1,
		ObstacleOffset:   0.75,
		PassMargin:       0.50,
		SafeOffsetMargin: 1.2,
		RetreatSlack:     0.1,
		OffsetTolerance:  0.2,
		ReturnTolerance:  0.3,

		WedgeThreshold: 0.05,

		MaxRetries:     100,
		MaxMoveNear:    1.5,
		MaxMoveFar:     4.0,
		FarSubgoalDist: 2.0,
		Granularity:    envclient.GranularityFine,
		Task:           "throw",
		TaskVersion:    "v2",
		Gravity:        9.81,
	}

	if v := os.Getenv("ACTUATION_ESTIMATOR_MODE"); v != "" {
		cfg.EstimatorMode = EstimatorMode(v)
	}
	if v := os.Getenv("ACTUATION_GRANULARITY"); v != "" {
		cfg.Granularity = envclient.Granularity(v)
	}
	if v := os.Getenv("ACTUATION_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxRetries = n
		}
	}
	return cfg
}

// #endregion defaults

// #region helpers

// Lane returns the lateral offset magnitude for a lane index. Exhausting
// the candidate list wraps rather than terminating.
func (c Config) Lane(index int) float64 {
	return c.LaneCandidates[index%len(c.LaneCandidates)]
}

// ReferenceGain returns the known true step length for the configured
// granularity, or 0 when none is recorded.
func (c Config) ReferenceGain() float64 {
	return c.ReferenceGains[c.Granularity]
}

// clampGain bounds a gain estimate to [GainMin, GainMax].
func (c Config) clampGain(g float64) float64 {
	if g < c.GainMin {
		return c.GainMin
	}
	if g > c.GainMax {
		return c.GainMax
	}
	return g
}

// #endregion helpers
