package sweep

// #region imports
import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gravitylab/actuation-harness/internal/actuation"
	"github.com/gravitylab/actuation-harness/internal/envclient"
	"github.com/gravitylab/actuation-harness/internal/oracle"
)

// #endregion

// #region run-config

// RunConfig is the YAML sweep description: which seeds to run, with what
// parallelism, against which endpoints, with what controller overrides.
type RunConfig struct {
	Description string `yaml:"description"`

	// Seeds runs seeds 0..Seeds-1 unless SeedList is set.
	Seeds    int     `yaml:"seeds"`
	SeedList []int64 `yaml:"seed_list"`
	Workers  int     `yaml:"workers"`

	ResultsPath string `yaml:"results_path"`
	DBPath      string `yaml:"db_path"`

	Env struct {
		ServerURL string `yaml:"server_url"`
	} `yaml:"env"`

	Oracle struct {
		BaseURL     string  `yaml:"base_url"`
		APIKey      string  `yaml:"api_key"`
		Model       string  `yaml:"model"`
		Temperature float32 `yaml:"temperature"`
	} `yaml:"oracle"`

	Actuation struct {
		EstimatorMode string  `yaml:"estimator_mode"`
		Granularity   string  `yaml:"granularity"`
		MaxRetries    int     `yaml:"max_retries"`
		GainMin       float64 `yaml:"gain_min"`
		GainMax       float64 `yaml:"gain_max"`
	} `yaml:"actuation"`
}

// DefaultRunConfig mirrors the final validation sweep: 20 seeds, 10
// workers, default endpoints from the environment.
func DefaultRunConfig() RunConfig {
	var rc RunConfig
	rc.Seeds = 20
	rc.Workers = 10
	rc.ResultsPath = "sweep_results.json"
	rc.DBPath = "episodes.db"
	return rc
}

// LoadRunConfig reads a YAML sweep config, layering it over defaults.
func LoadRunConfig(path string) (RunConfig, error) {
	rc := DefaultRunConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return rc, fmt.Errorf("read run config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &rc); err != nil {
		return rc, fmt.Errorf("parse run config %s: %w", path, err)
	}
	if rc.Workers <= 0 {
		rc.Workers = 1
	}
	if rc.Seeds <= 0 && len(rc.SeedList) == 0 {
		return rc, fmt.Errorf("run config %s: needs seeds or seed_list", path)
	}
	return rc, nil
}

// SeedValues resolves the explicit list or the 0..Seeds-1 range.
func (rc RunConfig) SeedValues() []int64 {
	if len(rc.SeedList) > 0 {
		return rc.SeedList
	}
	seeds := make([]int64, rc.Seeds)
	for i := range seeds {
		seeds[i] = int64(i)
	}
	return seeds
}

// ActuationConfig layers the YAML overrides onto the controller defaults.
func (rc RunConfig) ActuationConfig() actuation.Config {
	cfg := actuation.DefaultConfig()
	if rc.Actuation.EstimatorMode != "" {
		cfg.EstimatorMode = actuation.EstimatorMode(rc.Actuation.EstimatorMode)
	}
	if rc.Actuation.Granularity != "" {
		cfg.Granularity = envclient.Granularity(rc.Actuation.Granularity)
	}
	if rc.Actuation.MaxRetries != 0 {
		cfg.MaxRetries = rc.Actuation.MaxRetries
	}
	if rc.Actuation.GainMin != 0 {
		cfg.GainMin = rc.Actuation.GainMin
	}
	if rc.Actuation.GainMax != 0 {
		cfg.GainMax = rc.Actuation.GainMax
	}
	return cfg
}

// OracleConfig layers the YAML overrides onto the oracle defaults.
func (rc RunConfig) OracleConfig() oracle.Config {
	cfg := oracle.DefaultConfig()
	if rc.Oracle.BaseURL != "" {
		cfg.BaseURL = rc.Oracle.BaseURL
	}
	if rc.Oracle.APIKey != "" {
		cfg.APIKey = rc.Oracle.APIKey
	}
	if rc.Oracle.Model != "" {
		cfg.Model = rc.Oracle.Model
	}
	if rc.Oracle.Temperature != 0 {
		cfg.Temperature = rc.Oracle.Temperature
	}
	return cfg
}

// ServerURL resolves the stepping service endpoint, preferring the YAML
// value over the environment.
func (rc RunConfig) ServerURL() string {
	if rc.Env.ServerURL != "" {
		return rc.Env.ServerURL
	}
	return envclient.ServerURLFromEnv()
}

// #endregion run-config
