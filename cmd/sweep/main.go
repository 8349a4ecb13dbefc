package main

// #region imports
import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gravitylab/actuation-harness/internal/actuation"
	"github.com/gravitylab/actuation-harness/internal/envclient"
	"github.com/gravitylab/actuation-harness/internal/episodestore"
	"github.com/gravitylab/actuation-harness/internal/oracle"
	"github.com/gravitylab/actuation-harness/internal/stats"
	"github.com/gravitylab/actuation-harness/internal/sweep"
)

// #endregion

// #region main
func main() {
	configPath := flag.String("config", "", "YAML sweep config (optional)")
	seeds := flag.Int("seeds", 0, "number of seeds, overrides config")
	workers := flag.Int("workers", 0, "worker pool size, overrides config")
	resultsPath := flag.String("results", "", "results JSON path, overrides config")
	dbPath := flag.String("db", "", "episode DB path, overrides config")
	smoke := flag.Bool("smoke", false, "run a single-seed infrastructure check instead of the sweep")
	flag.Parse()

	rc := sweep.DefaultRunConfig()
	if *configPath != "" {
		loaded, err := sweep.LoadRunConfig(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		rc = loaded
	}
	if *seeds > 0 {
		rc.Seeds = *seeds
		rc.SeedList = nil
	}
	if *workers > 0 {
		rc.Workers = *workers
	}
	if *resultsPath != "" {
		rc.ResultsPath = *resultsPath
	}
	if *dbPath != "" {
		rc.DBPath = *dbPath
	}

	serverURL := rc.ServerURL()
	actCfg := rc.ActuationConfig()
	planner := oracle.NewPlanner(rc.OracleConfig())

	if *smoke {
		if err := runSmoke(serverURL, actCfg, planner); err != nil {
			log.Fatalf("smoke check failed: %v", err)
		}
		fmt.Println("smoke check passed")
		return
	}

	store, err := episodestore.NewStore(rc.DBPath)
	if err != nil {
		log.Fatalf("open episode store: %v", err)
	}
	defer store.Close()

	seedValues := rc.SeedValues()
	log.Printf("[SWEEP] %d seeds, %d workers, env=%s granularity=%s mode=%s",
		len(seedValues), rc.Workers, serverURL, actCfg.Granularity, actCfg.EstimatorMode)

	runner := sweep.NewRunner(actCfg, rc.Workers, func(seed int64) actuation.Session {
		return envclient.NewClient(serverURL, fmt.Sprintf("seed_%d", seed))
	}, planner)

	start := time.Now()
	results := runner.Run(context.Background(), seedValues)
	log.Printf("[SWEEP] done in %s", time.Since(start).Round(time.Second))

	for _, res := range results {
		if err := store.SaveOutcome(res.Outcome); err != nil {
			log.Printf("[SWEEP] save episode %s: %v", res.Outcome.EpisodeID, err)
		}
	}

	if err := sweep.WriteResults(rc.ResultsPath, rc.Description, results); err != nil {
		log.Fatalf("write results: %v", err)
	}

	fmt.Print(stats.Summarize(sweep.Outcomes(results)).Format())
	fmt.Printf("results: %s | episodes: %s\n", rc.ResultsPath, rc.DBPath)
}

// #endregion main

// #region smoke

// runSmoke verifies the stepping service is reachable and runs one golden
// seed end to end against it.
func runSmoke(serverURL string, cfg actuation.Config, planner actuation.Planner) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	client := envclient.NewClient(serverURL, "smoke")
	if !client.Healthy(ctx) {
		return fmt.Errorf("env server %s not healthy", serverURL)
	}
	info, err := client.Info(ctx)
	if err != nil {
		return fmt.Errorf("env info: %w", err)
	}
	fmt.Fprintf(os.Stderr, "env: task=%s actions=%d\n", info.TaskName, len(info.Actions))

	cfg.MaxRetries = 30
	exec := actuation.NewExecutive(cfg, client, planner)
	outcome, err := exec.RunEpisode(ctx, 0)
	if err != nil {
		return fmt.Errorf("golden seed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "golden seed: %s in %d attempts (gain %.4f)\n",
		outcome.Status, outcome.Attempts, outcome.FinalGain)
	return nil
}

// #endregion smoke
