package sweep

// #region imports
import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"

	"github.com/gravitylab/actuation-harness/internal/actuation"
	"github.com/gravitylab/actuation-harness/internal/stats"
)

// #endregion

// #region runner

// SessionFactory builds the per-seed stepping session. Each episode gets
// its own session so seeds can run in parallel without interfering.
type SessionFactory func(seed int64) actuation.Session

// Runner fans a sweep's seeds over a bounded worker pool. One executive
// per seed; the planner is shared (it is stateless per request).
type Runner struct {
	cfg        actuation.Config
	workers    int
	newSession SessionFactory
	planner    actuation.Planner
}

func NewRunner(cfg actuation.Config, workers int, newSession SessionFactory, planner actuation.Planner) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{cfg: cfg, workers: workers, newSession: newSession, planner: planner}
}

// Result pairs an episode outcome with the transport error that ended it,
// if any. A transport error does not abort the rest of the sweep.
type Result struct {
	Seed    int64
	Outcome actuation.EpisodeOutcome
	Err     error
}

// Run executes every seed and returns results sorted by seed.
func (r *Runner) Run(ctx context.Context, seeds []int64) []Result {
	seedCh := make(chan int64)
	resultCh := make(chan Result)

	var wg sync.WaitGroup
	for w := 0; w < r.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seed := range seedCh {
				exec := actuation.NewExecutive(r.cfg, r.newSession(seed), r.planner)
				outcome, err := exec.RunEpisode(ctx, seed)
				if err != nil {
					log.Printf("[SWEEP] seed %d failed: %v", seed, err)
				} else {
					log.Printf("[SWEEP] seed %d: %s in %d attempts", seed, outcome.Status, outcome.Attempts)
				}
				resultCh <- Result{Seed: seed, Outcome: outcome, Err: err}
			}
		}()
	}

	go func() {
		for _, seed := range seeds {
			seedCh <- seed
		}
		close(seedCh)
		wg.Wait()
		close(resultCh)
	}()

	results := make([]Result, 0, len(seeds))
	for res := range resultCh {
		results = append(results, res)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Seed < results[j].Seed })
	return results
}

// #endregion runner

// #region results-file

// resultsFile is the JSON document written at the end of a sweep.
type resultsFile struct {
	Description string                     `json:"description,omitempty"`
	Summary     stats.Summary              `json:"summary"`
	Episodes    []actuation.EpisodeOutcome `json:"episodes"`
	Errors      map[int64]string           `json:"errors,omitempty"`
}

// Outcomes strips results down to the episode outcomes, in seed order.
func Outcomes(results []Result) []actuation.EpisodeOutcome {
	outcomes := make([]actuation.EpisodeOutcome, 0, len(results))
	for _, res := range results {
		outcomes = append(outcomes, res.Outcome)
	}
	return outcomes
}

// WriteResults persists the sweep report: summary, per-episode outcomes
// with traces, and any per-seed transport errors.
func WriteResults(path, description string, results []Result) error {
	doc := resultsFile{
		Description: description,
		Episodes:    Outcomes(results),
		Summary:     stats.Summarize(Outcomes(results)),
	}
	for _, res := range results {
		if res.Err != nil {
			if doc.Errors == nil {
				doc.Errors = make(map[int64]string)
			}
			doc.Errors[res.Seed] = res.Err.Error()
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write results %s: %w", path, err)
	}
	return nil
}

// #endregion results-file
