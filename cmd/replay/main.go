package main

// #region imports
import (
	"flag"
	"fmt"
	"os"

	"github.com/gravitylab/actuation-harness/internal/episodestore"
	"github.com/gravitylab/actuation-harness/internal/replay"
)

// #endregion

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	dbPath := flag.String("db", "", "path to episodes.db (DB mode)")
	episodeID := flag.String("episode", "", "episode ID to replay (DB mode)")
	verbose := flag.Bool("v", false, "print every replayed attempt")
	flag.Parse()

	if (*fixturePath == "") == (*dbPath == "") {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json")
		fmt.Fprintln(os.Stderr, "       replay --db path/to/episodes.db --episode <id>")
		os.Exit(2)
	}

	var f *replay.Fixture
	var err error
	if *fixturePath != "" {
		f, err = replay.LoadFixture(*fixturePath)
	} else {
		if *episodeID == "" {
			fmt.Fprintln(os.Stderr, "DB mode requires --episode")
			os.Exit(2)
		}
		f, err = fixtureFromDB(*dbPath, *episodeID)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("replaying: %s (%d attempts)\n", f.Description, len(f.Attempts))

	results := replay.Replay(f)
	if *verbose {
		for _, r := range results {
			fmt.Printf("  attempt %3d  %-10s %-7s lane=%d class=%-7s stuck=%d\n",
				r.Attempt, r.Mode, r.Stage, r.LaneIndex, r.Classification, r.StuckCounter)
		}
	}

	summary := replay.Summarize(f, results)
	fmt.Printf("attempts=%d stalls=%d anomalies=%d reroute=%v wedged=%v\n",
		summary.TotalAttempts, summary.Stalls, summary.Anomalies,
		summary.RerouteEntered, summary.CertifiedWedged)

	if len(summary.Mismatches) > 0 {
		fmt.Printf("MISMATCHES (%d):\n", len(summary.Mismatches))
		for _, m := range summary.Mismatches {
			fmt.Printf("  %s\n", m)
		}
		os.Exit(1)
	}
	fmt.Println("all expectations matched")
}

// #endregion main

// #region db-mode

// fixtureFromDB rebuilds a fixture from a stored episode.
func fixtureFromDB(dbPath, episodeID string) (*replay.Fixture, error) {
	store, err := episodestore.NewStore(dbPath)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	out, err := store.GetEpisode(episodeID)
	if err != nil {
		return nil, err
	}
	return replay.FromOutcome(out)
}

// #endregion db-mode
