package main

// #region imports
import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/gravitylab/actuation-harness/internal/episodestore"
)

// #endregion

// #region main

func main() {
	dbPath := flag.String("db", "", "path to episodes.db")
	last := flag.Int("last", 20, "show N most recent episodes")
	episodeID := flag.String("episode", "", "show single episode detail")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/episodes.db [--last N] [--episode id] [--json]")
		os.Exit(2)
	}

	store, err := episodestore.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *episodeID != "" {
		err = runDetailMode(store, *episodeID, *jsonOut)
	} else {
		err = runListMode(store, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

func runListMode(store *episodestore.Store, last int, jsonOut bool) error {
	episodes, err := store.ListEpisodes(last)
	if err != nil {
		return err
	}
	if len(episodes) == 0 {
		fmt.Fprintln(os.Stderr, "no episodes found")
		return nil
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(episodes)
	}

	fmt.Printf("%-36s %6s %-16s %8s %9s %s\n",
		"EPISODE", "SEED", "STATUS", "ATTEMPTS", "GAIN", "CREATED")
	for _, es := range episodes {
		fmt.Printf("%-36s %6d %-16s %8d %9.4f %s\n",
			es.EpisodeID, es.Seed, es.Status, es.Attempts, es.FinalGain,
			es.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

func runDetailMode(store *episodestore.Store, episodeID string, jsonOut bool) error {
	out, err := store.GetEpisode(episodeID)
	if err != nil {
		return err
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("episode %s  seed=%d  status=%s  attempts=%d\n",
		out.EpisodeID, out.Seed, out.Status, out.Attempts)
	fmt.Printf("dist %.2f -> %.2f | gain %.4f -> %.4f\n",
		out.InitialDist, out.FinalDist, out.InitialGain, out.FinalGain)
	fmt.Printf("reroute=%v offset=%v pass=%v instability=%v\n",
		out.RerouteEntered, out.OffsetReached, out.PassCompleted, out.Instability)

	if len(out.Diagnostics) > 0 {
		fmt.Println("\ndiagnostics:")
		for _, d := range out.Diagnostics {
			verdict := "free"
			if d.Wedged {
				verdict = "WEDGED"
			}
			fmt.Printf("  %-14s d=%.4f %s\n", d.Direction, d.Displacement, verdict)
		}
	}

	fmt.Println("\ntrace:")
	fmt.Printf("  %3s %-10s %-7s %4s %8s %8s %8s %8s %6s %s\n",
		"#", "MODE", "STAGE", "LANE", "POS_X", "POS_Z", "DX", "DZ", "STUCK", "STATUS")
	for _, tr := range out.Trace {
		fmt.Printf("  %3d %-10s %-7s %4d %8.3f %8.3f %8.3f %8.3f %6d %s\n",
			tr.Attempt, tr.Mode, tr.Stage, tr.LaneIndex,
			tr.PosX, tr.PosZ, tr.DeltaX, tr.DeltaZ, tr.StuckCounter, tr.Status)
	}
	return nil
}

// #endregion detail-mode
