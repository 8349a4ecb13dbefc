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
	dbPath := flag.String("db", "", "path to episodes.db")
	episodeID := flag.String("episode", "", "episode ID to export (default: most recent)")
	outPath := flag.String("out", "", "output fixture JSON path")
	flag.Parse()

	if *dbPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/episodes.db --out path/to/fixture.json [--episode id]")
		os.Exit(2)
	}

	if err := run(*dbPath, *episodeID, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region export

func run(dbPath, episodeID, outPath string) error {
	store, err := episodestore.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	if episodeID == "" {
		episodes, err := store.ListEpisodes(1)
		if err != nil {
			return err
		}
		if len(episodes) == 0 {
			return fmt.Errorf("no episodes in %s", dbPath)
		}
		episodeID = episodes[0].EpisodeID
	}

	out, err := store.GetEpisode(episodeID)
	if err != nil {
		return err
	}

	f, err := replay.FromOutcome(out)
	if err != nil {
		return err
	}
	if err := f.Save(outPath); err != nil {
		return err
	}

	fmt.Printf("exported episode %s (%d attempts) to %s\n", episodeID, len(f.Attempts), outPath)
	return nil
}

// #endregion export
