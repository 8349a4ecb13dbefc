package episodestore

// #region imports
import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gravitylab/actuation-harness/internal/actuation"
)

// #endregion

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS episodes (
	episode_id      TEXT PRIMARY KEY,
	seed            INTEGER NOT NULL,
	success         INTEGER NOT NULL,
	status          TEXT NOT NULL,
	attempts        INTEGER NOT NULL,
	initial_dist    REAL NOT NULL,
	final_dist      REAL NOT NULL,
	initial_gain    REAL NOT NULL,
	final_gain      REAL NOT NULL,
	reroute_entered INTEGER NOT NULL,
	offset_reached  INTEGER NOT NULL,
	pass_completed  INTEGER NOT NULL,
	instability     INTEGER NOT NULL,
	created_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS attempt_traces (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	episode_id    TEXT NOT NULL,
	attempt       INTEGER NOT NULL,
	mode          TEXT NOT NULL,
	stage         TEXT NOT NULL,
	lane_index    INTEGER NOT NULL,
	pos_x         REAL NOT NULL,
	pos_z         REAL NOT NULL,
	delta_x       REAL NOT NULL,
	delta_z       REAL NOT NULL,
	gain          REAL NOT NULL,
	stuck_counter INTEGER NOT NULL,
	plan_x        REAL NOT NULL,
	plan_z        REAL NOT NULL,
	status        TEXT NOT NULL,
	FOREIGN KEY (episode_id) REFERENCES episodes(episode_id)
);

CREATE TABLE IF NOT EXISTS diagnostic_probes (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	episode_id   TEXT NOT NULL,
	direction    TEXT NOT NULL,
	displacement REAL NOT NULL,
	wedged       INTEGER NOT NULL,
	FOREIGN KEY (episode_id) REFERENCES episodes(episode_id)
);
`

// #endregion schema

// #region store-struct

// Store persists episode outcomes and their per-attempt traces in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region save

// SaveOutcome writes an episode, its trace, and its diagnostic probes in
// one transaction. An episode is written at most once; re-saving the same
// episode ID fails on the primary key.
func (s *Store) SaveOutcome(outcome actuation.EpisodeOutcome) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO episodes (episode_id, seed, success, status, attempts,
		 initial_dist, final_dist, initial_gain, final_gain,
		 reroute_entered, offset_reached, pass_completed, instability, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		outcome.EpisodeID, outcome.Seed, boolInt(outcome.Success), string(outcome.Status),
		outcome.Attempts, outcome.InitialDist, outcome.FinalDist,
		outcome.InitialGain, outcome.FinalGain,
		boolInt(outcome.RerouteEntered), boolInt(outcome.OffsetReached),
		boolInt(outcome.PassCompleted), boolInt(outcome.Instability),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert episode: %w", err)
	}

	for _, tr := range outcome.Trace {
		_, err = tx.Exec(
			`INSERT INTO attempt_traces (episode_id, attempt, mode, stage, lane_index,
			 pos_x, pos_z, delta_x, delta_z, gain, stuck_counter, plan_x, plan_z, status)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			outcome.EpisodeID, tr.Attempt, string(tr.Mode), string(tr.Stage), tr.LaneIndex,
			tr.PosX, tr.PosZ, tr.DeltaX, tr.DeltaZ, tr.Gain, tr.StuckCounter,
			tr.PlanX, tr.PlanZ, tr.Status,
		)
		if err != nil {
			return fmt.Errorf("insert trace attempt %d: %w", tr.Attempt, err)
		}
	}

	for _, d := range outcome.Diagnostics {
		_, err = tx.Exec(
			`INSERT INTO diagnostic_probes (episode_id, direction, displacement, wedged)
			 VALUES (?, ?, ?, ?)`,
			outcome.EpisodeID, d.Direction, d.Displacement, boolInt(d.Wedged),
		)
		if err != nil {
			return fmt.Errorf("insert probe %s: %w", d.Direction, err)
		}
	}

	return tx.Commit()
}

// #endregion save

// #region get

// GetEpisode retrieves one episode with its trace and diagnostics.
func (s *Store) GetEpisode(id string) (actuation.EpisodeOutcome, error) {
	var out actuation.EpisodeOutcome
	var success, reroute, offset, pass, instab int
	var status, createdStr string

	err := s.db.QueryRow(
		`SELECT episode_id, seed, success, status, attempts,
		 initial_dist, final_dist, initial_gain, final_gain,
		 reroute_entered, offset_reached, pass_completed, instability, created_at
		 FROM episodes WHERE episode_id = ?`, id,
	).Scan(&out.EpisodeID, &out.Seed, &success, &status, &out.Attempts,
		&out.InitialDist, &out.FinalDist, &out.InitialGain, &out.FinalGain,
		&reroute, &offset, &pass, &instab, &createdStr)
	if err != nil {
		return actuation.EpisodeOutcome{}, fmt.Errorf("get episode %s: %w", id, err)
	}

	out.Success = success != 0
	out.Status = actuation.Status(status)
	out.RerouteEntered = reroute != 0
	out.OffsetReached = offset != 0
	out.PassCompleted = pass != 0
	out.Instability = instab != 0

	out.Trace, err = s.Traces(id)
	if err != nil {
		return actuation.EpisodeOutcome{}, err
	}
	out.Diagnostics, err = s.Diagnostics(id)
	if err != nil {
		return actuation.EpisodeOutcome{}, err
	}
	return out, nil
}

// Traces returns the attempt trace of one episode in attempt order.
func (s *Store) Traces(episodeID string) ([]actuation.AttemptTrace, error) {
	rows, err := s.db.Query(
		`SELECT attempt, mode, stage, lane_index, pos_x, pos_z, delta_x, delta_z,
		 gain, stuck_counter, plan_x, plan_z, status
		 FROM attempt_traces WHERE episode_id = ? ORDER BY attempt ASC`, episodeID,
	)
	if err != nil {
		return nil, fmt.Errorf("list traces: %w", err)
	}
	defer rows.Close()

	var traces []actuation.AttemptTrace
	for rows.Next() {
		var tr actuation.AttemptTrace
		var mode, stage string
		if err := rows.Scan(&tr.Attempt, &mode, &stage, &tr.LaneIndex,
			&tr.PosX, &tr.PosZ, &tr.DeltaX, &tr.DeltaZ,
			&tr.Gain, &tr.StuckCounter, &tr.PlanX, &tr.PlanZ, &tr.Status); err != nil {
			return nil, fmt.Errorf("scan trace: %w", err)
		}
		tr.Mode = actuation.Mode(mode)
		tr.Stage = actuation.Stage(stage)
		traces = append(traces, tr)
	}
	return traces, rows.Err()
}

// Diagnostics returns the wedge probe records of one episode in probe order.
func (s *Store) Diagnostics(episodeID string) ([]actuation.DiagnosticRecord, error) {
	rows, err := s.db.Query(
		`SELECT direction, displacement, wedged
		 FROM diagnostic_probes WHERE episode_id = ? ORDER BY id ASC`, episodeID,
	)
	if err != nil {
		return nil, fmt.Errorf("list probes: %w", err)
	}
	defer rows.Close()

	var recs []actuation.DiagnosticRecord
	for rows.Next() {
		var d actuation.DiagnosticRecord
		var wedged int
		if err := rows.Scan(&d.Direction, &d.Displacement, &wedged); err != nil {
			return nil, fmt.Errorf("scan probe: %w", err)
		}
		d.Wedged = wedged != 0
		recs = append(recs, d)
	}
	return recs, rows.Err()
}

// #endregion get

// #region list

// EpisodeSummary is the lightweight row returned by ListEpisodes. Traces
// and diagnostics are loaded on demand via GetEpisode.
type EpisodeSummary struct {
	EpisodeID string
	Seed      int64
	Success   bool
	Status    actuation.Status
	Attempts  int
	FinalGain float64
	CreatedAt time.Time
}

// ListEpisodes returns the most recent episodes.
func (s *Store) ListEpisodes(limit int) ([]EpisodeSummary, error) {
	rows, err := s.db.Query(
		`SELECT episode_id, seed, success, status, attempts, final_gain, created_at
		 FROM episodes ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()

	var out []EpisodeSummary
	for rows.Next() {
		var es EpisodeSummary
		var success int
		var status, createdStr string
		if err := rows.Scan(&es.EpisodeID, &es.Seed, &success, &status,
			&es.Attempts, &es.FinalGain, &createdStr); err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		es.Success = success != 0
		es.Status = actuation.Status(status)
		es.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, es)
	}
	return out, rows.Err()
}

// #endregion list

// #region helpers

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion helpers
