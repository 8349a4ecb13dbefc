package actuation

// #region imports
import "log"

// #endregion

// #region directions

// probeDirection is one leg of the wedge diagnostic.
type probeDirection struct {
	label string
	dx    float64
	dz    float64
}

// diagnosticQueue is the fixed probe order: forward, back, right, left.
var diagnosticQueue = []probeDirection{
	{"Forward (+X)", 1.0, 0.0},
	{"Back (-X)", -1.0, 0.0},
	{"Right (+Z)", 0.0, 1.0},
	{"Left (-Z)", 0.0, -1.0},
}

// #endregion directions

// #region prober

// Prober runs the four-direction wedge diagnostic: maximal-strength
// probes in fixed order, each measured on the following attempt. If every
// direction reads below the wedge threshold the position is certified
// unescapable.
type Prober struct {
	cfg     Config
	issued  int
	pending bool
	records []DiagnosticRecord
}

// NewProber creates an idle prober.
func NewProber(cfg Config) *Prober {
	return &Prober{cfg: cfg}
}

// Begin discards any previous diagnostic pass and starts fresh.
func (p *Prober) Begin() {
	p.issued = 0
	p.pending = false
	p.records = nil
}

// RecordPrevious attaches the measured displacement to the probe issued
// on the prior attempt. A no-op when no probe is awaiting measurement.
func (p *Prober) RecordPrevious(displacement float64) {
	if !p.pending {
		return
	}
	dir := diagnosticQueue[p.issued-1]
	rec := DiagnosticRecord{
		Direction:    dir.label,
		Displacement: displacement,
		Wedged:       displacement < p.cfg.WedgeThreshold,
	}
	p.records = append(p.records, rec)
	p.pending = false
	log.Printf("[DIAG] %s delta=%.4f wedged=%v", dir.label, displacement, rec.Wedged)
}

// Done reports whether all probes have been issued and measured.
func (p *Prober) Done() bool {
	return p.issued == len(diagnosticQueue) && !p.pending
}

// NextMove issues the next probe as a forced maximal-strength move.
func (p *Prober) NextMove() (string, Proposal) {
	dir := diagnosticQueue[p.issued]
	p.issued++
	p.pending = true
	return dir.label, Proposal{MoveX: dir.dx, MoveZ: dir.dz, Strength: "strong"}
}

// Verdict returns whether every direction read WEDGED, along with the
// full diagnostic record. Only meaningful once Done.
func (p *Prober) Verdict() (bool, []DiagnosticRecord) {
	wedged := len(p.records) == len(diagnosticQueue)
	for _, rec := range p.records {
		if !rec.Wedged {
			wedged = false
		}
	}
	return wedged, p.records
}

// #endregion prober
