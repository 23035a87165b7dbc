// Package observables implements the accumulator types of component G:
// the thermal energy map, heat-flux and temperature profiles sliced
// along x and y over time frames, the ten-category scattering-event
// counters, the append-only per-phonon sequences, and the
// conductivity-sweep accumulation of §4.G.
package observables

import (
	"math"

	"github.com/cwbudde/freepaths/config"
	"github.com/cwbudde/freepaths/phonon"
	"github.com/cwbudde/freepaths/scatter"
)

const (
	hbar  = 1.054571817e-34
	kB    = 1.380649e-23
	twoPi = 2 * math.Pi
)

// Scattering-event-count category indices, ten total: four surface
// classes each split into specular/diffuse, plus two non-dual events
// (source reinjection and internal relaxation) that carry no
// specular/diffuse distinction of their own.
const (
	EvtWallSpecular = iota
	EvtWallDiffuse
	EvtTopBottomSpecular
	EvtTopBottomDiffuse
	EvtHoleSpecular
	EvtHoleDiffuse
	EvtPillarSpecular
	EvtPillarDiffuse
	EvtReinit
	EvtInternal
	numEventCategories
)

// Accumulator is a thread-local set of observable accumulators built
// before the ensemble loop begins and merged by commutative additive
// combine at the end of each worker's run, per §5.
type Accumulator struct {
	cfg *config.Config

	ThermalMap [][]float64 // [Ny][Nx]

	FluxProfileX [][]float64 // [NumNodes][NumFrames]
	FluxProfileY [][]float64 // [NumNodes][NumFrames]
	TempProfileX [][]float64
	TempProfileY [][]float64

	ScatterEventCounts [numEventCategories]int64

	FreePaths       []float64
	FreePathsAlongY []float64
	TravelTimes     []float64
	InitialThetas   []float64
	ExitThetas      []float64
	Frequencies     []float64
	GroupVelocities []float64

	FailedFlights     int64
	SuccessfulFlights int64

	ConductivitySum float64 // sweep mode only, W/(m*K)
}

// New builds an empty Accumulator sized from the configuration.
func New(cfg *config.Config) *Accumulator {
	a := &Accumulator{cfg: cfg}
	a.ThermalMap = make2D(cfg.MapNy, cfg.MapNx)
	a.FluxProfileX = make2D(cfg.NumNodes, cfg.NumFrames)
	a.FluxProfileY = make2D(cfg.NumNodes, cfg.NumFrames)
	a.TempProfileX = make2D(cfg.NumNodes, cfg.NumFrames)
	a.TempProfileY = make2D(cfg.NumNodes, cfg.NumFrames)
	return a
}

func make2D(rows, cols int) [][]float64 {
	out := make([][]float64, rows)
	for i := range out {
		out[i] = make([]float64, cols)
	}
	return out
}

// DepositThermal adds h-bar*omega into the thermal-map pixel containing
// (x, y); out-of-range depositions are ignored per §4.G.
func (a *Accumulator) DepositThermal(x, y, freq float64) {
	cfg := a.cfg
	i := int((x + cfg.Width/2) * float64(cfg.MapNx) / cfg.Width)
	j := int(y * float64(cfg.MapNy) / cfg.Length)
	if i < 0 || i >= cfg.MapNx || j < 0 || j >= cfg.MapNy {
		return
	}
	a.ThermalMap[j][i] += hbar * twoPi * freq
}

// DepositProfiles adds this step's contribution to the x- and
// y-sliced flux and temperature profiles at the frame corresponding to
// `step` of `totalSteps`, per §4.F step 7.
func (a *Accumulator) DepositProfiles(p *phonon.Phonon, step, totalSteps int) {
	cfg := a.cfg
	frame := step * cfg.NumFrames / totalSteps
	if frame < 0 {
		frame = 0
	}
	if frame >= cfg.NumFrames {
		frame = cfg.NumFrames - 1
	}

	energy := hbar * twoPi * p.Freq
	cosPhi := math.Abs(math.Cos(p.Phi))
	flux := energy * math.Cos(p.Theta) * cosPhi * p.Vg
	temp := energy / (cfg.SpecificHeat * cfg.Density)

	vCellX := cfg.Length * cfg.Thickness * cfg.Width / float64(cfg.NumNodes)
	vCellY := cfg.Width * cfg.Thickness * cfg.Length / float64(cfg.NumNodes)

	ix := int((p.X + cfg.Width/2) * float64(cfg.NumNodes) / cfg.Width)
	if ix >= 0 && ix < cfg.NumNodes {
		a.FluxProfileX[ix][frame] += flux / vCellX
		a.TempProfileX[ix][frame] += temp / vCellX
	}
	iy := int(p.Y * float64(cfg.NumNodes) / cfg.Length)
	if iy >= 0 && iy < cfg.NumNodes {
		a.FluxProfileY[iy][frame] += flux / vCellY
		a.TempProfileY[iy][frame] += temp / vCellY
	}
}

// RecordScatterEvent increments the counter for a surface-scattering
// class/kind pair.
func (a *Accumulator) RecordScatterEvent(class scatter.Class, kind scatter.EventKind) {
	idx, ok := eventIndex(class, kind)
	if !ok {
		return
	}
	a.ScatterEventCounts[idx]++
}

func eventIndex(class scatter.Class, kind scatter.EventKind) (int, bool) {
	spec := kind == scatter.Specular
	switch class {
	case scatter.ClassWall:
		if spec {
			return EvtWallSpecular, true
		}
		return EvtWallDiffuse, true
	case scatter.ClassTop, scatter.ClassBottom:
		if spec {
			return EvtTopBottomSpecular, true
		}
		return EvtTopBottomDiffuse, true
	case scatter.ClassHole:
		if spec {
			return EvtHoleSpecular, true
		}
		return EvtHoleDiffuse, true
	case scatter.ClassPillar:
		if spec {
			return EvtPillarSpecular, true
		}
		return EvtPillarDiffuse, true
	default:
		return 0, false
	}
}

// RecordReinit increments the source-reinjection counter.
func (a *Accumulator) RecordReinit() { a.ScatterEventCounts[EvtReinit]++ }

// RecordInternal increments the internal-relaxation counter.
func (a *Accumulator) RecordInternal() { a.ScatterEventCounts[EvtInternal]++ }

// RecordFlight appends a completed flight's summary sequences and, for
// sweep-mode phonons, its conductivity contribution.
func (a *Accumulator) RecordFlight(rec *phonon.FlightRecord) {
	if rec.Failed {
		a.FailedFlights++
		return
	}
	a.SuccessfulFlights++

	a.FreePaths = append(a.FreePaths, rec.FreePaths...)
	a.FreePathsAlongY = append(a.FreePathsAlongY, rec.FreePathsAlongY...)
	a.InitialThetas = append(a.InitialThetas, rec.InitialTheta)
	a.Frequencies = append(a.Frequencies, rec.Freq)
	a.GroupVelocities = append(a.GroupVelocities, rec.Vg)

	if rec.Exited {
		a.ExitThetas = append(a.ExitThetas, rec.ExitTheta)
		a.TravelTimes = append(a.TravelTimes, rec.TravelTime)
	}

	if rec.Dk > 0 {
		a.ConductivitySum += conductivityContribution(a.cfg, rec)
	}
}

// conductivityContribution evaluates the per-phonon contribution of
// §4.G's conductivity-sweep formula.
func conductivityContribution(cfg *config.Config, rec *phonon.FlightRecord) float64 {
	if rec.MeanFreePath <= 0 || rec.Vg <= 0 {
		return 0
	}
	omega := twoPi * rec.Freq
	x := hbar * omega / (kB * cfg.Temperature)
	if x <= 0 || x > 700 {
		return 0
	}
	ex := math.Exp(x)
	cv := kB * x * x * ex / ((ex - 1) * (ex - 1))

	tau := rec.MeanFreePath / rec.Vg
	return cv * rec.Vg * rec.Vg * tau * rec.K * rec.K * rec.Dk / (6 * math.Pi * math.Pi)
}

// Merge folds another accumulator's contributions into a, as a
// commutative additive combine. It must only be called outside the
// per-step hot path (end-of-worker reduce), per §5.
func (a *Accumulator) Merge(b *Accumulator) {
	addInto(a.ThermalMap, b.ThermalMap)
	addInto(a.FluxProfileX, b.FluxProfileX)
	addInto(a.FluxProfileY, b.FluxProfileY)
	addInto(a.TempProfileX, b.TempProfileX)
	addInto(a.TempProfileY, b.TempProfileY)

	for i := range a.ScatterEventCounts {
		a.ScatterEventCounts[i] += b.ScatterEventCounts[i]
	}

	a.FreePaths = append(a.FreePaths, b.FreePaths...)
	a.FreePathsAlongY = append(a.FreePathsAlongY, b.FreePathsAlongY...)
	a.TravelTimes = append(a.TravelTimes, b.TravelTimes...)
	a.InitialThetas = append(a.InitialThetas, b.InitialThetas...)
	a.ExitThetas = append(a.ExitThetas, b.ExitThetas...)
	a.Frequencies = append(a.Frequencies, b.Frequencies...)
	a.GroupVelocities = append(a.GroupVelocities, b.GroupVelocities...)

	a.FailedFlights += b.FailedFlights
	a.SuccessfulFlights += b.SuccessfulFlights
	a.ConductivitySum += b.ConductivitySum
}

func addInto(dst, src [][]float64) {
	for i := range dst {
		for j := range dst[i] {
			dst[i][j] += src[i][j]
		}
	}
}

// SumThermalMap returns the total of every thermal-map pixel, used by
// the energy-conservation check of invariant 7 in §8.
func (a *Accumulator) SumThermalMap() float64 {
	var sum float64
	for _, row := range a.ThermalMap {
		for _, v := range row {
			sum += v
		}
	}
	return sum
}
