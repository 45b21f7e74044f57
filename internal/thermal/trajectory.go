package thermal

// Display sampling used by the chart consumers: every fourth output
// starting at the fourth.
const (
	DisplayStart  = 4
	DisplayStride = 4
)

// Trajectory is the ordered sequence of grids, one per output time.
type Trajectory struct {
	Times    []float64
	Grids    []Grid
	Steps    int
	Rejected int
	Metrics  map[string]float64
}

// Snapshot is the reduced view of one grid consumed by the charts.
type Snapshot struct {
	Index        int                `json:"index"`
	Time         float64            `json:"time"`
	State        [Quadrants]float64 `json:"state"`
	Distribution []float64          `json:"distribution"`
}

func (t *Trajectory) Len() int { return len(t.Grids) }

func (t *Trajectory) Final() Grid {
	if len(t.Grids) == 0 {
		return nil
	}
	return t.Grids[len(t.Grids)-1]
}

func (t *Trajectory) Snapshot(i int) Snapshot {
	g := t.Grids[i]
	return Snapshot{
		Index:        i,
		Time:         t.Times[i],
		State:        g.DeviceState(),
		Distribution: g.Distribution(),
	}
}

// Snapshots reduces grids start, start+stride, ... to snapshots. A
// non-positive stride yields nil.
func (t *Trajectory) Snapshots(start, stride int) []Snapshot {
	if stride <= 0 || start < 0 {
		return nil
	}
	var out []Snapshot
	for i := start; i < len(t.Grids); i += stride {
		out = append(out, t.Snapshot(i))
	}
	return out
}

func (t *Trajectory) DisplaySnapshots() []Snapshot {
	return t.Snapshots(DisplayStart, DisplayStride)
}

func (t *Trajectory) TotalMass(i int) float64 { return t.Grids[i].Total() }

func (t *Trajectory) MeanBin(i int) float64 { return t.Grids[i].MeanBin() }

// Min is the smallest occupation value anywhere in the trajectory.
func (t *Trajectory) Min() float64 {
	lowest := 0.0
	for i, g := range t.Grids {
		if m := g.Min(); i == 0 || m < lowest {
			lowest = m
		}
	}
	return lowest
}
