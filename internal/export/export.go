package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/san-kum/thermalstate/internal/thermal"
)

// Run describes the parameters that produced a trajectory.
type Run struct {
	ID         string  `json:"id,omitempty"`
	Ambient    float64 `json:"ambient"`
	Setpoint   float64 `json:"setpoint"`
	Start      int     `json:"start"`
	Integrator string  `json:"integrator"`
}

type ExportData struct {
	Run       Run                `json:"run"`
	Steps     int                `json:"steps"`
	Rejected  int                `json:"rejected"`
	Times     []float64          `json:"times"`
	Grids     [][]float64        `json:"grids,omitempty"`
	Snapshots []thermal.Snapshot `json:"snapshots"`
	Metrics   map[string]float64 `json:"metrics"`
}

// NewExportData packs a trajectory. Full grids are included only when
// withGrids is set; the snapshots are always the display ones.
func NewExportData(run Run, traj *thermal.Trajectory, withGrids bool) ExportData {
	data := ExportData{
		Run:       run,
		Steps:     traj.Steps,
		Rejected:  traj.Rejected,
		Times:     traj.Times,
		Snapshots: traj.DisplaySnapshots(),
		Metrics:   traj.Metrics,
	}
	if withGrids {
		data.Grids = make([][]float64, len(traj.Grids))
		for i, g := range traj.Grids {
			data.Grids[i] = g
		}
	}
	return data
}

func WriteJSON(w io.Writer, data ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

var gridHeader = []string{"time", "bin", "p00", "p01", "p10", "p11"}

// WriteCSV writes the trajectory in long form, one row per output time and
// temperature bin.
func WriteCSV(w io.Writer, traj *thermal.Trajectory) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(gridHeader); err != nil {
		return err
	}

	row := make([]string, len(gridHeader))
	for i, g := range traj.Grids {
		row[0] = formatFloat(traj.Times[i])
		for ti := 0; ti < thermal.TempBins; ti++ {
			row[1] = strconv.Itoa(ti)
			for _, q := range thermal.AllQuadrants {
				row[2+int(q)] = formatFloat(g.AtQuadrant(ti, q))
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

var snapshotHeader = []string{"index", "time", "p00", "p01", "p10", "p11", "mean_bin"}

// WriteSnapshotsCSV writes one row per snapshot with the device-state
// marginal and the mean temperature bin.
func WriteSnapshotsCSV(w io.Writer, snaps []thermal.Snapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(snapshotHeader); err != nil {
		return err
	}

	row := make([]string, len(snapshotHeader))
	for _, s := range snaps {
		row[0] = strconv.Itoa(s.Index)
		row[1] = formatFloat(s.Time)
		for q, v := range s.State {
			row[2+q] = formatFloat(v)
		}
		row[6] = formatFloat(meanBin(s.Distribution))
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func meanBin(dist []float64) float64 {
	var total, weighted float64
	for i, v := range dist {
		total += v
		weighted += float64(i) * v
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
