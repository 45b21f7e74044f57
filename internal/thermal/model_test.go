package thermal_test

import (
	"bytes"
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/thermalstate/internal/dynamo"
	"github.com/san-kum/thermalstate/internal/integrators"
	"github.com/san-kum/thermalstate/internal/logging"
	"github.com/san-kum/thermalstate/internal/thermal"
)

// Solver error bound for occupations when every off-diagonal generator
// entry is non-negative. Below Ta of about -14.98 the heat-pump efficiency
// goes negative and genuinely negative occupations appear instead.
const negativeFloor = -1e-9

var _ = Describe("Model", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("construction", func() {
		It("places the initial mass at (Tstart, 0, 0)", func() {
			m, err := thermal.New(0, 20, 15)
			Expect(err).NotTo(HaveOccurred())

			x0 := m.Initial()
			Expect(x0).To(HaveLen(thermal.GridSize))
			Expect(x0.At(15, 0, 0)).To(Equal(0.25))
			Expect(x0.Total()).To(Equal(0.25))
		})

		It("rejects a start bin outside [0, K)", func() {
			for _, start := range []int{-1, thermal.TempBins, 100} {
				_, err := thermal.New(0, 20, start)
				Expect(err).To(MatchError(thermal.ErrStartOutOfRange))
			}
		})

		It("accepts both edge bins", func() {
			for _, start := range []int{0, thermal.TempBins - 1} {
				_, err := thermal.New(0, 20, start)
				Expect(err).NotTo(HaveOccurred())
			}
		})

		It("rejects negative rates", func() {
			r := thermal.DefaultRates()
			r.H = -1
			_, err := thermal.New(0, 20, 15, thermal.WithRates(r))
			Expect(err).To(MatchError(thermal.ErrInvalidRates))
		})

		It("rejects a negative initial mass", func() {
			_, err := thermal.New(0, 20, 15, thermal.WithInitialMass(-0.5))
			Expect(err).To(MatchError(thermal.ErrInvalidMass))
		})

		It("uses 25 evenly spaced output times over [0, 25]", func() {
			m, err := thermal.New(0, 20, 15)
			Expect(err).NotTo(HaveOccurred())

			times := m.Times()
			Expect(times).To(HaveLen(25))
			Expect(times[0]).To(Equal(0.0))
			Expect(times[24]).To(Equal(25.0))
		})

		It("keeps Pc + Ph = 1 for every bin", func() {
			m, err := thermal.New(-10, 22, 15)
			Expect(err).NotTo(HaveOccurred())

			pc, ph := m.Adjustments()
			for i := range pc {
				Expect(pc[i] + ph[i]).To(BeNumerically("~", 1.0, 1e-15))
			}
		})
	})

	Describe("varying the start bin", func() {
		It("changes only the initial condition", func() {
			ref, err := thermal.New(0, 20, 0)
			Expect(err).NotTo(HaveOccurred())
			refPc, refPh := ref.Adjustments()
			refH, refF := ref.Efficiencies()

			for start := 0; start < thermal.TempBins; start++ {
				m, err := thermal.New(0, 20, start)
				Expect(err).NotTo(HaveOccurred())

				pc, ph := m.Adjustments()
				Expect(pc).To(Equal(refPc))
				Expect(ph).To(Equal(refPh))
				h, f := m.Efficiencies()
				Expect(h).To(Equal(refH))
				Expect(f).To(Equal(refF))
				Expect(m.Rates()).To(Equal(ref.Rates()))

				Expect(m.Initial().At(start, 0, 0)).To(Equal(0.25))
				Expect(m.Initial().Total()).To(Equal(0.25))
			}
		})
	})

	Describe("Run", func() {
		var traj *thermal.Trajectory

		BeforeEach(func() {
			m, err := thermal.New(0, 20, 15)
			Expect(err).NotTo(HaveOccurred())
			traj, err = m.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns 25 finite grids of shape (50, 2, 2)", func() {
			Expect(traj.Len()).To(Equal(25))
			Expect(traj.Times).To(HaveLen(25))
			for _, g := range traj.Grids {
				Expect(g).To(HaveLen(thermal.GridSize))
				bins, h, f := g.Shape()
				Expect([]int{bins, h, f}).To(Equal([]int{50, 2, 2}))
				Expect(dynamo.State(g).IsValid()).To(BeTrue())
			}
			Expect(traj.Min()).To(BeNumerically(">=", negativeFloor))
		})

		It("starts from the initial condition exactly", func() {
			first := traj.Grids[0]
			for i, v := range first {
				if i == thermal.Index(15, 0, 0) {
					Expect(v).To(Equal(0.25))
				} else {
					Expect(v).To(BeZero())
				}
			}
			Expect(traj.Times[0]).To(BeZero())
		})

		It("conserves total mass", func() {
			for i := range traj.Grids {
				Expect(traj.TotalMass(i)).To(BeNumerically("~", 0.25, 1e-9))
			}
		})

		It("moves mass off the all-off state", func() {
			snap := traj.Snapshot(traj.Len() - 1)
			Expect(snap.State[thermal.AllOff]).To(BeNumerically("<", 0.25))
			Expect(snap.State[thermal.HeatPumpOn]).To(BeNumerically(">", 0))
		})

		It("exposes display snapshots at indices 4, 8, ..., 24", func() {
			snaps := traj.DisplaySnapshots()
			Expect(snaps).To(HaveLen(6))
			for i, s := range snaps {
				Expect(s.Index).To(Equal(4 * (i + 1)))
				Expect(s.Time).To(Equal(traj.Times[s.Index]))
				Expect(s.Distribution).To(HaveLen(thermal.TempBins))

				stateSum := 0.0
				for _, v := range s.State {
					stateSum += v
				}
				distSum := 0.0
				for _, v := range s.Distribution {
					distSum += v
				}
				Expect(stateSum).To(BeNumerically("~", distSum, 1e-12))
			}
		})
	})

	Describe("trace logging", func() {
		It("logs one line per output sample", func() {
			var buf bytes.Buffer
			m, err := thermal.New(0, 20, 15, thermal.WithLogger(logging.NewLogger("trace", &buf)))
			Expect(err).NotTo(HaveOccurred())
			_, err = m.Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(strings.Count(buf.String(), "msg=sample")).To(Equal(25))
			Expect(buf.String()).To(ContainSubstring("level=TRACE"))
		})

		It("stays quiet above trace", func() {
			var buf bytes.Buffer
			m, err := thermal.New(0, 20, 15, thermal.WithLogger(logging.NewLogger("debug", &buf)))
			Expect(err).NotTo(HaveOccurred())
			_, err = m.Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(buf.String()).NotTo(ContainSubstring("msg=sample"))
			Expect(buf.String()).To(ContainSubstring("integration complete"))
		})
	})

	Describe("determinism", func() {
		It("yields bit-identical trajectories on repeated runs", func() {
			m, err := thermal.New(-7, 21, 12)
			Expect(err).NotTo(HaveOccurred())

			first, err := m.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			second, err := m.Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(cmp.Diff(first.Grids, second.Grids)).To(BeEmpty())
			Expect(cmp.Diff(first.Times, second.Times)).To(BeEmpty())
		})
	})

	Describe("slider extremes", func() {
		DescribeTable("stays finite and conserves mass",
			func(ta, tset float64, start int) {
				m, err := thermal.New(ta, tset, start)
				Expect(err).NotTo(HaveOccurred())
				traj, err := m.Run(ctx)
				Expect(err).NotTo(HaveOccurred())

				final := traj.Final()
				Expect(dynamo.State(final).IsValid()).To(BeTrue())
				Expect(final.Total()).To(BeNumerically("~", 0.25, 1e-9))
				if thermal.HeatPumpEfficiency(ta) >= 0 {
					Expect(traj.Min()).To(BeNumerically(">=", negativeFloor))
				}
			},
			Entry("cold outside, low setpoint", -15.0, 10.0, 10),
			Entry("cold outside, high setpoint", -15.0, 30.0, 30),
			Entry("cold outside, high setpoint, low start", -15.0, 30.0, 10),
			Entry("near the efficiency crossover", -14.0, 30.0, 10),
			Entry("warm outside, low setpoint", 15.0, 10.0, 30),
			Entry("bottom edge start", 0.0, 20.0, 0),
			Entry("top edge start", 0.0, 20.0, 49),
		)
	})

	Describe("negative heat-pump efficiency", func() {
		It("drives occupations genuinely negative at Ta = -15", func() {
			Expect(thermal.HeatPumpEfficiency(-15)).To(BeNumerically("<", 0))

			m, err := thermal.New(-15, 30, 10)
			Expect(err).NotTo(HaveOccurred())
			traj, err := m.Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(traj.Min()).To(BeNumerically("<", -1e-7))
			Expect(traj.TotalMass(traj.Len() - 1)).To(BeNumerically("~", 0.25, 1e-9))
		})

		It("is not an integration artifact", func() {
			adaptive, err := thermal.New(-15, 30, 10)
			Expect(err).NotTo(HaveOccurred())
			want, err := adaptive.Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			cfg := dynamo.DefaultConfig()
			cfg.Dt = 1e-3
			fixed, err := thermal.New(-15, 30, 10,
				thermal.WithIntegrator(func() dynamo.Integrator { return integrators.NewRK4() }),
				thermal.WithSolver(cfg),
			)
			Expect(err).NotTo(HaveOccurred())
			got, err := fixed.Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(got.Min()).To(BeNumerically("~", want.Min(), 1e-8))
		})

		It("warns at construction", func() {
			var buf bytes.Buffer
			log := slog.New(slog.NewTextHandler(&buf, nil))

			_, err := thermal.New(-15, 30, 10, thermal.WithLogger(log))
			Expect(err).NotTo(HaveOccurred())
			Expect(buf.String()).To(ContainSubstring("level=WARN"))
			Expect(buf.String()).To(ContainSubstring("heat_pump_lift"))

			buf.Reset()
			_, err = thermal.New(0, 30, 10, thermal.WithLogger(log))
			Expect(err).NotTo(HaveOccurred())
			Expect(buf.String()).NotTo(ContainSubstring("level=WARN"))
		})
	})

	Describe("fixed-step integrators", func() {
		It("agree with the adaptive solver", func() {
			ref, err := thermal.New(0, 20, 15)
			Expect(err).NotTo(HaveOccurred())
			want, err := ref.Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			cfg := dynamo.DefaultConfig()
			cfg.Dt = 0.01
			m, err := thermal.New(0, 20, 15,
				thermal.WithIntegrator(func() dynamo.Integrator { return integrators.NewRK4() }),
				thermal.WithSolver(cfg),
			)
			Expect(err).NotTo(HaveOccurred())
			got, err := m.Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			for i := range want.Grids {
				diff := dynamo.State(want.Grids[i]).Sub(dynamo.State(got.Grids[i])).Norm()
				Expect(diff).To(BeNumerically("<", 1e-6))
			}
		})
	})

	Describe("solver failure", func() {
		It("returns no trajectory when the step budget runs out", func() {
			cfg := dynamo.DefaultConfig()
			cfg.MaxSteps = 3
			m, err := thermal.New(0, 20, 15, thermal.WithSolver(cfg))
			Expect(err).NotTo(HaveOccurred())

			traj, err := m.Run(ctx)
			Expect(err).To(MatchError(dynamo.ErrMaxSteps))
			Expect(traj).To(BeNil())
		})
	})

	Describe("initial mass", func() {
		It("scales the whole trajectory linearly", func() {
			base, err := thermal.New(0, 20, 15)
			Expect(err).NotTo(HaveOccurred())
			want, err := base.Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			full, err := thermal.New(0, 20, 15, thermal.WithInitialMass(1.0))
			Expect(err).NotTo(HaveOccurred())
			got, err := full.Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(got.Len()).To(Equal(want.Len()))
			for i := range want.Grids {
				scaled := dynamo.State(want.Grids[i]).Scale(4)
				diff := scaled.Sub(dynamo.State(got.Grids[i])).Norm()
				Expect(diff).To(BeNumerically("<", 1e-6), "sample %d", i)
			}
			Expect(got.TotalMass(got.Len() - 1)).To(BeNumerically("~", 1.0, 1e-8))
			Expect(math.Abs(got.MeanBin(0) - 15)).To(BeNumerically("<", 1e-12))
		})
	})
})
