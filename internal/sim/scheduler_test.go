package sim_test

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/liftsim/internal/control"
	"github.com/san-kum/liftsim/internal/dynamo"
	"github.com/san-kum/liftsim/internal/integrators"
	"github.com/san-kum/liftsim/internal/physics"
	"github.com/san-kum/liftsim/internal/sim"
)

type recorder struct {
	mu      sync.Mutex
	reports []sim.Report
}

func (r *recorder) Report(ctx context.Context, rep sim.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, rep)
}

func (r *recorder) all() []sim.Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sim.Report(nil), r.reports...)
}

type countingSnapshotter struct {
	store *control.Store
	calls atomic.Int64
}

func (c *countingSnapshotter) Snapshot() control.Snapshot {
	c.calls.Add(1)
	return c.store.Snapshot()
}

type nanIntegrator struct{}

func (nanIntegrator) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	return dynamo.State{math.NaN()}
}

func feed(ticks chan<- time.Time, n int) {
	for i := 0; i < n; i++ {
		ticks <- time.Now()
	}
	close(ticks)
}

var _ = Describe("Scheduler", func() {
	var (
		store  *control.Store
		solver *sim.SegmentSolver
		rec    *recorder
		ticks  chan time.Time
	)

	BeforeEach(func() {
		store = control.NewStore(physics.DefaultConstants(), physics.DefaultControls())
		solver = sim.NewSegmentSolver(integrators.NewRK45())
		rec = &recorder{}
		ticks = make(chan time.Time)
	})

	It("runs one segment per tick and stops when ticks end", func() {
		snaps := &countingSnapshotter{store: store}
		s := sim.NewScheduler(snaps, solver, sim.WithTicks(ticks), sim.WithSinks(rec))
		Expect(s.Phase()).To(Equal(sim.Idle))

		go feed(ticks, 60)
		Expect(s.Run(context.Background())).To(Succeed())

		reports := rec.all()
		Expect(reports).To(HaveLen(60))
		Expect(snaps.calls.Load()).To(Equal(int64(60)))
		Expect(s.Phase()).To(Equal(sim.Stopped))

		last := reports[59]
		Expect(last.Segment).To(Equal(60))
		Expect(last.State.Elapsed).To(BeNumerically("~", 1.0, 1e-9))
		Expect(last.State.Volume).To(BeNumerically("~", 140.0, 1e-6))
		Expect(last.Inflow).To(Equal(200.0))
		Expect(last.Outflow).To(Equal(60.0))
		Expect(last.Overflow).To(BeFalse())
	})

	It("uses a one second tick as a 1/60 minute segment", func() {
		s := sim.NewScheduler(store, solver)
		Expect(s.SegmentDuration()).To(BeNumerically("~", sim.SegmentMinutes, 1e-15))
	})

	It("stops on cancellation between segments", func() {
		ctx, cancel := context.WithCancel(context.Background())
		s := sim.NewScheduler(store, solver, sim.WithTicks(ticks), sim.WithSinks(
			sim.SinkFunc(func(context.Context, sim.Report) { cancel() }),
			rec,
		))

		done := make(chan error, 1)
		go func() { done <- s.Run(ctx) }()

		ticks <- time.Now()
		Eventually(done).Should(Receive(BeNil()))
		Expect(rec.all()).To(HaveLen(1))
	})

	It("publishes elapsed minutes through a clock sink", func() {
		clock := sim.NewClock()
		Expect(clock.Minutes()).To(Equal(0.0))

		s := sim.NewScheduler(store, solver, sim.WithTicks(ticks), sim.WithSinks(clock))
		go feed(ticks, 30)
		Expect(s.Run(context.Background())).To(Succeed())

		Expect(clock.Minutes()).To(BeNumerically("~", 0.5, 1e-9))
	})

	It("refuses to start twice", func() {
		s := sim.NewScheduler(store, solver, sim.WithTicks(ticks))
		close(ticks)
		Expect(s.Run(context.Background())).To(Succeed())
		Expect(s.Run(context.Background())).To(MatchError(sim.ErrAlreadyStarted))
	})

	It("pins the volume at capacity and reports overflow", func() {
		s := sim.NewScheduler(store, solver,
			sim.WithInitialState(dynamo.PhysicalState{Volume: 19999}),
			sim.WithSinks(rec))

		first, err := s.Step(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(first.Event).To(BeTrue())
		Expect(first.EventTime).To(BeNumerically("~", 1.0/140.0, 1e-9))
		Expect(first.State.Volume).To(Equal(20000.0))
		Expect(first.Overflow).To(BeTrue())

		for i := 0; i < 5; i++ {
			r, err := s.Step(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Event).To(BeFalse())
			Expect(r.State.Volume).To(Equal(20000.0))
			Expect(r.Overflow).To(BeTrue())
		}
	})

	It("drains below capacity once net flow turns negative", func() {
		s := sim.NewScheduler(store, solver, sim.WithInitialState(dynamo.PhysicalState{Volume: 20000}))
		Expect(store.Set(control.ActiveTanks, "0")).To(Succeed())

		r, err := s.Step(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Event).To(BeFalse())
		Expect(r.State.Volume).To(BeNumerically("~", 19999, 1e-9))
		Expect(r.Overflow).To(BeFalse())
	})

	It("clamps a draining station at empty", func() {
		Expect(store.Set(control.ActiveTanks, "0")).To(Succeed())
		s := sim.NewScheduler(store, solver, sim.WithInitialState(dynamo.PhysicalState{Volume: 0.5}))

		r, err := s.Step(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(r.State.Volume).To(Equal(0.0))
	})

	It("keeps the previous value after an invalid control update", func() {
		s := sim.NewScheduler(store, solver)
		Expect(store.Set(control.FabOutflow, "abc")).To(HaveOccurred())

		r, err := s.Step(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Inflow).To(Equal(200.0))
		Expect(r.State.Volume).To(BeNumerically("~", 140.0/60.0, 1e-9))
	})

	DescribeTable("rejects flows that would overflow and keeps stepping",
		func(integrator dynamo.Integrator) {
			s := sim.NewScheduler(store, sim.NewSegmentSolver(integrator))
			Expect(store.Set(control.FabOutflow, "1e308")).To(MatchError(dynamo.ErrInvalidControlValue))

			r, err := s.Step(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Inflow).To(Equal(200.0))
			Expect(r.State.Volume).To(BeNumerically("~", 140.0/60.0, 1e-9))
		},
		Entry("rk45", integrators.NewRK45()),
		Entry("exact", integrators.NewExact()),
	)

	It("integrates the largest accepted inflow without failing", func() {
		Expect(store.Set(control.ActiveTanks, "1")).To(Succeed())
		Expect(store.SetValue(control.FabOutflow, physics.MaxFlowRate)).To(Succeed())
		s := sim.NewScheduler(store, solver)

		r, err := s.Step(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Event).To(BeTrue())
		Expect(r.State.Volume).To(Equal(r.Capacity))
	})

	It("stops and surfaces integration failures without committing", func() {
		failing := sim.NewSegmentSolver(nanIntegrator{})
		s := sim.NewScheduler(store, failing, sim.WithTicks(ticks), sim.WithSinks(rec))

		go func() { ticks <- time.Now() }()
		err := s.Run(context.Background())

		Expect(err).To(MatchError(dynamo.ErrIntegrationFailure))
		var simErr *dynamo.SimulationError
		Expect(err).To(BeAssignableToTypeOf(simErr))
		Expect(rec.all()).To(BeEmpty())
		Expect(s.Phase()).To(Equal(sim.Stopped))
	})

	It("stays within bounds for random control sequences", func() {
		rnd := rand.New(rand.NewSource(7))
		s := sim.NewScheduler(store, solver)

		for i := 0; i < 3000; i++ {
			if i%25 == 0 {
				Expect(store.SetValue(control.ActiveTanks, float64(rnd.Intn(3)))).To(Succeed())
				Expect(store.SetValue(control.PumpOn, float64(rnd.Intn(2)))).To(Succeed())
				Expect(store.SetValue(control.FabOutflow, rnd.Float64()*20000)).To(Succeed())
			}
			r, err := s.Step(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(r.State.Volume).To(BeNumerically(">=", 0))
			Expect(r.State.Volume).To(BeNumerically("<=", r.Capacity))
		}
	})

	It("tolerates concurrent control updates while running", func() {
		s := sim.NewScheduler(store, solver, sim.WithTicks(ticks), sim.WithSinks(rec))

		stop := make(chan struct{})
		var writers sync.WaitGroup
		for w := 0; w < 4; w++ {
			writers.Add(1)
			go func(seed int64) {
				defer writers.Done()
				rnd := rand.New(rand.NewSource(seed))
				for {
					select {
					case <-stop:
						return
					default:
					}
					f := control.Field(rnd.Intn(3))
					_ = store.SetValue(f, rnd.Float64()*5000)
					_ = store.Set(f, "garbage")
				}
			}(int64(w))
		}

		go feed(ticks, 2000)
		Expect(s.Run(context.Background())).To(Succeed())
		close(stop)
		writers.Wait()

		reports := rec.all()
		Expect(reports).To(HaveLen(2000))
		for _, r := range reports {
			Expect(r.State.Volume).To(BeNumerically(">=", 0))
			Expect(r.State.Volume).To(BeNumerically("<=", r.Capacity))
		}
	})
})
