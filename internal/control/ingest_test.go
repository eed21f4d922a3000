package control_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"

	"github.com/san-kum/liftsim/internal/control"
	"github.com/san-kum/liftsim/internal/physics"
)

var _ = Describe("Ingestor", func() {
	var (
		store   *control.Store
		ingest  *control.Ingestor
		logBuf  *bytes.Buffer
		updates map[control.Field][]error
	)

	BeforeEach(func() {
		store = control.NewStore(physics.DefaultConstants(), physics.DefaultControls())
		logBuf = &bytes.Buffer{}
		updates = map[control.Field][]error{}
		ingest = control.NewIngestor(store, control.DefaultTopics(),
			control.WithLogger(zerolog.New(logBuf)),
			control.WithUpdateHook(func(f control.Field, err error) {
				updates[f] = append(updates[f], err)
			}),
		)
	})

	It("subscribes to the three control topics", func() {
		Expect(ingest.Topics()).To(ConsistOf(
			"lift_station/active_tanks",
			"lift_station/pump_status",
			"lift_station/fab_outflow",
		))
	})

	It("routes each topic to its field", func() {
		ingest.Handle("lift_station/active_tanks", []byte("1"))
		ingest.Handle("lift_station/pump_status", []byte("0"))
		ingest.Handle("lift_station/fab_outflow", []byte("75.5"))

		Expect(store.Snapshot().Controls).To(Equal(physics.Controls{
			ActiveTanks: 1,
			PumpOn:      0,
			FabOutflow:  75.5,
		}))
		Expect(logBuf.String()).To(ContainSubstring("control updated"))
	})

	It("logs and drops non-numeric payloads", func() {
		ingest.Handle("lift_station/fab_outflow", []byte("lots"))

		Expect(store.Snapshot().Controls.FabOutflow).To(Equal(100.0))
		Expect(updates[control.FabOutflow]).To(HaveLen(1))
		Expect(updates[control.FabOutflow][0]).To(HaveOccurred())
		Expect(logBuf.String()).To(ContainSubstring("rejected control payload"))
	})

	It("stamps accepted updates with the elapsed simulated minutes", func() {
		minutes := 0.0
		clocked := control.NewIngestor(store, control.DefaultTopics(),
			control.WithLogger(zerolog.New(logBuf)),
			control.WithClock(func() float64 { return minutes }),
		)

		minutes = 12.5
		clocked.Handle("lift_station/active_tanks", []byte("3"))

		Expect(logBuf.String()).To(ContainSubstring(`"elapsed_min":12.5`))
		Expect(logBuf.String()).To(ContainSubstring(`"field":"active_tanks"`))
	})

	It("leaves the clock out of rejection logs", func() {
		clocked := control.NewIngestor(store, control.DefaultTopics(),
			control.WithLogger(zerolog.New(logBuf)),
			control.WithClock(func() float64 { return 1 }),
		)
		clocked.Handle("lift_station/fab_outflow", []byte("1e308"))

		Expect(store.Snapshot().Controls.FabOutflow).To(Equal(100.0))
		Expect(logBuf.String()).To(ContainSubstring("rejected control payload"))
		Expect(logBuf.String()).NotTo(ContainSubstring("elapsed_min"))
	})

	It("ignores unrouted topics", func() {
		ingest.Handle("lift_station/unknown", []byte("1"))
		Expect(store.Snapshot().Controls).To(Equal(physics.DefaultControls()))
		Expect(updates).To(BeEmpty())
	})
})
