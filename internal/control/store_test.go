package control_test

import (
	"fmt"
	"math/rand"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/liftsim/internal/control"
	"github.com/san-kum/liftsim/internal/dynamo"
	"github.com/san-kum/liftsim/internal/physics"
)

var _ = Describe("Store", func() {
	var store *control.Store

	BeforeEach(func() {
		store = control.NewStore(physics.DefaultConstants(), physics.DefaultControls())
	})

	It("starts from the initial controls", func() {
		snap := store.Snapshot()
		Expect(snap.Controls).To(Equal(physics.DefaultControls()))
		Expect(snap.Constants.TotalCapacity()).To(Equal(20000.0))
		Expect(snap.Inflow()).To(Equal(200.0))
		Expect(snap.Outflow()).To(Equal(60.0))
	})

	It("replaces one field per set", func() {
		Expect(store.Set(control.ActiveTanks, "1")).To(Succeed())
		Expect(store.Set(control.FabOutflow, " 42.5 ")).To(Succeed())

		c := store.Snapshot().Controls
		Expect(c.ActiveTanks).To(Equal(1.0))
		Expect(c.FabOutflow).To(Equal(42.5))
		Expect(c.PumpOn).To(Equal(1.0))
	})

	It("normalizes the pump status to 0 or 1", func() {
		Expect(store.Set(control.PumpOn, "0")).To(Succeed())
		Expect(store.Snapshot().Controls.PumpOn).To(Equal(0.0))

		Expect(store.Set(control.PumpOn, "3")).To(Succeed())
		Expect(store.Snapshot().Controls.PumpOn).To(Equal(1.0))
	})

	DescribeTable("rejects invalid values and keeps the previous one",
		func(f control.Field, raw string) {
			before := store.Snapshot()
			err := store.Set(f, raw)
			Expect(err).To(MatchError(dynamo.ErrInvalidControlValue))
			Expect(store.Snapshot()).To(Equal(before))
		},
		Entry("non-numeric", control.ActiveTanks, "two"),
		Entry("empty", control.FabOutflow, ""),
		Entry("nan", control.FabOutflow, "NaN"),
		Entry("infinite", control.PumpOn, "inf"),
		Entry("negative tanks", control.ActiveTanks, "-1"),
		Entry("negative outflow", control.FabOutflow, "-0.5"),
		Entry("inflow overflows float64", control.FabOutflow, "1e308"),
		Entry("inflow above the flow bound", control.ActiveTanks, "1e8"),
	)

	It("rejects a value whose flow only overflows with the other fields", func() {
		Expect(store.Set(control.ActiveTanks, "0")).To(Succeed())
		Expect(store.Set(control.FabOutflow, "1e300")).To(Succeed())

		err := store.Set(control.ActiveTanks, "2")
		Expect(err).To(MatchError(dynamo.ErrInvalidControlValue))
		Expect(store.Snapshot().Controls.ActiveTanks).To(Equal(0.0))
	})

	It("updates a field from its current value", func() {
		Expect(store.Update(control.FabOutflow, func(old float64) float64 { return old + 10 })).To(Succeed())
		Expect(store.Snapshot().Controls.FabOutflow).To(Equal(110.0))

		Expect(store.Update(control.PumpOn, func(old float64) float64 { return 1 - old })).To(Succeed())
		Expect(store.Snapshot().Controls.PumpOn).To(Equal(0.0))

		err := store.Update(control.ActiveTanks, func(old float64) float64 { return old - 5 })
		Expect(err).To(MatchError(dynamo.ErrInvalidControlValue))
		Expect(store.Snapshot().Controls.ActiveTanks).To(Equal(2.0))
	})

	It("applies concurrent updates without losing any", func() {
		const writers = 8
		const rounds = 200

		var wg sync.WaitGroup
		for w := 0; w < writers; w++ {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				for i := 0; i < rounds; i++ {
					Expect(store.Update(control.FabOutflow, func(old float64) float64 { return old + 1 })).To(Succeed())
				}
			}()
		}
		wg.Wait()

		Expect(store.Snapshot().Controls.FabOutflow).To(Equal(100.0 + writers*rounds))
	})

	It("hands out snapshots that later sets do not mutate", func() {
		snap := store.Snapshot()
		Expect(store.Set(control.FabOutflow, "10")).To(Succeed())
		Expect(snap.Controls.FabOutflow).To(Equal(100.0))
	})

	It("never loses or tears concurrent field updates", func() {
		const writers = 8
		const rounds = 500

		var wg sync.WaitGroup
		stop := make(chan struct{})
		torn := make(chan string, 1)

		go func() {
			for {
				select {
				case <-stop:
					return
				default:
				}
				c := store.Snapshot().Controls
				if c.PumpOn != 0 && c.PumpOn != 1 {
					select {
					case torn <- fmt.Sprintf("pump=%v", c.PumpOn):
					default:
					}
				}
			}
		}()

		for w := 0; w < writers; w++ {
			wg.Add(1)
			go func(seed int64) {
				defer GinkgoRecover()
				defer wg.Done()
				rnd := rand.New(rand.NewSource(seed))
				for i := 0; i < rounds; i++ {
					f := control.Field(rnd.Intn(3))
					Expect(store.SetValue(f, float64(rnd.Intn(4)))).To(Succeed())
				}
			}(int64(w))
		}
		wg.Wait()

		Expect(store.Set(control.ActiveTanks, "7")).To(Succeed())
		Expect(store.Set(control.FabOutflow, "9")).To(Succeed())
		close(stop)

		Consistently(torn).ShouldNot(Receive())
		c := store.Snapshot().Controls
		Expect(c.ActiveTanks).To(Equal(7.0))
		Expect(c.FabOutflow).To(Equal(9.0))
	})
})

var _ = Describe("Field", func() {
	It("round-trips through its name", func() {
		for _, f := range []control.Field{control.ActiveTanks, control.PumpOn, control.FabOutflow} {
			parsed, err := control.ParseField(f.String())
			Expect(err).NotTo(HaveOccurred())
			Expect(parsed).To(Equal(f))
		}
		_, err := control.ParseField("valve")
		Expect(err).To(HaveOccurred())
	})
})
