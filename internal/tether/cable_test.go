package tether

import (
	"context"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/san-kum/tether/internal/guide"
	"github.com/san-kum/tether/internal/physics"
	"github.com/san-kum/tether/internal/sim"
)

var _ = Describe("Cable", func() {
	var (
		c   *Cable
		log *eventLog
		ctx context.Context
		cfg Config
		g   *guide.Guide
	)

	BeforeEach(func() {
		ctx = context.Background()
		log = &eventLog{}
		g = lineGuide(4, 0)
		cfg = Config{Name: "test", Options: quickOptions(), Logger: GinkgoLogr}
	})

	JustBeforeEach(func() {
		c = New(g, cfg)
		c.Subscribe(log.record)
	})

	AfterEach(func() {
		c.Release()
	})

	It("starts idle with one invalidated segment per span", func() {
		Expect(c.State()).To(Equal(Idle))
		Expect(c.Name()).To(Equal("test"))
		m := c.Model()
		Expect(m.NumSegments()).To(Equal(3))
		Expect(m.InvalidatedSegments()).To(Equal([]int{0, 1, 2}))
		Expect(c.ParticleLocations()).To(BeEmpty())
	})

	Context("with no name", func() {
		BeforeEach(func() { cfg.Name = "" })

		It("generates one", func() {
			Expect(c.Name()).To(HavePrefix("cable-"))
		})
	})

	It("simulates every segment synchronously", func() {
		Expect(c.InvalidateAndResimulate(true)).To(Succeed())

		Expect(c.State()).To(Equal(Idle))
		Expect(c.IsRunning()).To(BeFalse())
		m := c.Model()
		Expect(m.HasInvalidatedSegments()).To(BeFalse())
		for _, seg := range m.Segments {
			Expect(seg.HasParticles()).To(BeTrue())
			Expect(seg.SimulationTime).To(BeNumerically(">", 0))
		}
		Expect(log.events).To(HaveLen(1))
		Expect(log.events[0].SimulatedSegments).To(Equal([]int{0, 1, 2}))
		Expect(log.events[0].Realtime).To(BeFalse())
		Expect(c.Length()).To(BeNumerically("~", 300, 1e-3))
	})

	It("simulates in the background until drained", func() {
		Expect(c.InvalidateAndResimulate(false)).To(Succeed())
		Expect(c.IsRunning()).To(BeTrue())
		Expect(c.State()).To(Equal(Running))
		Expect(c.Model().HasInvalidatedSegments()).To(BeFalse())

		Expect(c.Wait(ctx)).To(Succeed())
		Expect(c.State()).To(Equal(Idle))
		Expect(log.events).To(HaveLen(1))
		Expect(c.Model().Segments[1].HasParticles()).To(BeTrue())
	})

	It("reports completion through Poll", func() {
		Expect(c.InvalidateAndResimulate(false)).To(Succeed())
		Eventually(func() bool {
			done, err := c.Poll()
			Expect(err).NotTo(HaveOccurred())
			return done
		}).Should(BeTrue())
		Expect(c.IsRunning()).To(BeFalse())

		done, err := c.Poll()
		Expect(err).NotTo(HaveOccurred())
		Expect(done).To(BeFalse())
	})

	It("defers a request made while a worker runs", func() {
		Expect(c.InvalidateAndResimulate(false)).To(Succeed())
		Expect(c.AddSlack(1, 50, true)).To(Succeed())
		Expect(c.State()).To(Equal(RunningWithPendingRebuild))

		Expect(c.Wait(ctx)).To(Succeed())
		Expect(c.State()).To(Equal(Idle))
		Expect(log.events).To(HaveLen(2))
		Expect(log.events[1].SimulatedSegments).To(Equal([]int{1}))

		m := c.Model()
		Expect(m.HasInvalidatedSegments()).To(BeFalse())
		Expect(m.Segments[1].Length).To(BeNumerically("~", 150, 1e-3))
		Expect(m.Segments[1].HasParticles()).To(BeTrue())
	})

	It("cancels a running worker and leaves its segments invalidated", func() {
		Expect(c.InvalidateAndResimulate(false)).To(Succeed())
		c.Cancel()

		Expect(c.IsRunning()).To(BeFalse())
		Expect(c.State()).To(Equal(Idle))
		Expect(c.Model().InvalidatedSegments()).To(Equal([]int{0, 1, 2}))
		Expect(log.events).To(BeEmpty())
	})

	Context("once simulated", func() {
		JustBeforeEach(func() {
			Expect(c.InvalidateAndResimulate(true)).To(Succeed())
			log.events = nil
		})

		It("does nothing when the guide is unchanged", func() {
			before := c.Model().Hash()
			Expect(c.UpdateAndRebuildModifiedSegments(true)).To(Succeed())
			Expect(c.IsRunning()).To(BeFalse())
			Expect(c.Model().Hash()).To(Equal(before))
			Expect(log.events).To(BeEmpty())
		})

		It("resimulates only the span that moved", func() {
			before := c.Model()
			Expect(c.SetPointLocation(3, mgl64.Vec3{300, 0, 50}, false)).To(Succeed())
			Expect(c.Model().InvalidatedSegments()).To(Equal([]int{2}))

			Expect(c.ResimulateInvalidated(true)).To(Succeed())
			after := c.Model()
			Expect(log.events).To(HaveLen(1))
			Expect(log.events[0].SimulatedSegments).To(Equal([]int{2}))
			Expect(positions(after.Segments[0])).To(Equal(positions(before.Segments[0])))
			Expect(positions(after.Segments[1])).To(Equal(positions(before.Segments[1])))
			Expect(after.Segments[2].Info.EndLocation).To(Equal(mgl64.Vec3{300, 0, 50}))
			Expect(c.PointLocation(3)).To(Equal(mgl64.Vec3{300, 0, 50}))
		})

		It("builds an appended span without touching the others", func() {
			Expect(c.AddPoint(4, guide.NewPoint(mgl64.Vec3{400, 0, 0}), false)).To(Succeed())
			Expect(c.Model().NumSegments()).To(Equal(4))
			Expect(c.Model().InvalidatedSegments()).To(Equal([]int{3}))

			Expect(c.UpdateAndRebuildModifiedSegments(true)).To(Succeed())
			Expect(c.Wait(ctx)).To(Succeed())
			Expect(log.events).To(HaveLen(1))
			Expect(log.events[0].SimulatedSegments).To(Equal([]int{3}))
		})

		It("invalidates everything when a point is removed", func() {
			Expect(c.RemovePoint(3, false)).To(Succeed())
			m := c.Model()
			Expect(m.NumSegments()).To(Equal(2))
			Expect(m.InvalidatedSegments()).To(Equal([]int{0, 1}))
			for i, seg := range m.Segments {
				Expect(seg.ID).To(Equal(i))
			}

			Expect(c.RemovePoint(1, true)).To(Succeed())
			Expect(c.Wait(ctx)).To(Succeed())
			m = c.Model()
			Expect(m.NumSegments()).To(Equal(1))
			Expect(m.HasInvalidatedSegments()).To(BeFalse())
			Expect(m.Segments[0].Info.EndLocation).To(Equal(mgl64.Vec3{200, 0, 0}))
		})

		It("joins spans when an anchor is released", func() {
			Expect(c.SetPointOptions(1, false, false, false)).To(Succeed())
			Expect(c.Model().InvalidatedSegments()).To(Equal([]int{0, 1}))

			Expect(c.ResimulateInvalidated(true)).To(Succeed())
			Expect(log.events).To(HaveLen(1))
			Expect(log.events[0].SimulatedSegments).To(Equal([]int{0, 1}))
			m := c.Model()
			Expect(m.Segments[0].Last().Free).To(BeTrue())
			Expect(m.Segments[0].Last().Position).To(Equal(m.Segments[1].First().Position))
		})

		It("rebuilds everything when the guide is replaced", func() {
			Expect(c.SetGuide(lineGuide(3, 10), false)).To(Succeed())
			m := c.Model()
			Expect(m.NumSegments()).To(Equal(2))
			Expect(m.InvalidatedSegments()).To(Equal([]int{0, 1}))
			Expect(c.Guide().NumPoints()).To(Equal(3))
		})

		It("rejects slack on a span that does not exist", func() {
			Expect(c.AddSlack(7, 10, true)).To(MatchError(ErrNoSegments))
		})

		It("measures the published model", func() {
			m := c.Metrics()
			Expect(m).To(HaveKey("sag"))
			Expect(m["length"]).To(BeNumerically("~", 300, 1))
		})

		It("reruns the guide deterministically in parallel", func() {
			runs, err := c.Ensemble(3).Run(ctx, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(runs).To(HaveLen(3))
			Expect(sim.Deterministic(runs)).To(BeTrue())
			Expect(runs[0].Result.SimulatedSegments).To(Equal([]int{0, 1, 2}))
		})
	})

	Context("when locked", func() {
		JustBeforeEach(func() { c.Lock() })

		It("ignores requests until unlocked", func() {
			Expect(c.Locked()).To(BeTrue())
			Expect(c.InvalidateAndResimulate(true)).To(Succeed())
			Expect(c.AddSlack(1, 50, true)).To(Succeed())
			Expect(c.IsRunning()).To(BeFalse())
			Expect(c.Model().HasInvalidatedSegments()).To(BeTrue())
			Expect(log.events).To(BeEmpty())

			c.Unlock()
			Expect(c.ResimulateInvalidated(true)).To(Succeed())
			Expect(c.Model().HasInvalidatedSegments()).To(BeFalse())
			Expect(log.events).To(HaveLen(1))
		})
	})

	Context("alone in a world", func() {
		BeforeEach(func() {
			g = lineGuide(2, 30)
			cfg.World = physics.NewWorld()
			cfg.Options.EnableCollision = true
			cfg.Options.EnableSelfCollision = false
		})

		It("does not collide with its own published chain", func() {
			Expect(c.InvalidateAndResimulate(true)).To(Succeed())
			Expect(c.published).NotTo(BeZero())
			Expect(log.events[0].HitComponents).To(BeEmpty())

			Expect(c.InvalidateAndResimulate(true)).To(Succeed())
			Expect(log.events).To(HaveLen(2))
			Expect(log.events[1].HitComponents).NotTo(ContainElement(c.published))
			Expect(log.events[1].CollisionHits).To(BeZero())
		})
	})

	Context("in realtime", func() {
		BeforeEach(func() { g = lineGuide(2, 20) })

		It("advances on Tick and hands back when the duration is reached", func() {
			Expect(c.SetRealtime(true)).To(Succeed())
			Expect(c.Realtime()).To(BeTrue())
			m := c.Model()
			Expect(m.HasInvalidatedSegments()).To(BeFalse())
			Expect(m.Segments[0].HasParticles()).To(BeTrue())
			Expect(m.Segments[0].SimulationTime).To(BeZero())

			Expect(c.Tick(0.001, 1)).To(Succeed())
			Expect(log.events).To(BeEmpty())

			Expect(c.Tick(0.01, 1)).To(Succeed())
			Expect(log.events).To(HaveLen(1))
			Expect(log.events[0].Realtime).To(BeTrue())
			Expect(c.Model().Segments[0].SimulationTime).To(BeNumerically(">", 0))

			for i := 0; i < 100 && c.Realtime(); i++ {
				Expect(c.Tick(0.01, 1)).To(Succeed())
			}
			Expect(c.Realtime()).To(BeFalse())
			Expect(c.Wait(ctx)).To(Succeed())
			Expect(c.Model().HasInvalidatedSegments()).To(BeFalse())
		})

		It("scales time by dilation", func() {
			Expect(c.SetRealtime(true)).To(Succeed())
			Expect(c.Tick(0.001, 5)).To(Succeed())
			Expect(log.events).To(HaveLen(1))
			Expect(log.events[0].SimulatedTime).To(BeNumerically("~", 0.003, 1e-9))
		})
	})
})
