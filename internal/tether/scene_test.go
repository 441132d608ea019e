package tether

import (
	"context"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/san-kum/tether/internal/guide"
	"github.com/san-kum/tether/internal/physics"
)

var _ = Describe("Scene", func() {
	var (
		scene *Scene
		t0    time.Time
	)

	BeforeEach(func() {
		scene = NewScene(nil, GinkgoLogr)
		t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	})

	AfterEach(func() {
		scene.Release()
	})

	It("orders older cables first", func() {
		late := scene.Add(lineGuide(3, 0), Config{Name: "late", Created: t0.Add(time.Second), Options: quickOptions()})
		early := scene.Add(lineGuide(3, 0), Config{Name: "early", Created: t0, Options: quickOptions()})

		Expect(early.ShouldSimulateBefore(late)).To(BeTrue())
		Expect(late.ShouldSimulateBefore(early)).To(BeFalse())
		Expect(scene.Ordered()).To(Equal([]*Cable{early, late}))
	})

	It("breaks ties on the name hash", func() {
		a := scene.Add(lineGuide(2, 0), Config{Name: "a", Created: t0, Options: quickOptions()})
		b := scene.Add(lineGuide(2, 0), Config{Name: "b", Created: t0, Options: quickOptions()})

		Expect(a.ShouldSimulateBefore(b)).To(Equal(nameHash("a") < nameHash("b")))
		Expect(a.ShouldSimulateBefore(b)).NotTo(Equal(b.ShouldSimulateBefore(a)))
		Expect(a.ShouldSimulateBefore(a)).To(BeFalse())
	})

	It("makes earlier cables ignore later ones", func() {
		first := scene.Add(lineGuide(2, 0), Config{Name: "first", Created: t0, Options: quickOptions()})
		second := scene.Add(lineGuide(2, 0), Config{Name: "second", Created: t0.Add(time.Minute), Options: quickOptions()})

		Expect(first.ignore.Actors).To(ConsistOf(second.actor))
		Expect(second.ignore.Actors).To(BeEmpty())
		Expect(first.ignore.Components).To(ConsistOf(second.selfComponent))
		Expect(second.ignore.Components).To(ConsistOf(first.selfComponent))

		found, ok := scene.Cable("second")
		Expect(ok).To(BeTrue())
		Expect(found).To(BeIdenticalTo(second))
		_, ok = scene.Cable("missing")
		Expect(ok).To(BeFalse())
	})

	It("simulates every cable and publishes the results", func() {
		for i, name := range []string{"x", "y", "z"} {
			scene.Add(lineGuide(3, 20), Config{Name: name, Created: t0.Add(time.Duration(i) * time.Second), Options: quickOptions()})
		}
		Expect(scene.SimulateAll(context.Background(), false)).To(Succeed())

		for _, c := range scene.Cables() {
			Expect(c.State()).To(Equal(Idle))
			Expect(c.Model().HasInvalidatedSegments()).To(BeFalse())
			points, ok := scene.World().CablePoints(c.published)
			Expect(ok).To(BeTrue())
			Expect(points).To(Equal(c.ParticleLocations()))
		}
		Expect(scene.World().NumColliders()).To(Equal(3))

		scene.Release()
		Expect(scene.World().NumColliders()).To(BeZero())
	})

	It("stops when the context is cancelled", func() {
		scene.Add(lineGuide(2, 0), Config{Name: "only", Options: quickOptions()})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		Expect(scene.SimulateAll(ctx, true)).To(MatchError(context.Canceled))
	})

	It("rests a cable on a floor", func() {
		scene.World().AddPlane(physics.Plane{Normal: mgl64.Vec3{0, 0, 1}, Point: mgl64.Vec3{0, 0, -30}}, physics.ColliderOptions{})

		opts := quickOptions()
		opts.SimulationDuration = 0.5
		opts.EnableCollision = true
		opts.EnableSelfCollision = false

		g := guide.New(
			guide.NewPoint(mgl64.Vec3{0, 0, 0}),
			guide.NewPoint(mgl64.Vec3{300, 0, 0}),
		)
		Expect(g.AddSlack(0, 200)).To(Succeed())

		c := scene.Add(g, Config{Name: "draped", Options: opts})
		hits := 0
		c.Subscribe(func(e Event) { hits += e.CollisionHits })
		Expect(scene.SimulateAll(context.Background(), true)).To(Succeed())

		Expect(hits).To(BeNumerically(">", 0))
		for _, p := range c.ParticleLocations() {
			Expect(p.Z()).To(BeNumerically(">", -30))
		}
	})
})
