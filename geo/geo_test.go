package geo_test

import (
	"testing"

	"hrx/geo"

	. "github.com/onsi/gomega"
)

var (
	saoPaulo      = geo.Coordinates{Latitude: -23.5505, Longitude: -46.6333}
	rioDeJaneiro  = geo.Coordinates{Latitude: -22.9068, Longitude: -43.1729}
	campinas      = geo.Coordinates{Latitude: -22.9099, Longitude: -47.0626}
	beloHorizonte = geo.Coordinates{Latitude: -19.9167, Longitude: -43.9345}
)

func TestDistance(t *testing.T) {
	RegisterTestingT(t)

	t.Run("distance to self is zero", func(t *testing.T) {
		Expect(geo.Distance(saoPaulo, saoPaulo)).To(BeZero())
	})

	t.Run("should be symmetric", func(t *testing.T) {
		Expect(geo.Distance(saoPaulo, rioDeJaneiro)).To(Equal(geo.Distance(rioDeJaneiro, saoPaulo)))
	})

	t.Run("known city pairs", func(t *testing.T) {
		// about 360 km by great circle
		Expect(geo.Distance(saoPaulo, rioDeJaneiro)).To(BeNumerically("~", 360, 5))
		// about 88 km
		Expect(geo.Distance(saoPaulo, campinas)).To(BeNumerically("~", 88, 5))
	})
}

func TestBoxAround(t *testing.T) {
	RegisterTestingT(t)

	t.Run("box contains the center and points within the radius", func(t *testing.T) {
		box := geo.BoxAround(saoPaulo, 100)
		Expect(box.Contains(saoPaulo)).To(BeTrue())
		Expect(box.Contains(campinas)).To(BeTrue())
	})

	t.Run("box excludes points far outside the radius", func(t *testing.T) {
		box := geo.BoxAround(saoPaulo, 100)
		Expect(box.Contains(rioDeJaneiro)).To(BeFalse())
		Expect(box.Contains(beloHorizonte)).To(BeFalse())
	})

	t.Run("box is a superset of the exact radius", func(t *testing.T) {
		box := geo.BoxAround(saoPaulo, 50)
		for _, p := range []geo.Coordinates{rioDeJaneiro, campinas, beloHorizonte} {
			if geo.Distance(saoPaulo, p) <= 50 {
				Expect(box.Contains(p)).To(BeTrue())
			}
		}
	})

	t.Run("near the poles the longitude span degrades to the full circle", func(t *testing.T) {
		box := geo.BoxAround(geo.Coordinates{Latitude: 90, Longitude: 0}, 10)
		Expect(box.MinLongitude).To(Equal(-180.0))
		Expect(box.MaxLongitude).To(Equal(180.0))
	})
}
