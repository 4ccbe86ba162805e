package mapbox_test

import (
	"errors"
	"os"
	"testing"

	"hrx/client/mapbox"
	"hrx/geo"

	. "github.com/onsi/gomega"
)

func mapboxTestReset() {
	os.Unsetenv("MAPBOX_ACCESS_TOKEN")
	_ = mapbox.Bootstrap()
	mapbox.GeocodeFunc = mapbox.Geocode
}

func TestBootstrap(t *testing.T) {
	RegisterTestingT(t)

	t.Run("missing access token is an error", func(t *testing.T) {
		defer mapboxTestReset()
		os.Unsetenv("MAPBOX_ACCESS_TOKEN")

		Expect(mapbox.Bootstrap()).ToNot(BeNil())
		Expect(mapbox.Enabled()).To(BeFalse())
	})

	t.Run("token from env enables the client", func(t *testing.T) {
		defer mapboxTestReset()
		os.Setenv("MAPBOX_ACCESS_TOKEN", "pk.test")

		Expect(mapbox.Bootstrap()).To(BeNil())
		Expect(mapbox.Enabled()).To(BeTrue())
	})
}

func TestGeocodeBestEffort(t *testing.T) {
	RegisterTestingT(t)

	t.Run("disabled client yields no coordinates", func(t *testing.T) {
		defer mapboxTestReset()
		os.Unsetenv("MAPBOX_ACCESS_TOKEN")
		_ = mapbox.Bootstrap()

		_, ok := mapbox.GeocodeBestEffort("São Paulo - SP")
		Expect(ok).To(BeFalse())
	})

	t.Run("lookup failures never propagate", func(t *testing.T) {
		defer mapboxTestReset()
		os.Setenv("MAPBOX_ACCESS_TOKEN", "pk.test")
		Expect(mapbox.Bootstrap()).To(BeNil())
		mapbox.GeocodeFunc = func(address string) (geo.Coordinates, error) {
			return geo.Coordinates{}, errors.New("mapbox is down")
		}

		_, ok := mapbox.GeocodeBestEffort("São Paulo - SP")
		Expect(ok).To(BeFalse())
	})

	t.Run("successful lookup returns coordinates", func(t *testing.T) {
		defer mapboxTestReset()
		os.Setenv("MAPBOX_ACCESS_TOKEN", "pk.test")
		Expect(mapbox.Bootstrap()).To(BeNil())
		mapbox.GeocodeFunc = func(address string) (geo.Coordinates, error) {
			return geo.Coordinates{Latitude: -23.5505, Longitude: -46.6333}, nil
		}

		coords, ok := mapbox.GeocodeBestEffort("São Paulo - SP")
		Expect(ok).To(BeTrue())
		Expect(coords).To(Equal(geo.Coordinates{Latitude: -23.5505, Longitude: -46.6333}))
	})
}
