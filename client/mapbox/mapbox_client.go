package mapbox

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	"hrx/common"
	"hrx/geo"

	"github.com/sirupsen/logrus"
)

const geocodingEndpoint = "https://api.mapbox.com/geocoding/v5/mapbox.places"

var (
	GeocodeFunc           = Geocode
	GeocodeBestEffortFunc = GeocodeBestEffort

	accessToken string
)

// Bootstrap fails fast when the mapping provider env is missing.
func Bootstrap() error {
	accessToken = os.Getenv("MAPBOX_ACCESS_TOKEN")
	if accessToken == "" {
		return fmt.Errorf("environment variable MAPBOX_ACCESS_TOKEN is not set")
	}
	return nil
}

func Enabled() bool {
	return accessToken != ""
}

// GeocodeBestEffort resolves an address, returning ok false when the
// provider is not configured or the lookup fails. Callers keep going
// without coordinates in that case.
func GeocodeBestEffort(address string) (geo.Coordinates, bool) {
	if !Enabled() {
		return geo.Coordinates{}, false
	}
	coords, err := GeocodeFunc(address)
	if err != nil {
		logrus.Warnf("geocode %q failed: %v", address, err)
		return geo.Coordinates{}, false
	}
	return coords, true
}

type geocodingResponse struct {
	Features []struct {
		Center    []float64 `json:"center"`
		PlaceName string    `json:"place_name"`
		Relevance float64   `json:"relevance"`
	} `json:"features"`
}

// Geocode resolves a free-form Brazilian address to coordinates. The
// first (most relevant) feature wins.
func Geocode(address string) (geo.Coordinates, error) {
	endpoint := fmt.Sprintf("%s/%s.json?access_token=%s&country=BR&limit=1",
		geocodingEndpoint, url.PathEscape(address), url.QueryEscape(accessToken))

	respBody, err := common.HttpInvokeJson("GET", endpoint, nil, "")
	if err != nil {
		return geo.Coordinates{}, err
	}

	resp := geocodingResponse{}
	if err := json.Unmarshal([]byte(respBody), &resp); err != nil {
		return geo.Coordinates{}, err
	}
	if len(resp.Features) == 0 || len(resp.Features[0].Center) < 2 {
		return geo.Coordinates{}, fmt.Errorf("no geocoding result for %q", address)
	}

	// mapbox centers are [longitude, latitude]
	return geo.Coordinates{
		Latitude:  resp.Features[0].Center[1],
		Longitude: resp.Features[0].Center[0],
	}, nil
}
