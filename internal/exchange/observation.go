// observation.go is a thin client for the weather-observation endpoint. Per
// the transport design this is interface-only: the replay engine never
// consumes it; the engine's settlement check uses it to log a station's
// current reading next to the settlement price.
package exchange

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"wxarb/pkg/types"
)

// Observation is a single station reading.
type Observation struct {
	Station types.Station `json:"-"`
	Value   float64       `json:"value"`
	Unit    string        `json:"unit"`
	AsOf    string        `json:"asOf"`
}

// ObservationClient fetches the latest reading for a station.
type ObservationClient struct {
	http *resty.Client
}

// NewObservationClient builds a client against the weather-observation
// endpoint URL. An empty url means observations are unconfigured; Fetch
// then always returns an error.
func NewObservationClient(url string) *ObservationClient {
	return &ObservationClient{
		http: resty.New().
			SetBaseURL(url).
			SetTimeout(5 * time.Second),
	}
}

// Fetch retrieves the current reading for a station ID as used on the wire
// (66037, 66212, 70351).
func (c *ObservationClient) Fetch(ctx context.Context, stationID int) (Observation, error) {
	var obs Observation
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("stationId", fmt.Sprintf("%d", stationID)).
		SetResult(&obs).
		Get("")
	if err != nil {
		return Observation{}, fmt.Errorf("fetch observation: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return Observation{}, fmt.Errorf("fetch observation: status %d: %s", resp.StatusCode(), resp.String())
	}
	station, err := types.ParseStationID(stationID)
	if err != nil {
		return Observation{}, err
	}
	obs.Station = station
	return obs, nil
}
