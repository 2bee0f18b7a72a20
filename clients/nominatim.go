package clients

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/Juziorex/JPOProject/config"
	"github.com/Juziorex/JPOProject/models"
	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

// Nominatim is a geocoding client resolving free-text addresses within
// one fixed country context.
type Nominatim struct {
	RestClient *resty.Client
	Country    string
}

func NewNominatimClient() *Nominatim {
	client := resty.New()
	client.SetBaseURL(strings.TrimSuffix(config.JPOMonitorConf.API.NominatimBaseURL, "/"))
	client.SetHeaders(map[string]string{
		"Accept":     "application/json",
		"User-Agent": "JPOMonitor/" + config.VERSION,
	})
	client.SetTimeout(time.Duration(config.JPOMonitorConf.Server.RequestTimeout) * time.Second)
	client.SetDisableWarn(true)
	return &Nominatim{
		RestClient: client,
		Country:    config.JPOMonitorConf.API.GeocodeCountry,
	}
}

type nominatimPlace struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Resolve geocodes an address and returns its coordinate. The second
// return value reports whether the address was found; provider errors
// and empty result sets both count as not found.
func (n *Nominatim) Resolve(address string) (models.Coordinate, bool) {
	resp, err := n.RestClient.R().
		SetQueryParams(map[string]string{
			"q":      address + ", " + n.Country,
			"format": "json",
			"limit":  "1",
		}).
		Get("/search")
	if err != nil {
		log.WithField("Address", address).WithError(err).Error("Geocoding request failed")
		return models.Coordinate{}, false
	}
	if resp.IsError() {
		log.WithFields(log.Fields{
			"Address": address, "Status": resp.StatusCode()}).Error("Geocoding request rejected")
		return models.Coordinate{}, false
	}

	var places []nominatimPlace
	if err := json.Unmarshal(resp.Body(), &places); err != nil {
		log.WithError(err).Error("Error unmarshalling geocoding response body:")
		return models.Coordinate{}, false
	}
	if len(places) == 0 {
		return models.Coordinate{}, false
	}

	lat, latErr := strconv.ParseFloat(places[0].Lat, 64)
	lon, lonErr := strconv.ParseFloat(places[0].Lon, 64)
	if latErr != nil || lonErr != nil {
		log.WithFields(log.Fields{
			"Lat": places[0].Lat, "Lon": places[0].Lon}).Error("Geocoding response has unparsable coordinates")
		return models.Coordinate{}, false
	}
	return models.Coordinate{Lat: lat, Lon: lon}, true
}
