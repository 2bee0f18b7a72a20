package models

import (
	"encoding/json"
	"strconv"

	"github.com/Juziorex/JPOProject/utils"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// Coordinate is a point in decimal degrees
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Station is one measuring station of the national monitoring network
type Station struct {
	ID             int      `json:"id"`
	Name           string   `json:"name"`
	Lat            float64  `json:"lat"`
	Lon            float64  `json:"lon"`
	CityName       string   `json:"cityName"`
	CommuneName    string   `json:"communeName"`
	DistrictName   string   `json:"districtName"`
	ProvinceName   string   `json:"provinceName"`
	AddressStreet  string   `json:"addressStreet,omitempty"`
	SavedToHistory bool     `json:"savedToHistory"`
	DistanceKm     *float64 `json:"distanceKm,omitempty"`
}

// rawStation mirrors one record of the station/findAll response. The API
// delivers coordinates as decimal strings and may null out any field.
type rawStation struct {
	ID          *int    `json:"id"`
	StationName string  `json:"stationName"`
	GegrLat     *string `json:"gegrLat"`
	GegrLon     *string `json:"gegrLon"`
	City        *struct {
		Name    string `json:"name"`
		Commune *struct {
			CommuneName  string `json:"communeName"`
			DistrictName string `json:"districtName"`
			ProvinceName string `json:"provinceName"`
		} `json:"commune"`
	} `json:"city"`
	AddressStreet string `json:"addressStreet"`
}

// ParseStations normalizes the station/findAll response body. Records with
// a missing id or an unparsable coordinate are dropped, never reported.
func ParseStations(raw []byte) ([]Station, error) {
	var records []rawStation
	if err := json.Unmarshal(raw, &records); err != nil {
		log.WithError(err).Error("Error unmarshalling station list response body:")
		return nil, err
	}

	stations := make([]Station, 0, len(records))
	for _, rec := range records {
		if rec.ID == nil || rec.GegrLat == nil || rec.GegrLon == nil {
			continue
		}
		lat, latErr := strconv.ParseFloat(*rec.GegrLat, 64)
		lon, lonErr := strconv.ParseFloat(*rec.GegrLon, 64)
		if latErr != nil || lonErr != nil {
			continue
		}
		station := Station{
			ID:   *rec.ID,
			Name: rec.StationName,
			Lat:  lat,
			Lon:  lon,
		}
		if rec.City != nil {
			station.CityName = rec.City.Name
			if rec.City.Commune != nil {
				station.CommuneName = rec.City.Commune.CommuneName
				station.DistrictName = rec.City.Commune.DistrictName
				station.ProvinceName = rec.City.Commune.ProvinceName
			}
		}
		station.AddressStreet = rec.AddressStreet
		stations = append(stations, station)
	}
	return stations, nil
}

// FilterStationsByCity keeps the stations whose city name matches exactly,
// case sensitively.
func FilterStationsByCity(stations []Station, city string) []Station {
	return lo.Filter(stations, func(s Station, _ int) bool {
		return s.CityName == city
	})
}

// NearestStation picks the single station closest to the given point and
// attaches its distance in kilometres. The scan is linear and the first
// minimum wins on exact ties. Returns false for an empty catalog.
func NearestStation(stations []Station, lat, lon float64) (Station, bool) {
	if len(stations) == 0 {
		return Station{}, false
	}
	closest := lo.MinBy(stations, func(a, b Station) bool {
		return utils.Distance(lat, lon, a.Lat, a.Lon) < utils.Distance(lat, lon, b.Lat, b.Lon)
	})
	dist := utils.Distance(lat, lon, closest.Lat, closest.Lon)
	closest.DistanceKm = &dist
	return closest, true
}
