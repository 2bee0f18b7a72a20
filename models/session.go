package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// CatalogAPI is the surface of the upstream API needed for station
// catalog searches.
type CatalogAPI interface {
	GetStations() ([]byte, error)
}

// Geocoder resolves a free-text address to a coordinate. The boolean
// reports whether the address was found.
type Geocoder interface {
	Resolve(address string) (Coordinate, bool)
}

// Outcome messages surfaced to the presentation layer
const (
	MsgNoConnection     = "Brak połączenia z internetem/bazą danych"
	MsgNoStationsInCity = "Nie znaleziono stacji w miejscowości "
	MsgLocationNotFound = "Nie znaleziono lokalizacji: "
	MsgNearestStation   = "Najbliższa stacja: %s, Odległość: %.2f km"
)

var (
	ErrNoConnection     = errors.New("no connection to the measurement API")
	ErrCityNotFound     = errors.New("no stations found in city")
	ErrLocationNotFound = errors.New("location not found")
)

// Session holds the state of one user-facing search session: the current
// outcome message, station list, user location, detail record and history
// cache. All API sub-responses are routed through it.
type Session struct {
	catalog    CatalogAPI
	geocoder   Geocoder
	aggregator *DetailAggregator
	history    *HistoryStore

	mu            sync.Mutex
	query         string
	result        string
	stations      []Station
	userLocation  *Coordinate
	userAddress   string
	fromHistory   bool
	historyDetail *StationDetail
	catalogCache  []Station
}

func NewSession(catalog CatalogAPI, detail DetailAPI, geocoder Geocoder, history *HistoryStore) *Session {
	return &Session{
		catalog:    catalog,
		geocoder:   geocoder,
		aggregator: NewDetailAggregator(detail),
		history:    history,
	}
}

// resetLocked clears the per-search state so that no mode bleeds into the
// next search.
func (s *Session) resetLocked() {
	s.query = ""
	s.result = ""
	s.stations = nil
	s.userLocation = nil
	s.userAddress = ""
	s.fromHistory = false
	s.historyDetail = nil
}

// SearchAll fetches and lists every station of the monitoring network
func (s *Session) SearchAll() error {
	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()
	return s.runSearch()
}

// SearchByCity fetches stations and keeps those in the named city. A city
// without stations yields ErrCityNotFound and a dedicated outcome message,
// never a connectivity failure.
func (s *Session) SearchByCity(city string) error {
	s.mu.Lock()
	s.resetLocked()
	s.query = city
	s.mu.Unlock()
	return s.runSearch()
}

// SearchNearest geocodes an address and keeps the single station closest
// to it. An unresolvable address yields ErrLocationNotFound.
func (s *Session) SearchNearest(address string) error {
	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()

	coordinate, found := s.geocoder.Resolve(address)

	s.mu.Lock()
	if !found {
		s.result = MsgLocationNotFound + address
		s.mu.Unlock()
		return ErrLocationNotFound
	}
	s.userLocation = &coordinate
	s.userAddress = address
	s.query = strconv.FormatFloat(coordinate.Lat, 'f', -1, 64) + " " +
		strconv.FormatFloat(coordinate.Lon, 'f', -1, 64)
	s.mu.Unlock()
	return s.runSearch()
}

// runSearch fetches the station list and applies the selection mode
// encoded in the stored query string.
func (s *Session) runSearch() error {
	raw, err := s.catalog.GetStations()
	if err != nil {
		s.mu.Lock()
		s.stations = nil
		s.result = MsgNoConnection
		s.mu.Unlock()
		return ErrNoConnection
	}
	stations, err := ParseStations(raw)
	if err != nil {
		s.mu.Lock()
		s.stations = nil
		s.result = MsgNoConnection
		s.mu.Unlock()
		return ErrNoConnection
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.query == "" {
		s.stations = stations
		return nil
	}

	if lat, lon, ok := parseCoordinateQuery(s.query); ok {
		nearest, found := NearestStation(stations, lat, lon)
		if !found {
			s.stations = nil
			return nil
		}
		s.stations = []Station{nearest}
		s.result = fmt.Sprintf(MsgNearestStation, nearest.Name, *nearest.DistanceKm)
		return nil
	}

	city := s.query
	filtered := FilterStationsByCity(stations, city)
	if len(filtered) == 0 {
		s.stations = nil
		s.result = MsgNoStationsInCity + city
		return ErrCityNotFound
	}
	s.stations = filtered
	s.result = ""
	return nil
}

// parseCoordinateQuery recognizes a "lat lon" query of two numeric tokens
func parseCoordinateQuery(query string) (float64, float64, bool) {
	tokens := strings.Split(query, " ")
	if len(tokens) != 2 {
		return 0, 0, false
	}
	lat, latErr := strconv.ParseFloat(tokens[0], 64)
	lon, lonErr := strconv.ParseFloat(tokens[1], 64)
	if latErr != nil || lonErr != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

// OpenDetails starts the detail fan-out for a station. The returned
// channel closes once every sub-request has completed; partial results
// are visible through Detail before that.
func (s *Session) OpenDetails(stationID int) <-chan struct{} {
	s.mu.Lock()
	s.historyDetail = nil
	s.fromHistory = false
	s.mu.Unlock()
	return s.aggregator.Fetch(stationID)
}

// Detail returns the current detail record: the live aggregate, or the
// saved snapshot when a history entry is displayed.
func (s *Session) Detail() StationDetail {
	s.mu.Lock()
	if s.historyDetail != nil {
		detail := *s.historyDetail
		s.mu.Unlock()
		return detail
	}
	s.mu.Unlock()
	return s.aggregator.Detail()
}

// SaveToHistory snapshots the listed station with the current detail data
// and prepends it to the persisted history. A station already saved is
// left alone.
func (s *Session) SaveToHistory(stationID int) error {
	s.mu.Lock()
	index := -1
	for i := range s.stations {
		if s.stations[i].ID == stationID {
			index = i
			break
		}
	}
	if index == -1 {
		s.mu.Unlock()
		return nil
	}
	if s.stations[index].SavedToHistory {
		s.mu.Unlock()
		return nil
	}
	station := s.stations[index]
	s.mu.Unlock()

	detail := s.Detail()
	entry := HistoryEntry{
		Station:         station,
		AirQualityIndex: detail.AirQualityIndex,
		Sensors:         detail.Sensors,
		Timestamp:       time.Now().Format(time.RFC3339),
	}
	if err := s.history.Prepend(entry); err != nil {
		return err
	}

	s.mu.Lock()
	if index < len(s.stations) && s.stations[index].ID == stationID {
		s.stations[index].SavedToHistory = true
	}
	s.mu.Unlock()
	return nil
}

// SaveCurrentToHistory saves the station whose details are displayed
func (s *Session) SaveCurrentToHistory() error {
	return s.SaveToHistory(s.Detail().StationID)
}

// ShowFromHistory replaces the current station list and detail record
// with the saved snapshot at index. An out-of-range index is a no-op.
func (s *Session) ShowFromHistory(index int) {
	entry, ok := s.history.At(index)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	station := entry.Station
	station.SavedToHistory = true
	s.stations = []Station{station}
	s.userLocation = nil
	s.userAddress = ""
	s.historyDetail = &StationDetail{
		StationID:       entry.ID,
		Sensors:         entry.Sensors,
		AirQualityIndex: entry.AirQualityIndex,
	}
	s.fromHistory = true
}

// RemoveFromHistory deletes the saved entry at index
func (s *Session) RemoveFromHistory(index int) error {
	return s.history.RemoveAt(index)
}

// ClearHistory deletes every saved entry
func (s *Session) ClearHistory() error {
	return s.history.Clear()
}

// History returns the saved entries, newest first
func (s *Session) History() []HistoryEntry {
	return s.history.Entries()
}

// StationsInHistoryForCity returns the latest saved entry per station for
// a city, matched case-insensitively.
func (s *Session) StationsInHistoryForCity(city string) []HistoryEntry {
	return s.history.EntriesForCity(city)
}

// RefreshCatalog re-fetches the normalized all-stations list into the
// warm cache served to the presentation layer. Search state is untouched.
func (s *Session) RefreshCatalog() {
	raw, err := s.catalog.GetStations()
	if err != nil {
		log.WithError(err).Error("Failed to refresh station catalog")
		return
	}
	stations, err := ParseStations(raw)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.catalogCache = stations
	s.mu.Unlock()
	log.WithField("Stations", len(stations)).Info("Refreshed station catalog")
}

// Catalog returns the cached all-stations list
func (s *Session) Catalog() []Station {
	s.mu.Lock()
	defer s.mu.Unlock()
	catalog := make([]Station, len(s.catalogCache))
	copy(catalog, s.catalogCache)
	return catalog
}

// Result returns the current outcome message
func (s *Session) Result() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Stations returns the current search result list
func (s *Session) Stations() []Station {
	s.mu.Lock()
	defer s.mu.Unlock()
	stations := make([]Station, len(s.stations))
	copy(stations, s.stations)
	return stations
}

// UserLocation returns the coordinate resolved for the last nearest-mode
// search, if any.
func (s *Session) UserLocation() (Coordinate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userLocation == nil {
		return Coordinate{}, false
	}
	return *s.userLocation, true
}

// UserAddress returns the address given to the last nearest-mode search
func (s *Session) UserAddress() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userAddress
}

// IsFromHistory reports whether the displayed station came from history
// rather than a live fetch.
func (s *Session) IsFromHistory() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fromHistory
}

// Aggregator exposes the detail aggregator for wiring update callbacks
func (s *Session) Aggregator() *DetailAggregator {
	return s.aggregator
}
