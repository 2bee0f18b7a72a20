package models

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Juziorex/JPOProject/utils"
)

type fakeCatalog struct {
	body  []byte
	err   error
	calls int
}

func (f *fakeCatalog) GetStations() ([]byte, error) {
	f.calls++
	return f.body, f.err
}

type fakeGeocoder struct {
	coordinate Coordinate
	found      bool
	gotAddress string
}

func (f *fakeGeocoder) Resolve(address string) (Coordinate, bool) {
	f.gotAddress = address
	return f.coordinate, f.found
}

func newTestSession(t *testing.T, catalog *fakeCatalog, geocoder *fakeGeocoder) *Session {
	t.Helper()
	history := NewHistoryStore(filepath.Join(t.TempDir(), "history.json"))
	return NewSession(catalog, newTwoSensorAPI(), geocoder, history)
}

func TestSessionSearchAll(t *testing.T) {
	catalog := &fakeCatalog{body: []byte(stationListJSON)}
	session := newTestSession(t, catalog, &fakeGeocoder{})

	if err := session.SearchAll(); err != nil {
		t.Fatalf("SearchAll: %v", err)
	}
	if got := len(session.Stations()); got != 3 {
		t.Errorf("got %d stations; want the full list of 3", got)
	}
	if session.Result() != "" {
		t.Errorf("Result = %q; want empty", session.Result())
	}
}

func TestSessionSearchByCity(t *testing.T) {
	t.Run("keeps only the matching city", func(t *testing.T) {
		catalog := &fakeCatalog{body: []byte(stationListJSON)}
		session := newTestSession(t, catalog, &fakeGeocoder{})

		if err := session.SearchByCity("Warszawa"); err != nil {
			t.Fatalf("SearchByCity: %v", err)
		}
		stations := session.Stations()
		if len(stations) != 1 || stations[0].CityName != "Warszawa" {
			t.Fatalf("stations = %+v; want only Warszawa", stations)
		}
		if session.Result() != "" {
			t.Errorf("Result = %q; want empty", session.Result())
		}
	})

	t.Run("city without stations is not-found, not a transport error", func(t *testing.T) {
		catalog := &fakeCatalog{body: []byte(stationListJSON)}
		session := newTestSession(t, catalog, &fakeGeocoder{})

		err := session.SearchByCity("Poznań")
		if !errors.Is(err, ErrCityNotFound) {
			t.Fatalf("err = %v; want ErrCityNotFound", err)
		}
		if len(session.Stations()) != 0 {
			t.Errorf("stations = %v; want none", session.Stations())
		}
		if session.Result() != MsgNoStationsInCity+"Poznań" {
			t.Errorf("Result = %q", session.Result())
		}
	})

	t.Run("transport failure clears the catalog", func(t *testing.T) {
		catalog := &fakeCatalog{err: errors.New("dial tcp: timeout")}
		session := newTestSession(t, catalog, &fakeGeocoder{})

		err := session.SearchByCity("Warszawa")
		if !errors.Is(err, ErrNoConnection) {
			t.Fatalf("err = %v; want ErrNoConnection", err)
		}
		if session.Result() != MsgNoConnection {
			t.Errorf("Result = %q; want %q", session.Result(), MsgNoConnection)
		}
		if len(session.Stations()) != 0 {
			t.Errorf("stations = %v; want cleared", session.Stations())
		}
	})
}

func TestSessionSearchNearest(t *testing.T) {
	t.Run("singleton closest station with outcome message", func(t *testing.T) {
		catalog := &fakeCatalog{body: []byte(stationListJSON)}
		geocoder := &fakeGeocoder{coordinate: Coordinate{Lat: 52.2297, Lon: 21.0122}, found: true}
		session := newTestSession(t, catalog, geocoder)

		if err := session.SearchNearest("Warszawa, Marszałkowska 1"); err != nil {
			t.Fatalf("SearchNearest: %v", err)
		}
		if geocoder.gotAddress != "Warszawa, Marszałkowska 1" {
			t.Errorf("geocoded address = %q", geocoder.gotAddress)
		}

		stations := session.Stations()
		if len(stations) != 1 {
			t.Fatalf("stations = %+v; want a singleton", stations)
		}
		nearest := stations[0]
		if nearest.ID != 117 {
			t.Errorf("nearest = %d; want the Warszawa station 117", nearest.ID)
		}
		if nearest.DistanceKm == nil {
			t.Fatal("DistanceKm not attached")
		}
		wantDist := utils.Distance(52.2297, 21.0122, nearest.Lat, nearest.Lon)
		if *nearest.DistanceKm != wantDist {
			t.Errorf("DistanceKm = %v; want %v", *nearest.DistanceKm, wantDist)
		}
		want := fmt.Sprintf(MsgNearestStation, nearest.Name, wantDist)
		if session.Result() != want {
			t.Errorf("Result = %q; want %q", session.Result(), want)
		}

		if location, ok := session.UserLocation(); !ok || location.Lat != 52.2297 {
			t.Errorf("UserLocation = %v, %v", location, ok)
		}
		if session.UserAddress() != "Warszawa, Marszałkowska 1" {
			t.Errorf("UserAddress = %q", session.UserAddress())
		}
	})

	t.Run("unresolvable address is location-not-found", func(t *testing.T) {
		catalog := &fakeCatalog{body: []byte(stationListJSON)}
		session := newTestSession(t, catalog, &fakeGeocoder{found: false})

		err := session.SearchNearest("Atlantyda")
		if !errors.Is(err, ErrLocationNotFound) {
			t.Fatalf("err = %v; want ErrLocationNotFound", err)
		}
		if session.Result() != MsgLocationNotFound+"Atlantyda" {
			t.Errorf("Result = %q", session.Result())
		}
		if catalog.calls != 0 {
			t.Errorf("catalog fetched %d times despite failed geocoding", catalog.calls)
		}
	})
}

func TestSessionSearchResetsPriorState(t *testing.T) {
	catalog := &fakeCatalog{body: []byte(stationListJSON)}
	geocoder := &fakeGeocoder{coordinate: Coordinate{Lat: 50.06, Lon: 19.94}, found: true}
	session := newTestSession(t, catalog, geocoder)

	if err := session.SearchNearest("Kraków, Rynek Główny"); err != nil {
		t.Fatalf("SearchNearest: %v", err)
	}
	if _, ok := session.UserLocation(); !ok {
		t.Fatal("user location missing after nearest search")
	}

	if err := session.SearchByCity("Warszawa"); err != nil {
		t.Fatalf("SearchByCity: %v", err)
	}
	if _, ok := session.UserLocation(); ok {
		t.Error("user location survived a city search")
	}
	if session.UserAddress() != "" {
		t.Errorf("UserAddress = %q; want cleared", session.UserAddress())
	}
	if strings.Contains(session.Result(), "Najbliższa") {
		t.Errorf("Result = %q; nearest outcome bled through", session.Result())
	}
	stations := session.Stations()
	if len(stations) != 1 || stations[0].CityName != "Warszawa" {
		t.Errorf("stations = %+v", stations)
	}
}

func TestSessionSaveToHistory(t *testing.T) {
	catalog := &fakeCatalog{body: []byte(stationListJSON)}
	session := newTestSession(t, catalog, &fakeGeocoder{})

	if err := session.SearchByCity("Wrocław"); err != nil {
		t.Fatalf("SearchByCity: %v", err)
	}
	waitDone(t, session.OpenDetails(114))

	if err := session.SaveToHistory(114); err != nil {
		t.Fatalf("SaveToHistory: %v", err)
	}

	history := session.History()
	if len(history) != 1 {
		t.Fatalf("history = %+v; want one entry", history)
	}
	saved := history[0]
	if saved.ID != 114 || saved.CityName != "Wrocław" {
		t.Errorf("saved station = %+v", saved.Station)
	}
	if saved.AirQualityIndex == nil || saved.AirQualityIndex.LevelName != "Dobry" {
		t.Errorf("saved index = %+v", saved.AirQualityIndex)
	}
	if len(saved.Sensors) != 2 {
		t.Errorf("saved sensors = %+v", saved.Sensors)
	}
	if saved.Timestamp == "" {
		t.Error("timestamp missing")
	}
	if stations := session.Stations(); !stations[0].SavedToHistory {
		t.Error("station not flagged SavedToHistory")
	}

	t.Run("saving twice is a no-op", func(t *testing.T) {
		if err := session.SaveToHistory(114); err != nil {
			t.Fatalf("second SaveToHistory: %v", err)
		}
		if got := len(session.History()); got != 1 {
			t.Errorf("history length = %d; want still 1", got)
		}
	})

	t.Run("unknown station is ignored", func(t *testing.T) {
		if err := session.SaveToHistory(999); err != nil {
			t.Fatalf("SaveToHistory unknown: %v", err)
		}
		if got := len(session.History()); got != 1 {
			t.Errorf("history length = %d; want still 1", got)
		}
	})
}

func TestSessionShowFromHistory(t *testing.T) {
	catalog := &fakeCatalog{body: []byte(stationListJSON)}
	session := newTestSession(t, catalog, &fakeGeocoder{})

	if err := session.SearchByCity("Wrocław"); err != nil {
		t.Fatalf("SearchByCity: %v", err)
	}
	waitDone(t, session.OpenDetails(114))
	if err := session.SaveToHistory(114); err != nil {
		t.Fatalf("SaveToHistory: %v", err)
	}

	session.ShowFromHistory(0)

	if !session.IsFromHistory() {
		t.Error("IsFromHistory = false after showing a saved entry")
	}
	stations := session.Stations()
	if len(stations) != 1 || stations[0].ID != 114 || !stations[0].SavedToHistory {
		t.Errorf("stations = %+v", stations)
	}
	detail := session.Detail()
	if detail.StationID != 114 || len(detail.Sensors) != 2 || detail.AirQualityIndex == nil {
		t.Errorf("detail = %+v", detail)
	}

	t.Run("out of range is a no-op", func(t *testing.T) {
		session.ShowFromHistory(42)
		if !session.IsFromHistory() {
			t.Error("state clobbered by out-of-range index")
		}
	})

	t.Run("a new search leaves history mode", func(t *testing.T) {
		if err := session.SearchAll(); err != nil {
			t.Fatalf("SearchAll: %v", err)
		}
		if session.IsFromHistory() {
			t.Error("IsFromHistory still true after a fresh search")
		}
	})
}

func TestSessionRefreshCatalog(t *testing.T) {
	catalog := &fakeCatalog{body: []byte(stationListJSON)}
	session := newTestSession(t, catalog, &fakeGeocoder{})

	if got := len(session.Catalog()); got != 0 {
		t.Fatalf("catalog warm before refresh: %d", got)
	}
	session.RefreshCatalog()
	if got := len(session.Catalog()); got != 3 {
		t.Errorf("catalog = %d stations; want 3", got)
	}

	// a failed refresh keeps the previous cache
	catalog.err = errors.New("dial tcp: timeout")
	session.RefreshCatalog()
	if got := len(session.Catalog()); got != 3 {
		t.Errorf("catalog = %d stations after failed refresh; want 3", got)
	}
}
