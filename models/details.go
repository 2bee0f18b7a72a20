package models

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// DetailAPI is the surface of the upstream API needed for one station's
// detail fan-out.
type DetailAPI interface {
	GetSensors(stationID int) ([]byte, error)
	GetData(sensorID int) ([]byte, error)
	GetIndex(stationID int) ([]byte, error)
}

// DetailAggregator coordinates the detail sub-requests of one station:
// the sensor list, one measurement series per sensor, and the air quality
// index. Partial results are merged into a single detail record as they
// arrive. Each call to Fetch starts a new generation; sub-responses of a
// superseded generation are discarded instead of mutating the current
// record.
type DetailAggregator struct {
	api DetailAPI

	mu         sync.Mutex
	generation int
	pending    int
	detail     StationDetail
	done       chan struct{}

	// OnUpdate receives a snapshot after every merge. OnError is called
	// once per failed sub-request. Both may be nil and must not call back
	// into the aggregator.
	OnUpdate func(StationDetail)
	OnError  func(error)
}

func NewDetailAggregator(api DetailAPI) *DetailAggregator {
	return &DetailAggregator{api: api}
}

// Fetch discards any previous detail record and starts the fan-out for
// stationID: the sensor list request and the index request run
// concurrently, and the sensor list spawns one measurement request per
// sensor. The returned channel closes once every sub-request of this
// fetch has completed, success or failure.
func (a *DetailAggregator) Fetch(stationID int) <-chan struct{} {
	a.mu.Lock()
	a.generation++
	gen := a.generation
	a.detail = StationDetail{StationID: stationID}
	a.pending = 2
	a.done = make(chan struct{})
	done := a.done
	a.mu.Unlock()

	go a.fetchSensors(gen, stationID)
	go a.fetchIndex(gen, stationID)
	return done
}

// Detail returns a copy of the current detail record
func (a *DetailAggregator) Detail() StationDetail {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *DetailAggregator) snapshotLocked() StationDetail {
	snapshot := a.detail
	snapshot.Sensors = make([]Sensor, len(a.detail.Sensors))
	copy(snapshot.Sensors, a.detail.Sensors)
	if a.detail.AirQualityIndex != nil {
		index := *a.detail.AirQualityIndex
		snapshot.AirQualityIndex = &index
	}
	return snapshot
}

func (a *DetailAggregator) fetchSensors(gen, stationID int) {
	raw, err := a.api.GetSensors(stationID)
	if err != nil {
		a.fail(gen, err)
		return
	}
	sensors, err := ParseSensors(raw)
	if err != nil {
		a.fail(gen, err)
		return
	}

	a.mu.Lock()
	if gen != a.generation {
		a.mu.Unlock()
		return
	}
	// The per-sensor requests are accounted for before this request's own
	// completion so the counter never transiently reaches zero mid-step.
	a.pending += len(sensors)
	a.detail.Sensors = sensors
	a.mu.Unlock()

	for _, sensor := range sensors {
		go a.fetchData(gen, sensor.ID)
	}
	a.finish(gen)
}

func (a *DetailAggregator) fetchData(gen, sensorID int) {
	raw, err := a.api.GetData(sensorID)
	if err != nil {
		a.fail(gen, err)
		return
	}
	key, measurements, err := ParseMeasurements(raw)
	if err != nil {
		a.fail(gen, err)
		return
	}

	a.mu.Lock()
	if gen != a.generation {
		a.mu.Unlock()
		return
	}
	for i := range a.detail.Sensors {
		if a.detail.Sensors[i].ParamFormula == key {
			a.detail.Sensors[i].Measurements = measurements
			break
		}
	}
	snapshot := a.snapshotLocked()
	a.mu.Unlock()

	a.notify(snapshot)
	a.finish(gen)
}

func (a *DetailAggregator) fetchIndex(gen, stationID int) {
	raw, err := a.api.GetIndex(stationID)
	if err != nil {
		a.fail(gen, err)
		return
	}
	index, err := ParseAirQualityIndex(raw)
	if err != nil {
		a.fail(gen, err)
		return
	}

	a.mu.Lock()
	if gen != a.generation {
		a.mu.Unlock()
		return
	}
	a.detail.AirQualityIndex = index
	snapshot := a.snapshotLocked()
	a.mu.Unlock()

	a.notify(snapshot)
	a.finish(gen)
}

func (a *DetailAggregator) notify(snapshot StationDetail) {
	if a.OnUpdate != nil {
		a.OnUpdate(snapshot)
	}
}

// fail surfaces a sub-request failure and still counts the attempt as
// completed. The detail record keeps its last known good partial state.
func (a *DetailAggregator) fail(gen int, err error) {
	log.WithError(err).Error("Station detail sub-request failed")
	if a.OnError != nil {
		a.OnError(err)
	}
	a.finish(gen)
}

// finish decrements the pending counter of the given generation, exactly
// once per completed sub-request
func (a *DetailAggregator) finish(gen int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if gen != a.generation {
		return
	}
	a.pending--
	if a.pending == 0 {
		close(a.done)
	}
}
