package models

import (
	"encoding/json"

	"github.com/buger/jsonparser"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// Sensor is a single measured parameter at a station. Measurements stay
// nil until the sensor's data fetch completes.
type Sensor struct {
	ID           int           `json:"id"`
	ParamName    string        `json:"paramName"`
	ParamFormula string        `json:"paramFormula"`
	Measurements []Measurement `json:"measurements,omitempty"`
}

// Measurement is one reading of a sensor. The date is kept verbatim in
// the API's native timestamp format.
type Measurement struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// AirQualityIndex is the categorical severity level computed for a station
type AirQualityIndex struct {
	CalcDate  string `json:"calcDate"`
	LevelID   int    `json:"levelId"`
	LevelName string `json:"levelName"`
}

// StationDetail aggregates the sensors and index of one station. It is
// built incrementally while the detail sub-requests are in flight.
type StationDetail struct {
	StationID       int              `json:"stationId"`
	Sensors         []Sensor         `json:"sensors,omitempty"`
	AirQualityIndex *AirQualityIndex `json:"airQualityIndex,omitempty"`
}

type rawSensor struct {
	ID    int `json:"id"`
	Param struct {
		ParamName    string `json:"paramName"`
		ParamFormula string `json:"paramFormula"`
	} `json:"param"`
}

type rawMeasurement struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"` // pointer to handle null values
}

// ParseSensors normalizes the station/sensors response body
func ParseSensors(raw []byte) ([]Sensor, error) {
	var records []rawSensor
	if err := json.Unmarshal(raw, &records); err != nil {
		log.WithError(err).Error("Error unmarshalling sensor list response body:")
		return nil, err
	}
	return lo.Map(records, func(r rawSensor, _ int) Sensor {
		return Sensor{
			ID:           r.ID,
			ParamName:    r.Param.ParamName,
			ParamFormula: r.Param.ParamFormula,
		}
	}), nil
}

// ParseMeasurements extracts the series key and readings from a
// data/getData response. Null-valued readings are dropped; the rest keep
// the API's delivery order.
func ParseMeasurements(raw []byte) (string, []Measurement, error) {
	key, err := jsonparser.GetString(raw, "key")
	if err != nil {
		log.WithError(err).Error("json parser failed to get measurement key")
		return "", nil, err
	}
	v, _, _, err := jsonparser.Get(raw, "values")
	if err != nil {
		log.WithError(err).Error("json parser failed to get values key")
		return "", nil, err
	}
	var records []rawMeasurement
	if err := json.Unmarshal(v, &records); err != nil {
		log.WithError(err).Error("Error unmarshalling measurement values:")
		return "", nil, err
	}
	measurements := lo.FilterMap(records, func(r rawMeasurement, _ int) (Measurement, bool) {
		if r.Value == nil {
			return Measurement{}, false
		}
		return Measurement{Date: r.Date, Value: *r.Value}, true
	})
	return key, measurements, nil
}

// ParseAirQualityIndex builds an index record from an aqindex/getIndex
// response body.
func ParseAirQualityIndex(raw []byte) (*AirQualityIndex, error) {
	calcDate, err := jsonparser.GetString(raw, "stCalcDate")
	if err != nil {
		log.WithError(err).Error("json parser failed to get stCalcDate key")
		return nil, err
	}
	index := &AirQualityIndex{CalcDate: calcDate}
	if v, _, _, err := jsonparser.Get(raw, "stIndexLevel"); err == nil {
		var level struct {
			ID        int    `json:"id"`
			LevelName string `json:"indexLevelName"`
		}
		if err := json.Unmarshal(v, &level); err != nil {
			log.WithError(err).Error("Error unmarshalling index level:")
			return nil, err
		}
		index.LevelID = level.ID
		index.LevelName = level.LevelName
	}
	return index, nil
}
