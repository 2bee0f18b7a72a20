package models

import (
	"encoding/json"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// HistoryEntry is a station snapshot captured at save time, together with
// the detail data and an ISO-8601 timestamp.
type HistoryEntry struct {
	Station
	AirQualityIndex *AirQualityIndex `json:"airQualityIndex,omitempty"`
	Sensors         []Sensor         `json:"sensors,omitempty"`
	Timestamp       string           `json:"timestamp"`
}

// HistoryStore persists the search history as a single JSON array,
// newest entry first. The file is read in full and rewritten in full on
// every mutation under a single-writer assumption.
type HistoryStore struct {
	path string

	mu      sync.Mutex
	entries []HistoryEntry
}

// NewHistoryStore opens the store at path and loads whatever history it
// holds. A missing or unreadable file yields an empty history.
func NewHistoryStore(path string) *HistoryStore {
	s := &HistoryStore{path: path}
	s.Load()
	return s
}

// Load reloads the in-memory cache from the file
func (s *HistoryStore) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.WithField("File", s.path).WithError(err).Info("Failed to read history file")
		}
		return
	}
	var entries []HistoryEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		log.WithField("File", s.path).WithError(err).Info("History file is not valid JSON, starting empty")
		return
	}
	s.entries = entries
}

// Entries returns a copy of the cached history, newest first
func (s *HistoryStore) Entries() []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]HistoryEntry, len(s.entries))
	copy(entries, s.entries)
	return entries
}

// At returns the entry at index
func (s *HistoryStore) At(index int) (HistoryEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.entries) {
		return HistoryEntry{}, false
	}
	return s.entries[index], true
}

// Len returns the number of cached entries
func (s *HistoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Prepend adds an entry at the front and persists the store
func (s *HistoryStore) Prepend(entry HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append([]HistoryEntry{entry}, s.entries...)
	return s.saveLocked()
}

// RemoveAt deletes the entry at index and persists the store. An
// out-of-range index is a silent no-op.
func (s *HistoryStore) RemoveAt(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.entries) {
		return nil
	}
	s.entries = append(s.entries[:index], s.entries[index+1:]...)
	return s.saveLocked()
}

// Clear empties the history and persists the store
func (s *HistoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return s.saveLocked()
}

// EntriesForCity returns the history entries for a city, keeping only the
// most recently saved entry per station. City matching is
// case-insensitive and exact; ordering across distinct stations is
// unspecified.
func (s *HistoryStore) EntriesForCity(city string) []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	latest := make(map[int]HistoryEntry)
	for _, entry := range s.entries {
		if !strings.EqualFold(entry.CityName, city) {
			continue
		}
		current, ok := latest[entry.ID]
		if !ok || newerTimestamp(entry.Timestamp, current.Timestamp) {
			latest[entry.ID] = entry
		}
	}
	return lo.Values(latest)
}

func (s *HistoryStore) saveLocked() error {
	entries := s.entries
	if entries == nil {
		entries = []HistoryEntry{}
	}
	raw, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		log.WithError(err).Error("Failed to marshal history")
		return err
	}
	if err := os.WriteFile(s.path, raw, 0644); err != nil {
		log.WithField("File", s.path).WithError(err).Error("Failed to write history file")
		return err
	}
	return nil
}

// newerTimestamp reports whether candidate is a strictly later ISO-8601
// instant than current. An unparsable timestamp loses any comparison.
func newerTimestamp(candidate, current string) bool {
	candidateTime, err := time.Parse(time.RFC3339, candidate)
	if err != nil {
		return false
	}
	currentTime, err := time.Parse(time.RFC3339, current)
	if err != nil {
		return true
	}
	return candidateTime.After(currentTime)
}
