package controllers

import (
	"net/http"
	"strconv"

	"github.com/Juziorex/JPOProject/models"
	"github.com/gin-gonic/gin"
)

// HistoryController exposes the persisted search history of a session
type HistoryController struct {
	Session *models.Session
}

// History lists the saved entries, newest first. With a ?city= query it
// returns the latest saved entry per station for that city instead.
func (hc *HistoryController) History(c *gin.Context) {
	if city := c.Query("city"); city != "" {
		entries := hc.Session.StationsInHistoryForCity(city)
		if entries == nil {
			entries = []models.HistoryEntry{}
		}
		c.JSON(http.StatusOK, gin.H{"history": entries})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": hc.Session.History()})
}

// Save snapshots a listed station with its current detail data
func (hc *HistoryController) Save(c *gin.Context) {
	var body struct {
		StationID int `json:"stationId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := hc.Session.SaveToHistory(body.StationID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": hc.Session.History()})
}

// Show replaces the session's current station and detail record with a
// saved entry.
func (hc *HistoryController) Show(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid history index"})
		return
	}
	hc.Session.ShowFromHistory(index)
	c.JSON(http.StatusOK, gin.H{
		"stations":    hc.Session.Stations(),
		"detail":      hc.Session.Detail(),
		"fromHistory": hc.Session.IsFromHistory(),
	})
}

// Remove deletes a saved entry; out-of-range indexes are ignored
func (hc *HistoryController) Remove(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid history index"})
		return
	}
	if err := hc.Session.RemoveFromHistory(index); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": hc.Session.History()})
}

// Clear deletes every saved entry
func (hc *HistoryController) Clear(c *gin.Context) {
	if err := hc.Session.ClearHistory(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": hc.Session.History()})
}
