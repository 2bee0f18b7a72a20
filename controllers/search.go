package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Juziorex/JPOProject/models"
	"github.com/gin-gonic/gin"
)

// SearchController exposes the station search operations of a session
type SearchController struct {
	Session *models.Session
}

type searchResponse struct {
	Result   string           `json:"result"`
	Stations []models.Station `json:"stations"`
}

// Stations returns the warm all-stations catalog
func (sc *SearchController) Stations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"stations": sc.Session.Catalog()})
}

// SearchAll runs an all-stations search
func (sc *SearchController) SearchAll(c *gin.Context) {
	err := sc.Session.SearchAll()
	sc.respond(c, err)
}

// SearchByCity runs a by-city search
func (sc *SearchController) SearchByCity(c *gin.Context) {
	var body struct {
		City string `json:"city" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := sc.Session.SearchByCity(body.City)
	sc.respond(c, err)
}

// SearchNearest geocodes an address and returns the nearest station
func (sc *SearchController) SearchNearest(c *gin.Context) {
	var body struct {
		Address string `json:"address" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := sc.Session.SearchNearest(body.Address)
	sc.respond(c, err)
}

// Details starts the detail fan-out for a station and returns the current
// detail record. Partial results surface on subsequent calls as the
// sub-responses land.
func (sc *SearchController) Details(c *gin.Context) {
	stationID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid station id"})
		return
	}
	sc.Session.OpenDetails(stationID)
	c.JSON(http.StatusOK, sc.Session.Detail())
}

// CurrentDetails returns the detail record being built without starting a
// new fetch.
func (sc *SearchController) CurrentDetails(c *gin.Context) {
	c.JSON(http.StatusOK, sc.Session.Detail())
}

func (sc *SearchController) respond(c *gin.Context, err error) {
	body := searchResponse{
		Result:   sc.Session.Result(),
		Stations: sc.Session.Stations(),
	}
	switch {
	case err == nil:
		c.JSON(http.StatusOK, body)
	case errors.Is(err, models.ErrCityNotFound), errors.Is(err, models.ErrLocationNotFound):
		c.JSON(http.StatusNotFound, body)
	default:
		c.JSON(http.StatusBadGateway, body)
	}
}
