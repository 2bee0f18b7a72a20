package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/Juziorex/JPOProject/clients"
	"github.com/Juziorex/JPOProject/config"
	"github.com/Juziorex/JPOProject/controllers"
	"github.com/Juziorex/JPOProject/models"
	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"
	log "github.com/sirupsen/logrus"
)

func init() {
	formatter := new(log.TextFormatter)
	formatter.TimestampFormat = time.RFC3339
	formatter.FullTimestamp = true

	log.SetFormatter(formatter)
	log.SetOutput(os.Stdout)
}

var splash = `
   ┏┳┓┏━┓┏━┓   ┏┳┓┏━┓┏┓╻╻╺┳╸┏━┓┏━┓
    ┃ ┣━┛┃ ┃   ┃┃┃┃ ┃┃┗┫┃ ┃ ┃ ┃┣┳┛
   ┗┛ ╹  ┗━┛   ╹ ╹┗━┛╹ ╹╹ ╹ ┗━┛╹┗╸
`

func main() {
	fmt.Printf(splash)

	history := models.NewHistoryStore(config.JPOMonitorConf.Server.HistoryFile)
	giosClient := clients.NewGiosServer().NewGiosClient()
	geocoder := clients.NewNominatimClient()

	session := models.NewSession(giosClient, giosClient, geocoder, history)
	session.Aggregator().OnUpdate = func(detail models.StationDetail) {
		log.WithFields(log.Fields{
			"StationID": detail.StationID, "Sensors": len(detail.Sensors)}).Info("Station details updated")
	}
	session.Aggregator().OnError = func(err error) {
		log.WithError(err).Error("Station detail request failed")
	}

	go func() {
		// Create a new scheduler keeping the station catalog warm
		s := gocron.NewScheduler(time.UTC)
		if !*config.SkipCatalogRefresh {
			log.WithFields(log.Fields{
				"CatalogRefreshCronExpression": config.JPOMonitorConf.API.CatalogRefreshCronExpression}).Info(
				"Station Catalog Refresh Cron Expression")
			_, err := s.Cron(config.JPOMonitorConf.API.CatalogRefreshCronExpression).Do(session.RefreshCatalog)
			if err != nil {
				log.WithError(err).Error("Error scheduling catalog refresh task:")
			}
			session.RefreshCatalog()
		}
		s.StartAsync()
	}()

	var wg sync.WaitGroup

	// Start the backend API gin server
	if !*config.DisableHTTPServer {
		wg.Add(1)
		go startAPIServer(&wg, session)
	}

	wg.Wait()
}

func startAPIServer(wg *sync.WaitGroup, session *models.Session) {
	defer wg.Done()
	router := gin.Default()
	api := router.Group("/api")
	{
		s := &controllers.SearchController{Session: session}
		api.GET("/stations", s.Stations)
		api.POST("/search/all", s.SearchAll)
		api.POST("/search/city", s.SearchByCity)
		api.POST("/search/nearest", s.SearchNearest)
		api.GET("/stations/:id/details", s.Details)
		api.GET("/details", s.CurrentDetails)

		h := &controllers.HistoryController{Session: session}
		api.GET("/history", h.History)
		api.POST("/history", h.Save)
		api.GET("/history/:index/show", h.Show)
		api.DELETE("/history/:index", h.Remove)
		api.DELETE("/history", h.Clear)
	}
	// Handle error response when a route is not defined
	router.NoRoute(func(c *gin.Context) {
		c.String(404, "Page Not Found!")
	})

	_ = router.Run(":" + fmt.Sprintf("%s", config.JPOMonitorConf.Server.Port))
}
