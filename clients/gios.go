package clients

import (
	"fmt"
	"strings"
	"time"

	"github.com/Juziorex/JPOProject/config"
	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

// Server holds the connection details of a remote API
type Server struct {
	BaseUrl   string
	UserAgent string
}

// Client wraps a resty client bound to one API base URL
type Client struct {
	RestClient *resty.Client
	BaseURL    string
}

func NewGiosServer() *Server {
	return &Server{
		BaseUrl:   config.JPOMonitorConf.API.GIOSBaseURL,
		UserAgent: "JPOMonitor/" + config.VERSION,
	}
}

// NewGiosClient returns a client for the GIOS pjp-api REST endpoints
func (s *Server) NewGiosClient() *Client {
	client := resty.New()
	client.SetBaseURL(strings.TrimSuffix(s.BaseUrl, "/"))
	client.SetHeaders(map[string]string{
		"Accept":     "application/json",
		"User-Agent": s.UserAgent,
	})
	client.SetTimeout(time.Duration(config.JPOMonitorConf.Server.RequestTimeout) * time.Second)
	client.SetDisableWarn(true)
	return &Client{
		RestClient: client,
		BaseURL:    strings.TrimSuffix(s.BaseUrl, "/"),
	}
}

// GetResource performs a GET on resourcePath and returns the raw body
func (c *Client) GetResource(resourcePath string) ([]byte, error) {
	resp, err := c.RestClient.R().Get(resourcePath)
	if err != nil {
		log.WithFields(log.Fields{
			"Resource": resourcePath, "Error": err}).Error("Failed to get resource")
		return nil, err
	}
	if resp.IsError() {
		err = fmt.Errorf("GET %s returned status %d", resourcePath, resp.StatusCode())
		log.WithField("Resource", resourcePath).WithError(err).Error("Resource request failed")
		return nil, err
	}
	return resp.Body(), nil
}

// GetStations fetches the full measuring station list
func (c *Client) GetStations() ([]byte, error) {
	return c.GetResource("/station/findAll")
}

// GetSensors fetches the sensors installed at a station
func (c *Client) GetSensors(stationID int) ([]byte, error) {
	return c.GetResource(fmt.Sprintf("/station/sensors/%d", stationID))
}

// GetData fetches the measurement series of one sensor
func (c *Client) GetData(sensorID int) ([]byte, error) {
	return c.GetResource(fmt.Sprintf("/data/getData/%d", sensorID))
}

// GetIndex fetches the air quality index of a station
func (c *Client) GetIndex(stationID int) ([]byte, error) {
	return c.GetResource(fmt.Sprintf("/aqindex/getIndex/%d", stationID))
}
