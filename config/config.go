package config

import (
	goflag "flag"
	"fmt"
	"os"
	"runtime"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
)

// JPOMonitorConf is the global conf
var JPOMonitorConf Config
var DisableHTTPServer *bool
var SkipCatalogRefresh *bool
var HistoryFile *string
var ShowVersion *bool

const VERSION = "1.0.0"

func init() {
	// ./jpo-monitor --config-file /etc/jpo-monitor/jpod.yml
	var configFilePath, configDir string
	currentOS := runtime.GOOS
	switch currentOS {
	case "windows":
		configDir = "C:\\ProgramData\\JPOMonitor"
		configFilePath = "C:\\ProgramData\\JPOMonitor\\jpod.yml"
	case "darwin", "linux":
		configFilePath = "/etc/jpo-monitor/jpod.yml"
		configDir = "/etc/jpo-monitor/"
	default:
		fmt.Println("Unsupported operating system")
		return
	}

	configFile := flag.String("config-file", configFilePath,
		"The path to the configuration file of the application")

	DisableHTTPServer = flag.Bool("disable-http-server", false, "Whether to disable HTTP Server")
	SkipCatalogRefresh = flag.Bool("skip-catalog-refresh", false, "Whether to skip the periodic station catalog refresh")
	HistoryFile = flag.String("history-file", "", "Path to the search history file. Overrides configuration")
	ShowVersion = flag.Bool("version", false, "Display version of JPO Monitor")

	flag.CommandLine.AddGoFlagSet(goflag.CommandLine)
	flag.CommandLine.ParseErrorsWhitelist.UnknownFlags = true
	flag.Parse()
	if *ShowVersion {
		fmt.Println("JPO Monitor: ", VERSION)
		os.Exit(1)
	}

	viper.SetConfigName("jpod")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)

	if len(*configFile) > 0 {
		viper.SetConfigFile(*configFile)
	}

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(*configFile); os.IsNotExist(statErr) {
			// The app is usable with built-in defaults
			log.WithField("File", *configFile).Info("Configuration file not found, using defaults")
		} else {
			log.Fatalf("Error Reading Config: %v", err)
		}
	} else {
		viper.OnConfigChange(func(e fsnotify.Event) {
			fmt.Println("Config file changed:", e.Name)
			if err := viper.ReadInConfig(); err != nil {
				log.Fatalf("unable to reread configuration into global conf: %v", err)
			}
			_ = viper.Unmarshal(&JPOMonitorConf)
		})
		viper.WatchConfig()
	}

	err := viper.Unmarshal(&JPOMonitorConf)
	if err != nil {
		log.Fatalf("unable to decode into struct, %v", err)
	}

	if len(*HistoryFile) > 0 {
		JPOMonitorConf.Server.HistoryFile = *HistoryFile
	}
}

func setDefaults() {
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.http_port", "9290")
	viper.SetDefault("server.history_file", "history.json")
	viper.SetDefault("server.request_timeout", 30)
	viper.SetDefault("api.gios_base_url", "https://api.gios.gov.pl/pjp-api/rest")
	viper.SetDefault("api.nominatim_base_url", "https://nominatim.openstreetmap.org")
	viper.SetDefault("api.geocode_country", "Polska")
	viper.SetDefault("api.catalog_refresh_cron_expression", "*/30 * * * *")
}

// Config is the top level cofiguration object
type Config struct {
	Server struct {
		Host           string `mapstructure:"host" env:"JPOMONITOR_HOST" env-default:"localhost"`
		Port           string `mapstructure:"http_port" env:"JPOMONITOR_SERVER_PORT" env-description:"Server port" env-default:"9290"`
		HistoryFile    string `mapstructure:"history_file" env:"JPOMONITOR_HISTORY_FILE" env-description:"The search history file" env-default:"history.json"`
		RequestTimeout int    `mapstructure:"request_timeout" env:"JPOMONITOR_REQUEST_TIMEOUT" env-description:"API request timeout in seconds" env-default:"30"`
	} `yaml:"server"`

	API struct {
		GIOSBaseURL                  string `mapstructure:"gios_base_url" env:"JPOMONITOR_GIOS_BASE_URL" env-description:"The GIOS pjp-api base URL"`
		NominatimBaseURL             string `mapstructure:"nominatim_base_url" env:"JPOMONITOR_NOMINATIM_BASE_URL" env-description:"The Nominatim geocoding base URL"`
		GeocodeCountry               string `mapstructure:"geocode_country" env:"JPOMONITOR_GEOCODE_COUNTRY" env-description:"The country context appended to geocoding queries"`
		CatalogRefreshCronExpression string `mapstructure:"catalog_refresh_cron_expression" env:"JPOMONITOR_CATALOG_REFRESH_CRON_EXPRESSION" env-description:"The station catalog refresh Cron Expression" env-default:"*/30 * * * *"`
	} `yaml:"api"`
}
