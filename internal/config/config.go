package config

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/relabs-tech/sailing_computer/internal/controldata"
	"github.com/relabs-tech/sailing_computer/internal/guidance"
	"github.com/relabs-tech/sailing_computer/internal/navigation"
)

// DefaultPath is where the binaries look for their configuration.
const DefaultPath = "sailing_config.txt"

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker             string
	MQTTClientIDWX         string
	MQTTClientIDGPS        string
	MQTTClientIDController string
	MQTTClientIDConsole    string
	MQTTClientIDWeb        string
	MQTTClientIDMock       string

	// Topics
	TopicAttitude      string // attitude estimator output
	TopicWXAttitude    string // weather station roll/pitch/heading
	TopicWXMotion      string // weather station rates and accelerations
	TopicWind          string
	TopicGPSRaw        string
	TopicGPSFiltered   string
	TopicReference     string
	TopicParams        string
	TopicTackCompleted string
	TopicRacePosition  string
	TopicActuators     string
	TopicActuatorArmed string
	TopicGuidance      string
	TopicNotice        string

	// Weather station
	WXSerialPort   string
	WXBaudRate     int
	WXInitBaudRate int
	WXOutdoor      bool // GNSS, heading and true wind sentences enabled
	WXSkipInit     bool
	WXReadBuffer   int

	// GPS
	GPSSerialPort string
	GPSBaudRate   int

	// Control loop
	PollTimeout   time.Duration
	AlphaStarInit float64 // degrees

	// PI controller
	PIP           float64
	PII           float64
	PIKaw         float64
	PICp          float64
	PICi          float64
	PIConditional bool

	// Actuator limits and sail law
	RudderMax    float64
	SailMax      float64
	SailSectors  int
	SailOverride float64

	// Tack
	HelmRudder        float64
	HelmSail          float64
	TackRollStopRatio float64
	TackYawStopDeg    float64

	// Moving averages
	AvgWindowAlpha    int
	AvgWindowApparent int
	AvgWindowTWD      int

	// Navigation
	NavPrecision navigation.Precision
	CourseFile   string

	// Web Server / metrics
	WebServerPort   int
	WebPushInterval time.Duration
	MetricsListen   string

	// Mock attitude producer
	MockInterval time.Duration
	MockHeading  float64
	MockHeel     float64
}

// Package-level unexported variables for the singleton:
//   - globalConfig is only reachable through InitGlobal and Get.
//   - configOnce makes InitGlobal run once.
//   - configMu guards reads against the one-time initialization.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a Config with every optional value set.
func Default() *Config {
	g := guidance.DefaultConfig()
	w := controldata.DefaultWindows()
	return &Config{
		MQTTBroker:             "tcp://localhost:1883",
		MQTTClientIDWX:         "sailing-wx-producer",
		MQTTClientIDGPS:        "sailing-gps-producer",
		MQTTClientIDController: "sailing-controller",
		MQTTClientIDConsole:    "sailing-console",
		MQTTClientIDWeb:        "sailing-web",
		MQTTClientIDMock:       "sailing-attitude-mock",

		TopicAttitude:      "sailing/attitude",
		TopicWXAttitude:    "sailing/wx/attitude",
		TopicWXMotion:      "sailing/wx/motion",
		TopicWind:          "sailing/wind",
		TopicGPSRaw:        "sailing/gps/raw",
		TopicGPSFiltered:   "sailing/gps/filtered",
		TopicReference:     "sailing/reference",
		TopicParams:        "sailing/params",
		TopicTackCompleted: "sailing/tack_completed",
		TopicRacePosition:  "sailing/race_position",
		TopicActuators:     "sailing/actuators",
		TopicActuatorArmed: "sailing/actuators/armed",
		TopicGuidance:      "sailing/guidance",
		TopicNotice:        "sailing/notice",

		WXSerialPort:   "/dev/ttyUSB0",
		WXBaudRate:     38400,
		WXInitBaudRate: 4800,
		WXReadBuffer:   400,

		GPSSerialPort: "/dev/serial0",
		GPSBaudRate:   9600,

		PollTimeout:   time.Second,
		AlphaStarInit: 30,

		PIP:           g.Gains.P,
		PII:           g.Gains.I,
		PIKaw:         g.Gains.Kaw,
		PICp:          g.Gains.Cp,
		PICi:          g.Gains.Ci,
		PIConditional: g.Gains.Conditional,

		RudderMax:    g.RudderMax,
		SailMax:      g.SailMax,
		SailSectors:  g.SailSectors,
		SailOverride: g.SailOverride,

		HelmRudder:        g.Helmsman.Rudder,
		HelmSail:          g.Helmsman.Sail,
		TackRollStopRatio: g.Tack.RollStopRatio,
		TackYawStopDeg:    g.Tack.YawStop * 180 / math.Pi,

		AvgWindowAlpha:    w.Alpha,
		AvgWindowApparent: w.Apparent,
		AvgWindowTWD:      w.TWD,

		NavPrecision: navigation.PrecisionFixed,
		CourseFile:   "course.yaml",

		WebServerPort:   8080,
		WebPushInterval: 200 * time.Millisecond,

		MockInterval: 100 * time.Millisecond,
		MockHeading:  45,
		MockHeel:     12,
	}
}

// Load reads the configuration file and returns a Config struct. Keys not
// present in the file keep their defaults.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseFloat(key, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseInt(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseBool(key, value string) (bool, error) {
	v, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseMillis(key, value string) (time.Duration, error) {
	ms, err := parseInt(key, value)
	if err != nil {
		return 0, err
	}
	if ms <= 0 {
		return 0, fmt.Errorf("%s must be > 0 ms, got %d", key, ms)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_WX":
		c.MQTTClientIDWX = value
	case "MQTT_CLIENT_ID_GPS":
		c.MQTTClientIDGPS = value
	case "MQTT_CLIENT_ID_CONTROLLER":
		c.MQTTClientIDController = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_MOCK":
		c.MQTTClientIDMock = value

	// Topics
	case "TOPIC_ATTITUDE":
		c.TopicAttitude = value
	case "TOPIC_WX_ATTITUDE":
		c.TopicWXAttitude = value
	case "TOPIC_WX_MOTION":
		c.TopicWXMotion = value
	case "TOPIC_WIND":
		c.TopicWind = value
	case "TOPIC_GPS_RAW":
		c.TopicGPSRaw = value
	case "TOPIC_GPS_FILTERED":
		c.TopicGPSFiltered = value
	case "TOPIC_REFERENCE":
		c.TopicReference = value
	case "TOPIC_PARAMS":
		c.TopicParams = value
	case "TOPIC_TACK_COMPLETED":
		c.TopicTackCompleted = value
	case "TOPIC_RACE_POSITION":
		c.TopicRacePosition = value
	case "TOPIC_ACTUATORS":
		c.TopicActuators = value
	case "TOPIC_ACTUATOR_ARMED":
		c.TopicActuatorArmed = value
	case "TOPIC_GUIDANCE":
		c.TopicGuidance = value
	case "TOPIC_NOTICE":
		c.TopicNotice = value

	// Weather station
	case "WX_SERIAL_PORT":
		c.WXSerialPort = value
	case "WX_BAUD_RATE":
		c.WXBaudRate, err = parseInt(key, value)
	case "WX_INIT_BAUD_RATE":
		c.WXInitBaudRate, err = parseInt(key, value)
	case "WX_OUTDOOR":
		c.WXOutdoor, err = parseBool(key, value)
	case "WX_SKIP_INIT":
		c.WXSkipInit, err = parseBool(key, value)
	case "WX_READ_BUFFER":
		c.WXReadBuffer, err = parseInt(key, value)

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		c.GPSBaudRate, err = parseInt(key, value)

	// Control loop
	case "CONTROL_POLL_TIMEOUT":
		c.PollTimeout, err = parseMillis(key, value)
	case "ALPHA_STAR_DEG":
		c.AlphaStarInit, err = parseFloat(key, value)

	// PI controller
	case "PI_P":
		c.PIP, err = parseFloat(key, value)
	case "PI_I":
		c.PII, err = parseFloat(key, value)
	case "PI_KAW":
		c.PIKaw, err = parseFloat(key, value)
	case "PI_CP":
		c.PICp, err = parseFloat(key, value)
	case "PI_CI":
		c.PICi, err = parseFloat(key, value)
	case "PI_CONDITIONAL":
		c.PIConditional, err = parseBool(key, value)

	// Actuators
	case "RUDDER_MAX":
		c.RudderMax, err = parseFloat(key, value)
	case "SAIL_MAX":
		c.SailMax, err = parseFloat(key, value)
	case "SAIL_SECTORS":
		c.SailSectors, err = parseInt(key, value)
	case "SAIL_OVERRIDE":
		c.SailOverride, err = parseFloat(key, value)

	// Tack
	case "HELM_RUDDER":
		c.HelmRudder, err = parseFloat(key, value)
	case "HELM_SAIL":
		c.HelmSail, err = parseFloat(key, value)
	case "TACK_ROLL_STOP_RATIO":
		c.TackRollStopRatio, err = parseFloat(key, value)
	case "TACK_YAW_STOP_DEG":
		c.TackYawStopDeg, err = parseFloat(key, value)

	// Moving averages
	case "AVG_WINDOW_ALPHA":
		c.AvgWindowAlpha, err = parseInt(key, value)
	case "AVG_WINDOW_APPARENT":
		c.AvgWindowApparent, err = parseInt(key, value)
	case "AVG_WINDOW_TWD":
		c.AvgWindowTWD, err = parseInt(key, value)

	// Navigation
	case "NAV_PRECISION":
		c.NavPrecision, err = navigation.ParsePrecision(value)
	case "COURSE_FILE":
		c.CourseFile = value

	// Web Server / metrics
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value)
	case "WEB_PUSH_INTERVAL":
		c.WebPushInterval, err = parseMillis(key, value)
	case "METRICS_LISTEN":
		c.MetricsListen = value

	// Mock
	case "MOCK_INTERVAL":
		c.MockInterval, err = parseMillis(key, value)
	case "MOCK_HEADING":
		c.MockHeading, err = parseFloat(key, value)
	case "MOCK_HEEL":
		c.MockHeel, err = parseFloat(key, value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// validate checks that required fields are set and ranges are sane.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicActuators == "" {
		return fmt.Errorf("TOPIC_ACTUATORS is required")
	}
	if c.WXBaudRate <= 0 || c.WXInitBaudRate <= 0 {
		return fmt.Errorf("WX_BAUD_RATE and WX_INIT_BAUD_RATE must be > 0")
	}
	if c.WXReadBuffer < 64 {
		return fmt.Errorf("WX_READ_BUFFER must be >= 64, got %d", c.WXReadBuffer)
	}
	if c.GPSBaudRate <= 0 {
		return fmt.Errorf("GPS_BAUD_RATE must be > 0")
	}
	if err := c.GuidanceConfig().Validate(); err != nil {
		return err
	}
	if c.AvgWindowAlpha < 1 || c.AvgWindowApparent < 1 || c.AvgWindowTWD < 1 {
		return fmt.Errorf("AVG_WINDOW_* must be >= 1")
	}
	return nil
}

// GuidanceConfig maps the flat keys onto the guidance controller config.
func (c *Config) GuidanceConfig() guidance.Config {
	return guidance.Config{
		Gains: guidance.Gains{
			P:           c.PIP,
			I:           c.PII,
			Kaw:         c.PIKaw,
			Cp:          c.PICp,
			Ci:          c.PICi,
			Conditional: c.PIConditional,
		},
		RudderMax:    c.RudderMax,
		SailMax:      c.SailMax,
		SailSectors:  c.SailSectors,
		SailOverride: c.SailOverride,
		Helmsman:     guidance.HelmsmanLaw{Rudder: c.HelmRudder, Sail: c.HelmSail},
		Tack: guidance.TackThresholds{
			RollStopRatio: c.TackRollStopRatio,
			YawStop:       c.TackYawStopDeg * math.Pi / 180,
		},
	}
}

// Windows returns the moving average sizes.
func (c *Config) Windows() controldata.Windows {
	return controldata.Windows{
		Alpha:    c.AvgWindowAlpha,
		Apparent: c.AvgWindowApparent,
		TWD:      c.AvgWindowTWD,
	}
}

// InitGlobal initializes the global configuration from file.
// Only the first call loads the file.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
