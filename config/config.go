package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	"lautenbacher.net/trafficlight/controller"
)

const CONFILE = "config.yml"

// ErrInvalid wraps every validation failure of a config file.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	RealHW     bool                  `yaml:"-"`
	Configfile string                `yaml:"-"`
	Dwell      controller.DwellTable `yaml:"Dwell"`
	Startup    StartupConfig         `yaml:"Startup"`
	Hardware   HardwareConfig        `yaml:"Hardware"`
	History    HistoryConfig         `yaml:"History"`
	Web        WebConfig             `yaml:"Web"`
	MQTT       MQTTConfig            `yaml:"MQTT"`
	NightMode  NightModeConfig       `yaml:"NightMode"`
	Logging    LoggingConfig         `yaml:"Logging"`
}

type StartupConfig struct {
	LampTestPause time.Duration `yaml:"LampTestPause"`
}

type PinsConfig struct {
	Green  int `yaml:"Green"`
	Yellow int `yaml:"Yellow"`
	Red    int `yaml:"Red"`
}

type HardwareConfig struct {
	Pins PinsConfig `yaml:"Pins"`
}

type HistoryConfig struct {
	Size int `yaml:"Size"`
}

type WebConfig struct {
	Enabled bool   `yaml:"Enabled"`
	Listen  string `yaml:"Listen"`
}

type MQTTConfig struct {
	Enabled     bool   `yaml:"Enabled"`
	Broker      string `yaml:"Broker"`
	TopicPrefix string `yaml:"TopicPrefix"`
	ClientID    string `yaml:"ClientID"`
	Username    string `yaml:"Username"`
	Password    string `yaml:"Password"`
	QoS         int    `yaml:"QoS"`
}

type NightModeConfig struct {
	Enabled       bool          `yaml:"Enabled"`
	Latitude      float64       `yaml:"Latitude"`
	Longitude     float64       `yaml:"Longitude"`
	CheckInterval time.Duration `yaml:"CheckInterval"`
}

type LoggingConfig struct {
	Level  string `yaml:"Level"`
	Format string `yaml:"Format"`
	File   string `yaml:"File"`
}

// Default returns the values used for everything a config file leaves out.
func Default() Config {
	return Config{
		Dwell: controller.DefaultDwell,
		Startup: StartupConfig{
			LampTestPause: 300 * time.Millisecond,
		},
		Hardware: HardwareConfig{
			Pins: PinsConfig{Green: 17, Yellow: 27, Red: 22},
		},
		History: HistoryConfig{Size: controller.DefaultHistorySize},
		Web: WebConfig{
			Listen: ":8080",
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost:1883",
			TopicPrefix: "trafficlight",
			QoS:         1,
		},
		NightMode: NightModeConfig{
			CheckInterval: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}

// ReadConfig reads and validates cfile on top of Default().
func ReadConfig(cfile string) (Config, error) {
	conf := Default()

	f, err := os.Open(cfile)
	if err != nil {
		return conf, fmt.Errorf("can't open config file %s: %w", cfile, err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&conf); err != nil {
		return conf, fmt.Errorf("can't decode config file %s: %w", cfile, err)
	}
	conf.Configfile = cfile

	if err := conf.Validate(); err != nil {
		return conf, err
	}
	return conf, nil
}

// Validate checks all values a running controller depends on.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...)))
	}

	if err := c.Dwell.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalid, err))
	}
	if c.Startup.LampTestPause < 0 {
		invalid("Startup.LampTestPause must not be negative, got %v", c.Startup.LampTestPause)
	}

	pins := map[string]int{
		"Green":  c.Hardware.Pins.Green,
		"Yellow": c.Hardware.Pins.Yellow,
		"Red":    c.Hardware.Pins.Red,
	}
	used := make(map[int]string, len(pins))
	for _, name := range []string{"Green", "Yellow", "Red"} {
		pin := pins[name]
		if pin < 0 || pin > 27 {
			invalid("Hardware.Pins.%s must be between 0 and 27, got %d", name, pin)
		}
		if other, dup := used[pin]; dup {
			invalid("Hardware.Pins.%s uses GPIO%d which is already assigned to %s", name, pin, other)
		}
		used[pin] = name
	}

	if c.History.Size < 1 {
		invalid("History.Size must be at least 1, got %d", c.History.Size)
	}
	if c.Web.Enabled && c.Web.Listen == "" {
		invalid("Web.Listen must be set when Web is enabled")
	}
	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			invalid("MQTT.Broker must be set when MQTT is enabled")
		}
		if strings.Trim(c.MQTT.TopicPrefix, "/") == "" {
			invalid("MQTT.TopicPrefix must not be empty")
		}
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		invalid("MQTT.QoS must be between 0 and 2, got %d", c.MQTT.QoS)
	}
	if c.NightMode.Latitude < -90 || c.NightMode.Latitude > 90 {
		invalid("NightMode.Latitude must be between -90 and 90, got %v", c.NightMode.Latitude)
	}
	if c.NightMode.Longitude < -180 || c.NightMode.Longitude > 180 {
		invalid("NightMode.Longitude must be between -180 and 180, got %v", c.NightMode.Longitude)
	}
	if c.NightMode.Enabled && c.NightMode.CheckInterval <= 0 {
		invalid("NightMode.CheckInterval must be positive, got %v", c.NightMode.CheckInterval)
	}

	return errors.Join(errs...)
}
