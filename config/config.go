package config

import (
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Profiles select the default destinations of the simulation backend.
const (
	ProfileWeekly   = "weekly"
	ProfileCollapse = "collapse"
)

type Config struct {
	mu sync.RWMutex `yaml:"-"`

	Messaging MessagingConfig `yaml:"messaging"`
	Map       MapConfig       `yaml:"map"`
	Viewer    ViewerConfig    `yaml:"viewer"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Web       WebConfig       `yaml:"web"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
}

type MessagingConfig struct {
	Backend  string         `yaml:"backend"` // "stomp", "mqtt" or "kafka"
	Profile  string         `yaml:"profile"` // "weekly" or "collapse"
	STOMP    STOMPConfig    `yaml:"stomp"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Topic    string         `yaml:"topic"`
	Commands CommandsConfig `yaml:"commands"`
}

type STOMPConfig struct {
	URL            string        `yaml:"url"`
	Host           string        `yaml:"host"`
	Login          string        `yaml:"login"`
	Passcode       string        `yaml:"passcode"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	Heartbeat      time.Duration `yaml:"heartbeat"`
}

// MQTTConfig defines MQTT broker settings.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
}

// KafkaConfig defines Kafka broker settings.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	GroupID string   `yaml:"group_id"`
}

// CommandsConfig names the destinations commands are published to.
// Resync is optional; when set, an empty message is published there after
// every successful connect.
type CommandsConfig struct {
	Init     string `yaml:"init"`
	Stop     string `yaml:"stop"`
	Failures string `yaml:"failures"`
	Resync   string `yaml:"resync"`
}

type MapConfig struct {
	GridLength          int     `yaml:"grid_length"`
	GridWidth           int     `yaml:"grid_width"`
	Margin              float64 `yaml:"margin"`
	CanvasWidth         int     `yaml:"canvas_width"`
	CanvasHeight        int     `yaml:"canvas_height"`
	InvertY             bool    `yaml:"invert_y"`
	HideParkedAtMain    bool    `yaml:"hide_parked_at_main"`
	ActiveBlockagesOnly bool    `yaml:"active_blockages_only"`
}

type ViewerConfig struct {
	ZoomStep      float64       `yaml:"zoom_step"`
	DragThreshold float64       `yaml:"drag_threshold"`
	FocusDuration time.Duration `yaml:"focus_duration"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
}

type SchedulerConfig struct {
	FrameInterval time.Duration `yaml:"frame_interval"`
}

type WebConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	SessionSecret string `yaml:"session_secret"`
}

type DatabaseConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// RedisConfig enables the latest-snapshot cache when Address is set.
type RedisConfig struct {
	Address   string `yaml:"address"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

func Defaults() *Config {
	return &Config{
		Messaging: MessagingConfig{
			Backend: "stomp",
			Profile: ProfileWeekly,
			STOMP: STOMPConfig{
				URL:            "ws://localhost:8080/ws/websocket",
				ReconnectDelay: 5 * time.Second,
				Heartbeat:      10 * time.Second,
			},
			MQTT: MQTTConfig{
				Broker:   "localhost",
				Port:     1883,
				ClientID: "fleetview",
			},
			Kafka: KafkaConfig{
				Brokers: []string{"localhost:9092"},
				GroupID: "fleetview",
			},
		},
		Map: MapConfig{
			GridLength:          70,
			GridWidth:           50,
			Margin:              40,
			CanvasWidth:         1720,
			CanvasHeight:        1080,
			ActiveBlockagesOnly: true,
		},
		Viewer: ViewerConfig{
			ZoomStep:      1.1,
			DragThreshold: 3,
			FocusDuration: 3 * time.Second,
			IdleTimeout:   10 * time.Minute,
		},
		Scheduler: SchedulerConfig{
			FrameInterval: 100 * time.Millisecond,
		},
		Web: WebConfig{
			Host:          "0.0.0.0",
			Port:          8090,
			SessionSecret: "change-me-in-production",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{Path: "fleetview.db"},
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "fleetview",
				User:     "fleetview",
				SSLMode:  "disable",
			},
		},
		Redis: RedisConfig{
			KeyPrefix: "fleetview:",
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyProfile()
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.applyProfile()
	return cfg, nil
}

// applyProfile fills destinations left empty with the profile's defaults.
func (c *Config) applyProfile() {
	m := &c.Messaging
	topic, initDest, stopDest := "/topic/simulation", "/app/init", "/app/stop"
	if m.Profile == ProfileCollapse {
		topic, initDest, stopDest = "/topic/collapse-simulation", "/app/init-collapse", "/app/stop-collapse"
	}
	if m.Topic == "" {
		m.Topic = topic
	}
	if m.Commands.Init == "" {
		m.Commands.Init = initDest
	}
	if m.Commands.Stop == "" {
		m.Commands.Stop = stopDest
	}
	if m.Commands.Failures == "" {
		m.Commands.Failures = "/app/update-failures"
	}
}

func (c *Config) Save(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Lock()   { c.mu.Lock() }
func (c *Config) Unlock() { c.mu.Unlock() }
