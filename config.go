package main

import (
	"encoding/json"
	"io/ioutil"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	yaml "gopkg.in/yaml.v2"
)

// Config is the node configuration. The table settings (capacity, hasher,
// threshold) are shared by all nodes of a cluster so merged reports line up.
type Config struct {
	Capacity  int           `json:"capacity" yaml:"capacity"`
	Threshold int           `json:"threshold" yaml:"threshold"`
	Hasher    string        `json:"hasher" yaml:"hasher"`
	LogLevel  string        `json:"log_level" yaml:"log_level"`
	APIAddr   string        `json:"api_addr" yaml:"api_addr"`
	APIPort   string        `json:"api_port" yaml:"api_port"`
	Cluster   ClusterConfig `json:"cluster" yaml:"cluster"`
}

type ClusterConfig struct {
	Name      string   `json:"name" yaml:"name"`
	BindAddr  string   `json:"bind_addr" yaml:"bind_addr"`
	BindPort  int      `json:"bind_port" yaml:"bind_port"`
	Seeds     []string `json:"seeds" yaml:"seeds"`
	TimeoutMS int      `json:"timeout_ms" yaml:"timeout_ms"`
}

const (
	DefaultCapacity  = 50000
	DefaultThreshold = 250
	DefaultTimeout   = 3 * time.Second

	// Sender names travel in a fixed 8 byte field.
	MaxNodeNameLen = 8
)

func DefaultConfig() *Config {
	return &Config{
		Capacity:  DefaultCapacity,
		Threshold: DefaultThreshold,
		Hasher:    HasherJava31,
		LogLevel:  "info",
		APIAddr:   "127.0.0.1",
		APIPort:   "8080",
		Cluster: ClusterConfig{
			BindAddr:  "127.0.0.1",
			BindPort:  7946,
			TimeoutMS: int(DefaultTimeout / time.Millisecond),
		},
	}
}

// LoadConfig reads a YAML file over the defaults.
func LoadConfig(path string) (*Config, error) {
	c := DefaultConfig()
	content, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(content, c); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	return c, nil
}

// Validate reports every problem with the config at once.
func (c *Config) Validate() error {
	var result *multierror.Error
	if c.Capacity < 1 {
		result = multierror.Append(result, errors.Wrapf(ErrInvalidCapacity, "capacity %d", c.Capacity))
	}
	if _, err := HasherByName(c.Hasher); err != nil {
		result = multierror.Append(result, err)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		result = multierror.Append(result, err)
	}
	if len(c.Cluster.Name) > MaxNodeNameLen {
		result = multierror.Append(result, errors.Errorf("node name %q longer than %d bytes", c.Cluster.Name, MaxNodeNameLen))
	}
	// Names are zero padded on the wire, so "a" and "0a" would be one sender.
	if strings.HasPrefix(c.Cluster.Name, "0") {
		result = multierror.Append(result, errors.Errorf("node name %q starts with 0", c.Cluster.Name))
	}
	if c.Cluster.TimeoutMS < 0 {
		result = multierror.Append(result, errors.Errorf("negative cluster timeout %d", c.Cluster.TimeoutMS))
	}
	return result.ErrorOrNil()
}

// HashFunc resolves the configured hasher. Call Validate first.
func (c *Config) HashFunc() HashFunc {
	fn, err := HasherByName(c.Hasher)
	if err != nil {
		panic(err)
	}
	return fn
}

func (c *Config) Timeout() time.Duration {
	if c.Cluster.TimeoutMS == 0 {
		return DefaultTimeout
	}
	return time.Duration(c.Cluster.TimeoutMS) * time.Millisecond
}

// ApplyLogLevel sets the level of the standard logrus logger.
func (c *Config) ApplyLogLevel() error {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	return nil
}

// AdoptTableSettings copies the settings that must agree across a cluster.
func (c *Config) AdoptTableSettings(other *Config) {
	c.Capacity = other.Capacity
	c.Threshold = other.Threshold
	c.Hasher = other.Hasher
}

func (c *Config) SerializeConfig() []byte {
	b, err := json.Marshal(c)
	if err != nil {
		panic(err)
	}
	return b
}

func DeserializeConfig(b []byte) (*Config, error) {
	var c *Config
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if c == nil {
		return nil, errors.New("decode config: empty payload")
	}
	return c, nil
}
