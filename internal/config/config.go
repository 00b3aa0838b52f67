package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

var (
	supportedStores = supportedType{
		"json": {},
		"bolt": {},
	}
	supportedTransports = supportedType{
		"socket": {},
		"grpc":   {},
	}
)

// Config holds the node's runtime settings. Every field can be set through a
// LOTTO_-prefixed environment variable or left at its default.
type Config struct {
	Home       string
	ListenAddr string
	Transport  string
	LogLevel   int
	StoreType  string
}

func (c *Config) String() string {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("error while marshalling config JSON: %s", err)
	}
	return string(b)
}

var (
	Home       = "HOME"
	ListenAddr = "LISTEN_ADDR"
	Transport  = "TRANSPORT"
	LogLevel   = "LOG_LEVEL"
	StoreType  = "STORE_TYPE"

	defaultHome       = ".lotto"
	defaultListenAddr = "tcp://127.0.0.1:26658"
	defaultTransport  = "socket"
	defaultLogLevel   = 4 // logrus.InfoLevel
	defaultStoreType  = "json"
)

func LoadConfig() (*Config, error) {
	viper.SetEnvPrefix("LOTTO")
	viper.AutomaticEnv()

	viper.SetDefault(Home, defaultHome)
	viper.SetDefault(ListenAddr, defaultListenAddr)
	viper.SetDefault(Transport, defaultTransport)
	viper.SetDefault(LogLevel, defaultLogLevel)
	viper.SetDefault(StoreType, defaultStoreType)

	cfg := &Config{
		Home:       viper.GetString(Home),
		ListenAddr: viper.GetString(ListenAddr),
		Transport:  viper.GetString(Transport),
		LogLevel:   viper.GetInt(LogLevel),
		StoreType:  viper.GetString(StoreType),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Home, 0o755); err != nil {
		return nil, fmt.Errorf("error while creating home dir: %s", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if _, ok := supportedTransports[c.Transport]; !ok {
		return fmt.Errorf("transport type not supported, please select one of: %s", supportedTransports)
	}
	if _, ok := supportedStores[c.StoreType]; !ok {
		return fmt.Errorf("store type not supported, please select one of: %s", supportedStores)
	}
	return nil
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	b, _ := json.Marshal(types)
	return string(b)
}
