package config

import (
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/danielfrey63/qr-scanner-library/journal"
)

type HttpApiConfig struct {
	Host  string `mapstructure:"host"`
	Port  int    `mapstructure:"port"`
	Debug bool   `mapstructure:"debug"`
}

func (c *HttpApiConfig) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type ScannerConfig struct {
	DeviceID           string `mapstructure:"device_id"`
	ScanIntervalMs     int    `mapstructure:"scan_interval_ms"`
	StopOnScan         bool   `mapstructure:"stop_on_scan"`
	ReadinessTimeoutMs int    `mapstructure:"readiness_timeout_ms"`
	ShowUI             bool   `mapstructure:"show_ui"`
}

func (c *ScannerConfig) ScanInterval() time.Duration {
	return time.Duration(c.ScanIntervalMs) * time.Millisecond
}

func (c *ScannerConfig) ReadinessTimeout() time.Duration {
	return time.Duration(c.ReadinessTimeoutMs) * time.Millisecond
}

type JournalConfig struct {
	// Backend selects the journal implementation, "file" or "leveldb".
	Backend  string `mapstructure:"backend"`
	DBDSN    string `mapstructure:"dbdsn"`
	LockFile string `mapstructure:"lock_file"`
	Topic    string `mapstructure:"topic"`
}

type KafkaSinkConfig struct {
	Enabled             bool   `mapstructure:"enabled"`
	Broker              string `mapstructure:"broker"`
	Topic               string `mapstructure:"topic"`
	ProducerCredentials string `mapstructure:"producer_credentials"`
	TruststorePath      string `mapstructure:"kafka_truststore_path"`
	TimeoutMs           int    `mapstructure:"timeout_ms"`

	TlsConfig *tls.Config
}

// TLS resolves the truststore path into a TLS config, nil when no
// truststore is configured.
func (c *KafkaSinkConfig) TLS() (*tls.Config, error) {
	if c.TlsConfig != nil {
		return c.TlsConfig, nil
	}
	if c.TruststorePath == "" {
		return nil, nil
	}
	return journal.GetTLSConfig(c.TruststorePath)
}

func (c *KafkaSinkConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

func (c *KafkaSinkConfig) Credentials() (*journal.KafkaAuthCredentials, error) {
	if c.ProducerCredentials == "" {
		return nil, nil
	}
	return journal.ParseKafkaAuthCredentials(c.ProducerCredentials)
}

type Config struct {
	HttpApiConfig *HttpApiConfig   `mapstructure:"http_api_config"`
	ScannerConfig *ScannerConfig   `mapstructure:"scanner_config"`
	JournalConfig *JournalConfig   `mapstructure:"journal_config"`
	KafkaSink     *KafkaSinkConfig `mapstructure:"kafka_sink_config"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_api_config.host", "localhost")
	v.SetDefault("http_api_config.port", 8080)
	v.SetDefault("http_api_config.debug", false)

	v.SetDefault("scanner_config.device_id", "")
	v.SetDefault("scanner_config.scan_interval_ms", 200)
	v.SetDefault("scanner_config.stop_on_scan", true)
	v.SetDefault("scanner_config.readiness_timeout_ms", 2000)
	v.SetDefault("scanner_config.show_ui", false)

	v.SetDefault("journal_config.backend", "file")
	v.SetDefault("journal_config.dbdsn", "./qr_scanner_journal")
	v.SetDefault("journal_config.topic", "scans")

	v.SetDefault("kafka_sink_config.enabled", false)
	v.SetDefault("kafka_sink_config.broker", "localhost:9092")
	v.SetDefault("kafka_sink_config.topic", "scans")
	v.SetDefault("kafka_sink_config.timeout_ms", 10000)
}

// Load reads the configuration from the given file (optional) merged
// with QR_SCANNER_* environment variables on top of the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("QR_SCANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
