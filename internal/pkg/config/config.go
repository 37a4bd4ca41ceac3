package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Dir is where services look for their YAML configuration.
const Dir = "./configs/development"

// Load reads <name>.yaml from Dir into the global viper instance. Keys can
// be overridden from the environment, with dots replaced by underscores
// (CONTROL_PORT for control.port). A missing file is not an error; the
// registered defaults apply.
func Load(name string) error {
	viper.SetConfigName(name)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(Dir)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

// SetDefaults registers the defaults shared by every rendezvous binary.
func SetDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("control.port", 9000)
	viper.SetDefault("control.write_timeout", "5s")
	viper.SetDefault("probe.port", 9001)
	viper.SetDefault("grpc_server.port", 9002)
	viper.SetDefault("diagnostics.port", 9090)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	viper.SetDefault("kafka.enabled", false)
	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("kafka.match_found_topic", "rendezvous.match_found")
	viper.SetDefault("kafka.consumer_group_id", "")
	viper.SetDefault("kafka.async", true)

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.match_channel", "rendezvous:matches")
}
