package config

import (
	"errors"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	DB       DBConfig
	JWT      JWTConfig
	Redis    RedisConfig
	Realtime RealtimeConfig
	Log      LogConfig
}

type ServerConfig struct {
	Address string
	Mode    string // gin 模式: debug / release / test
}

type DBConfig struct {
	Driver   string // postgres 或 sqlite
	Host     string
	User     string
	Password string
	Name     string
	Port     int
	SSLMode  string `mapstructure:"ssl_mode"`
	TimeZone string `mapstructure:"time_zone"`
	Path     string // sqlite 檔案路徑
	LogLevel string `mapstructure:"log_level"`
}

type JWTConfig struct {
	Secret string
}

// RedisConfig 為空 Addr 時不啟用跨實例轉發
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

type RealtimeConfig struct {
	SendBuffer int     `mapstructure:"send_buffer"`
	ReadLimit  int64   `mapstructure:"read_limit"`
	SendRate   float64 `mapstructure:"send_rate"` // 每秒允許的 send_message 次數
	SendBurst  int     `mapstructure:"send_burst"`
}

type LogConfig struct {
	Development bool
}

// Load 載入設定
// 先讀取 .env（若存在），再讀 config.yaml，最後由 HUBHIVE_ 前綴的環境變數覆蓋
func Load(paths ...string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"./pkg/config", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("hubhive")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.mode", "release")

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.user", "hubhive_user")
	v.SetDefault("db.password", "password")
	v.SetDefault("db.name", "hubhive")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.ssl_mode", "disable")
	v.SetDefault("db.time_zone", "UTC")
	v.SetDefault("db.path", "hubhive.db")
	v.SetDefault("db.log_level", "warn")

	v.SetDefault("jwt.secret", "jwt-secret-key")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "hubhive:chatrooms")

	v.SetDefault("realtime.send_buffer", 256)
	v.SetDefault("realtime.read_limit", 4096)
	v.SetDefault("realtime.send_rate", 5)
	v.SetDefault("realtime.send_burst", 10)

	v.SetDefault("log.development", false)
}
