package configs

import (
	"log"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config struct
type Config struct {
	App          `mapstructure:"app"`
	Database     `mapstructure:"database"`
	Telegram     `mapstructure:"telegram"`
	Hoardbooru   `mapstructure:"hoardbooru"`
	Cache        `mapstructure:"cache"`
	TrustedUsers []TrustedUser `mapstructure:"trusted_users"`
}

// App struct
type App struct {
	Debug bool   `mapstructure:"debug"`
	Env   string `mapstructure:"env"`
	Port  string `mapstructure:"port"`
}

// Database struct - local cache store connection.
// Driver selects sqlite (default, single local file) or postgres.
type Database struct {
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DbName   string `mapstructure:"database"`
	SSLMode  bool   `mapstructure:"sslmode"`
}

// Telegram struct
type Telegram struct {
	BotToken       string `mapstructure:"bot_token" validate:"required"`
	CacheChannelID int64  `mapstructure:"cache_channel_id" validate:"required"`
}

// Hoardbooru struct - catalog service credentials
type Hoardbooru struct {
	URL      string `mapstructure:"url" validate:"required,url"`
	Username string `mapstructure:"username" validate:"required"`
	Token    string `mapstructure:"token" validate:"required"`
}

// Cache struct - TTLs in seconds, zero means application defaults apply
type Cache struct {
	UploadStateTTL int `mapstructure:"upload_state_ttl"`
	PopularityTTL  int `mapstructure:"popularity_ttl"`
	MaxFreshMedia  int `mapstructure:"max_fresh_media"`
}

// TrustedUser struct - one operator allowed to drive the bot
type TrustedUser struct {
	TelegramID     int64    `mapstructure:"telegram_id" validate:"required"`
	BlockedTags    []string `mapstructure:"blocked_tags"`
	OwnerTag       string   `mapstructure:"owner_tag"`
	UploadTagInfix string   `mapstructure:"upload_tag_infix"`
}

var config Config

// InitViper func
func InitViper(path, env string) {
	getConfig(path, env)
}

// GetViper func
func GetViper() *Config {
	return &config
}

func getConfig(path, env string) {
	viper.SetConfigName("config")
	viper.AddConfigPath(path)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	err := viper.ReadInConfig()
	if err != nil {
		panic(err)
	}
	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		log.Println("Config file has changed: ", e.Name)
	})
	err = viper.Unmarshal(&config)
	if err != nil {
		log.Fatalln(err)
	}
}
