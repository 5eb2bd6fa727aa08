package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string `yaml:"env" env-default:"local"`
	Mongo      `yaml:"mongo"`
	Redis      `yaml:"redis"`
	HTTPServer `yaml:"http_server"`
	Auth       `yaml:"auth"`
	Mail       `yaml:"mail"`
	Upload     `yaml:"upload"`
}

type Mongo struct {
	URI      string `yaml:"uri" env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	Database string `yaml:"database" env-default:"shop"`
}

type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
	DB       int    `yaml:"db" env-default:"0"`
}

type HTTPServer struct {
	Address      string        `yaml:"address" env-required:"true"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env-default:"60s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env-default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env-default:"10s"`
}

type Auth struct {
	JWTKey   string        `yaml:"jwt_key" env:"JWT_KEY" env-required:"true"`
	TokenTTL time.Duration `yaml:"token_ttl" env-default:"24h"`
	APIKey   string        `yaml:"api_key" env:"API_KEY" env-required:"true"`
}

type Mail struct {
	Host     string `yaml:"host" env:"MAIL_HOST"`
	Port     int    `yaml:"port" env-default:"587"`
	Username string `yaml:"username" env:"MAIL_USERNAME"`
	Password string `yaml:"password" env:"MAIL_PASSWORD"`
	From     string `yaml:"from" env:"MAIL_FROM"`
}

type Upload struct {
	Dir string `yaml:"dir" env-default:"./uploads"`
}

func MustLoadConfig(configPath string) *Config {
	if _, err := os.Stat(configPath); err != nil {
		panic("config file not found")
	}

	config, err := loadConfig(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	return config
}

func loadConfig(path string) (*Config, error) {
	var config Config

	if err := cleanenv.ReadConfig(path, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
