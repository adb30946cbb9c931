package config

import (
	"log"
	"os"
	"strconv"
)

type Config struct {
	Host                 string
	Port                 string
	ConsulAddress        string
	ServiceName          string
	ServiceID            string
	ServiceAddress       string
	RabbitMQURI          string
	TokenSecret          string
	MinGrantHours        int
	MaxGrantHours        int
	SessionWindowMinutes int
	ExtensionMinutes     int
	MaxSessionExtensions int
}

func init() {
	ServiceConfig = New()
}

var ServiceConfig *Config

func New() *Config {
	return &Config{
		Host:                 getEnv("HOST", "0.0.0.0"),
		Port:                 getEnv("PORT", "9200"),
		ConsulAddress:        "consul-server:" + getEnv("CONSUL_PORT", "8500"),
		ServiceName:          getEnv("ACCESS_SERVICE_NAME", "proposal-access-service"),
		ServiceID:            getEnv("ACCESS_SERVICE_NAME", "proposal-access-service") + "-" + getEnv("ACCESS_HOSTNAME", "1"),
		ServiceAddress:       getEnv("ACCESS_SERVICE_ADDRESS", "proposal-access-service"),
		RabbitMQURI:          getEnv("RABBITMQ_URI", ""),
		TokenSecret:          getEnv("TOKEN_SECRET", ""),
		MinGrantHours:        getEnvInt("MIN_GRANT_HOURS", 1),
		MaxGrantHours:        getEnvInt("MAX_GRANT_HOURS", 168),
		SessionWindowMinutes: getEnvInt("SESSION_WINDOW_MINUTES", 15),
		ExtensionMinutes:     getEnvInt("SESSION_EXTENSION_MINUTES", 10),
		MaxSessionExtensions: getEnvInt("MAX_SESSION_EXTENSIONS", 6),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Error Retriving ENV: %s not exist", key)
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Error parsing ENV %s: %s, using default %d", key, err, fallback)
		return fallback
	}
	return parsed
}
