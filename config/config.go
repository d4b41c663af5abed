// Package config loads engine defaults from the environment. A .env file
// in the working directory is picked up automatically.
package config

import (
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/shopspring/decimal"
)

// Engine holds the operator-tunable defaults callers feed into session
// construction. Values are read once at load.
type Engine struct {
	MinBet          decimal.Decimal
	MaxBet          decimal.Decimal
	MaxExposure     decimal.Decimal
	BetWindow       time.Duration
	IdleBudget      time.Duration
	DragonTigerTie  decimal.Decimal
	BingoMaxBalls   int
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	BalanceKeySpace string
}

// Load reads the engine defaults from the environment.
func Load() Engine {
	return Engine{
		MinBet:          getEnvAsDecimal("ENGINE_MIN_BET", "1"),
		MaxBet:          getEnvAsDecimal("ENGINE_MAX_BET", "10000"),
		MaxExposure:     getEnvAsDecimal("ENGINE_MAX_EXPOSURE", "50000"),
		BetWindow:       getEnvAsDuration("ENGINE_BET_WINDOW", 30*time.Second),
		IdleBudget:      getEnvAsDuration("ENGINE_IDLE_BUDGET", 10*time.Minute),
		DragonTigerTie:  getEnvAsDecimal("ENGINE_DT_TIE_GROSS", "9"),
		BingoMaxBalls:   getEnvAsInt("ENGINE_BINGO_MAX_BALLS", 0),
		RedisAddr:       getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvAsInt("REDIS_DB", 0),
		BalanceKeySpace: getEnv("BALANCE_KEYSPACE", "engine"),
	}
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvAsDecimal(key, defaultVal string) decimal.Decimal {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := decimal.NewFromString(value); err == nil {
			return parsed
		}
	}
	d, _ := decimal.NewFromString(defaultVal)
	return d
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultVal
}
