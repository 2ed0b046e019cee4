// Package config loads runtime configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration for the raffle service.
type Config struct {
	HTTPAddr string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KafkaBrokers      []string
	KafkaTopicEntries string
	KafkaTopicWinners string

	SQLitePath string

	BalanceHashKey string
	WinnerListKey  string
	WinnerListKeep int64

	EntranceFee   uint64
	RoundInterval time.Duration

	VRFKeyHash              string
	VRFSubscriptionID       uint64
	VRFCallbackGasLimit     uint32
	VRFRequestConfirmations uint16
	VRFFulfillmentDelay     time.Duration

	KeeperSpec string
}

// envOrDefault returns the value of an environment variable or a default.
func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int) (int, error) {
	if raw := os.Getenv(key); raw != "" {
		val, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return val, nil
	}

	return def, nil
}

func envUintOrDefault(key string, def uint64) (uint64, error) {
	if raw := os.Getenv(key); raw != "" {
		val, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return val, nil
	}

	return def, nil
}

func envDurationOrDefault(key string, def time.Duration) (time.Duration, error) {
	if raw := os.Getenv(key); raw != "" {
		val, err := time.ParseDuration(raw)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return val, nil
	}

	return def, nil
}

func envCSVOrDefault(key, def string) []string {
	raw := envOrDefault(key, def)
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (Config, error) {
	redisDB, err := envIntOrDefault("REDIS_DB", 0)
	if err != nil {
		return Config{}, err
	}
	winnerKeep, err := envIntOrDefault("WINNER_LIST_KEEP", 10)
	if err != nil {
		return Config{}, err
	}
	entranceFee, err := envUintOrDefault("ENTRANCE_FEE", 10_000_000)
	if err != nil {
		return Config{}, err
	}
	roundInterval, err := envDurationOrDefault("ROUND_INTERVAL", 30*time.Second)
	if err != nil {
		return Config{}, err
	}
	subscriptionID, err := envUintOrDefault("VRF_SUBSCRIPTION_ID", 1)
	if err != nil {
		return Config{}, err
	}
	gasLimit, err := envUintOrDefault("VRF_CALLBACK_GAS_LIMIT", 500_000)
	if err != nil {
		return Config{}, err
	}
	confirmations, err := envUintOrDefault("VRF_REQUEST_CONFIRMATIONS", 3)
	if err != nil {
		return Config{}, err
	}
	fulfillmentDelay, err := envDurationOrDefault("VRF_FULFILLMENT_DELAY", 3*time.Second)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		HTTPAddr: envOrDefault("HTTP_ADDR", ":8080"),

		RedisAddr:     envOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		KafkaBrokers:      envCSVOrDefault("KAFKA_BROKERS", "localhost:9092"),
		KafkaTopicEntries: envOrDefault("KAFKA_TOPIC_RAFFLE_ENTRIES", "raffle_entries"),
		KafkaTopicWinners: envOrDefault("KAFKA_TOPIC_RAFFLE_WINNERS", "raffle_winners"),

		SQLitePath: envOrDefault("SQLITE_PATH", "raffled.db"),

		BalanceHashKey: envOrDefault("BALANCE_HASH_KEY", "raffled:balances"),
		WinnerListKey:  envOrDefault("WINNER_LIST_KEY", "raffled:winners:recent"),
		WinnerListKeep: int64(winnerKeep),

		EntranceFee:   entranceFee,
		RoundInterval: roundInterval,

		VRFKeyHash:              envOrDefault("VRF_KEY_HASH", "0x474e34a077df58807dbe9c96d3c009b23b3c6d0cce433e59bbf5b34f823bc56c"),
		VRFSubscriptionID:       subscriptionID,
		VRFCallbackGasLimit:     uint32(gasLimit),
		VRFRequestConfirmations: uint16(confirmations),
		VRFFulfillmentDelay:     fulfillmentDelay,

		KeeperSpec: envOrDefault("KEEPER_SPEC", "@every 5s"),
	}

	return cfg, nil
}
