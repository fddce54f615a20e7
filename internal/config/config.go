package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr      string
	ReservationAPI  string
	UpstreamTimeout time.Duration
	CheckoutTimeout time.Duration
	SessionIdleTTL  time.Duration
	RedisAddr       string
	MongoURI        string
	PGDSN           string
	RabbitURL       string
	OTLPEndpoint    string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	upstreamTimeout, _ := time.ParseDuration(os.Getenv("UPSTREAM_TIMEOUT"))
	if upstreamTimeout == 0 {
		upstreamTimeout = 10 * time.Second
	}

	checkoutTimeout, _ := time.ParseDuration(os.Getenv("CHECKOUT_TIMEOUT"))
	if checkoutTimeout == 0 {
		checkoutTimeout = 15 * time.Minute
	}

	sessionIdleTTL, _ := time.ParseDuration(os.Getenv("SESSION_IDLE_TTL"))
	if sessionIdleTTL == 0 {
		sessionIdleTTL = 30 * time.Minute
	}

	listenAddr := os.Getenv("LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":8080"
	}

	reservationAPI := os.Getenv("RESERVATION_API_URL")
	if reservationAPI == "" {
		reservationAPI = "https://reservation-booking-backend.vercel.app/api"
	}

	return &Config{
		ListenAddr:      listenAddr,
		ReservationAPI:  reservationAPI,
		UpstreamTimeout: upstreamTimeout,
		CheckoutTimeout: checkoutTimeout,
		SessionIdleTTL:  sessionIdleTTL,
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		MongoURI:        os.Getenv("MONGO_URI"),
		PGDSN:           os.Getenv("PG_DSN"),
		RabbitURL:       os.Getenv("RABBIT_URL"),
		OTLPEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}, nil
}
