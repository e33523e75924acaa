package config

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Options struct {
	runAddr         string
	logLevel        string
	stripeSecretKey string
	dataBaseDSN     string
	redisAddr       string
	cartStatePath   string
	catalogFile     string
}

func NewOptions() *Options {
	return new(Options)
}

// ParseFlags handles command line arguments
// and stores their values in the corresponding variables.
func (o *Options) ParseFlags() {
	// Load environment variables from the .env file
	loadEnvFile()

	// Override variable values with values from command line flags
	regStringVar(&o.runAddr, "a", getEnvOrDefault("RUN_ADDRESS", ":8080"), "address and port to run server")
	regStringVar(&o.logLevel, "l", getEnvOrDefault("LOG_LEVEL", "debug"), "log level")
	regStringVar(&o.stripeSecretKey, "k", getEnvOrDefault("STRIPE_SECRET_KEY", ""), "stripe secret API key")
	regStringVar(&o.dataBaseDSN, "d", getEnvOrDefault("DATABASE_URI", ""), "database connection string for the catalog")
	regStringVar(&o.redisAddr, "r", getEnvOrDefault("REDIS_ADDR", ""), "redis address for cart state")
	regStringVar(&o.cartStatePath, "s", getEnvOrDefault("CART_STATE_PATH", ""), "path to the cart state file when redis is not used")
	regStringVar(&o.catalogFile, "c", getEnvOrDefault("CATALOG_FILE", "products.json"), "path to the catalog file")

	// parse the arguments passed to the server into registered variables
	flag.Parse()
}

func (o *Options) RunAddr() string {
	return o.runAddr
}

func (o *Options) LogLevel() string {
	return o.logLevel
}

func (o *Options) StripeSecretKey() string {
	return o.stripeSecretKey
}

func (o *Options) DataBaseDSN() string {
	return o.dataBaseDSN
}

func (o *Options) RedisAddr() string {
	return o.redisAddr
}

func (o *Options) CartStatePath() string {
	return o.cartStatePath
}

func (o *Options) CatalogFile() string {
	return o.catalogFile
}

func regStringVar(p *string, name string, value string, usage string) {
	flag.StringVar(p, name, value, usage)
}

// getEnvOrDefault reads an environment variable or returns a default value if the variable is not set or is empty.
func getEnvOrDefault(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// loadEnvFile loads environment variables from a .env file
func loadEnvFile() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, proceeding without it")
	}
}
