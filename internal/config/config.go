package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Partition keys for the three Azure DevOps projects the importer knows about.
const (
	KeyByteLOS        = "byteLos"
	KeyByte           = "byte"
	KeyProductMasters = "productMasters"
)

// ProjectQuery identifies one project partition: the project name to query and,
// optionally, a saved query id. When QueryID is empty the importer runs an
// inline WIQL query covering every work item in the project.
type ProjectQuery struct {
	Key     string
	Project string
	QueryID string
}

// Config holds the application configuration
type Config struct {
	// Azure DevOps configuration
	Organization string
	PAT          string
	Projects     []ProjectQuery

	// Database configuration
	DatabaseURL string

	// Server configuration
	ServerHost string
	ServerPort int

	// RefreshTimeout caps the wall clock of one full import run.
	RefreshTimeout time.Duration
}

// init loads environment variables from .env file
func init() {
	err := godotenv.Load()
	if err != nil {
		// Try loading from parent directory (assuming we're in a subdirectory)
		err = godotenv.Load("../.env")
		if err != nil {
			log.Println("No .env file found or error loading it. Using environment variables or defaults.")
		}
	}
}

// NewConfig creates a new configuration with values from environment variables
func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("ADO_ORGANIZATION", "cmgfidev")
	v.SetDefault("ADO_PROJECT_1", "Byte LOS")
	v.SetDefault("ADO_PROJECT_2", "BYTE")
	v.SetDefault("ADO_PROJECT_3", "Product Masters")
	v.SetDefault("SERVER_HOST", "localhost")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("REFRESH_TIMEOUT_SECONDS", 60)

	return &Config{
		Organization: v.GetString("ADO_ORGANIZATION"),
		PAT:          v.GetString("ADO_PAT"),
		Projects: []ProjectQuery{
			{Key: KeyByteLOS, Project: v.GetString("ADO_PROJECT_1"), QueryID: v.GetString("ADO_QUERY_1")},
			{Key: KeyByte, Project: v.GetString("ADO_PROJECT_2"), QueryID: v.GetString("ADO_QUERY_2")},
			{Key: KeyProductMasters, Project: v.GetString("ADO_PROJECT_3"), QueryID: v.GetString("ADO_QUERY_3")},
		},

		DatabaseURL: v.GetString("DATABASE_URL"),

		ServerHost: v.GetString("SERVER_HOST"),
		ServerPort: v.GetInt("SERVER_PORT"),

		RefreshTimeout: time.Duration(v.GetInt("REFRESH_TIMEOUT_SECONDS")) * time.Second,
	}
}
