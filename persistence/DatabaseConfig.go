package persistence

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/jinzhu/gorm"
)

type DatabaseConfig struct {
	DriverType string
	DriverArgs string
}

// ParseDatabaseConfigFromEnv fails when the connection env is absent, so a
// misconfigured process dies at startup instead of at first use.
func ParseDatabaseConfigFromEnv() (*DatabaseConfig, error) {
	driverType := os.Getenv("DATABASE_DRIVER")
	if driverType == "" {
		driverType = "mysql"
	}
	driverArgs := os.ExpandEnv(os.Getenv("DATABASE_URL"))
	if driverArgs == "" {
		return nil, fmt.Errorf("environment variable DATABASE_URL is not set")
	}
	return &DatabaseConfig{DriverType: driverType, DriverArgs: driverArgs}, nil
}

var databaseNamePattern = regexp.MustCompile(`(.*)/([^?]+)(\?.*)?`)

// PrepareMysqlDatabase creates the database named in driverArgs when absent.
func PrepareMysqlDatabase(driverArgs string) error {
	matches := databaseNamePattern.FindStringSubmatch(driverArgs)
	if len(matches) < 3 {
		return fmt.Errorf("unable to extract database name from connection string")
	}
	databaseName := matches[2]
	rootArgs := strings.Replace(driverArgs, "/"+databaseName, "/", 1)

	db, err := gorm.Open("mysql", rootArgs)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Exec("CREATE DATABASE IF NOT EXISTS " + databaseName +
		" DEFAULT CHARACTER SET utf8mb4 DEFAULT COLLATE utf8mb4_unicode_ci").Error
}
