package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-tests-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:     "db",
		Port:     5432,
		User:     "grader",
		Password: "it's secret",
		Name:     "school_tests",
	})
	assert.Equal(t, `host=db port=5432 user=grader password='it\'s secret' dbname=school_tests sslmode=disable`, dsn)
}

func TestDSNSkipsEmptyValues(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, Name: "school_tests", SSLMode: "require"})
	assert.Equal(t, "host=db port=5432 dbname=school_tests sslmode=require", dsn)
}
