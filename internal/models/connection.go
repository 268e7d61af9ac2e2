package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SourceKind string

const (
	SourceMySQL      SourceKind = "mysql"
	SourcePostgreSQL SourceKind = "postgresql"
	SourceSQLite     SourceKind = "sqlite"
	SourceCSV        SourceKind = "csv"
	SourceExcel      SourceKind = "excel"
	SourceJSON       SourceKind = "json"
	SourceREST       SourceKind = "rest"
)

// IsDatabase reports whether the kind is a SQL database source.
func (k SourceKind) IsDatabase() bool {
	return k == SourceMySQL || k == SourcePostgreSQL || k == SourceSQLite
}

// IsFile reports whether the kind is a file-backed source.
func (k SourceKind) IsFile() bool {
	return k == SourceCSV || k == SourceExcel || k == SourceJSON
}

// DatabaseConfig holds connection parameters for SQL sources.
// Path is used by SQLite only; the network fields by MySQL/PostgreSQL.
type DatabaseConfig struct {
	Host     string `json:"host" bson:"host"`
	Port     int    `json:"port" bson:"port"`
	Database string `json:"database" bson:"database"`
	Username string `json:"username" bson:"username"`
	Password string `json:"password" bson:"password"`
	Path     string `json:"path,omitempty" bson:"path,omitempty"`
}

// FileConfig holds parameters for CSV/Excel/JSON sources.
type FileConfig struct {
	Path       string `json:"path" bson:"path"`
	Delimiter  string `json:"delimiter,omitempty" bson:"delimiter,omitempty"`
	HasHeaders bool   `json:"has_headers" bson:"has_headers"`
	Sheet      string `json:"sheet,omitempty" bson:"sheet,omitempty"`
}

type AuthType string

const (
	AuthNone        AuthType = "none"
	AuthBearer      AuthType = "bearer"
	AuthAPIKeyHead  AuthType = "api-key-header"
	AuthAPIKeyQuery AuthType = "api-key-query"
	AuthBasic       AuthType = "basic"
)

// APIConfig holds parameters for REST sources.
type APIConfig struct {
	URL       string            `json:"url" bson:"url"`
	AuthType  AuthType          `json:"auth_type" bson:"auth_type"`
	Token     string            `json:"token,omitempty" bson:"token,omitempty"`
	APIKey    string            `json:"api_key,omitempty" bson:"api_key,omitempty"`
	KeyName   string            `json:"key_name,omitempty" bson:"key_name,omitempty"`
	Username  string            `json:"username,omitempty" bson:"username,omitempty"`
	Password  string            `json:"password,omitempty" bson:"password,omitempty"`
	Headers   map[string]string `json:"headers,omitempty" bson:"headers,omitempty"`
}

// ConnectionConfig is a tagged variant over the supported source kinds:
// Kind selects exactly one of the payload pointers. Use Validate before
// handing a config to a connector.
type ConnectionConfig struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	Kind      SourceKind         `json:"kind" bson:"kind"`
	Database  *DatabaseConfig    `json:"database,omitempty" bson:"database,omitempty"`
	File      *FileConfig        `json:"file,omitempty" bson:"file,omitempty"`
	API       *APIConfig         `json:"api,omitempty" bson:"api,omitempty"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

// Validate checks that the kind tag matches the populated payload and that
// the payload carries the fields its kind requires.
func (c *ConnectionConfig) Validate() error {
	switch c.Kind {
	case SourceMySQL, SourcePostgreSQL:
		if c.Database == nil {
			return fmt.Errorf("%s connection requires database settings", c.Kind)
		}
		if c.Database.Host == "" || c.Database.Database == "" || c.Database.Username == "" {
			return fmt.Errorf("%s connection requires host, database and username", c.Kind)
		}
	case SourceSQLite:
		if c.Database == nil || c.Database.Path == "" {
			return fmt.Errorf("sqlite connection requires a file path")
		}
	case SourceCSV, SourceExcel, SourceJSON:
		if c.File == nil || c.File.Path == "" {
			return fmt.Errorf("%s connection requires a file path", c.Kind)
		}
	case SourceREST:
		if c.API == nil || c.API.URL == "" {
			return fmt.Errorf("rest connection requires an API URL")
		}
	default:
		return fmt.Errorf("unknown source kind: %q", c.Kind)
	}
	return nil
}
