// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Storage       StorageConfig      `mapstructure:"storage"`
	Analyzers     AnalyzersConfig    `mapstructure:"analyzers"`
	Proxy         ProxyConfig        `mapstructure:"proxy"`
	Intake        IntakeConfig       `mapstructure:"intake"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	Index      string   `mapstructure:"index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// StorageConfig holds object storage settings. One bucket per document role.
type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`

	Buckets BucketConfig `mapstructure:"buckets"`
}

type BucketConfig struct {
	AssetPhotos    string `mapstructure:"asset_photos"`
	BankStatements string `mapstructure:"bank_statements"`
	MpesaDocuments string `mapstructure:"mpesa_documents"`
	IDDocuments    string `mapstructure:"id_documents"`
}

// AnalyzersConfig holds the fixed base URLs of the external scoring APIs.
type AnalyzersConfig struct {
	IDDocumentURL       string `mapstructure:"id_document_url"`
	AssetPhotosURL      string `mapstructure:"asset_photos_url"`
	BankStatementURL    string `mapstructure:"bank_statement_url"`
	MpesaStatementURL   string `mapstructure:"mpesa_statement_url"`
	CallLogsURL         string `mapstructure:"call_logs_url"`
	DrugImagesURL       string `mapstructure:"drug_images_url"`
	PrescriptionURL     string `mapstructure:"prescription_url"`
	MedicalInfoURL      string `mapstructure:"medical_info_url"`
	CreditEvaluationURL string `mapstructure:"credit_evaluation_url"`

	RequestTimeout int `mapstructure:"request_timeout"` // milliseconds
	RetryAttempts  int `mapstructure:"retry_attempts"`
	RetryBackoff   int `mapstructure:"retry_backoff"` // milliseconds, linear
}

// ProxyConfig holds the fixed downstream URLs for the thin proxy endpoints.
type ProxyConfig struct {
	ImageProcessingURL string `mapstructure:"image_processing_url"`
	PassthroughURL     string `mapstructure:"passthrough_url"`
	Timeout            int    `mapstructure:"timeout"` // milliseconds
}

// IntakeConfig holds draft/session settings.
type IntakeConfig struct {
	DraftTTL        int `mapstructure:"draft_ttl"`        // minutes
	SessionPollTick int `mapstructure:"session_poll_tick"` // seconds, admin fallback poll
}

// NotificationConfig holds settings for ops notifications.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
		OpsEmail  string `mapstructure:"ops_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled  bool   `mapstructure:"enabled"`
		OpsPhone string `mapstructure:"ops_phone"`
		SenderID string `mapstructure:"sender_id"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
