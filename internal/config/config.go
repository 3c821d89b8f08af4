package config

import (
	"github.com/IBM/sarama"
	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Database  *dbConfig
	Service   *svcConfig
	Collector *collectorConfig
	Batch     *batchConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"pgsql"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"shop_collector"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type svcConfig struct {
	Address         string `envconfig:"SHOP_COLLECTOR_ADDRESS" default:":8080"`
	LogLevel        string `envconfig:"SHOP_COLLECTOR_LOG_LEVEL" default:"info"`
	MigrationFolder string `envconfig:"SHOP_COLLECTOR_MIGRATIONS_FOLDER" default:""`
	Kafka           kafkaConfig
}

type kafkaConfig struct {
	Brokers  []string            `envconfig:"SHOP_COLLECTOR_KAFKA_BROKERS" default:""`
	Topic    string              `envconfig:"SHOP_COLLECTOR_KAFKA_TOPIC" default:""`
	Version  sarama.KafkaVersion `envconfig:"SHOP_COLLECTOR_KAFKA_VERSION" default:""`
	ClientID string              `envconfig:"SHOP_COLLECTOR_KAFKA_CLIENT_ID" default:""`
}

// collectorConfig holds the Naver Shopping search API client settings.
// ClientID and ClientSecret are mandatory in production; they are left
// without defaults so a missing value fails loudly at the first call.
type collectorConfig struct {
	ClientID       string `envconfig:"NAVER_CLIENT_ID" default:""`
	ClientSecret   string `envconfig:"NAVER_CLIENT_SECRET" default:""`
	ApiUrl         string `envconfig:"NAVER_SHOPPING_API_URL" default:"https://openapi.naver.com/v1/search/shop.json"`
	PageSize       int    `envconfig:"NAVER_PAGE_SIZE" default:"100"`
	MaxPerKeyword  int    `envconfig:"NAVER_MAX_PER_KEYWORD" default:"1000"`
	RequestTimeout int    `envconfig:"NAVER_REQUEST_TIMEOUT_SECONDS" default:"30"`
	RetryAttempts  int    `envconfig:"NAVER_RETRY_ATTEMPTS" default:"3"`
}

// batchConfig bounds the per-run knobs captured at submission.
type batchConfig struct {
	DefaultDelaySeconds      int `envconfig:"BATCH_DEFAULT_DELAY_SECONDS" default:"60"`
	MinDelaySeconds          int `envconfig:"BATCH_MIN_DELAY_SECONDS" default:"5"`
	MaxDelaySeconds          int `envconfig:"BATCH_MAX_DELAY_SECONDS" default:"300"`
	KeywordTimeoutSeconds    int `envconfig:"BATCH_KEYWORD_TIMEOUT_SECONDS" default:"600"`
	HeartbeatIntervalSeconds int `envconfig:"BATCH_HEARTBEAT_INTERVAL_SECONDS" default:"15"`
}

func New() (*Config, error) {
	if singleConfig == nil {
		singleConfig = new(Config)
		if err := envconfig.Process("", singleConfig); err != nil {
			return nil, err
		}
	}
	return singleConfig, nil
}
