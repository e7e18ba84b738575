package config

type StorageType string

const STORAGE_TYPE_SQLITE StorageType = "sqlite"
const STORAGE_TYPE_REDIS StorageType = "redis"

type Config struct {
	HttpPort       int
	StorageType    StorageType
	SqliteConfig   SqliteStorageConfig
	RedisConfig    RedisStorageConfig
	AIConfig       AIConfig
	WhatsappConfig WhatsappConfig
	EngineConfig   EngineConfig
	LogLevel       string
}

type SqliteStorageConfig struct {
	Path string
}

type RedisStorageConfig struct {
	Addrs     []string
	Namespace string
	Password  string
}

type AIConfig struct {
	GeminiApiKey string
	GeminiModel  string
	OpenAIApiKey string
	OpenAIModel  string
}

type WhatsappConfig struct {
	PhoneNumberId string
	AccessToken   string
}

type EngineConfig struct {
	MaxDepth            int
	CacheTTLSeconds     int
	ScheduleTickSeconds int
}
