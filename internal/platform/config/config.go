package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort string

	// Store selects the repository backend: "postgres" or "memory".
	Store string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	// Queue selects the submission queue backend: "redis" or "memory".
	Queue         string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	QueueName     string

	WorkerCount int
	// RunningStaleSeconds is the age after which a RUNNING submission is
	// assumed orphaned by a crashed worker and requeued.
	RunningStaleSeconds    int
	ReclaimIntervalSeconds int

	DefaultTimeLimitSeconds int
	DefaultMemoryLimitMB    int

	// SandboxBackend selects the executor: "docker" (full isolation, the
	// default) or "local" (development hosts without docker).
	SandboxBackend      string
	SandboxDockerImage  string
	SandboxDockerCPUs   string
	SandboxRootDir      string
	SandboxNetIsolation bool
	MaxOutputBytes      int

	// LanguageCommands holds per-language compile/run command overrides,
	// e.g. JUDGE_CMD_RUN_PYTHON="python3 main.py". Keys are
	// "compile:<lang>" and "run:<lang>".
	LanguageCommands map[string]string
}

var AppConfig *Config

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = &Config{
		APIPort:    getEnv("API_PORT", "8080"),
		Store:      getEnv("STORE_BACKEND", "memory"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "user"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "codearena_db"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		Queue:         getEnv("QUEUE_BACKEND", "memory"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		QueueName:     getEnv("SUBMISSION_QUEUE_NAME", "submission_queue"),

		WorkerCount:            getEnvAsInt("WORKER_COUNT", 4),
		RunningStaleSeconds:    getEnvAsInt("RUNNING_STALE_SECONDS", 120),
		ReclaimIntervalSeconds: getEnvAsInt("RECLAIM_INTERVAL_SECONDS", 30),

		DefaultTimeLimitSeconds: getEnvAsInt("DEFAULT_TIME_LIMIT_SECONDS", 2),
		DefaultMemoryLimitMB:    getEnvAsInt("DEFAULT_MEMORY_LIMIT_MB", 256),

		SandboxBackend:      getEnv("SANDBOX_BACKEND", "docker"),
		SandboxDockerImage:  getEnv("SANDBOX_DOCKER_IMAGE", "codearena/executor"),
		SandboxDockerCPUs:   getEnv("SANDBOX_DOCKER_CPUS", "1"),
		SandboxRootDir:      getEnv("SANDBOX_ROOT_DIR", os.TempDir()),
		SandboxNetIsolation: getEnvAsBool("SANDBOX_NET_ISOLATION", true),
		MaxOutputBytes:      getEnvAsInt("MAX_OUTPUT_BYTES", 1<<20),

		LanguageCommands: loadLanguageCommands(),
	}

	AppConfig.DBConnStr = "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=" + AppConfig.DBSslMode
}

// loadLanguageCommands collects JUDGE_CMD_COMPILE_<LANG> and
// JUDGE_CMD_RUN_<LANG> overrides from the environment, keyed as
// "compile:<lang>" / "run:<lang>" with the language lowercased.
func loadLanguageCommands() map[string]string {
	cmds := make(map[string]string)
	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key, value := parts[0], parts[1]
		switch {
		case strings.HasPrefix(key, "JUDGE_CMD_COMPILE_"):
			lang := strings.ToLower(strings.TrimPrefix(key, "JUDGE_CMD_COMPILE_"))
			cmds["compile:"+lang] = value
		case strings.HasPrefix(key, "JUDGE_CMD_RUN_"):
			lang := strings.ToLower(strings.TrimPrefix(key, "JUDGE_CMD_RUN_"))
			cmds["run:"+lang] = value
		}
	}
	return cmds
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}
