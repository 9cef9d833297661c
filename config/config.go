package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// RegistryBackend selects where named playlists are persisted.
type RegistryBackend string

const (
	RegistryBackendFile  RegistryBackend = "file"
	RegistryBackendRedis RegistryBackend = "redis"
)

// Config stores the service configuration, read from the environment.
type Config struct {
	BindAddress string
	Port        int

	LibraryRoots []string // PLAYA_LIBPATH, split on os.PathListSeparator
	LibraryIndex string   // compressed library index file
	LibraryWatch bool     // rescan when files under the roots change

	PlaylistsPath   string // compressed playlist registry file
	RegistryBackend RegistryBackend

	TickInterval  time.Duration
	HistoryChunks int
	UndoLimit     int

	Lastfm LastfmConfig

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool

	DBDSN string // MySQL DSN for the play log, empty disables it

	LogLevel string
	LogFile  string
}

// LastfmConfig holds the last.fm credential bundle.
type LastfmConfig struct {
	User   string
	Pass   string
	Key    string
	Secret string
}

// Enabled reports whether every credential is present.
func (c LastfmConfig) Enabled() bool {
	return c.User != "" && c.Pass != "" && c.Key != "" && c.Secret != ""
}

// HasMinio reports whether the state mirror is configured.
func (c *Config) HasMinio() bool {
	return c.MinioEndpoint != "" && c.MinioBucket != ""
}

// HasDatabase reports whether the play log database is configured.
func (c *Config) HasDatabase() bool {
	return c.DBDSN != ""
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.BindAddress + ":" + strconv.Itoa(c.Port)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("500ms") and plain seconds ("0.5").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	return fallback
}

func splitRoots(value string) []string {
	var roots []string
	for _, root := range filepath.SplitList(value) {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		roots = append(roots, expandPath(root))
	}
	return roots
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

func dataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".playa")
	}
	return ".playa"
}

func defaultMusicDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "Music")
	}
	return "Music"
}

// Load reads the .env file (if any) and the environment.
// Existing environment variables win over .env entries.
func Load() *Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds the configuration from the current environment only.
func FromEnv() *Config {
	dir := dataDir()

	roots := splitRoots(getEnv("PLAYA_LIBPATH", ""))
	if len(roots) == 0 {
		roots = []string{defaultMusicDir()}
	}

	backend := RegistryBackend(strings.ToLower(getEnv("PLAYA_REGISTRY_BACKEND", string(RegistryBackendFile))))
	if backend != RegistryBackendRedis {
		backend = RegistryBackendFile
	}

	historyChunks := getEnvInt("PLAYA_HISTORY_CHUNKS", 3)
	if historyChunks < 1 {
		historyChunks = 1
	}

	return &Config{
		BindAddress: getEnv("PLAYA_BIND_ADDRESS", "localhost"),
		Port:        getEnvInt("PLAYA_PORT", 8070),

		LibraryRoots: roots,
		LibraryIndex: expandPath(getEnv("PLAYA_LIBRARY_INDEX", filepath.Join(dir, "library"))),
		LibraryWatch: getEnvBool("PLAYA_LIBRARY_WATCH", false),

		PlaylistsPath:   expandPath(getEnv("PLAYA_PLAYLISTS", filepath.Join(dir, "playlists"))),
		RegistryBackend: backend,

		TickInterval:  getEnvDuration("PLAYA_TICK_INTERVAL", time.Second),
		HistoryChunks: historyChunks,
		UndoLimit:     getEnvInt("PLAYA_UNDO_LIMIT", 100),

		Lastfm: LastfmConfig{
			User:   os.Getenv("PLAYA_LASTFM_USER"),
			Pass:   os.Getenv("PLAYA_LASTFM_PASS"),
			Key:    os.Getenv("PLAYA_LASTFM_KEY"),
			Secret: os.Getenv("PLAYA_LASTFM_SECRET"),
		},

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "playa"),
		MinioRegion:    getEnv("MINIO_REGION", ""),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		DBDSN: os.Getenv("PLAYA_DB_DSN"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),
	}
}
