package settings

import (
	"os"
	"strconv"

	"boxmark/internal/store/blob"
	"boxmark/internal/store/postgres"
)

const (
	EnvConfig            = "BOXMARK_CONFIG"
	EnvSnapToGrid        = "BOXMARK_SNAP_TO_GRID"
	EnvGridSize          = "BOXMARK_GRID_SIZE"
	EnvLockAspectRatio   = "BOXMARK_LOCK_ASPECT_RATIO"
	EnvAnnotationOpacity = "BOXMARK_ANNOTATION_OPACITY"
	EnvHistoryCapacity   = "BOXMARK_HISTORY_CAPACITY"
	EnvSaveDebounce      = "BOXMARK_SAVE_DEBOUNCE"
	EnvStoreKind         = "BOXMARK_STORE_KIND"
	EnvStoreDir          = "BOXMARK_STORE_DIR"
	EnvLogLevel          = "BOXMARK_LOG_LEVEL"
	EnvLogFile           = "BOXMARK_LOG_FILE"
)

var postgresEnv = &postgres.Env{
	Host:            "BOXMARK_DB_HOST",
	Port:            "BOXMARK_DB_PORT",
	Name:            "BOXMARK_DB_NAME",
	User:            "BOXMARK_DB_USER",
	Password:        "BOXMARK_DB_PASSWORD",
	SSLMode:         "BOXMARK_DB_SSL_MODE",
	MaxOpenConns:    "BOXMARK_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "BOXMARK_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "BOXMARK_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "BOXMARK_DB_CONN_TIMEOUT",
}

var blobEnv = &blob.Env{
	ContainerName:    "BOXMARK_BLOB_CONTAINER_NAME",
	ConnectionString: "BOXMARK_BLOB_CONNECTION_STRING",
	AccountURL:       "BOXMARK_BLOB_ACCOUNT_URL",
	Prefix:           "BOXMARK_BLOB_PREFIX",
}

// loadEnv applies overrides. Values that do not parse are ignored so the
// file or default value stands.
func (s *Settings) loadEnv() {
	if v, ok := envBool(EnvSnapToGrid); ok {
		s.Editor.SnapToGrid = v
	}
	if v, ok := envFloat(EnvGridSize); ok {
		s.Editor.GridSize = v
	}
	if v, ok := envBool(EnvLockAspectRatio); ok {
		s.Editor.LockAspectRatio = v
	}
	if v, ok := envFloat(EnvAnnotationOpacity); ok {
		s.Editor.AnnotationOpacity = v
	}
	if v := os.Getenv(EnvHistoryCapacity); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.Engine.HistoryCapacity = n
		}
	}
	if v := os.Getenv(EnvSaveDebounce); v != "" {
		s.Engine.SaveDebounce = v
	}
	if v := os.Getenv(EnvStoreKind); v != "" {
		s.Store.Kind = v
	}
	if v := os.Getenv(EnvStoreDir); v != "" {
		s.Store.Dir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		s.Log.Level = v
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		s.Log.File = v
	}
}

func envBool(name string) (bool, bool) {
	v := os.Getenv(name)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	return b, err == nil
}

func envFloat(name string) (float64, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	return f, err == nil
}
