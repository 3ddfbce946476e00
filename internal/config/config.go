package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultDBName = "stocklog.db"

	envDataDir = "STOCK_LOG_DATA_DIR"
	envDBPath  = "STOCK_LOG_DB_PATH"
	envConfig  = "STOCK_LOG_CONFIG"
)

// UserConfig is the persisted per-user configuration.
type UserConfig struct {
	DBName            string `json:"db_name" yaml:"db_name"`
	DataDir           string `json:"data_dir" yaml:"data_dir"`
	LogLevel          string `json:"log_level,omitempty" yaml:"log_level,omitempty"`
	QuoteCacheSeconds int    `json:"quote_cache_seconds,omitempty" yaml:"quote_cache_seconds,omitempty"`
	SetupComplete     bool   `json:"setup_complete" yaml:"setup_complete"`
}

var runtimeDataDir string
var runtimePort = 8000

func IsMacOS() bool {
	return runtime.GOOS == "darwin"
}

func IsWindows() bool {
	return runtime.GOOS == "windows"
}

func SetRuntimeDataDir(dir string) {
	runtimeDataDir = dir
}

func SetRuntimePort(port int) {
	if port > 0 {
		runtimePort = port
	}
}

func GetRuntimePort() int {
	return runtimePort
}

func appConfigDir() (string, error) {
	if IsMacOS() {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "StockLog"), nil
	}
	if IsWindows() {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = home
		}
		return filepath.Join(appData, "StockLog"), nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "stocklog"), nil
	}
	return filepath.Join(configDir, "stocklog"), nil
}

// ConfigPath returns the config file location. STOCK_LOG_CONFIG wins;
// otherwise an existing config.yaml in the app dir is preferred over
// config.json.
func ConfigPath() (string, error) {
	if env := strings.TrimSpace(os.Getenv(envConfig)); env != "" {
		return filepath.Clean(env), nil
	}
	dir, err := appConfigDir()
	if err != nil {
		return "", err
	}
	for _, name := range []string{"config.yaml", "config.yml"} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return filepath.Join(dir, "config.json"), nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func IsFirstRun() bool {
	path, err := ConfigPath()
	if err != nil {
		return true
	}
	_, err = os.Stat(path)
	return err != nil
}

func defaultUserConfig() UserConfig {
	return UserConfig{DBName: defaultDBName}
}

// LoadUserConfig reads the config file, falling back to defaults when it is
// missing or unreadable.
func LoadUserConfig() UserConfig {
	cfg := defaultUserConfig()
	path, err := ConfigPath()
	if err != nil {
		return cfg
	}
	loaded, err := readConfigFile(path)
	if err != nil {
		return cfg
	}
	if loaded.DBName == "" {
		loaded.DBName = defaultDBName
	}
	return loaded
}

func readConfigFile(path string) (UserConfig, error) {
	cfg := defaultUserConfig()
	file, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return cfg, err
	}
	if isYAML(path) {
		err = yaml.Unmarshal(data, &cfg)
	} else {
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return defaultUserConfig(), fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// SaveUserConfig writes cfg to ConfigPath in the format its extension names.
func SaveUserConfig(cfg UserConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	var data []byte
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, srcFile); err != nil {
		return err
	}
	return out.Sync()
}

// CompleteSetup records the chosen data directory and database name. An
// existing database is copied into customDataDir when one is given, or used
// in place otherwise.
func CompleteSetup(customDataDir, existingDBPath, dbName string) (string, error) {
	cfg := LoadUserConfig()
	selectedName := strings.TrimSpace(dbName)
	if selectedName == "" {
		selectedName = cfg.DBName
	}

	var dataDir string
	switch {
	case existingDBPath != "":
		existingDBPath = filepath.Clean(existingDBPath)
		info, err := os.Stat(existingDBPath)
		if err != nil {
			return "", err
		}
		if info.IsDir() {
			return "", fmt.Errorf("database path is a directory")
		}
		selectedName = filepath.Base(existingDBPath)
		if customDataDir != "" {
			dataDir = filepath.Clean(customDataDir)
			if err := copyFile(existingDBPath, filepath.Join(dataDir, selectedName)); err != nil {
				return "", err
			}
		} else {
			dataDir = filepath.Dir(existingDBPath)
		}
	case customDataDir != "":
		dataDir = filepath.Clean(customDataDir)
	default:
		dir, err := appConfigDir()
		if err != nil {
			return "", err
		}
		dataDir = dir
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", err
	}
	cfg.DataDir = dataDir
	cfg.DBName = selectedName
	cfg.SetupComplete = true
	if err := SaveUserConfig(cfg); err != nil {
		return "", err
	}
	return dataDir, nil
}

// GetDataDir resolves the data directory: runtime flag, then
// STOCK_LOG_DATA_DIR, then the config file, then the app config dir.
func GetDataDir() (string, error) {
	dir := runtimeDataDir
	if dir == "" {
		dir = os.Getenv(envDataDir)
	}
	if dir == "" {
		dir = LoadUserConfig().DataDir
	}
	if dir == "" {
		var err error
		if dir, err = appConfigDir(); err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// DBPathOverride returns STOCK_LOG_DB_PATH, which pins the database and
// disables storage switching.
func DBPathOverride() string {
	return strings.TrimSpace(os.Getenv(envDBPath))
}

func GetDBPath() (string, error) {
	if envPath := DBPathOverride(); envPath != "" {
		return envPath, nil
	}
	cfg := LoadUserConfig()
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, cfg.DBName), nil
}
