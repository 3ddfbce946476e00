package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"stocklog/internal/config"
	"stocklog/pkg/tradelog"
)

func (h *handler) coreLockMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.coreMu.RLock()
		defer h.coreMu.RUnlock()
		if h.core == nil {
			writeErrorResponse(w, r, tradelog.NewError(tradelog.ErrCodeInternal, "ledger database is closed"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *handler) getStorageInfo(w http.ResponseWriter, r *http.Request) {
	override := config.DBPathOverride()
	dbPath := h.core.DBPath()
	dataDir := filepath.Dir(dbPath)
	if override == "" {
		dir, err := config.GetDataDir()
		if err != nil {
			writeErrorResponse(w, r, tradelog.WrapError(tradelog.ErrCodeInternal, "load data dir", err))
			return
		}
		dataDir = dir
	}
	dbName := filepath.Base(dbPath)

	available, err := listDBFiles(dataDir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			writeErrorResponse(w, r, tradelog.WrapError(tradelog.ErrCodeInternal, "list storage files", err))
			return
		}
		available = []string{}
	}
	if !containsString(available, dbName) {
		available = append([]string{dbName}, available...)
	}

	resp := storageInfoResponse{
		DBName:    dbName,
		DBPath:    dbPath,
		DataDir:   dataDir,
		Available: available,
		CanSwitch: override == "",
	}
	if !resp.CanSwitch {
		resp.SwitchReason = "Switching disabled when STOCK_LOG_DB_PATH is set."
	}
	writeJSON(w, http.StatusOK, resp)
}

// switchStorage opens another ledger file in the data directory, records it
// as the configured database and swaps it in under the write lock.
func (h *handler) switchStorage(w http.ResponseWriter, r *http.Request) {
	if config.DBPathOverride() != "" {
		writeBadRequest(w, r, "switching disabled when STOCK_LOG_DB_PATH is set")
		return
	}

	var payload storageSwitchPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	dbName, err := sanitizeDBName(payload.DBName)
	if err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}

	dataDir, err := config.GetDataDir()
	if err != nil {
		writeErrorResponse(w, r, tradelog.WrapError(tradelog.ErrCodeInternal, "load data dir", err))
		return
	}
	targetPath := filepath.Join(dataDir, dbName)

	h.coreMu.RLock()
	currentPath := ""
	if h.core != nil {
		currentPath = h.core.DBPath()
	}
	h.coreMu.RUnlock()
	if currentPath != "" && filepath.Clean(currentPath) == filepath.Clean(targetPath) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "active", "db_name": dbName})
		return
	}

	if info, err := os.Stat(targetPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			writeErrorResponse(w, r, tradelog.WrapError(tradelog.ErrCodeInternal, "stat storage file", err))
			return
		}
		if !payload.Create {
			writeErrorResponse(w, r, tradelog.NewError(tradelog.ErrCodeNotFound, "storage file not found: "+dbName))
			return
		}
	} else if info.IsDir() {
		writeBadRequest(w, r, "storage path is a directory")
		return
	}

	open := h.openCore
	if open == nil {
		open = func(path string) (*tradelog.Core, error) {
			return tradelog.OpenWithOptions(tradelog.Options{DBPath: path, Logger: h.logger})
		}
	}
	newCore, err := open(targetPath)
	if err != nil {
		writeErrorResponse(w, r, tradelog.WrapError(tradelog.ErrCodeDatabase, "open storage file", err))
		return
	}

	cfg := config.LoadUserConfig()
	cfg.DBName = dbName
	cfg.SetupComplete = true
	if err := config.SaveUserConfig(cfg); err != nil {
		if closeErr := newCore.Close(); closeErr != nil {
			h.logger.Error("failed to close new core after config save error", "err", closeErr)
		}
		writeErrorResponse(w, r, tradelog.WrapError(tradelog.ErrCodeInternal, "save config", err))
		return
	}

	h.coreMu.Lock()
	oldCore := h.core
	h.core = newCore
	h.coreMu.Unlock()

	if oldCore != nil {
		if closeErr := oldCore.Close(); closeErr != nil {
			h.logger.Error("failed to close old core after storage switch", "err", closeErr)
		}
	}
	h.logger.Info("storage switched", "db_path", targetPath)
	writeJSON(w, http.StatusOK, map[string]string{"status": "switched", "db_name": dbName})
}

func sanitizeDBName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", errors.New("storage file name is required")
	}
	if strings.ContainsAny(name, `/\`) {
		return "", errors.New("storage file name must not include a path")
	}
	if name == "." || name == ".." {
		return "", fmt.Errorf("invalid storage file name %q", name)
	}
	if !strings.HasSuffix(strings.ToLower(name), ".db") {
		name += ".db"
	}
	return name, nil
}

func listDBFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.EqualFold(filepath.Ext(name), ".db") {
			files = append(files, name)
		}
	}
	sort.Strings(files)
	return files, nil
}

func containsString(items []string, value string) bool {
	for _, item := range items {
		if item == value {
			return true
		}
	}
	return false
}
