package api

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"stocklog/internal/config"
	"stocklog/pkg/tradelog"
)

func TestSanitizeDBName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "empty", input: "", wantErr: true},
		{name: "spaces", input: "   ", wantErr: true},
		{name: "path", input: "../test.db", wantErr: true},
		{name: "separator", input: "foo/bar.db", wantErr: true},
		{name: "windows separator", input: `foo\bar`, wantErr: true},
		{name: "dots", input: "..", wantErr: true},
		{name: "base name", input: "alice", want: "alice.db"},
		{name: "db ext", input: "bob.db", want: "bob.db"},
		{name: "upper ext", input: "CARL.DB", want: "CARL.DB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sanitizeDBName(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestListDBFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.db", "b.DB", "c.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "subdir.db"), 0o755); err != nil {
		t.Fatalf("make dir: %v", err)
	}

	got, err := listDBFiles(dir)
	if err != nil {
		t.Fatalf("listDBFiles: %v", err)
	}
	if want := []string{"a.db", "b.DB"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

// setupStorageRouter opens alpha.db in an isolated data dir with its own
// config file.
func setupStorageRouter(t *testing.T) (*Router, string) {
	t.Helper()

	root := t.TempDir()
	dataDir := filepath.Join(root, "data")
	t.Setenv("STOCK_LOG_CONFIG", filepath.Join(root, "config.json"))
	t.Setenv("STOCK_LOG_DATA_DIR", dataDir)
	t.Setenv("STOCK_LOG_DB_PATH", "")
	config.SetRuntimeDataDir("")

	if err := config.SaveUserConfig(config.UserConfig{DBName: "alpha.db", SetupComplete: true}); err != nil {
		t.Fatalf("save config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	core, err := tradelog.OpenWithOptions(tradelog.Options{DBPath: filepath.Join(dataDir, "alpha.db"), Logger: logger})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	router := NewRouter(core, logger)
	t.Cleanup(func() { _ = router.Close() })
	return router, dataDir
}

func TestGetStorageInfo(t *testing.T) {
	router, dataDir := setupStorageRouter(t)
	if err := os.WriteFile(filepath.Join(dataDir, "beta.db"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write extra db: %v", err)
	}

	rr := doRequest(router, http.MethodGet, "/api/storage", nil)
	expectStatus(t, rr, http.StatusOK)
	resp := decodeBody[storageInfoResponse](t, rr)
	if resp.DBName != "alpha.db" || filepath.Clean(resp.DataDir) != filepath.Clean(dataDir) {
		t.Fatalf("unexpected storage info: %+v", resp)
	}
	if want := []string{"alpha.db", "beta.db"}; !reflect.DeepEqual(resp.Available, want) {
		t.Fatalf("expected available %v, got %v", want, resp.Available)
	}
	if !resp.CanSwitch || resp.SwitchReason != "" {
		t.Fatalf("expected switching allowed, got %+v", resp)
	}
}

func TestGetStorageInfoWithEnvPath(t *testing.T) {
	router, _ := setupStorageRouter(t)
	t.Setenv("STOCK_LOG_DB_PATH", filepath.Join(t.TempDir(), "pinned.db"))

	rr := doRequest(router, http.MethodGet, "/api/storage", nil)
	expectStatus(t, rr, http.StatusOK)
	resp := decodeBody[storageInfoResponse](t, rr)
	if resp.CanSwitch || resp.SwitchReason == "" {
		t.Fatalf("expected switching disabled, got %+v", resp)
	}
}

func TestSwitchStorage(t *testing.T) {
	router, dataDir := setupStorageRouter(t)
	stock := createStock(t, router, "600519", "贵州茅台")

	rr := doRequest(router, http.MethodPost, "/api/storage/switch", storageSwitchPayload{DBName: "missing"})
	expectError(t, rr, http.StatusNotFound, tradelog.ErrCodeNotFound)

	rr = doRequest(router, http.MethodPost, "/api/storage/switch", storageSwitchPayload{DBName: "alpha"})
	expectStatus(t, rr, http.StatusOK)
	if got := decodeBody[map[string]string](t, rr)["status"]; got != "active" {
		t.Fatalf("expected status active, got %q", got)
	}

	if err := os.Mkdir(filepath.Join(dataDir, "dir.db"), 0o755); err != nil {
		t.Fatalf("make dir: %v", err)
	}
	rr = doRequest(router, http.MethodPost, "/api/storage/switch", storageSwitchPayload{DBName: "dir.db"})
	expectError(t, rr, http.StatusBadRequest, tradelog.ErrCodeInvalidInput)

	rr = doRequest(router, http.MethodPost, "/api/storage/switch", storageSwitchPayload{DBName: "second", Create: true})
	expectStatus(t, rr, http.StatusOK)
	if got := decodeBody[map[string]string](t, rr)["status"]; got != "switched" {
		t.Fatalf("expected status switched, got %q", got)
	}
	if got := filepath.Base(router.Core().DBPath()); got != "second.db" {
		t.Fatalf("expected second.db active, got %q", got)
	}
	if cfg := config.LoadUserConfig(); cfg.DBName != "second.db" {
		t.Fatalf("expected config to record the new db, got %+v", cfg)
	}

	// The new ledger is empty; switching back restores the original data.
	rr = doRequest(router, http.MethodGet, "/api/stocks", nil)
	if stocks := decodeBody[[]tradelog.Stock](t, rr); len(stocks) != 0 {
		t.Fatalf("expected empty ledger, got %d stocks", len(stocks))
	}
	expectStatus(t, doRequest(router, http.MethodPost, "/api/storage/switch", storageSwitchPayload{DBName: "alpha.db"}), http.StatusOK)
	expectStatus(t, doRequest(router, http.MethodGet, "/api/stocks/"+stock.ID, nil), http.StatusOK)
}

func TestSwitchStorageUsesCoreOpener(t *testing.T) {
	router, _ := setupStorageRouter(t)
	var opened string
	router.WithCoreOpener(func(path string) (*tradelog.Core, error) {
		opened = path
		return tradelog.Open(path)
	})

	rr := doRequest(router, http.MethodPost, "/api/storage/switch", storageSwitchPayload{DBName: "custom", Create: true})
	expectStatus(t, rr, http.StatusOK)
	if filepath.Base(opened) != "custom.db" {
		t.Fatalf("expected opener to receive custom.db, got %q", opened)
	}
}

func TestSwitchStorageDisabledByEnv(t *testing.T) {
	router, _ := setupStorageRouter(t)
	t.Setenv("STOCK_LOG_DB_PATH", filepath.Join(t.TempDir(), "locked.db"))

	rr := doRequest(router, http.MethodPost, "/api/storage/switch", storageSwitchPayload{DBName: "ignored.db"})
	expectError(t, rr, http.StatusBadRequest, tradelog.ErrCodeInvalidInput)
}
