package docs

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/d1freeez14/neuro-tender/internal/httpx"
)

func portalServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/ru/announce/index/12345678", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("tab") == "documents" {
			_, _ = fmt.Fprint(w, `
<html><body><table>
  <tr><td>Техническая спецификация</td><td><button onclick="actionModalShowFiles(111,7)">Показать</button></td></tr>
</table></body></html>`)
			return
		}
		_, _ = fmt.Fprint(w, announcementCard)
	})
	mux.HandleFunc("/ru/announce/actionAjaxModalShowFiles/12345678/7", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `
<html><body>
  <a href="/files/a">Спецификация</a>
  <a href="/files/b">Спецификация (копия)</a>
  <a href="/files/a/signature">ЭЦП</a>
</body></html>`)
	})
	serveFile := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) {
			_, _ = fmt.Fprint(w, body)
		}
	}
	mux.HandleFunc("/files/a", serveFile("первый файл"))
	mux.HandleFunc("/files/b", serveFile("второй файл"))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testDownloader(t *testing.T, baseURL, dataDir string) *Downloader {
	t.Helper()
	client := httpx.New(httpx.Config{
		Attempts:          2,
		RetryDelay:        time.Millisecond,
		RateLimitCooldown: time.Millisecond,
		Timeout:           time.Second,
	}, nil)
	return NewDownloader(client, baseURL, dataDir, 0, nil)
}

func TestAcquireDownloadsSpecificationFiles(t *testing.T) {
	t.Parallel()

	srv := portalServer(t)
	dataDir := t.TempDir()
	downloader := testDownloader(t, srv.URL, dataDir)

	a, err := downloader.Acquire(context.Background(), "12345678-1")
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	if a.Name != "Сопровождение СЭД" || a.OrganizerBIN != "123456789012" {
		t.Fatalf("announcement not enriched: %+v", a)
	}

	entries, err := os.ReadDir(filepath.Join(dataDir, "12345678-1"))
	if err != nil {
		t.Fatalf("read folder: %v", err)
	}
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	// Neither file declares a name, so both fall back to the category id; the
	// in-run collision gets a suffix and the signature link is skipped.
	want := []string{"7.pdf", "7_1.pdf"}
	if len(names) != len(want) || names[0] != want[0] || names[1] != want[1] {
		t.Fatalf("unexpected files: %v", names)
	}

	stats := downloader.Stats()
	if stats.TotalFiles != 2 || stats.DownloadedFiles != 2 || stats.Errors != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestAcquireSkipsFilesFromPreviousRun(t *testing.T) {
	t.Parallel()

	srv := portalServer(t)
	dataDir := t.TempDir()

	first := testDownloader(t, srv.URL, dataDir)
	if _, err := first.Acquire(context.Background(), "12345678-1"); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}

	second := testDownloader(t, srv.URL, dataDir)
	if _, err := second.Acquire(context.Background(), "12345678-1"); err != nil {
		t.Fatalf("second Acquire: %v", err)
	}

	stats := second.Stats()
	if stats.SkippedFiles != 2 || stats.DownloadedFiles != 0 {
		t.Fatalf("expected both files skipped on resume, got %+v", stats)
	}

	entries, err := os.ReadDir(filepath.Join(dataDir, "12345678-1"))
	if err != nil {
		t.Fatalf("read folder: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("resume must not create extra files, got %d", len(entries))
	}
}

func TestDispositionFilename(t *testing.T) {
	t.Parallel()

	cases := []struct {
		disposition string
		want        string
	}{
		{`attachment; filename="spec.pdf"`, "spec.pdf"},
		{`attachment; filename*=UTF-8''%D0%A2%D0%A1.pdf`, "ТС.pdf"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := dispositionFilename(tc.disposition); got != tc.want {
			t.Fatalf("dispositionFilename(%q) = %q, want %q", tc.disposition, got, tc.want)
		}
	}
}
