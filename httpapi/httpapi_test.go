package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/voralis/formpilot/fields"
	"github.com/voralis/formpilot/formguard"
	"github.com/voralis/formpilot/regflow"
	"github.com/voralis/formpilot/service"
	"github.com/voralis/formpilot/store"
	"github.com/voralis/formpilot/submit"
)

func newTestServer(t *testing.T) (*httptest.Server, *fields.Memory, *formguard.Guard) {
	t.Helper()

	acc := fields.NewMemory()
	st, err := store.Open(filepath.Join(t.TempDir(), "fp.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	guard := formguard.New(acc, formguard.Config{})
	orch := regflow.New(submit.NewScript(),
		regflow.WithSleepFunc(func(context.Context, time.Duration) error { return nil }),
	)

	svc, err := service.New(service.Config{
		Guard:    guard,
		Orch:     orch,
		Store:    st,
		Accessor: acc,
	})
	if err != nil {
		t.Fatalf("service.New: %v", err)
	}

	srv := httptest.NewServer(New(svc, nil).Router())
	t.Cleanup(srv.Close)
	return srv, acc, guard
}

func fillForm(t *testing.T, acc *fields.Memory) {
	t.Helper()
	for id, v := range map[fields.ID]string{
		fields.FirstName:  "Alex",
		fields.LastName:   "Smith",
		fields.Email:      "alexsmith01",
		fields.Password:   "Sx7!kqmptr24",
		fields.BirthYear:  "1995",
		fields.BirthMonth: "07",
		fields.BirthDay:   "15",
		fields.Country:    "US",
	} {
		if err := acc.Set(id, v); err != nil {
			t.Fatal(err)
		}
	}
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, body, v any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	resp, err := http.Post(url, "application/json", &buf)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestStatusEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var st service.Status
	if code := getJSON(t, srv.URL+"/status", &st); code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	if st.State != "idle" {
		t.Errorf("state = %q, want idle", st.State)
	}
	if st.HistoryCount != 0 {
		t.Errorf("history count = %d, want 0", st.HistoryCount)
	}
}

func TestRegisterEndpoint(t *testing.T) {
	srv, acc, _ := newTestServer(t)
	fillForm(t, acc)

	var res regflow.Result
	code := postJSON(t, srv.URL+"/register", map[string]string{"profile": "standard"}, &res)
	if code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	if !res.Success || res.Email != "alexsmith01@outlook.com" {
		t.Errorf("result = %+v", res)
	}

	var recs []store.Record
	if code := getJSON(t, srv.URL+"/history", &recs); code != http.StatusOK {
		t.Fatalf("history status = %d", code)
	}
	if len(recs) != 1 {
		t.Errorf("history length = %d, want 1", len(recs))
	}
}

func TestRegisterUnknownProfileIs400(t *testing.T) {
	srv, acc, _ := newTestServer(t)
	fillForm(t, acc)

	code := postJSON(t, srv.URL+"/register", map[string]string{"profile": "turbo"}, nil)
	if code != http.StatusBadRequest {
		t.Errorf("status code = %d, want 400", code)
	}
}

func TestHistoryRejectsBadLimit(t *testing.T) {
	srv, _, _ := newTestServer(t)
	if code := getJSON(t, srv.URL+"/history?limit=abc", nil); code != http.StatusBadRequest {
		t.Errorf("status code = %d, want 400", code)
	}
}

func TestRecommendEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var out map[string]string
	code := postJSON(t, srv.URL+"/recommend",
		map[string]any{"previous_failures": 4}, &out)
	if code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	if out["profile"] != "aggressive" {
		t.Errorf("profile = %q, want aggressive", out["profile"])
	}
}

func TestExportImportEndpoints(t *testing.T) {
	srv, acc, guard := newTestServer(t)
	fillForm(t, acc)

	// No snapshot captured yet: export yields an empty document, import of
	// which is rejected.
	var empty store.Backup
	if code := getJSON(t, srv.URL+"/export", &empty); code != http.StatusOK {
		t.Fatalf("export status = %d", code)
	}
	if code := postJSON(t, srv.URL+"/import", empty, nil); code != http.StatusUnprocessableEntity {
		t.Errorf("import of empty backup: status = %d, want 422", code)
	}

	// Capture the live form, then export / wipe / import round-trips it.
	guard.SnapshotAll()
	var backup store.Backup
	if code := getJSON(t, srv.URL+"/export", &backup); code != http.StatusOK {
		t.Fatalf("export status = %d", code)
	}
	if len(backup.FormData) != 8 || backup.Version != store.BackupVersion {
		t.Fatalf("backup = %+v", backup)
	}

	for _, id := range fields.All() {
		if err := acc.Set(id, ""); err != nil {
			t.Fatal(err)
		}
	}

	var out map[string]int
	if code := postJSON(t, srv.URL+"/import", backup, &out); code != http.StatusOK {
		t.Fatalf("import status = %d", code)
	}
	if out["restored"] != 8 {
		t.Errorf("restored = %d, want 8", out["restored"])
	}
	if v, _ := acc.Get(fields.Email); v != "alexsmith01" {
		t.Errorf("email after import = %q", v)
	}
}
