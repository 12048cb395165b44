package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/voralis/formpilot/fields"
	"github.com/voralis/formpilot/formguard"
	"github.com/voralis/formpilot/regflow"
	"github.com/voralis/formpilot/store"
	"github.com/voralis/formpilot/submit"
)

func newTestService(t *testing.T, sub submit.Submitter) (*Service, *fields.Memory) {
	t.Helper()

	acc := fields.NewMemory()
	st, err := store.Open(filepath.Join(t.TempDir(), "fp.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	guard := formguard.New(acc, formguard.Config{})
	orch := regflow.New(sub,
		regflow.WithSleepFunc(noSleep),
	)

	svc, err := New(Config{
		Guard:    guard,
		Orch:     orch,
		Store:    st,
		Accessor: acc,
	})
	if err != nil {
		t.Fatalf("service.New: %v", err)
	}
	return svc, acc
}

func noSleep(context.Context, time.Duration) error { return nil }

func fillForm(t *testing.T, acc *fields.Memory) {
	t.Helper()
	values := map[fields.ID]string{
		fields.FirstName:  "Alex",
		fields.LastName:   "Smith",
		fields.Email:      "alexsmith01",
		fields.Password:   "Sx7!kqmptr24",
		fields.BirthYear:  "1995",
		fields.BirthMonth: "07",
		fields.BirthDay:   "15",
		fields.Country:    "US",
	}
	for id, v := range values {
		if err := acc.Set(id, v); err != nil {
			t.Fatalf("Set %s: %v", id, err)
		}
	}
}

func TestRegisterPersistsOutcome(t *testing.T) {
	svc, acc := newTestService(t, submit.NewScript(nil))
	fillForm(t, acc)
	ctx := context.Background()

	res, err := svc.Register(ctx, "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !res.Success {
		t.Fatal("result not successful")
	}
	if res.Email != "alexsmith01@outlook.com" {
		t.Errorf("email = %q, want alexsmith01@outlook.com", res.Email)
	}
	if res.Profile != "standard" {
		t.Errorf("profile = %q, want default standard", res.Profile)
	}

	recs, err := svc.History(ctx, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(recs) != 1 || recs[0].Email != "alexsmith01@outlook.com" {
		t.Errorf("history = %+v, want one record for the registration", recs)
	}

	// Stats land in the store so a fresh session can pick them up.
	counters, err := svc.store.LoadStats(ctx)
	if err != nil {
		t.Fatalf("LoadStats: %v", err)
	}
	if c := counters["standard"]; c.Attempts != 1 || c.Successes != 1 {
		t.Errorf("persisted counters = %+v", c)
	}
}

func TestRegisterFillsMissingFields(t *testing.T) {
	script := submit.NewScript(nil)
	svc, acc := newTestService(t, script)
	// Only a name typed in; the rest is generated.
	if err := acc.Set(fields.FirstName, "Alex"); err != nil {
		t.Fatal(err)
	}

	res, err := svc.Register(context.Background(), "standard")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !res.Success {
		t.Fatal("result not successful")
	}
	if len(script.Calls) != 1 {
		t.Fatalf("submit calls = %d, want 1", len(script.Calls))
	}
	p := script.Calls[0]
	if p.FirstName != "Alex" {
		t.Errorf("typed first name replaced: %q", p.FirstName)
	}
	if p.Password == "" || p.Email == "" || p.Country == "" {
		t.Errorf("missing fields not generated: %+v", p)
	}
}

func TestRegisterUnknownProfile(t *testing.T) {
	svc, acc := newTestService(t, submit.NewScript(nil))
	fillForm(t, acc)

	_, err := svc.Register(context.Background(), "turbo")
	var use *regflow.UnknownStrategyError
	if !errors.As(err, &use) {
		t.Fatalf("err = %v, want UnknownStrategyError", err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	svc, acc := newTestService(t, submit.NewScript(nil))
	fillForm(t, acc)
	ctx := context.Background()

	// Capture the live form into the guard's snapshot, then export.
	svc.guard.SnapshotAll()
	backup, err := svc.Export(ctx)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if backup.Version != store.BackupVersion || len(backup.FormData) != 8 {
		t.Fatalf("backup = %+v", backup)
	}

	// Wipe the form, then import the backup.
	for _, id := range fields.All() {
		if err := acc.Set(id, ""); err != nil {
			t.Fatal(err)
		}
	}
	svc.guard.Clear()

	n, err := svc.Import(ctx, backup)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if n != 8 {
		t.Errorf("restored %d fields, want 8", n)
	}
	got, _ := acc.Get(fields.Email)
	if got != "alexsmith01" {
		t.Errorf("email after import = %q", got)
	}
}

func TestImportRejectsEmptyBackup(t *testing.T) {
	svc, _ := newTestService(t, submit.NewScript(nil))
	_, err := svc.Import(context.Background(), &store.Backup{
		FormData: map[string]string{"first-name": "   "},
	})
	if err == nil {
		t.Fatal("empty backup accepted")
	}
}

func TestStatusReflectsGuardAndStats(t *testing.T) {
	svc, acc := newTestService(t, submit.NewScript(nil))
	fillForm(t, acc)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "standard"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	svc.guard.SnapshotAll()

	st, err := svc.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Degraded {
		t.Error("freshly filled form reported degraded")
	}
	if st.HistoryCount != 1 {
		t.Errorf("history count = %d, want 1", st.HistoryCount)
	}
	if c := st.Stats["standard"]; c.Successes != 1 {
		t.Errorf("stats = %+v", st.Stats)
	}
}

func TestRecommendPassthrough(t *testing.T) {
	svc, _ := newTestService(t, submit.NewScript(nil))
	got := svc.Recommend(regflow.RecommendContext{PreviousFailures: 4})
	if got != regflow.ProfileAggressive {
		t.Errorf("Recommend = %q, want aggressive", got)
	}
}
