package settings

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/emberwatt/ember-gateway/internal/infrastructure/database"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "settings.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.ExecContext(context.Background(), `
		CREATE TABLE listener_settings (
			listener   TEXT NOT NULL,
			key        TEXT NOT NULL,
			value      TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (listener, key)
		)
	`); err != nil {
		t.Fatalf("creating table: %v", err)
	}

	return NewSQLiteStore(db.DB)
}

// loadOne is a test helper returning the stored settings of one listener.
func loadOne(t *testing.T, store *SQLiteStore, listener string) map[string]string {
	t.Helper()

	all, err := store.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	return all[listener]
}

func TestSaveAndLoadAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Save(ctx, "radio", map[string]string{
		"baseid":    "15",
		"frequency": "4",
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	values := loadOne(t, store, "radio")
	if values["baseid"] != "15" || values["frequency"] != "4" {
		t.Errorf("stored settings = %v, want baseid=15 frequency=4", values)
	}
}

func TestSaveMergesPartialUpdates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "radio", map[string]string{
		"baseid":    "15",
		"frequency": "4",
	}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// A later partial update changes one key and leaves the other alone.
	if err := store.Save(ctx, "radio", map[string]string{"baseid": "16"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	values := loadOne(t, store, "radio")
	if values["baseid"] != "16" {
		t.Errorf("baseid = %q, want %q", values["baseid"], "16")
	}
	if values["frequency"] != "4" {
		t.Errorf("frequency = %q, want %q (must survive partial update)", values["frequency"], "4")
	}
}

func TestSaveEmpty(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save(context.Background(), "radio", nil); err != nil {
		t.Errorf("Save() with no values error = %v, want nil", err)
	}
}

func TestLoadAllEmpty(t *testing.T) {
	store := newTestStore(t)

	all, err := store.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(all) != 0 {
		t.Errorf("LoadAll() on empty store = %v, want empty", all)
	}
}

func TestLoadAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "radio", map[string]string{"baseid": "15"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Save(ctx, "onewire", map[string]string{"sensor1": "28-00000"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	all, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("LoadAll() listeners = %d, want 2", len(all))
	}
	if all["radio"]["baseid"] != "15" {
		t.Errorf("radio baseid = %q, want 15", all["radio"]["baseid"])
	}
	if all["onewire"]["sensor1"] != "28-00000" {
		t.Errorf("onewire sensor1 = %q, want 28-00000", all["onewire"]["sensor1"])
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "radio", map[string]string{"baseid": "15"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := store.Delete(ctx, "radio"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if values := loadOne(t, store, "radio"); len(values) != 0 {
		t.Errorf("stored settings after delete = %v, want empty", values)
	}

	// Deleting again is a no-op.
	if err := store.Delete(ctx, "radio"); err != nil {
		t.Errorf("Delete() repeat error = %v", err)
	}
}
