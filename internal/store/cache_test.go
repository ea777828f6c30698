package store

import (
	"path/filepath"
	"testing"

	"github.com/theirongolddev/ledgercast/internal/model"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache", "tables.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSaveAndLoadTable(t *testing.T) {
	c := openTestCache(t)
	table := model.RawTable{
		{"Revenue", ""},
		{"cc", "acct"},
		{"CC100", "4000", "100", ""},
	}

	if err := c.SaveTable("/data/revenue.csv", "sheet=", table, 42, 1024); err != nil {
		t.Fatalf("SaveTable: %v", err)
	}

	got, ok, err := c.LoadTable("/data/revenue.csv")
	if err != nil || !ok {
		t.Fatalf("LoadTable = ok %v, err %v", ok, err)
	}
	if len(got.Table) != 3 || got.Table[2][2] != "100" || got.Table[2][3] != "" {
		t.Errorf("Table = %v, want round trip of input", got.Table)
	}
	if got.Options != "sheet=" {
		t.Errorf("Options = %q, want %q", got.Options, "sheet=")
	}
	if got.File.MtimeNs != 42 || got.File.SizeBytes != 1024 {
		t.Errorf("File = %+v, want {42 1024}", got.File)
	}

	tracked, err := c.GetTrackedFiles()
	if err != nil {
		t.Fatalf("GetTrackedFiles: %v", err)
	}
	if fi, ok := tracked["/data/revenue.csv"]; !ok || fi.MtimeNs != 42 {
		t.Errorf("tracked = %v, want entry with mtime 42", tracked)
	}
}

func TestSaveTableReplaces(t *testing.T) {
	c := openTestCache(t)
	_ = c.SaveTable("/f.csv", "", model.RawTable{{"a"}}, 1, 1)
	if err := c.SaveTable("/f.csv", "", model.RawTable{{"b"}, {"c"}}, 2, 2); err != nil {
		t.Fatalf("SaveTable: %v", err)
	}

	n, err := c.TableCount()
	if err != nil || n != 1 {
		t.Fatalf("TableCount = %d, %v, want 1", n, err)
	}
	got, _, _ := c.LoadTable("/f.csv")
	if len(got.Table) != 2 || got.File.MtimeNs != 2 {
		t.Errorf("got %d rows mtime %d, want 2 rows mtime 2", len(got.Table), got.File.MtimeNs)
	}
}

func TestLoadTableMissing(t *testing.T) {
	c := openTestCache(t)
	_, ok, err := c.LoadTable("/nope.csv")
	if err != nil || ok {
		t.Errorf("LoadTable = ok %v, err %v, want false, nil", ok, err)
	}
}

func TestDeleteTable(t *testing.T) {
	c := openTestCache(t)
	_ = c.SaveTable("/f.csv", "", model.RawTable{{"a"}}, 1, 1)
	if err := c.DeleteTable("/f.csv"); err != nil {
		t.Fatalf("DeleteTable: %v", err)
	}
	if n, _ := c.TableCount(); n != 0 {
		t.Errorf("TableCount = %d, want 0", n)
	}
	tracked, _ := c.GetTrackedFiles()
	if len(tracked) != 0 {
		t.Errorf("tracked = %v, want empty", tracked)
	}
}
