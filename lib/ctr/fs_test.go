package ctr

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("WriteFile %s: %v", path, err)
	}
}

func TestFindTitleFileTik(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "00000000.tmd"))
	touch(t, filepath.Join(dir, "title.tik"))

	got, err := FindTitleFile(dir)
	if err != nil {
		t.Fatalf("FindTitleFile: %v", err)
	}
	if filepath.Base(got) != "title.tik" {
		t.Errorf("FindTitleFile = %s, want title.tik", got)
	}
}

func TestFindTitleFileCetk(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "cetk"))

	got, err := FindTitleFile(dir)
	if err != nil {
		t.Fatalf("FindTitleFile: %v", err)
	}
	if filepath.Base(got) != "cetk" {
		t.Errorf("FindTitleFile = %s, want cetk", got)
	}
}

func TestFindTitleFileMissing(t *testing.T) {
	if _, err := FindTitleFile(t.TempDir()); err == nil {
		t.Error("expected error when no title file is present")
	}
}

func TestFindTMDFileBareName(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "tmd.1234"))
	touch(t, filepath.Join(dir, "tmd"))

	got, err := FindTMDFile(dir)
	if err != nil {
		t.Fatalf("FindTMDFile: %v", err)
	}
	if filepath.Base(got) != "tmd" {
		t.Errorf("FindTMDFile = %s, want bare tmd to win over tmd.1234", got)
	}
}

func TestFindTMDFileLowestSuffix(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "tmd.5"))
	touch(t, filepath.Join(dir, "tmd.2"))
	touch(t, filepath.Join(dir, "tmd.9"))

	got, err := FindTMDFile(dir)
	if err != nil {
		t.Fatalf("FindTMDFile: %v", err)
	}
	if filepath.Base(got) != "tmd.2" {
		t.Errorf("FindTMDFile = %s, want tmd.2 (lowest suffix)", got)
	}
}

func TestFindTMDFileMissing(t *testing.T) {
	if _, err := FindTMDFile(t.TempDir()); err == nil {
		t.Error("expected error when no tmd file is present")
	}
}
