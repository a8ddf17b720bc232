package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testNovel = `内容简介
一个关于山的故事。

第一章 开始

天色渐亮。

第二章 Needle

他们在山下相遇，needle 在这里。

第三章 离别

一别两宽。
`

// testEnv isolates config and state under a temp dir and returns a novel
// file in it.
func testEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	path := filepath.Join(dir, "novel.txt")
	if err := os.WriteFile(path, []byte(testNovel), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)
	err := root.Execute()
	return out.String(), err
}

func TestChaptersCommand(t *testing.T) {
	path := testEnv(t)

	out, err := run(t, "chapters", path)
	if err != nil {
		t.Fatalf("chapters: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	want := []string{"1. 内容简介 (", "2. 第一章 开始 (", "3. 第二章 Needle (", "4. 第三章 离别 ("}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	for i, prefix := range want {
		if !strings.HasPrefix(lines[i], prefix) || !strings.HasSuffix(lines[i], " 字)") {
			t.Errorf("line %d = %q, want prefix %q", i, lines[i], prefix)
		}
	}
}

func TestChaptersJSON(t *testing.T) {
	path := testEnv(t)

	out, err := run(t, "chapters", path, "--stats", "-o", "json")
	if err != nil {
		t.Fatalf("chapters: %v", err)
	}
	var report chapterReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, out)
	}
	if len(report.Chapters) != 4 || report.ChapterStats == nil || report.ChapterStats.TotalChapters != 4 {
		t.Errorf("unexpected report %+v", report)
	}
	if report.PageStats == nil || report.PageStats.TotalPages != 4 {
		t.Errorf("unexpected page stats %+v", report.PageStats)
	}
}

func TestChaptersYAML(t *testing.T) {
	path := testEnv(t)

	out, err := run(t, "chapters", path, "-o", "yaml")
	if err != nil {
		t.Fatalf("chapters: %v", err)
	}
	if !strings.Contains(out, "title: 第二章 Needle") || !strings.Contains(out, "wordCount:") {
		t.Errorf("unexpected yaml:\n%s", out)
	}
}

func TestSearchCommand(t *testing.T) {
	path := testEnv(t)

	out, err := run(t, "search", path, "NEEDLE")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "3. 第二章 Needle") {
		t.Errorf("chapter search output = %q", out)
	}

	out, err = run(t, "search", path, "NEEDLE", "--pages")
	if err != nil {
		t.Fatal(err)
	}
	if out != "" {
		t.Errorf("page search is case sensitive, got %q", out)
	}

	out, err = run(t, "search", path, "needle", "--pages")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(out, "\n") != 1 || !strings.Contains(out, "第二章 Needle") {
		t.Errorf("page search output = %q", out)
	}
}

func TestPagesCommand(t *testing.T) {
	path := testEnv(t)

	out, err := run(t, "pages", path, "--chapter", "2")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(out, "\n") != 1 || !strings.Contains(out, "第一章 开始") || !strings.Contains(out, "chapter") {
		t.Errorf("pages output = %q", out)
	}

	if _, err := run(t, "pages", path, "--chapter", "9"); err == nil {
		t.Error("expected error for unknown chapter")
	}
}

func TestJumpAndProgress(t *testing.T) {
	path := testEnv(t)

	out, err := run(t, "jump", path, "--chapter", "3")
	if err != nil {
		t.Fatalf("jump: %v", err)
	}
	if !strings.HasPrefix(out, "第二章 Needle  [page 3]") {
		t.Errorf("jump output = %q", out)
	}

	out, err = run(t, "jump", path, "--next")
	if err != nil {
		t.Fatalf("jump --next: %v", err)
	}
	if !strings.HasPrefix(out, "第三章 离别  [page 4]") {
		t.Errorf("jump --next output = %q", out)
	}

	// At the last page --next reports the boundary and stays put.
	out, err = run(t, "jump", path, "--next")
	if err != nil {
		t.Fatalf("jump --next at end: %v", err)
	}
	if !strings.Contains(out, "[page 4]") {
		t.Errorf("boundary output = %q", out)
	}

	out, err = run(t, "progress", path, "-o", "json")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	var bp bookProgress
	if err := json.Unmarshal([]byte(out), &bp); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, out)
	}
	// Pages 1, 3 and 4 were visited.
	if bp.File != "novel.txt" || bp.Page != 4 || bp.Chapter != 4 || bp.ReadPages != 3 || bp.TotalPages != 4 || bp.Percent != 75 {
		t.Errorf("unexpected progress %+v", bp)
	}

	out, err = run(t, "progress")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "novel.txt  75% (3/4 pages)") {
		t.Errorf("progress report = %q", out)
	}

	if _, err := run(t, "progress", path, "--clear"); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "progress", path); err == nil {
		t.Error("expected error after clearing progress")
	}
}

func TestProgressEmpty(t *testing.T) {
	testEnv(t)

	out, err := run(t, "progress")
	if err != nil {
		t.Fatal(err)
	}
	if out != "no reading progress yet\n" {
		t.Errorf("got %q", out)
	}
}

func TestInitConfig(t *testing.T) {
	testEnv(t)
	path := filepath.Join(t.TempDir(), "shu.yaml")

	out, err := run(t, "init-config", path)
	if err != nil {
		t.Fatalf("init-config: %v", err)
	}
	if out != "wrote "+path+"\n" {
		t.Errorf("got %q", out)
	}
	if _, err := run(t, "init-config", path); err == nil {
		t.Error("expected error when the file exists")
	}
	if _, err := run(t, "init-config", path, "--force"); err != nil {
		t.Errorf("--force: %v", err)
	}
}

func TestConfigFlag(t *testing.T) {
	path := testEnv(t)
	cfg := filepath.Join(t.TempDir(), "shu.yaml")
	if err := os.WriteFile(cfg, []byte("pagination:\n  mode: paragraph\n"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "--config", cfg, "pages", path)
	if err != nil {
		t.Fatal(err)
	}
	// Numbered chapters split into title and body paragraphs; the synopsis
	// has no blank line and stays whole.
	if got := strings.Count(out, "\n"); got != 7 {
		t.Errorf("got %d pages, want 7:\n%s", got, out)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "shu dev (commit: none, built: unknown)") || !strings.Contains(out, "EPUB (.epub)") {
		t.Errorf("got %q", out)
	}
}

func TestUnknownOutputFormat(t *testing.T) {
	path := testEnv(t)
	if _, err := run(t, "chapters", path, "-o", "xml"); err == nil {
		t.Error("expected error for unknown output format")
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    outputFormat
		wantErr bool
	}{
		{"text", outputText, false},
		{"json", outputJSON, false},
		{"yaml", outputYAML, false},
		{"", "", true},
		{"JSON", "", true},
	}
	for _, tt := range tests {
		got, err := parseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseOutputFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}
