package store

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/horobot/horobot/internal/model"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func newTestCacheStore(t *testing.T, buf *bytes.Buffer) (*CacheStore, string) {
	t.Helper()
	dir := t.TempDir()
	paths := map[model.Mode]string{
		model.ModeMeme:   filepath.Join(dir, "meme.json"),
		model.ModeNormal: filepath.Join(dir, "normal.json"),
	}
	return NewCacheStore(paths, newTestLogger(buf)), dir
}

func TestCacheStore_LoadMissingFileReturnsEmpty(t *testing.T) {
	var buf bytes.Buffer
	s, _ := newTestCacheStore(t, &buf)

	c := s.Load(model.ModeMeme)
	if c.Date != "" {
		t.Errorf("Date = %q, want 空", c.Date)
	}
	if c.Horoscopes == nil || len(c.Horoscopes) != 0 {
		t.Errorf("Horoscopes = %v, want 空のマップ", c.Horoscopes)
	}
	if strings.Contains(buf.String(), "ERROR") {
		t.Errorf("ファイルが無いだけでエラーログを出してはならない: %s", buf.String())
	}
}

func TestCacheStore_LoadMalformedReturnsEmpty(t *testing.T) {
	var buf bytes.Buffer
	s, _ := newTestCacheStore(t, &buf)

	if err := os.WriteFile(s.Path(model.ModeMeme), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := s.Load(model.ModeMeme)
	if c.Date != "" || len(c.Horoscopes) != 0 {
		t.Errorf("壊れたJSONは空キャッシュとして扱われなければならない: %+v", c)
	}
	if !strings.Contains(buf.String(), "キャッシュの読み込みに失敗しました") {
		t.Error("読み込み失敗がログに記録されていない")
	}
}

func TestCacheStore_SaveAndLoadPerMode(t *testing.T) {
	var buf bytes.Buffer
	s, _ := newTestCacheStore(t, &buf)

	s.Save(model.HoroscopeCache{
		Date:       "2024-03-15",
		Horoscopes: map[string]string{"leo": "Лев сегодня <b>сияет</b>."},
	}, model.ModeMeme)

	got := s.Load(model.ModeMeme)
	if got.Date != "2024-03-15" {
		t.Errorf("Date = %q, want 2024-03-15", got.Date)
	}
	if got.Horoscopes["leo"] != "Лев сегодня <b>сияет</b>." {
		t.Errorf("leo = %q", got.Horoscopes["leo"])
	}

	other := s.Load(model.ModeNormal)
	if len(other.Horoscopes) != 0 {
		t.Error("モードごとにキャッシュが分離されていない")
	}
}

func TestCacheStore_FileFormat(t *testing.T) {
	var buf bytes.Buffer
	s, _ := newTestCacheStore(t, &buf)

	s.Save(model.HoroscopeCache{
		Date:       "2024-03-15",
		Horoscopes: map[string]string{"leo": "Привет"},
	}, model.ModeMeme)

	data, err := os.ReadFile(s.Path(model.ModeMeme))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Привет") {
		t.Error("UTF-8の本文がエスケープされずに保存されていない")
	}
	if !strings.Contains(string(data), "\n  \"date\"") {
		t.Errorf("インデント付きで保存されていない: %s", data)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("保存されたJSONが不正: %v", err)
	}
	if _, ok := raw["horoscopes"]; !ok {
		t.Error("horoscopes フィールドが無い")
	}
}

func TestCacheStore_SaveFailureIsSwallowed(t *testing.T) {
	var buf bytes.Buffer
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewCacheStore(map[model.Mode]string{
		model.ModeMeme: filepath.Join(blocker, "cache.json"),
	}, newTestLogger(&buf))

	s.Save(model.NewHoroscopeCache(), model.ModeMeme)

	if !strings.Contains(buf.String(), "キャッシュの保存に失敗しました") {
		t.Error("保存失敗がログに記録されていない")
	}
}

func TestStatsStore_IncrementAndReload(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "stats.json")

	s := NewStatsStore(path, newTestLogger(&buf))
	if err := s.IncrementStart(); err != nil {
		t.Fatal(err)
	}
	if err := s.IncrementSign("leo"); err != nil {
		t.Fatal(err)
	}
	if err := s.IncrementSign("leo"); err != nil {
		t.Fatal(err)
	}

	reloaded := NewStatsStore(path, newTestLogger(&buf)).Snapshot()
	if reloaded.Starts != 1 {
		t.Errorf("Starts = %d, want 1", reloaded.Starts)
	}
	if reloaded.Signs["leo"] != 2 {
		t.Errorf("Signs[leo] = %d, want 2", reloaded.Signs["leo"])
	}
}

func TestStatsStore_SnapshotIsCopy(t *testing.T) {
	var buf bytes.Buffer
	s := NewStatsStore(filepath.Join(t.TempDir(), "stats.json"), newTestLogger(&buf))
	_ = s.IncrementSign("aries")

	snap := s.Snapshot()
	snap.Signs["aries"] = 100

	if s.Snapshot().Signs["aries"] != 1 {
		t.Error("Snapshot の変更が内部状態に影響してはならない")
	}
}

func TestReminderStore_AddRemove(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "reminders.json")
	s := NewReminderStore(path, newTestLogger(&buf))

	added, err := s.Add(42)
	if err != nil || !added {
		t.Fatalf("Add(42) = %v, %v", added, err)
	}
	added, _ = s.Add(42)
	if added {
		t.Error("重複したAddはfalseを返さなければならない")
	}
	_, _ = s.Add(7)

	reloaded := NewReminderStore(path, newTestLogger(&buf))
	ids := reloaded.List()
	if len(ids) != 2 || ids[0] != 7 || ids[1] != 42 {
		t.Errorf("List() = %v, want [7 42]", ids)
	}

	removed, _ := reloaded.Remove(7)
	if !removed {
		t.Error("Remove(7) はtrueを返さなければならない")
	}
	removed, _ = reloaded.Remove(7)
	if removed {
		t.Error("未購読のRemoveはfalseを返さなければならない")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc model.Reminders
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Chats) != 1 || doc.Chats[0] != 42 {
		t.Errorf("保存された chats = %v, want [42]", doc.Chats)
	}
}

func TestReminderStore_FailedSaveRollsBack(t *testing.T) {
	var buf bytes.Buffer
	dir := t.TempDir()
	// 通常ファイルの下のパスには書き込めない
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	blocked := filepath.Join(blocker, "reminders.json")

	s := NewReminderStore(blocked, newTestLogger(&buf))
	added, err := s.Add(42)
	if err == nil {
		t.Fatal("保存できないパスへのAddはエラーを返さなければならない")
	}
	if added {
		t.Error("保存に失敗したAddはfalseを返さなければならない")
	}
	if ids := s.List(); len(ids) != 0 {
		t.Errorf("保存に失敗した購読が残っている: %v", ids)
	}
	if !strings.Contains(buf.String(), "リマインダー購読者の保存に失敗しました") {
		t.Errorf("保存失敗がログに出ていない: %s", buf.String())
	}

	s = NewReminderStore(filepath.Join(dir, "reminders.json"), newTestLogger(&buf))
	if _, err := s.Add(7); err != nil {
		t.Fatal(err)
	}
	s.path = blocked
	removed, err := s.Remove(7)
	if err == nil {
		t.Fatal("保存できないパスへのRemoveはエラーを返さなければならない")
	}
	if removed {
		t.Error("保存に失敗したRemoveはfalseを返さなければならない")
	}
	if ids := s.List(); len(ids) != 1 || ids[0] != 7 {
		t.Errorf("List() = %v, want [7]", ids)
	}
}
