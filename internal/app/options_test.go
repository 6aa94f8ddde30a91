package app

import (
	"slices"
	"testing"

	"github.com/MrWong99/versecast/pkg/audio"
)

func TestOptInt(t *testing.T) {
	t.Parallel()

	opts := map[string]any{"a": 3, "b": int64(4), "c": 5.0, "d": 5.5, "e": "6"}
	tests := []struct {
		key  string
		want int
		ok   bool
	}{
		{"a", 3, true},
		{"b", 4, true},
		{"c", 5, true},
		{"d", 5, false},
		{"e", 0, false},
		{"missing", 0, false},
	}
	for _, tt := range tests {
		got, ok := optInt(opts, tt.key)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("optInt(%q) = %d, %v; want %d, %v", tt.key, got, ok, tt.want, tt.ok)
		}
	}
	if _, ok := optInt(nil, "a"); ok {
		t.Error("optInt on nil map reported a value")
	}
}

func TestOptStrings(t *testing.T) {
	t.Parallel()

	opts := map[string]any{
		"csv":   "John, Jude ,,Job",
		"list":  []any{"Psalms", 7, ""},
		"typed": []string{"Acts"},
	}
	tests := []struct {
		key  string
		want []string
	}{
		{"csv", []string{"John", "Jude", "Job"}},
		{"list", []string{"Psalms"}},
		{"typed", []string{"Acts"}},
		{"missing", nil},
	}
	for _, tt := range tests {
		if got := optStrings(opts, tt.key); !slices.Equal(got, tt.want) {
			t.Errorf("optStrings(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestRawFormat(t *testing.T) {
	t.Parallel()

	if _, ok := rawFormat(map[string]any{"language": "en"}); ok {
		t.Error("rawFormat without sample_rate/channels reported a format")
	}
	f, ok := rawFormat(map[string]any{"sample_rate": 48000})
	if !ok || f != (audio.Format{SampleRate: 48000, Channels: 1}) {
		t.Errorf("rawFormat = %+v, %v", f, ok)
	}
	f, ok = rawFormat(map[string]any{"channels": int64(2)})
	if !ok || f != (audio.Format{SampleRate: 16000, Channels: 2}) {
		t.Errorf("rawFormat = %+v, %v", f, ok)
	}
}
