package pipeline

import (
	"slices"
	"testing"
)

func TestFilterFiles(t *testing.T) {
	t.Parallel()

	t.Run("drops padding and hidden entries in order", func(t *testing.T) {
		t.Parallel()

		in := []FileEntry{
			{Path: "album/01.flac", Size: 10},
			{Path: "album/.pad/0", Size: 5, Padding: true},
			{Path: "album/02.flac", Size: 20},
			{Path: "album/_____padding_file_0_if you see this file, please update to BitComet 0.85 or above____", Size: 3},
			{Path: "album/desktop.ini", Size: 1, Hidden: true},
			{Path: "album/cover.jpg", Size: 30},
		}
		got := FilterFiles(in)

		var paths []string
		for _, e := range got {
			paths = append(paths, e.Path)
		}
		expected := []string{"album/01.flac", "album/02.flac", "album/cover.jpg"}
		if !slices.Equal(paths, expected) {
			t.Errorf("got %v, expected %v", paths, expected)
		}
		if len(in) != 6 {
			t.Error("expected the input to be left alone")
		}
	})

	t.Run("keeps everything when nothing is padding", func(t *testing.T) {
		t.Parallel()

		in := []FileEntry{{Path: "a"}, {Path: "b"}, {Path: "c"}}
		if got := FilterFiles(in); len(got) != 3 {
			t.Errorf("got %d entries, expected 3", len(got))
		}
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()

		if got := FilterFiles(nil); len(got) != 0 {
			t.Errorf("got %d entries, expected 0", len(got))
		}
	})
}
