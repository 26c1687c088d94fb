package git

import (
	"reflect"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stwalsh4118/gitlogue/internal/logging"
)

func TestNewCommitExtractor(t *testing.T) {
	logger := logging.NewNoopLogger()

	extractor, err := NewCommitExtractor(logger, DefaultDiffOptions())
	if err != nil {
		t.Fatalf("failed to create extractor: %v", err)
	}
	if extractor == nil {
		t.Fatal("extractor is nil")
	}

	if _, err := NewCommitExtractor(nil, DefaultDiffOptions()); err == nil {
		t.Fatal("expected error when logger is nil")
	}

	if _, err := NewCommitExtractor(logger, DiffOptions{ContextLines: -1}); err == nil {
		t.Fatal("expected error for negative context lines")
	}
}

func TestDefaultDiffOptions(t *testing.T) {
	opts := DefaultDiffOptions()
	if opts.ContextLines != 3 {
		t.Errorf("expected 3 context lines, got %d", opts.ContextLines)
	}
	if opts.DetectRenames {
		t.Error("expected rename detection to be off by default")
	}
}

func TestExtract_NilCommit(t *testing.T) {
	extractor := newTestExtractor(t, DefaultDiffOptions())
	if _, err := extractor.Extract(nil); err == nil {
		t.Fatal("expected error for nil commit")
	}
}

func TestExtract_RootCommit(t *testing.T) {
	tr := newTestRepo(t)
	tr.writeFile("a.txt", "hello\n")
	tr.writeFile("dir/b.txt", "world\n")
	root := tr.commit("  Initial commit\n\n")

	metadata, err := newTestExtractor(t, DefaultDiffOptions()).Extract(tr.commitObject(root))
	if err != nil {
		t.Fatalf("failed to extract: %v", err)
	}

	if metadata.Hash != root.String() {
		t.Errorf("expected hash %s, got %s", root, metadata.Hash)
	}
	if metadata.Message != "Initial commit" {
		t.Errorf("expected trimmed message, got %q", metadata.Message)
	}
	if metadata.Author != "Test Author" {
		t.Errorf("expected author 'Test Author', got %q", metadata.Author)
	}
	if metadata.Email != "test@example.com" {
		t.Errorf("expected email 'test@example.com', got %q", metadata.Email)
	}
	if metadata.IsMerge {
		t.Error("expected root commit not to be a merge")
	}
	if len(metadata.ParentHashes) != 0 {
		t.Errorf("expected no parents, got %v", metadata.ParentHashes)
	}

	if len(metadata.Changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(metadata.Changes))
	}
	for _, change := range metadata.Changes {
		if change.Status != StatusAdded {
			t.Errorf("expected %s to be Added, got %s", change.Path, change.Status)
		}
		if change.OldPath != "" {
			t.Errorf("expected no old path for %s, got %q", change.Path, change.OldPath)
		}
	}

	a := findChange(t, metadata.Changes, "a.txt")
	if !strings.Contains(a.Diff, "+hello") {
		t.Errorf("expected diff to add 'hello', got:\n%s", a.Diff)
	}
	findChange(t, metadata.Changes, "dir/b.txt")
}

func TestExtract_ModifiedAndAdded(t *testing.T) {
	tr := newTestRepo(t)
	tr.writeFile("a.txt", "one\n")
	c1 := tr.commit("first")
	tr.writeFile("a.txt", "one\ntwo\n")
	tr.writeFile("b.txt", "new\n")
	c2 := tr.commit("second")

	extractor := newTestExtractor(t, DefaultDiffOptions())

	first, err := extractor.Extract(tr.commitObject(c1))
	if err != nil {
		t.Fatalf("failed to extract first commit: %v", err)
	}
	if len(first.Changes) != 1 || first.Changes[0].Path != "a.txt" || first.Changes[0].Status != StatusAdded {
		t.Errorf("unexpected changes for first commit: %+v", first.Changes)
	}

	second, err := extractor.Extract(tr.commitObject(c2))
	if err != nil {
		t.Fatalf("failed to extract second commit: %v", err)
	}
	if !reflect.DeepEqual(second.ParentHashes, []string{c1.String()}) {
		t.Errorf("expected parent %s, got %v", c1, second.ParentHashes)
	}

	if len(second.Changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(second.Changes))
	}
	if second.Changes[0].Path != "a.txt" || second.Changes[0].Status != StatusModified {
		t.Errorf("expected a.txt Modified first, got %+v", second.Changes[0])
	}
	if second.Changes[1].Path != "b.txt" || second.Changes[1].Status != StatusAdded {
		t.Errorf("expected b.txt Added second, got %+v", second.Changes[1])
	}
	if !strings.Contains(second.Changes[0].Diff, "+two") {
		t.Errorf("expected a.txt diff to add 'two', got:\n%s", second.Changes[0].Diff)
	}
}

func TestExtract_DeletedFile(t *testing.T) {
	tr := newTestRepo(t)
	tr.writeFile("keep.txt", "keep\n")
	tr.writeFile("gone.txt", "bye\n")
	tr.commit("first")
	tr.removeFile("gone.txt")
	c2 := tr.commit("remove file")

	metadata, err := newTestExtractor(t, DefaultDiffOptions()).Extract(tr.commitObject(c2))
	if err != nil {
		t.Fatalf("failed to extract: %v", err)
	}

	if len(metadata.Changes) != 1 {
		t.Fatalf("expected 1 change, got %d", len(metadata.Changes))
	}
	change := metadata.Changes[0]
	if change.Path != "gone.txt" {
		t.Errorf("expected deleted path to fall back to old path, got %q", change.Path)
	}
	if change.Status != StatusDeleted {
		t.Errorf("expected Deleted, got %s", change.Status)
	}
	if !strings.Contains(change.Diff, "-bye") {
		t.Errorf("expected diff to remove 'bye', got:\n%s", change.Diff)
	}
}

func TestExtract_MergeUsesFirstParent(t *testing.T) {
	tr := newTestRepo(t)
	tr.writeFile("a.txt", "base\n")
	c1 := tr.commit("base")
	tr.writeFile("a.txt", "main\n")
	c2 := tr.commit("main change")
	tr.writeFile("side.txt", "side\n")
	side := tr.commitWithParents("side change", c1)
	merge := tr.commitWithParents("merge side", c2, side)

	metadata, err := newTestExtractor(t, DefaultDiffOptions()).Extract(tr.commitObject(merge))
	if err != nil {
		t.Fatalf("failed to extract merge: %v", err)
	}

	if !metadata.IsMerge {
		t.Error("expected merge commit to be flagged")
	}
	if !reflect.DeepEqual(metadata.ParentHashes, []string{c2.String(), side.String()}) {
		t.Errorf("unexpected parents: %v", metadata.ParentHashes)
	}

	// Only side.txt differs from the first parent
	if len(metadata.Changes) != 1 {
		t.Fatalf("expected 1 change against first parent, got %+v", metadata.Changes)
	}
	if metadata.Changes[0].Path != "side.txt" || metadata.Changes[0].Status != StatusAdded {
		t.Errorf("unexpected change: %+v", metadata.Changes[0])
	}
}

func TestExtract_Rename(t *testing.T) {
	tr := newTestRepo(t)
	tr.writeFile("old.txt", "same content\nacross the rename\n")
	tr.commit("first")
	tr.renameFile("old.txt", "new.txt")
	c2 := tr.commit("rename")

	t.Run("without rename detection", func(t *testing.T) {
		metadata, err := newTestExtractor(t, DefaultDiffOptions()).Extract(tr.commitObject(c2))
		if err != nil {
			t.Fatalf("failed to extract: %v", err)
		}
		if len(metadata.Changes) != 2 {
			t.Fatalf("expected delete and add, got %+v", metadata.Changes)
		}
		if got := findChange(t, metadata.Changes, "old.txt").Status; got != StatusDeleted {
			t.Errorf("expected old.txt Deleted, got %s", got)
		}
		if got := findChange(t, metadata.Changes, "new.txt").Status; got != StatusAdded {
			t.Errorf("expected new.txt Added, got %s", got)
		}
	})

	t.Run("with rename detection", func(t *testing.T) {
		opts := DefaultDiffOptions()
		opts.DetectRenames = true

		metadata, err := newTestExtractor(t, opts).Extract(tr.commitObject(c2))
		if err != nil {
			t.Fatalf("failed to extract: %v", err)
		}
		if len(metadata.Changes) != 1 {
			t.Fatalf("expected a single rename, got %+v", metadata.Changes)
		}
		change := metadata.Changes[0]
		if change.Status != StatusRenamed {
			t.Errorf("expected Renamed, got %s", change.Status)
		}
		if change.Path != "new.txt" || change.OldPath != "old.txt" {
			t.Errorf("expected old.txt -> new.txt, got %q -> %q", change.OldPath, change.Path)
		}
		if change.Diff != "" {
			t.Errorf("expected empty diff for pure rename, got:\n%s", change.Diff)
		}
	})
}

func TestExtract_ModeOnlyChange(t *testing.T) {
	tr := newTestRepo(t)
	tr.writeFile("run.sh", "#!/bin/sh\necho hi\n")
	c1 := tr.commit("add script")
	c2 := tr.commitModeChange(c1, "run.sh", filemode.Executable)

	metadata, err := newTestExtractor(t, DefaultDiffOptions()).Extract(tr.commitObject(c2))
	if err != nil {
		t.Fatalf("failed to extract: %v", err)
	}

	if len(metadata.Changes) != 1 {
		t.Fatalf("expected 1 change, got %+v", metadata.Changes)
	}
	change := metadata.Changes[0]
	if change.Path != "run.sh" || change.Status != StatusModified {
		t.Errorf("expected run.sh Modified, got %+v", change)
	}
	if change.OldPath != "" {
		t.Errorf("expected no old path, got %q", change.OldPath)
	}
	if change.Diff != "" {
		t.Errorf("expected empty diff for mode-only change, got:\n%s", change.Diff)
	}
}

func TestExtract_BinaryFile(t *testing.T) {
	tr := newTestRepo(t)
	tr.writeFile("blob.bin", "\x00\x01\x02\x03binary\x00")
	c1 := tr.commit("add binary")

	metadata, err := newTestExtractor(t, DefaultDiffOptions()).Extract(tr.commitObject(c1))
	if err != nil {
		t.Fatalf("failed to extract: %v", err)
	}

	change := findChange(t, metadata.Changes, "blob.bin")
	if change.Status != StatusAdded {
		t.Errorf("expected Added, got %s", change.Status)
	}
	if !strings.Contains(change.Diff, "Binary files") {
		t.Errorf("expected binary marker in diff, got:\n%s", change.Diff)
	}
}

func TestExtract_InvalidUTF8(t *testing.T) {
	tr := newTestRepo(t)
	tr.writeFile("latin1.txt", "caf\xe9\n")
	c1 := tr.commit("latin-1 content")

	metadata, err := newTestExtractor(t, DefaultDiffOptions()).Extract(tr.commitObject(c1))
	if err != nil {
		t.Fatalf("extraction must not fail on invalid UTF-8: %v", err)
	}

	diff := findChange(t, metadata.Changes, "latin1.txt").Diff
	if !utf8.ValidString(diff) {
		t.Error("expected diff to be valid UTF-8")
	}
	if !strings.Contains(diff, "+caf�") {
		t.Errorf("expected replacement character in diff, got:\n%s", diff)
	}
}

func TestExtract_ContextLines(t *testing.T) {
	var before, after strings.Builder
	for i := 1; i <= 12; i++ {
		line := "line" + string(rune('a'+i-1))
		before.WriteString(line + "\n")
		if i == 6 {
			line = "changed"
		}
		after.WriteString(line + "\n")
	}

	tr := newTestRepo(t)
	tr.writeFile("file.txt", before.String())
	tr.commit("first")
	tr.writeFile("file.txt", after.String())
	c2 := tr.commit("change line f")

	tests := []struct {
		name     string
		context  int
		present  []string
		excluded []string
	}{
		{
			name:     "default three lines",
			context:  3,
			present:  []string{"\n linec\n", "\n lined\n", "\n linee\n", "\n-linef\n", "\n+changed\n", "\n lineg\n", "\n linei\n"},
			excluded: []string{"\n lineb\n", "\n linej\n"},
		},
		{
			name:     "no context",
			context:  0,
			present:  []string{"\n-linef\n", "\n+changed\n"},
			excluded: []string{"\n linee\n", "\n lineg\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metadata, err := newTestExtractor(t, DiffOptions{ContextLines: tt.context}).Extract(tr.commitObject(c2))
			if err != nil {
				t.Fatalf("failed to extract: %v", err)
			}
			diff := metadata.Changes[0].Diff
			for _, want := range tt.present {
				if !strings.Contains(diff, want) {
					t.Errorf("expected diff to contain %q, got:\n%s", want, diff)
				}
			}
			for _, unwanted := range tt.excluded {
				if strings.Contains(diff, unwanted) {
					t.Errorf("expected diff not to contain %q, got:\n%s", unwanted, diff)
				}
			}
		})
	}
}

func TestExtract_UnknownAuthorAndUTCDate(t *testing.T) {
	tr := newTestRepo(t)
	tr.clock = time.Date(2023, 6, 15, 8, 30, 0, 0, time.FixedZone("UTC+2", 2*60*60))
	tr.writeFile("a.txt", "a\n")
	c1 := tr.commitAs("", "anonymous")

	metadata, err := newTestExtractor(t, DefaultDiffOptions()).Extract(tr.commitObject(c1))
	if err != nil {
		t.Fatalf("failed to extract: %v", err)
	}

	if metadata.Author != "Unknown" {
		t.Errorf("expected 'Unknown' author, got %q", metadata.Author)
	}

	want := time.Date(2023, 6, 15, 7, 30, 0, 0, time.UTC)
	if !metadata.Date.Equal(want) {
		t.Errorf("expected date %v, got %v", want, metadata.Date)
	}
	if metadata.Date.Location() != time.UTC {
		t.Errorf("expected UTC date, got location %v", metadata.Date.Location())
	}
}

func TestExtract_Deterministic(t *testing.T) {
	tr := newTestRepo(t)
	tr.writeFile("a.txt", "one\n")
	tr.commit("first")
	tr.writeFile("a.txt", "two\n")
	tr.writeFile("b.txt", "b\n")
	c2 := tr.commit("second")

	extractor := newTestExtractor(t, DefaultDiffOptions())
	first, err := extractor.Extract(tr.commitObject(c2))
	if err != nil {
		t.Fatalf("failed to extract: %v", err)
	}
	second, err := extractor.Extract(tr.commitObject(c2))
	if err != nil {
		t.Fatalf("failed to extract again: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected identical records:\n%+v\n%+v", first, second)
	}
}

func TestAuthorDate_ZeroFallsBackToNow(t *testing.T) {
	before := time.Now().UTC().Add(-time.Second)
	got := authorDate(object.Signature{})
	if got.Before(before) || got.After(time.Now().UTC().Add(time.Second)) {
		t.Errorf("expected zero time to fall back to now, got %v", got)
	}
	if got.Location() != time.UTC {
		t.Errorf("expected UTC, got %v", got.Location())
	}
}

func TestDecodeLossy(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{name: "valid", input: []byte("plain text\n"), want: "plain text\n"},
		{name: "multibyte", input: []byte("café"), want: "café"},
		{name: "invalid byte", input: []byte("caf\xe9"), want: "caf�"},
		{name: "empty", input: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodeLossy(tt.input); got != tt.want {
				t.Errorf("decodeLossy(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
