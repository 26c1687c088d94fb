package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
	"github.com/stwalsh4118/gitlogue/internal/git"
	"gopkg.in/yaml.v3"
)

type outputFormat string

const (
	formatText outputFormat = "text"
	formatJSON outputFormat = "json"
	formatYAML outputFormat = "yaml"
)

func parseOutputFormat(value string) (outputFormat, error) {
	switch format := outputFormat(strings.ToLower(strings.TrimSpace(value))); format {
	case formatText, formatJSON, formatYAML:
		return format, nil
	default:
		return "", fmt.Errorf("unknown output format %q (expected text, json or yaml)", value)
	}
}

// renderCommit writes a commit record in the requested format
func renderCommit(w io.Writer, format outputFormat, metadata *git.CommitMetadata) error {
	switch format {
	case formatJSON:
		return writeJSON(w, metadata)
	case formatYAML:
		return writeYAML(w, metadata)
	default:
		return writeCommitText(w, metadata)
	}
}

// renderViews writes the shown-commits history in the requested format
func renderViews(w io.Writer, format outputFormat, views []git.CommitView) error {
	switch format {
	case formatJSON:
		return writeJSON(w, views)
	case formatYAML:
		return writeYAML(w, views)
	}

	if len(views) == 0 {
		_, err := fmt.Fprintln(w, "No commits shown yet")
		return err
	}

	for _, view := range views {
		subject, _, _ := strings.Cut(view.Message, "\n")
		if _, err := fmt.Fprintf(w, "%s  %-16s %-20s %s\n",
			shortHash(view.Hash),
			humanize.Time(view.ViewedAt),
			view.Author,
			subject,
		); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, v interface{}) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return encoder.Close()
}

// writeCommitText prints a commit in a layout close to git show
func writeCommitText(w io.Writer, metadata *git.CommitMetadata) error {
	var b strings.Builder

	fmt.Fprintf(&b, "commit %s\n", metadata.Hash)
	if metadata.IsMerge {
		short := lo.Map(metadata.ParentHashes, func(parent string, _ int) string {
			return shortHash(parent)
		})
		fmt.Fprintf(&b, "Merge:  %s\n", strings.Join(short, " "))
	}
	if metadata.Email != "" {
		fmt.Fprintf(&b, "Author: %s <%s>\n", metadata.Author, metadata.Email)
	} else {
		fmt.Fprintf(&b, "Author: %s\n", metadata.Author)
	}
	fmt.Fprintf(&b, "Date:   %s\n\n", metadata.Date.Format(time.RFC1123Z))

	for _, line := range strings.Split(metadata.Message, "\n") {
		fmt.Fprintf(&b, "    %s\n", line)
	}
	b.WriteString("\n")

	for _, change := range metadata.Changes {
		if change.OldPath != "" {
			fmt.Fprintf(&b, " %s %s -> %s\n", change.Status.Code(), change.OldPath, change.Path)
		} else {
			fmt.Fprintf(&b, " %s %s\n", change.Status.Code(), change.Path)
		}
	}

	for _, change := range metadata.Changes {
		if change.Diff == "" {
			continue
		}
		b.WriteString("\n")
		b.WriteString(change.Diff)
		if !strings.HasSuffix(change.Diff, "\n") {
			b.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func shortHash(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}
