package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const maxDocumentChars = 20000

// DocumentsTool gives agents read-only access to project documents (briefs,
// specs, team rosters) kept under one directory.
type DocumentsTool struct {
	Root string
}

func NewDocumentsTool(root string) *DocumentsTool {
	absRoot, _ := filepath.Abs(root)
	if resolved, err := filepath.EvalSymlinks(absRoot); err == nil {
		absRoot = resolved
	}
	return &DocumentsTool{Root: absRoot}
}

func (f *DocumentsTool) Name() string {
	return "documents"
}

func (f *DocumentsTool) Description() string {
	return "Read project documents such as briefs, specifications and team rosters: list the available files or read one."
}

func (f *DocumentsTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"enum":        []string{"read", "list"},
				"description": "The operation to perform",
			},
			"filename": map[string]any{
				"type":        "string",
				"description": "The document to read, or the directory to list (empty for the top level)",
			},
		},
		"required": []string{"command"},
	}
}

func (f *DocumentsTool) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		Command  string `json:"command"`
		Filename string `json:"filename"`
	}

	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}

	targetPath := filepath.Join(f.Root, args.Filename)

	// targetPath must stay within f.Root, also after following symlinks
	if !f.contains(targetPath) {
		return "", fmt.Errorf("unsafe path attempt: %s", args.Filename)
	}
	if resolved, err := filepath.EvalSymlinks(targetPath); err == nil {
		if !f.contains(resolved) {
			return "", fmt.Errorf("unsafe path attempt: %s", args.Filename)
		}
		targetPath = resolved
	}

	switch args.Command {
	case "read":
		data, err := os.ReadFile(targetPath)
		if err != nil {
			return "", fmt.Errorf("failed to read document: %w", err)
		}
		text, cut := truncate(string(data), maxDocumentChars)
		if cut {
			text += "\n... [TRUNCATED]"
		}
		return text, nil
	case "list":
		entries, err := os.ReadDir(targetPath)
		if err != nil {
			return "", fmt.Errorf("failed to list directory: %w", err)
		}
		var output strings.Builder
		for _, entry := range entries {
			typeStr := "file"
			if entry.IsDir() {
				typeStr = "dir"
			}
			fmt.Fprintf(&output, "[%s] %s\n", typeStr, entry.Name())
		}
		if output.Len() == 0 {
			return "Directory is empty", nil
		}
		return output.String(), nil
	default:
		return "Invalid command. Use 'read' or 'list'", nil
	}
}

func (f *DocumentsTool) contains(path string) bool {
	rel, err := filepath.Rel(f.Root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
