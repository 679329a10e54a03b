package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

const bufferHint = `# Paste video links below, one or more per line.
# Lines starting with # are ignored.
`

// editBuffer opens the configured editor on a temp file and returns what
// the user wrote.
func (a *app) editBuffer(ctx context.Context) (string, error) {
	editor := a.cfg.Editor
	if _, err := exec.LookPath(editor); err != nil {
		return "", wrapCategory(CategoryMissingDependency, fmt.Errorf("editor %q not found: %w", editor, err))
	}

	tmp, err := os.CreateTemp("", "thumbcap-*.txt")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(bufferHint); err != nil {
		tmp.Close()
		return "", err
	}
	tmp.Close()

	cmd := exec.CommandContext(ctx, editor, tmp.Name())
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s failed: %w", editor, err)
	}

	data, err := os.ReadFile(tmp.Name())
	if err != nil {
		return "", err
	}
	return stripComments(string(data)), nil
}

// stripComments drops the hint lines so the extractor's bare-id fallback
// still sees a clean id-per-line buffer.
func stripComments(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
