package completion

import (
	"fmt"
	"os"
	"strings"
)

// setSourceLine adds (present=true) or removes a "source scriptPath" line in
// rcFile. Both directions are idempotent and any line mentioning scriptPath
// counts as the source line.
func setSourceLine(rcFile, scriptPath string, present bool) error {
	content, err := os.ReadFile(rcFile)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	var kept []string
	found := false
	if len(content) > 0 {
		for _, line := range strings.Split(strings.TrimSuffix(string(content), "\n"), "\n") {
			if strings.Contains(line, scriptPath) {
				found = true
				continue
			}
			kept = append(kept, line)
		}
	}

	switch {
	case present && found, !present && !found:
		return nil
	case present:
		kept = append(kept, fmt.Sprintf("source %s", scriptPath))
	}

	data := ""
	if len(kept) > 0 {
		data = strings.Join(kept, "\n") + "\n"
	}
	return os.WriteFile(rcFile, []byte(data), 0644)
}
