package doctor

import (
	"context"
	"fmt"
	"os"

	"github.com/hay-kot/shoppulse/internal/store/jsonfile"
)

// JournalCheck verifies the data directory is writable and the journal readable.
type JournalCheck struct {
	dataDir string
	enabled bool
}

// NewJournalCheck creates a journal check for the given data directory.
func NewJournalCheck(dataDir string, enabled bool) *JournalCheck {
	return &JournalCheck{dataDir: dataDir, enabled: enabled}
}

func (c *JournalCheck) Name() string {
	return "Journal"
}

func (c *JournalCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	if !c.enabled {
		result.Items = append(result.Items, CheckItem{
			Label:  "Journal",
			Status: StatusWarn,
			Detail: "disabled",
		})
		return result
	}

	if err := checkWritable(c.dataDir); err != nil {
		result.Items = append(result.Items, CheckItem{
			Label:  "Data directory",
			Status: StatusFail,
			Detail: err.Error(),
		})
		return result
	}
	result.Items = append(result.Items, CheckItem{
		Label:  "Data directory",
		Status: StatusPass,
		Detail: c.dataDir,
	})

	entries, err := jsonfile.NewActivityStore(c.dataDir).List(0)
	if err != nil {
		result.Items = append(result.Items, CheckItem{
			Label:  "Journal readable",
			Status: StatusFail,
			Detail: err.Error(),
		})
		return result
	}

	result.Items = append(result.Items, CheckItem{
		Label:  "Journal readable",
		Status: StatusPass,
		Detail: fmt.Sprintf("%d entries", len(entries)),
	})
	return result
}

// checkWritable creates dir if needed and writes a temp file into it.
func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return fmt.Errorf("%s is not writable: %w", dir, err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
