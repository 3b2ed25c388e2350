package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/evsubsidy/internal/core"
)

// Output file name prefixes; the build date (YYYYMMDD) and ".json" follow.
const (
	CompletePrefix = "ev_complete_data_"
	LightPrefix    = "ev_data_final_"
)

// Files names the documents written by WriteFiles.
type Files struct {
	Complete string
	Light    string
}

// WriteFiles writes the complete and light documents into dir, named after
// the build date.
func WriteFiles(dir string, ds *core.Dataset, date time.Time) (Files, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Files{}, fmt.Errorf("create output directory: %w", err)
	}

	stamp := date.Format("20060102")
	files := Files{
		Complete: filepath.Join(dir, CompletePrefix+stamp+".json"),
		Light:    filepath.Join(dir, LightPrefix+stamp+".json"),
	}

	if err := writeDocument(files.Complete, ds, true); err != nil {
		return Files{}, err
	}
	if err := writeDocument(files.Light, ds, false); err != nil {
		return Files{}, err
	}
	return files, nil
}

func writeDocument(path string, ds *core.Dataset, overrides bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}

	if err := core.EncodeDataset(f, ds, overrides); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	return nil
}
