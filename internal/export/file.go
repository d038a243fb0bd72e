package export

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"garoonsync/internal/models"
)

// Exporter writes events to a file.
type Exporter interface {
	Export(events []models.Event, path string) error
}

// writeFile creates or truncates path and fills it through write.
//
// With atomic unset this is a plain overwrite, and a failure part way
// leaves a partial file behind. With atomic set the content goes to a
// temp file in the same directory which is renamed over path once it is
// complete.
func writeFile(path string, atomic bool, write func(io.Writer) error) error {
	if !atomic {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		bw := bufio.NewWriter(f)
		if err := write(bw); err != nil {
			f.Close()
			return err
		}
		if err := bw.Flush(); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".garoonsync-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	// No-op once the rename has happened.
	defer os.Remove(tmpName)

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	// CreateTemp uses 0600; match what os.Create would have produced.
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
