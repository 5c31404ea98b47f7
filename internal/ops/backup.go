// Package ops holds the offline maintenance operations for the planner's
// data directory.
package ops

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Snapshot writes the data directory's JSON files into a tar.gz archive.
// Only top-level .json files are taken: that is the whole persistent
// state of the planner.
func Snapshot(dataDir, archivePath string) error {
	dataDir = filepath.Clean(strings.TrimSpace(dataDir))
	archivePath = filepath.Clean(strings.TrimSpace(archivePath))
	if dataDir == "" || archivePath == "" {
		return fmt.Errorf("dataDir and archivePath are required")
	}
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(archivePath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	defer gz.Close()

	tw := tar.NewWriter(gz)
	defer tw.Close()

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if err := addFile(tw, filepath.Join(dataDir, e.Name()), e.Name()); err != nil {
			return err
		}
	}
	return nil
}

func addFile(tw *tar.Writer, path, name string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = name
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()
	_, err = io.Copy(tw, src)
	return err
}

// Restore unpacks an archive written by Snapshot into the data directory.
// Every entry must be a plain top-level JSON file and must parse, so a
// truncated or tampered archive never replaces good state partially: the
// whole archive is validated into memory before anything is written.
func Restore(archivePath, dataDir string) error {
	archivePath = filepath.Clean(strings.TrimSpace(archivePath))
	dataDir = filepath.Clean(strings.TrimSpace(dataDir))
	if archivePath == "" || dataDir == "" {
		return fmt.Errorf("archivePath and dataDir are required")
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	files := map[string][]byte{}
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name, err := sanitizeEntryName(hdr.Name)
		if err != nil {
			return err
		}
		b, err := io.ReadAll(tr)
		if err != nil {
			return err
		}
		if !json.Valid(b) {
			return fmt.Errorf("archive entry %s is not valid JSON", name)
		}
		files[name] = b
	}
	if len(files) == 0 {
		return fmt.Errorf("archive contains no data files")
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}
	for name, b := range files {
		if err := os.WriteFile(filepath.Join(dataDir, name), b, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func sanitizeEntryName(name string) (string, error) {
	name = filepath.Clean(strings.TrimSpace(name))
	if name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("invalid archive entry: %q", name)
	}
	if filepath.IsAbs(name) || strings.ContainsRune(name, filepath.Separator) {
		return "", fmt.Errorf("archive entry must be a top-level file: %s", name)
	}
	if !strings.HasSuffix(name, ".json") {
		return "", fmt.Errorf("unexpected archive entry: %s", name)
	}
	return name, nil
}

// DefaultArchiveName builds a timestamped archive file name.
func DefaultArchiveName(now time.Time) string {
	return fmt.Sprintf("taskplanner-%s.tar.gz", now.Format("20060102-150405"))
}
