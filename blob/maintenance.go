package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// FolderStats is the file count and byte total of one folder.
type FolderStats struct {
	Count int   `json:"count"`
	Size  int64 `json:"size"`
}

// Stats summarises storage usage.
type Stats struct {
	Folders    map[Folder]FolderStats `json:"folders"`
	TotalFiles int                    `json:"totalFiles"`
	TotalSize  int64                  `json:"totalSize"`
}

// CleanupResult is the outcome of Cleanup.
type CleanupResult struct {
	Success bool      `json:"success"`
	Deleted int       `json:"deleted"`
	Error   string    `json:"error,omitempty"`
	Code    ErrorCode `json:"code,omitempty"`
}

// Validation lists integrity problems found by Validate.
type Validation struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Stats walks every folder. Folders that do not exist yet report zeros.
func (s *Storage) Stats() Stats {
	st := Stats{Folders: make(map[Folder]FolderStats, len(Folders))}
	for _, f := range Folders {
		fs := FolderStats{}
		entries, err := os.ReadDir(s.folderDir(f))
		if err != nil && !isNotExist(err) {
			s.log.Warn("read storage folder", zap.String("folder", string(f)), zap.Error(err))
		}
		for _, e := range entries {
			if !e.Type().IsRegular() {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			fs.Count++
			fs.Size += info.Size()
		}
		st.Folders[f] = fs
		st.TotalFiles += fs.Count
		st.TotalSize += fs.Size
	}
	return st
}

// Cleanup deletes every file in folder last modified more than daysOld days ago.
func (s *Storage) Cleanup(folder Folder, daysOld int) CleanupResult {
	if _, ok := ParseFolder(string(folder)); !ok {
		s.record("cleanup", false)
		return CleanupResult{Error: fmt.Sprintf("invalid folder %q", folder), Code: CodeInvalidFolder}
	}
	if daysOld < 0 {
		s.record("cleanup", false)
		return CleanupResult{Error: "daysOld must not be negative", Code: CodeInvalidFormat}
	}

	dir := s.folderDir(folder)
	entries, err := os.ReadDir(dir)
	if isNotExist(err) {
		s.record("cleanup", true)
		return CleanupResult{Success: true}
	}
	if err != nil {
		s.record("cleanup", false)
		return CleanupResult{Error: err.Error(), Code: CodeIO}
	}

	cutoff := s.now().Add(-time.Duration(daysOld) * 24 * time.Hour)
	deleted := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			s.log.Warn("cleanup remove", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		deleted++
	}
	s.record("cleanup", true)
	return CleanupResult{Success: true, Deleted: deleted}
}

// Validate flags zero-byte files and unreadable entries in every folder.
func (s *Storage) Validate() Validation {
	v := Validation{Errors: []string{}}
	for _, f := range Folders {
		dir := s.folderDir(f)
		entries, err := os.ReadDir(dir)
		if isNotExist(err) {
			continue
		}
		if err != nil {
			v.Errors = append(v.Errors, fmt.Sprintf("%s: unreadable folder: %v", f, err))
			continue
		}
		for _, e := range entries {
			name := string(f) + "/" + e.Name()
			if e.IsDir() {
				v.Errors = append(v.Errors, fmt.Sprintf("%s: unexpected directory", name))
				continue
			}
			info, err := e.Info()
			if err != nil {
				v.Errors = append(v.Errors, fmt.Sprintf("%s: cannot stat: %v", name, err))
				continue
			}
			if info.Size() == 0 {
				v.Errors = append(v.Errors, fmt.Sprintf("%s: empty file", name))
				continue
			}
			fh, err := os.Open(filepath.Join(dir, e.Name()))
			if err != nil {
				v.Errors = append(v.Errors, fmt.Sprintf("%s: unreadable: %v", name, err))
				continue
			}
			if _, err := fh.Read(make([]byte, 1)); err != nil {
				v.Errors = append(v.Errors, fmt.Sprintf("%s: unreadable: %v", name, err))
			}
			fh.Close()
		}
	}
	v.Valid = len(v.Errors) == 0
	return v
}

// Probe checks that the storage root is writable by creating and removing a
// file in the temp folder.
func (s *Storage) Probe(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := s.folderDir(FolderTemp)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create temp folder: %w", err)
	}
	p := filepath.Join(dir, ".probe_"+randomToken(9))
	if err := os.WriteFile(p, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("write probe: %w", err)
	}
	if err := os.Remove(p); err != nil {
		return fmt.Errorf("remove probe: %w", err)
	}
	return nil
}

// StartCleanupScheduler runs Cleanup(folder, daysOld) every interval.
// Returns a stop function.
func (s *Storage) StartCleanupScheduler(folder Folder, daysOld int, interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				res := s.Cleanup(folder, daysOld)
				if !res.Success {
					s.log.Error("storage cleanup failed", zap.String("folder", string(folder)), zap.String("error", res.Error))
					continue
				}
				if res.Deleted > 0 {
					s.log.Info("storage cleanup", zap.String("folder", string(folder)), zap.Int("deleted", res.Deleted))
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() { close(done) }
}
