package applygate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cratedig/internal/arbiter"
	"cratedig/internal/audiofile"
	"cratedig/internal/fileutil"
	"cratedig/internal/logging"
	"cratedig/internal/services"
)

// Outcome is the terminal state of one apply attempt. One per file per run;
// never retried automatically.
type Outcome string

const (
	OutcomeApplied               Outcome = "applied"
	OutcomeSkipped               Outcome = "skipped"
	OutcomeQuarantinedDuplicate  Outcome = "quarantined-duplicate"
	OutcomeQuarantinedUnresolved Outcome = "quarantined-unresolved"
	OutcomeFailed                Outcome = "failed"
)

// Mode selects how an approved proposal mutates the filesystem.
type Mode int

const (
	// ModeTagOnly rewrites the original file's tag block in place.
	ModeTagOnly Mode = iota
	// ModeCopyPlace copies the original into the library and tags the copy.
	ModeCopyPlace
)

// Result reports what happened to one file.
type Result struct {
	Outcome    Outcome
	TargetPath string
	Err        error
}

// Gate commits approved proposals. Once writing begins the gate runs to
// completion or fails; the context only governs the pre-apply hash work.
type Gate struct {
	libraryRoot   string
	quarantineDir string
	hasher        StreamHasher
	tags          TagWriter
	keepTags      []string
	logger        *slog.Logger
}

// New constructs a gate. quarantineDir may be empty, which disables the
// quarantine transitions.
func New(libraryRoot, quarantineDir string, hasher StreamHasher, tags TagWriter, keepTags []string, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = logging.NewNop()
	}
	if tags == nil {
		tags = TaglibWriter{}
	}
	return &Gate{
		libraryRoot:   libraryRoot,
		quarantineDir: quarantineDir,
		hasher:        hasher,
		tags:          tags,
		keepTags:      keepTags,
		logger:        logging.NewComponentLogger(logger, "applygate"),
	}
}

// Skip records the human declining a proposal. The file is untouched.
func (g *Gate) Skip(desc *audiofile.Descriptor) Result {
	g.logger.Info("proposal skipped", logging.String(logging.FieldFile, desc.Path))
	return Result{Outcome: OutcomeSkipped, TargetPath: desc.Path}
}

// QuarantineUnresolved moves an unresolved file into the quarantine
// directory. Without a configured quarantine the file stays put and the
// outcome downgrades to skipped.
func (g *Gate) QuarantineUnresolved(desc *audiofile.Descriptor) Result {
	if g.quarantineDir == "" {
		return Result{Outcome: OutcomeSkipped, TargetPath: desc.Path}
	}
	target := filepath.Join(g.quarantineDir, "unresolved", filepath.Base(desc.Path))
	if err := fileutil.MoveFile(desc.Path, target); err != nil {
		wrapped := services.Wrap(services.ErrFilesystem, "applygate", "quarantine", "move unresolved file", err)
		return Result{Outcome: OutcomeFailed, TargetPath: desc.Path, Err: wrapped}
	}
	g.logger.Info("quarantined unresolved file",
		logging.String(logging.FieldFile, desc.Path),
		logging.String("target", target))
	return Result{Outcome: OutcomeQuarantinedUnresolved, TargetPath: target}
}

// Apply commits an approved normalized outcome for one file.
func (g *Gate) Apply(ctx context.Context, desc *audiofile.Descriptor, chosen arbiter.Normalized, mode Mode) Result {
	destDir := filepath.Join(g.libraryRoot, chosen.DestinationDir)
	destPath := filepath.Join(destDir, chosen.Filename)

	dup, dupTarget, err := g.duplicateAtDestination(ctx, desc.Path, destDir)
	if err != nil {
		return Result{Outcome: OutcomeFailed, TargetPath: destPath,
			Err: services.Wrap(services.ErrDuplicate, "applygate", "duplicate-check", "hash decoded stream", err)}
	}
	if dup {
		return g.quarantineDuplicate(desc, dupTarget)
	}

	finalTags := g.mergeKeepTags(desc, chosen.Tags)

	switch mode {
	case ModeCopyPlace:
		return g.applyCopyPlace(desc, destDir, destPath, finalTags)
	default:
		return g.applyTagOnly(desc, finalTags)
	}
}

// duplicateAtDestination compares the decoded-stream hash of the source
// against every audio file already present in the destination directory. The
// source itself is excluded: a file re-applied at its canonical destination
// is not its own duplicate.
func (g *Gate) duplicateAtDestination(ctx context.Context, srcPath, destDir string) (bool, string, error) {
	if g.hasher == nil {
		return false, "", nil
	}

	entries, err := os.ReadDir(destDir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, "", nil
		}
		return false, "", fmt.Errorf("read destination directory: %w", err)
	}

	srcInfo, err := os.Stat(srcPath)
	if err != nil {
		return false, "", fmt.Errorf("stat source: %w", err)
	}

	srcHash, err := g.hasher.Hash(ctx, srcPath)
	if err != nil {
		return false, "", err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		existing := filepath.Join(destDir, entry.Name())
		if !audiofile.IsSupported(existing) {
			continue
		}
		if isSameFile(srcPath, srcInfo, existing) {
			continue
		}
		existingHash, err := g.hasher.Hash(ctx, existing)
		if err != nil {
			g.logger.Warn("could not hash destination file",
				logging.String(logging.FieldFile, existing),
				logging.Error(err))
			continue
		}
		if existingHash == srcHash {
			return true, existing, nil
		}
	}
	return false, "", nil
}

// isSameFile reports whether existing is the source file itself, by path or
// by inode once symlinks and relative segments are accounted for.
func isSameFile(srcPath string, srcInfo os.FileInfo, existing string) bool {
	if filepath.Clean(existing) == filepath.Clean(srcPath) {
		return true
	}
	info, err := os.Stat(existing)
	if err != nil {
		return false
	}
	return os.SameFile(srcInfo, info)
}

func (g *Gate) quarantineDuplicate(desc *audiofile.Descriptor, existing string) Result {
	g.logger.Info("duplicate audio content at destination",
		logging.String(logging.FieldFile, desc.Path),
		logging.String("existing", existing))
	if g.quarantineDir == "" {
		// Original untouched; the human decides what to do with it.
		return Result{Outcome: OutcomeQuarantinedDuplicate, TargetPath: desc.Path}
	}
	target := filepath.Join(g.quarantineDir, "duplicates", filepath.Base(desc.Path))
	if err := fileutil.MoveFile(desc.Path, target); err != nil {
		return Result{Outcome: OutcomeFailed, TargetPath: desc.Path,
			Err: services.Wrap(services.ErrFilesystem, "applygate", "quarantine", "move duplicate file", err)}
	}
	return Result{Outcome: OutcomeQuarantinedDuplicate, TargetPath: target}
}

// applyTagOnly rewrites the tag block atomically: verified copy to a temp
// file beside the original, tags written to the temp, rename over the
// original. A crash mid-write leaves the original intact.
func (g *Gate) applyTagOnly(desc *audiofile.Descriptor, tags map[string]string) Result {
	tmpPath := fmt.Sprintf("%s.retag-%d%s", desc.Path, time.Now().UnixNano(), desc.Extension)

	if err := fileutil.CopyFileVerified(desc.Path, tmpPath); err != nil {
		return g.failed(desc.Path, "copy to temp file", err)
	}
	if err := g.tags.WriteTags(tmpPath, tags); err != nil {
		_ = os.Remove(tmpPath)
		return g.failed(desc.Path, "write tags", err)
	}
	if err := syncFile(tmpPath); err != nil {
		_ = os.Remove(tmpPath)
		return g.failed(desc.Path, "sync temp file", err)
	}
	if err := os.Rename(tmpPath, desc.Path); err != nil {
		_ = os.Remove(tmpPath)
		return g.failed(desc.Path, "rename temp over original", err)
	}

	g.logger.Info("tags applied in place", logging.String(logging.FieldFile, desc.Path))
	return Result{Outcome: OutcomeApplied, TargetPath: desc.Path}
}

// syncFile flushes path to stable storage so the rename that follows never
// promotes an unflushed temp file.
func syncFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// applyCopyPlace copies the original byte-for-byte into the library, then
// tags the copy only. The source is never modified or deleted.
func (g *Gate) applyCopyPlace(desc *audiofile.Descriptor, destDir, destPath string, tags map[string]string) Result {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return g.failed(destPath, "create destination directory", err)
	}
	// A name collision that survived the duplicate check means different
	// audio content under the same filename. Never overwrite it.
	if _, err := os.Lstat(destPath); err == nil {
		return g.failed(destPath, "check destination",
			fmt.Errorf("destination file already exists with different content: %s", destPath))
	} else if !os.IsNotExist(err) {
		return g.failed(destPath, "check destination", err)
	}
	if err := fileutil.CopyFileVerified(desc.Path, destPath); err != nil {
		return g.failed(destPath, "copy to destination", err)
	}
	if err := g.tags.WriteTags(destPath, tags); err != nil {
		_ = os.Remove(destPath)
		return g.failed(destPath, "write tags to copy", err)
	}

	g.logger.Info("file placed in library",
		logging.String(logging.FieldFile, desc.Path),
		logging.String("target", destPath))
	return Result{Outcome: OutcomeApplied, TargetPath: destPath}
}

// mergeKeepTags carries configured custom tags (lineage, taper, transfer
// notes) from the original file into the final tag map when the proposal did
// not set them.
func (g *Gate) mergeKeepTags(desc *audiofile.Descriptor, tags map[string]string) map[string]string {
	merged := make(map[string]string, len(tags)+len(g.keepTags))
	for key, value := range tags {
		merged[key] = value
	}
	for _, key := range g.keepTags {
		if _, set := merged[key]; set {
			continue
		}
		if value, ok := desc.Tag(key); ok {
			merged[key] = value
		}
	}
	return merged
}

func (g *Gate) failed(target, operation string, err error) Result {
	return Result{
		Outcome:    OutcomeFailed,
		TargetPath: target,
		Err:        services.Wrap(services.ErrFilesystem, "applygate", operation, "apply proposal", err),
	}
}
