package handlers

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// publicRootDir is where uploaded assets live. Handlers store paths
// relative to it, like "uploads/menu/<id>.png".
const publicRootDir = "/app/public"

// resolveUploadPath maps a stored relative path onto the filesystem.
// Only paths under uploads/ resolve, and anything that cleans outside
// the public root is refused.
func resolveUploadPath(relPath string) (string, error) {
	cleanRel := path.Clean("/" + strings.TrimPrefix(relPath, "/"))
	cleanRel = strings.TrimPrefix(cleanRel, "/")
	if !strings.HasPrefix(cleanRel, "uploads/") {
		return "", fmt.Errorf("not an upload path: %s", relPath)
	}

	root := filepath.Clean(publicRootDir)
	target := filepath.Clean(filepath.Join(root, filepath.FromSlash(cleanRel)))
	if target == root || !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("path escapes public root: %s", relPath)
	}
	return target, nil
}

// safeDeleteUpload removes a previously stored upload. Deletes are
// best-effort cleanup, so a file that is already gone is not an error.
func safeDeleteUpload(relPath string) error {
	trimmed := strings.TrimSpace(relPath)
	if trimmed == "" {
		return nil
	}

	target, err := resolveUploadPath(trimmed)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
