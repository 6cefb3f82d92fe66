package bootstrap

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
)

// CollectStatic copies the static asset tree into the shared volume the
// reverse proxy serves from. Existing files are overwritten so redeploys
// pick up changed assets.
func CollectStatic(srcDir, dstDir string) (int, error) {
	if _, err := os.Stat(srcDir); err != nil {
		if os.IsNotExist(err) {
			// Nothing to publish. An API image without bundled assets is
			// valid: the frontend may ship its own.
			return 0, nil
		}
		return 0, errors.Wrap(err, "stat static source")
	}

	count := 0
	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dstDir, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if err := copyFile(path, target); err != nil {
			return errors.Wrapf(err, "copy %s", rel)
		}
		count++
		return nil
	})
	if err != nil {
		return count, errors.Wrap(err, "collect static assets")
	}
	return count, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
