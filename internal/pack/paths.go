package pack

import (
	"fmt"
	"path"
	"path/filepath"
	"strconv"

	"packflow/internal/catalog"
	"packflow/internal/fileutil"
	"packflow/internal/services"
)

// publicURLBase is the path prefix public artifacts are served under.
const publicURLBase = "/publish"

// workDir returns the per-package temporary working directory.
func (w *Worker) workDir(pkg *catalog.Package) string {
	return filepath.Join(w.cfg.Paths.WorkDir, strconv.FormatInt(pkg.ID, 10))
}

// publicDir returns the per-package public artifact directory.
func (w *Worker) publicDir(pkg *catalog.Package) string {
	return filepath.Join(w.cfg.Paths.PublicDir, strconv.FormatInt(pkg.ID, 10))
}

// publicBase returns the URL prefix for the package's public artifacts.
func publicBase(pkg *catalog.Package) string {
	return path.Join(publicURLBase, strconv.FormatInt(pkg.ID, 10))
}

// mediaFilePath resolves the working media file. Before extraction the
// file keeps the generic <id>.<kind> name; once an archive's metadata has
// been validated, the filename recorded there wins.
func (w *Worker) mediaFilePath(pkg *catalog.Package) (string, error) {
	dir := w.workDir(pkg)
	if pkg.Metadata != nil && pkg.Metadata.Filename != "" {
		candidate := filepath.Join(dir, pkg.Metadata.Filename)
		if fileutil.Exists(candidate) {
			return candidate, nil
		}
		return "", services.Wrap(services.CodeMediaFilePath,
			fmt.Sprintf("media file %s missing from working directory", pkg.Metadata.Filename), nil)
	}

	candidate := filepath.Join(dir, fmt.Sprintf("%d.%s", pkg.ID, packageExtension(pkg)))
	if fileutil.Exists(candidate) {
		return candidate, nil
	}
	return "", services.Wrap(services.CodeMediaFilePath,
		fmt.Sprintf("working copy %s missing", filepath.Base(candidate)), nil)
}

// copiedPackagePath is where copyPackage places the original file inside
// the working directory.
func (w *Worker) copiedPackagePath(pkg *catalog.Package) string {
	return filepath.Join(w.workDir(pkg), fmt.Sprintf("%d.%s", pkg.ID, packageExtension(pkg)))
}

func packageExtension(pkg *catalog.Package) string {
	if pkg.PackageType != "" {
		return pkg.PackageType
	}
	ext := filepath.Ext(pkg.OriginalFileName)
	if ext != "" {
		return ext[1:]
	}
	return "bin"
}
