package restserver

import (
	"embed"
	"fmt"
	htmltemplate "html/template"
	"io/fs"
	"os"

	"go.uber.org/zap"
)

// AssetsDirEnv names a directory that replaces the embedded front-end, so the
// page can be edited without rebuilding.
const AssetsDirEnv = "STRUCTBREAK_ASSETS_DIR"

// indexTemplate is rendered for GET /
const indexTemplate = "index.html.tmpl"

//go:embed all:assets
var assetsFS embed.FS

// frontend holds the static files and the parsed index page served by the
// REST server.
type frontend struct {
	files fs.FS
	index *htmltemplate.Template
	// source is "embedded" or the override directory
	source string
}

// embeddedAssets returns the compiled-in front-end
func embeddedAssets() fs.FS {
	assets, err := fs.Sub(assetsFS, "assets")
	if err != nil {
		panic("failed to create assets sub-filesystem: " + err.Error())
	}
	return assets
}

// loadFrontend prefers the directory named by AssetsDirEnv when it holds a
// parseable index template and falls back to the embedded assets otherwise.
func loadFrontend(logger *zap.SugaredLogger) (*frontend, error) {
	if dir := os.Getenv(AssetsDirEnv); dir != "" {
		fe, err := newFrontend(os.DirFS(dir), dir)
		if err == nil {
			logger.Infof("serving front-end from %s", dir)
			return fe, nil
		}
		logger.Warnf("ignoring %s=%s: %v", AssetsDirEnv, dir, err)
	}
	return newFrontend(embeddedAssets(), "embedded")
}

func newFrontend(files fs.FS, source string) (*frontend, error) {
	index, err := htmltemplate.ParseFS(files, indexTemplate)
	if err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", indexTemplate, err)
	}
	return &frontend{files: files, index: index, source: source}, nil
}
