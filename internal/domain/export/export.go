// Package export packages a workspace as a downloadable project archive.
package export

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/zip"

	"github.com/GriffinCanCode/livebox/internal/shared/types"
)

// Archive file names
const (
	FileMarkup  = "index.html"
	FileStyle   = "style.css"
	FileScript  = "script.js"
	FilePackage = "package.json"
	FileReadme  = "README.md"

	// Filename is the suggested download name
	Filename = "livebox-project.zip"
)

type packageManifest struct {
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Description string            `json:"description"`
	Main        string            `json:"main"`
	Scripts     map[string]string `json:"scripts"`
}

const readme = "# Livebox Export\n\n" +
	"This project was exported from livebox.\n\n" +
	"## Files\n" +
	"- `index.html` - Your HTML code\n" +
	"- `style.css` - Your CSS code\n" +
	"- `script.js` - Your JavaScript code\n\n" +
	"## Running locally\n" +
	"1. Install http-server: `npm install -g http-server`\n" +
	"2. Run: `npm start` or `http-server .`\n" +
	"3. Open your browser to the displayed URL\n\n" +
	"Alternatively, you can open `index.html` directly in your browser.\n"

// Write streams the bundle as a zip archive. Fragments are written as-is.
func Write(w io.Writer, bundle types.SourceBundle, modified time.Time) error {
	manifest, err := sonic.ConfigStd.MarshalIndent(packageManifest{
		Name:        "livebox-export",
		Version:     "1.0.0",
		Description: "Exported from livebox",
		Main:        FileMarkup,
		Scripts:     map[string]string{"start": "npx http-server ."},
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode package manifest: %w", err)
	}

	files := []struct {
		name string
		body []byte
	}{
		{FileMarkup, []byte(bundle.Markup)},
		{FileStyle, []byte(bundle.Style)},
		{FileScript, []byte(bundle.Script)},
		{FilePackage, manifest},
		{FileReadme, []byte(readme)},
	}

	zw := zip.NewWriter(w)
	for _, f := range files {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return fmt.Errorf("add %s: %w", f.name, err)
		}
		if _, err := fw.Write(f.body); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}
	return nil
}

// Bytes returns the archive in memory
func Bytes(bundle types.SourceBundle, modified time.Time) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, bundle, modified); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
