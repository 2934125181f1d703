// Package assets embeds the static page served at "/".
package assets

import (
	"embed"
	"io/fs"
)

//go:embed web
var files embed.FS

// Web returns the page files rooted at web/.
func Web() fs.FS {
	sub, err := fs.Sub(files, "web")
	if err != nil {
		// web/ is embedded at build time; a missing dir is a build defect.
		panic(err)
	}
	return sub
}

// Index returns the contents of index.html.
func Index() ([]byte, error) {
	return fs.ReadFile(Web(), "index.html")
}
