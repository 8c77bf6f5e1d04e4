package assets

import (
	"embed"
	"io/fs"
)

//go:embed palette.yaml sql/*.sql
var FS embed.FS

// PaletteYAML returns the default palette definition.
func PaletteYAML() ([]byte, error) {
	return FS.ReadFile("palette.yaml")
}

// Migrations returns the SQL migration directory, rooted so files are named "NNN_x.sql".
func Migrations() fs.FS {
	sub, err := fs.Sub(FS, "sql")
	if err != nil {
		panic(err) // the directory is embedded at build time
	}
	return sub
}
