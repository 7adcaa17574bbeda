package demoapp

import (
	"embed"
	"io/fs"
)

// The client tree needs the all: prefix because its files live under _app.
//
//go:embed static all:client manifest.json
var files embed.FS

const ManifestName = "manifest.json"

func StaticFS() fs.FS {
	return mustSub("static")
}

func ClientFS() fs.FS {
	return mustSub("client")
}

// ManifestFS holds ManifestName at its root.
func ManifestFS() fs.FS {
	return files
}

func mustSub(dir string) fs.FS {
	sub, err := fs.Sub(files, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
