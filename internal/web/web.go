// Package web はブラウザ向けの静的ファイルを埋め込んで提供する。
package web

import (
	"bytes"
	"embed"
	"io/fs"
	"net/http"
	"strings"
	"time"
)

//go:embed static
var staticFiles embed.FS

// IndexFile はトップページのファイル名。
const IndexFile = "index.html"

// StaticFS はstaticディレクトリをルートとするファイルシステムを返す。
func StaticFS() fs.FS {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		// 埋め込みパスはビルド時に固定されるため到達しない
		panic(err)
	}
	return sub
}

// StaticHandler は埋め込み静的ファイルを配信するハンドラーを返す。
// prefixはファイルパスから取り除くURLプレフィックス（例: "/static/"）。
// index.htmlはFileServerのリダイレクトを避けて直接返す。
func StaticHandler(prefix string) http.Handler {
	files := StaticFS()
	fileServer := http.StripPrefix(prefix, http.FileServerFS(files))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.TrimPrefix(r.URL.Path, prefix) != IndexFile {
			fileServer.ServeHTTP(w, r)
			return
		}

		data, err := fs.ReadFile(files, IndexFile)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		http.ServeContent(w, r, IndexFile, time.Time{}, bytes.NewReader(data))
	})
}
