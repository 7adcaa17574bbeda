package assets

import (
	"path"
	"strings"
)

// webTypes is the complete extension table. The platform MIME database is
// never consulted because it differs between hosts (.js in particular), so an
// extension missing here is unknown everywhere.
var webTypes = map[string]string{
	".aac":         "audio/aac",
	".apng":        "image/apng",
	".avif":        "image/avif",
	".bmp":         "image/bmp",
	".css":         "text/css",
	".csv":         "text/csv",
	".gif":         "image/gif",
	".htm":         "text/html",
	".html":        "text/html",
	".ico":         "image/vnd.microsoft.icon",
	".jpeg":        "image/jpeg",
	".jpg":         "image/jpeg",
	".js":          "application/javascript",
	".json":        "application/json",
	".map":         "application/json",
	".md":          "text/markdown",
	".mjs":         "application/javascript",
	".mp3":         "audio/mpeg",
	".mp4":         "video/mp4",
	".oga":         "audio/ogg",
	".ogg":         "audio/ogg",
	".ogv":         "video/ogg",
	".otf":         "font/otf",
	".pdf":         "application/pdf",
	".png":         "image/png",
	".svg":         "image/svg+xml",
	".ttf":         "font/ttf",
	".txt":         "text/plain",
	".wasm":        "application/wasm",
	".wav":         "audio/wav",
	".webm":        "video/webm",
	".webmanifest": "application/manifest+json",
	".webp":        "image/webp",
	".woff":        "font/woff",
	".woff2":       "font/woff2",
	".xml":         "application/xml",
	".zip":         "application/zip",
}

const javascriptType = "application/javascript"

// ContentType infers a MIME type from the extension of name. Parameters such
// as charset are never included.
func ContentType(name string) (string, bool) {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		return "", false
	}
	contentType, ok := webTypes[ext]
	return contentType, ok
}

// ServedContentType is the Content-Type the dispatcher sends for a stored
// asset: text/plain when unknown, with a UTF-8 charset on textual types.
func ServedContentType(name string) string {
	contentType, ok := ContentType(name)
	if !ok {
		contentType = "text/plain"
	}
	if strings.HasPrefix(contentType, "text") || contentType == javascriptType {
		contentType += "; charset=utf-8"
	}
	return contentType
}
