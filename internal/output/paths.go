package output

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"
)

// NotFoundFile is the conventional name static hosts serve for missing pages.
const NotFoundFile = "404.html"

// PagePath maps a route to the file it is written to. Routes become
// directories holding index.html, except /404 which maps to NotFoundFile.
func PagePath(route string) string {
	route = strings.TrimSpace(route)
	clean := strings.Trim(route, " \t\r\n/")
	if clean == "" {
		return "index.html"
	}
	clean = path.Clean(clean)
	if clean == "404" {
		return NotFoundFile
	}
	return path.Join(clean, "index.html")
}

// Checksum returns the hex sha256 of data.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
