package renderer

import (
	"net/url"
	"strings"

	"github.com/skip2/go-qrcode"
)

// ShareURL is the editor link that loads file on open
func ShareURL(baseURL, file string) string {
	return strings.TrimRight(baseURL, "/") + "/animation?load=" + url.QueryEscape(file)
}

// ShareQR encodes the share link of file as a PNG QR code
func ShareQR(baseURL, file string, size int) ([]byte, error) {
	return qrcode.Encode(ShareURL(baseURL, file), qrcode.Medium, size)
}

// WriteShareQR writes the QR code PNG to path
func WriteShareQR(baseURL, file string, size int, path string) error {
	return qrcode.WriteFile(ShareURL(baseURL, file), qrcode.Medium, size, path)
}
