// Package sniffer validates upload content by magic bytes rather than
// trusting the declared Content-Type alone.
package sniffer

import (
	"mime"
	"net/textproto"
	"strings"
)

const MIMEJPEG = "image/jpeg"

// IsJPEG checks the SOI marker. head should be the first bytes of the file.
func IsJPEG(head []byte) bool {
	return len(head) >= 3 &&
		head[0] == 0xff &&
		head[1] == 0xd8 &&
		head[2] == 0xff
}

// DeclaredMIME extracts the bare media type from a multipart part header,
// dropping any parameters. Empty if absent or unparseable.
func DeclaredMIME(header textproto.MIMEHeader) string {
	ct := header.Get("Content-Type")
	if ct == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return ""
	}
	return strings.ToLower(mediaType)
}
