package library

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// EncodePath turns a file path into a URL safe library hash.
func EncodePath(path string) string {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, _ = zw.Write([]byte(path))
	_ = zw.Close()
	return base64.URLEncoding.EncodeToString(buf.Bytes())
}

// DecodePath reverses EncodePath.
func DecodePath(hash string) (string, error) {
	compressed, err := base64.URLEncoding.DecodeString(hash)
	if err != nil {
		return "", fmt.Errorf("%w: bad hash %q", ErrNotFound, hash)
	}

	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return "", fmt.Errorf("%w: bad hash %q", ErrNotFound, hash)
	}
	defer zr.Close()

	path, err := io.ReadAll(zr)
	if err != nil {
		return "", fmt.Errorf("%w: bad hash %q", ErrNotFound, hash)
	}
	return string(path), nil
}
