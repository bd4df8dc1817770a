package handlers

import (
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	apperrors "github.com/frostdev-ops/eventstats-backend-go/pkg/errors"
)

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// negotiateEncoding wraps w in zstd when the client accepts it, else gzip,
// else nothing. The returned encoding is empty for an unwrapped writer.
func negotiateEncoding(w io.Writer, acceptEncoding string) (io.WriteCloser, string, error) {
	accepted := make(map[string]bool)
	for _, part := range strings.Split(acceptEncoding, ",") {
		fields := strings.Split(part, ";")
		name := strings.ToLower(strings.TrimSpace(fields[0]))
		if name == "" {
			continue
		}
		accepted[name] = true
		for _, param := range fields[1:] {
			param = strings.TrimSpace(param)
			if q, ok := strings.CutPrefix(param, "q="); ok {
				if weight, err := strconv.ParseFloat(q, 64); err == nil && weight == 0 {
					accepted[name] = false
				}
			}
		}
	}

	switch {
	case accepted["zstd"]:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, "", apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return enc, "zstd", nil
	case accepted["gzip"]:
		return gzip.NewWriter(w), "gzip", nil
	default:
		return nopWriteCloser{w}, "", nil
	}
}
