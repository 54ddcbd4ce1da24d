package asset

import (
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/pierrec/lz4"
)

// LoadShader reads a SPIR-V blob. Files ending in .lz4 are decompressed.
func LoadShader(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open shader")
	}
	defer f.Close()

	var r io.Reader = f
	if filepath.Ext(path) == ".lz4" {
		r = lz4.NewReader(f)
	}

	code, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "read shader %s", path)
	}

	if len(code) == 0 {
		return nil, errors.Newf("shader %s is empty", path)
	}

	return code, nil
}
