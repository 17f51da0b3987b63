// Copyright (c) 2015-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cfgutil

import (
	"errors"
	"fmt"
	"os"
)

// FileExists reports whether the named regular file exists. A directory at
// that path is reported as an error.
func FileExists(filePath string) (bool, error) {
	info, err := os.Stat(filePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return false, nil

	case err != nil:
		return false, err

	case info.IsDir():
		return false, fmt.Errorf("%s is a directory", filePath)
	}

	return true, nil
}
