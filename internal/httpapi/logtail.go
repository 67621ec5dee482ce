package httpapi

import (
	"io"
	"os"
)

// readLogTail reads path from position to EOF and returns its content
// plus the new position (end of file at read time). A missing file
// reads as empty at position 0, matching a job whose log hasn't been
// created yet.
func readLogTail(path string, position int64) (string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", 0, nil
		}
		return "", 0, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", 0, err
	}

	size := info.Size()
	start := position
	if start < 0 {
		start = 0
	}
	if start > size {
		start = size
	}

	if _, err := file.Seek(start, io.SeekStart); err != nil {
		return "", 0, err
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return "", 0, err
	}

	return string(data), start + int64(len(data)), nil
}
