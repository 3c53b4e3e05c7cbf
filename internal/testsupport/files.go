package testsupport

import (
	"hash/fnv"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills the target path with size bytes of deterministic content.
// The pattern is seeded from the path and varies with the byte offset, so two
// fixture files share content only if both path and size match. A size <= 0
// writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	seeder := fnv.New32a()
	seeder.Write([]byte(path))
	seed := byte(seeder.Sum32())

	const block = 16 * 1024
	buf := make([]byte, block)
	var written int64
	for written < size {
		n := size - written
		if n > block {
			n = block
		}
		for i := int64(0); i < n; i++ {
			buf[i] = seed ^ byte((written+i)%251)
		}
		if _, err := f.Write(buf[:n]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		written += n
	}
}
