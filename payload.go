package autodo

import (
	"fmt"
	"os"
)

// ProbeSize is the size of the sentinel separating the executable
// image from an appended script.
const ProbeSize = 1024

// probeUnit is the 16-byte pattern repeated to fill the sentinel. The
// layout is bit-exact with existing bundled programs; do not change
// it.
var probeUnit = [16]byte{
	0x00, 0x80, '=',
	'A', 'U', 'T', 'O', 'M', 'A', 'T', 'I', 'O', 'N',
	'=', 0x80, 0x00,
}

// Probe returns the full sentinel.
func Probe() []byte {
	p := make([]byte, ProbeSize)
	for i := 0; i < ProbeSize; i += len(probeUnit) {
		copy(p[i:], probeUnit[:])
	}
	return p
}

// findPattern locates key in data using a Boyer-Moore search with
// bad-character and good-suffix shift tables. Returns the offset of
// the first occurrence, or -1.
func findPattern(data, key []byte) int {
	if len(data) == 0 || len(key) == 0 || len(data) < len(key) {
		return -1
	}

	var bc [256]int
	for i := range bc {
		bc[i] = len(key)
	}
	for i := 0; i < len(key)-1; i++ {
		bc[key[i]] = len(key) - 1 - i
	}

	fsm := buildSuffixShift(key)

	i := len(key) - 1
	for i < len(data) {
		j := len(key) - 1
		for j >= 0 && data[i] == key[j] {
			i--
			j--
		}
		if j < 0 {
			return i + 1
		}
		shift := fsm[j]
		if s := bc[data[i]]; s > shift {
			shift = s
		}
		i += shift
	}
	return -1
}

// buildSuffixShift computes the good-suffix shift table.
func buildSuffixShift(key []byte) []int {
	n := len(key)
	fsm := make([]int, n)

	lastPrefix := n - 1
	for p := n - 1; p >= 0; p-- {
		if isPrefix(key, p+1) {
			lastPrefix = p + 1
		}
		fsm[p] = (n - 1 - p) + lastPrefix
	}

	for p := 0; p < n-1; p++ {
		slen := suffixLength(key, p)
		if key[p-slen] != key[n-1-slen] {
			fsm[n-1-slen] = n - 1 - p + slen
		}
	}
	return fsm
}

// isPrefix reports whether the suffix of key starting at pos is also a
// prefix of key.
func isPrefix(key []byte, pos int) bool {
	suffixLen := len(key) - pos
	for i := 0; i < suffixLen; i++ {
		if key[i] != key[pos+i] {
			return false
		}
	}
	return true
}

// suffixLength returns the length of the longest common suffix of key
// and of key's prefix ending at pos.
func suffixLength(key []byte, pos int) int {
	n := len(key)
	i := 0
	for key[pos-i] == key[n-1-i] && i < pos {
		i++
	}
	return i
}

// FindProbe returns the offset of the sentinel within image, or -1.
func FindProbe(image []byte) int {
	return findPattern(image, Probe())
}

// ExtractScript returns a copy of the bytes after the sentinel, or nil
// when image carries no sentinel.
func ExtractScript(image []byte) []byte {
	off := FindProbe(image)
	if off < 0 {
		return nil
	}
	start := off + ProbeSize
	script := make([]byte, len(image)-start)
	copy(script, image[start:])
	return script
}

// TrimExec returns image truncated at the sentinel, or image itself
// when no sentinel is present.
func TrimExec(image []byte) []byte {
	off := FindProbe(image)
	if off < 0 {
		return image
	}
	return image[:off]
}

// readSelf reads the running executable's image.
func readSelf() ([]byte, error) {
	path, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("autodo: locate self: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("autodo: read self: %w", err)
	}
	return data, nil
}

// ReadSelfScript returns the script embedded in the running
// executable, or nil when none is embedded.
func ReadSelfScript() ([]byte, error) {
	data, err := readSelf()
	if err != nil {
		return nil, err
	}
	return ExtractScript(data), nil
}

// ReadSelfExec returns the running executable's image up to the
// sentinel.
func ReadSelfExec() ([]byte, error) {
	data, err := readSelf()
	if err != nil {
		return nil, err
	}
	return TrimExec(data), nil
}

// WriteBundle writes the running executable's image, the sentinel, and
// script to dst, producing a self-contained bundle.
func WriteBundle(dst string, script []byte) error {
	exe, err := ReadSelfExec()
	if err != nil {
		return err
	}

	out := make([]byte, 0, len(exe)+ProbeSize+len(script))
	out = append(out, exe...)
	out = append(out, Probe()...)
	out = append(out, script...)

	if err := os.WriteFile(dst, out, 0o755); err != nil {
		return fmt.Errorf("autodo: write bundle: %w", err)
	}
	return os.Chmod(dst, 0o755)
}
