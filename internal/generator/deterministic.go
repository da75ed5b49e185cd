package generator

import "math/rand"

const printable = "abcdefghijklmnopqrstuvwxyz ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789\n"

// FileData produces size bytes of printable text from seed along with
// its checksum. Every call with the same seed and size yields the same
// bytes.
func FileData(seed int64, size int) ([]byte, string) {
	rng := rand.New(rand.NewSource(seed))
	data := make([]byte, size)
	for i := range data {
		data[i] = printable[rng.Intn(len(printable))]
	}
	return data, Checksum(data)
}
