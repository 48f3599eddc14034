// (c) 2019-2024, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

// MergeBloom merges the blooms from the given receipts into a single bloom.
func MergeBloom(receipts []*Receipt) Bloom {
	var bloom Bloom
	for _, receipt := range receipts {
		// Bloom is a fixed-size byte array, so we need to OR manually
		for i := 0; i < len(bloom); i++ {
			bloom[i] |= receipt.Bloom[i]
		}
	}
	return bloom
}

// Test reports whether the bloom filter may contain the given item. False
// positives are possible; false negatives are not.
func (b Bloom) Test(data []byte) bool {
	var item Bloom
	addBloomItem(&item, data)
	for i := range item {
		if item[i]&b[i] != item[i] {
			return false
		}
	}
	return true
}

// Bytes returns the bloom filter's raw bytes.
func (b Bloom) Bytes() []byte { return b[:] }