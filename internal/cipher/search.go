package cipher

import "github.com/thoreinstein/nmsio/internal/errors"

// ErrNoKey is returned by DecryptSearch when no candidate slot produced a
// valid block.
var ErrNoKey = errors.New("no candidate key decrypts block")

// DecryptSearch decrypts block with the key of expected and, if valid rejects
// the result, retries with each of the other candidates in order. It returns
// the plaintext and the slot whose key produced it.
//
// Candidates equal to expected are skipped. The search is linear and only
// runs when the expected key fails.
func DecryptSearch(block []byte, key Key, rounds int, expected uint32, candidates []uint32, valid func([]byte) bool) ([]byte, uint32, error) {
	plain, err := Decrypt(block, key, expected, rounds)
	if err != nil {
		return nil, 0, err
	}
	if valid(plain) {
		return plain, expected, nil
	}

	for _, slot := range candidates {
		if slot == expected {
			continue
		}
		plain, err = Decrypt(block, key, slot, rounds)
		if err != nil {
			return nil, 0, err
		}
		if valid(plain) {
			return plain, slot, nil
		}
	}
	return nil, 0, ErrNoKey
}
