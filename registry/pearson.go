// File: registry/pearson.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Pearson hashing buckets driver records by "<name><slot>" identity, the
// same scheme original_source/supertel/task2/src/shell.c's hash_pearson
// calls into (the permutation table itself lives in hash-functions.c,
// not present in the retrieved sources; the illustrative Wikipedia
// permutation table is used here — any fixed bijection on [0,256)
// satisfies the algorithm's contract).

package registry

var pearsonTable = [256]byte{
	1, 87, 49, 12, 176, 178, 102, 166, 121, 193, 6, 84, 249, 230, 44, 163,
	14, 197, 213, 181, 161, 85, 218, 80, 64, 239, 24, 226, 236, 142, 38, 200,
	110, 177, 104, 103, 141, 253, 255, 50, 77, 101, 81, 18, 45, 96, 31, 222,
	25, 107, 190, 70, 86, 237, 240, 34, 72, 242, 20, 214, 244, 227, 149, 235,
	97, 234, 57, 22, 60, 250, 82, 175, 208, 5, 127, 199, 111, 62, 135, 248,
	174, 169, 211, 58, 66, 154, 106, 195, 245, 171, 17, 187, 182, 179, 0, 243,
	132, 56, 148, 75, 128, 133, 158, 100, 130, 126, 91, 13, 153, 246, 216, 219,
	119, 68, 223, 78, 83, 88, 201, 99, 122, 11, 92, 32, 136, 114, 52, 10,
	138, 30, 48, 183, 156, 35, 61, 26, 143, 74, 251, 94, 129, 162, 63, 152,
	170, 7, 115, 167, 241, 206, 3, 150, 55, 59, 151, 220, 90, 53, 23, 131,
	125, 173, 15, 238, 79, 95, 89, 16, 105, 137, 225, 224, 217, 160, 37, 123,
	118, 73, 2, 157, 46, 116, 9, 145, 134, 228, 207, 212, 202, 215, 69, 229,
	27, 188, 67, 124, 168, 252, 42, 4, 29, 108, 21, 247, 19, 205, 39, 203,
	233, 40, 186, 147, 198, 192, 155, 33, 164, 191, 98, 204, 165, 180, 117, 76,
	140, 36, 210, 172, 41, 54, 159, 8, 185, 232, 113, 196, 231, 47, 146, 120,
	51, 65, 28, 144, 254, 221, 93, 189, 194, 139, 112, 43, 71, 109, 184, 209,
}

// pearson computes the one-byte Pearson hash of data.
func pearson(data []byte) byte {
	var h byte
	for _, c := range data {
		h = pearsonTable[h^c]
	}
	return h
}

// bucketID returns the hash bucket for a (name, slot) driver identity,
// matching shell.c's DRIVER_SLOT_ID macro's "<name><slot>" concatenation
// before hashing.
func bucketID(name string, slot uint32) byte {
	id := make([]byte, 0, len(name)+10)
	id = append(id, name...)
	id = appendUint(id, slot)
	return pearson(id)
}

func appendUint(dst []byte, v uint32) []byte {
	if v == 0 {
		return append(dst, '0')
	}
	var tmp [10]byte
	i := len(tmp)
	for v > 0 {
		i--
		tmp[i] = byte('0' + v%10)
		v /= 10
	}
	return append(dst, tmp[i:]...)
}
