// Package imageutil holds the CPU-bound image work of the ingestion
// pipeline: content and perceptual fingerprinting, and rendition generation.
// Nothing in this package performs I/O.
package imageutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"math/big"
	"math/bits"

	"github.com/disintegration/imaging"
)

// ContentHash returns the SHA256 digest of data as a 64-char hex string.
// It is an equality key for exact deduplication, never a similarity measure.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// PerceptualHash computes the average hash (aHash) of img:
// resize to hashSize x hashSize with Lanczos, grayscale, then one bit per
// pixel (row-major, MSB first), set when the pixel is strictly greater than
// the mean. The result is a zero-padded hex string of hashSize²/4 chars.
func PerceptualHash(img image.Image, hashSize int) (string, error) {
	if hashSize <= 0 {
		return "", fmt.Errorf("hash size must be positive, got %d", hashSize)
	}
	bitCount := hashSize * hashSize
	if bitCount%4 != 0 {
		return "", fmt.Errorf("hash size %d does not produce a whole number of hex digits", hashSize)
	}

	small := imaging.Resize(img, hashSize, hashSize, imaging.Lanczos)
	gray := imaging.Grayscale(small)

	pixels := make([]float64, 0, bitCount)
	var sum float64
	for y := 0; y < hashSize; y++ {
		for x := 0; x < hashSize; x++ {
			// After Grayscale all channels carry the luminance value.
			v := float64(gray.NRGBAAt(x, y).R)
			pixels = append(pixels, v)
			sum += v
		}
	}
	mean := sum / float64(bitCount)

	hashInt := new(big.Int)
	one := big.NewInt(1)
	for _, v := range pixels {
		hashInt.Lsh(hashInt, 1)
		if v > mean {
			hashInt.Or(hashInt, one)
		}
	}

	return fmt.Sprintf("%0*x", bitCount/4, hashInt), nil
}

// HammingDistance counts the differing bits between two hex-encoded hashes.
// The hashes must declare the same bit width (equal hex length).
func HammingDistance(hashA, hashB string) (int, error) {
	if len(hashA) != len(hashB) {
		return 0, fmt.Errorf("hash width mismatch: %d vs %d hex digits", len(hashA), len(hashB))
	}

	intA, ok := new(big.Int).SetString(hashA, 16)
	if !ok {
		return 0, fmt.Errorf("invalid hex hash %q", hashA)
	}
	intB, ok := new(big.Int).SetString(hashB, 16)
	if !ok {
		return 0, fmt.Errorf("invalid hex hash %q", hashB)
	}

	xor := new(big.Int).Xor(intA, intB)
	distance := 0
	for _, b := range xor.Bytes() {
		distance += bits.OnesCount8(b)
	}
	return distance, nil
}

// IsNearDuplicate reports whether two perceptual hashes are within threshold
// bits of each other.
func IsNearDuplicate(hashA, hashB string, threshold int) (bool, error) {
	distance, err := HammingDistance(hashA, hashB)
	if err != nil {
		return false, err
	}
	return distance <= threshold, nil
}
