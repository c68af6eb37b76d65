// Package molecule provides molecular fingerprint computation and Tanimoto
// similarity ranking for the MediMatch platform.  Fingerprints encode
// molecular structure as fixed-length bit vectors using a simplified
// atom-environment hashing scheme; exact RDKit parity is not a goal, but the
// vectors are deterministic and suitable for nearest-neighbour ranking and
// binary-vector search in Milvus.
package molecule

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/bits"
	"strings"

	"github.com/medimatch/medimatch/pkg/errors"
	drugtypes "github.com/medimatch/medimatch/pkg/types/drug"
)

// Default fingerprint parameters.  Radius 2 over 2048 bits mirrors the
// common ECFP4 configuration.
const (
	DefaultMorganRadius = 2
	DefaultNumBits      = 2048
	maccsNumBits        = 166
)

// ─────────────────────────────────────────────────────────────────────────────
// Fingerprint
// ─────────────────────────────────────────────────────────────────────────────

// Fingerprint represents a molecular fingerprint as a packed bit vector.
// Bit i is stored in byte i/8 at bit position i%8.
type Fingerprint struct {
	Type      drugtypes.FingerprintType `json:"type"`
	Bits      []byte                    `json:"bits"`
	Length    int                       `json:"length"`
	NumOnBits int                       `json:"num_on_bits"`
}

// NewFingerprint constructs a Fingerprint from raw bit data.
func NewFingerprint(fpType drugtypes.FingerprintType, data []byte, length int) *Fingerprint {
	onBits := 0
	for _, b := range data {
		onBits += bits.OnesCount8(b)
	}
	return &Fingerprint{
		Type:      fpType,
		Bits:      data,
		Length:    length,
		NumOnBits: onBits,
	}
}

// FingerprintFromBytes deserializes a fingerprint from stored byte data.
func FingerprintFromBytes(fpType drugtypes.FingerprintType, data []byte, length int) *Fingerprint {
	return NewFingerprint(fpType, data, length)
}

// GetBit returns true if the bit at the given index is set.
func (fp *Fingerprint) GetBit(index int) bool {
	if index < 0 || index >= fp.Length {
		return false
	}
	return (fp.Bits[index/8] & (1 << uint(index%8))) != 0
}

// setBit sets the bit at the given index in a packed byte slice.
func setBit(data []byte, index int) {
	data[index/8] |= 1 << uint(index%8)
}

// ToBytes returns the packed bit vector for storage or vector-DB indexing.
func (fp *Fingerprint) ToBytes() []byte {
	return fp.Bits
}

// ─────────────────────────────────────────────────────────────────────────────
// SMILES parsing (simplified)
// ─────────────────────────────────────────────────────────────────────────────

// ValidateSMILES performs a light structural sanity check: the string must be
// non-empty, contain at least one atom symbol, and have balanced parentheses
// and brackets.  A full SMILES grammar is intentionally out of scope.
func ValidateSMILES(smiles string) error {
	if strings.TrimSpace(smiles) == "" {
		return errors.New(errors.CodeMoleculeInvalidSMILES, "SMILES string cannot be empty")
	}
	var parens, brackets int
	for _, ch := range smiles {
		switch ch {
		case '(':
			parens++
		case ')':
			parens--
		case '[':
			brackets++
		case ']':
			brackets--
		}
		if parens < 0 || brackets < 0 {
			return errors.New(errors.CodeMoleculeInvalidSMILES, "unbalanced ring or branch delimiters in SMILES")
		}
	}
	if parens != 0 || brackets != 0 {
		return errors.New(errors.CodeMoleculeInvalidSMILES, "unbalanced ring or branch delimiters in SMILES")
	}
	if len(parseSMILESAtoms(smiles)) == 0 {
		return errors.New(errors.CodeMoleculeInvalidSMILES, "no atoms found in SMILES")
	}
	return nil
}

// parseSMILESAtoms extracts the atom symbol sequence from a SMILES string.
// Two-letter organic-subset symbols (Cl, Br) are kept together; everything
// that is not a letter (bonds, ring closures, branch delimiters, charges) is
// skipped.
func parseSMILESAtoms(smiles string) []string {
	atoms := make([]string, 0, len(smiles))
	runes := []rune(smiles)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		if !isLetter(ch) {
			continue
		}
		// Cl and Br are the two-character symbols of the organic subset.
		if ch == 'C' && i+1 < len(runes) && runes[i+1] == 'l' {
			atoms = append(atoms, "Cl")
			i++
			continue
		}
		if ch == 'B' && i+1 < len(runes) && runes[i+1] == 'r' {
			atoms = append(atoms, "Br")
			i++
			continue
		}
		// Explicit hydrogens inside brackets carry no structural signal here.
		if ch == 'H' || ch == 'h' {
			continue
		}
		atoms = append(atoms, string(ch))
	}
	return atoms
}

func isLetter(ch rune) bool {
	return (ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z')
}

// hashEnvironment hashes an atom-centred neighbourhood descriptor into a
// 64-bit value used to pick a fingerprint bit.
func hashEnvironment(env string) uint64 {
	sum := sha256.Sum256([]byte(env))
	return binary.BigEndian.Uint64(sum[:8])
}

// ─────────────────────────────────────────────────────────────────────────────
// Morgan (circular) fingerprint
// ─────────────────────────────────────────────────────────────────────────────

// CalculateMorganFingerprint computes a simplified Morgan (circular)
// fingerprint.  For every atom it hashes the window of neighbouring atom
// symbols at each radius from 0 to radius, so molecules sharing local
// substructure share bits regardless of where the substructure sits in the
// SMILES string.
func CalculateMorganFingerprint(smiles string, radius, nBits int) (*Fingerprint, error) {
	if err := ValidateSMILES(smiles); err != nil {
		return nil, err
	}
	if radius < 0 {
		radius = DefaultMorganRadius
	}
	if nBits <= 0 {
		nBits = DefaultNumBits
	}

	atoms := parseSMILESAtoms(smiles)
	data := make([]byte, (nBits+7)/8)

	for i := range atoms {
		for r := 0; r <= radius; r++ {
			lo := i - r
			if lo < 0 {
				lo = 0
			}
			hi := i + r + 1
			if hi > len(atoms) {
				hi = len(atoms)
			}
			env := fmt.Sprintf("%d|%s", r, strings.Join(atoms[lo:hi], "."))
			setBit(data, int(hashEnvironment(env)%uint64(nBits)))
		}
	}

	return NewFingerprint(drugtypes.FPMorgan, data, nBits), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// MACCS keys fingerprint
// ─────────────────────────────────────────────────────────────────────────────

// maccsPatterns is the subset of structural keys checked by the simplified
// MACCS implementation: substring pattern → bit index.
var maccsPatterns = []struct {
	bitIdx  int
	pattern string
}{
	{10, "c1ccccc1"}, // benzene
	{11, "c1ccc"},    // aromatic carbon run
	{20, "N"},
	{21, "O"},
	{22, "S"},
	{23, "F"},
	{24, "Cl"},
	{25, "Br"},
	{30, "C(=O)O"}, // carboxylic acid
	{31, "C(=O)N"}, // amide
	{32, "C=O"},    // carbonyl
	{33, "C#N"},    // nitrile
	{34, "[NH2]"},  // primary amine
	{35, "OH"},     // hydroxyl
	{36, "C=C"},
	{37, "C#C"},
	{40, "("}, // branched
	{41, "1"}, // ring closure
}

// CalculateMACCSFingerprint computes a simplified 166-bit MACCS structural
// keys fingerprint by substring matching against a curated pattern subset.
func CalculateMACCSFingerprint(smiles string) (*Fingerprint, error) {
	if err := ValidateSMILES(smiles); err != nil {
		return nil, err
	}

	data := make([]byte, (maccsNumBits+7)/8)
	for _, p := range maccsPatterns {
		if strings.Contains(smiles, p.pattern) {
			setBit(data, p.bitIdx)
		}
	}

	// Size buckets give small and large molecules distinct keys.
	atomCount := len(parseSMILESAtoms(smiles))
	if atomCount > 5 {
		setBit(data, 50)
	}
	if atomCount > 10 {
		setBit(data, 51)
	}
	if atomCount > 20 {
		setBit(data, 52)
	}

	return NewFingerprint(drugtypes.FPMACCS, data, maccsNumBits), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Topological (path) fingerprint
// ─────────────────────────────────────────────────────────────────────────────

// CalculateTopologicalFingerprint computes a Daylight-style path fingerprint
// by hashing every linear atom sequence of length minPath to maxPath.
func CalculateTopologicalFingerprint(smiles string, minPath, maxPath, nBits int) (*Fingerprint, error) {
	if err := ValidateSMILES(smiles); err != nil {
		return nil, err
	}
	if minPath < 1 {
		minPath = 1
	}
	if maxPath < minPath {
		maxPath = 7
	}
	if nBits <= 0 {
		nBits = DefaultNumBits
	}

	atoms := parseSMILESAtoms(smiles)
	data := make([]byte, (nBits+7)/8)

	for pathLen := minPath; pathLen <= maxPath && pathLen <= len(atoms); pathLen++ {
		for i := 0; i+pathLen <= len(atoms); i++ {
			path := strings.Join(atoms[i:i+pathLen], "-")
			setBit(data, int(hashEnvironment(path)%uint64(nBits)))
		}
	}

	return NewFingerprint(drugtypes.FPTopological, data, nBits), nil
}
