package molecule

import (
	"fmt"
	"math"
	"strings"

	"github.com/medimatch/medimatch/pkg/errors"
)

// GenerateMolBlock renders a SMILES string as a V2000 MOL block for 2D
// structure display.  Atoms are laid out on a circle and chained with single
// bonds in SMILES order; the output is a valid MOL block for viewers, not a
// chemically exact depiction.
func GenerateMolBlock(smiles string) (string, error) {
	if err := ValidateSMILES(smiles); err != nil {
		return "", err
	}
	atoms := parseSMILESAtoms(smiles)
	if len(atoms) > 999 {
		return "", errors.New(errors.ErrCodeMolBlockGenerationFailed, "molecule exceeds the V2000 atom limit")
	}

	var b strings.Builder
	b.WriteString(smiles + "\n")
	b.WriteString("  MediMatch\n")
	b.WriteString("\n")

	bondCount := 0
	if len(atoms) > 1 {
		bondCount = len(atoms) - 1
	}
	fmt.Fprintf(&b, "%3d%3d  0  0  0  0  0  0  0  0999 V2000\n", len(atoms), bondCount)

	// Circle layout keeps coordinates bounded for any atom count.
	radius := 1.0 + 0.15*float64(len(atoms))
	for i, atom := range atoms {
		angle := 2 * math.Pi * float64(i) / float64(len(atoms))
		x := radius * math.Cos(angle)
		y := radius * math.Sin(angle)
		symbol := normalizeAtomSymbol(atom)
		fmt.Fprintf(&b, "%10.4f%10.4f%10.4f %-3s 0  0  0  0  0  0  0  0  0  0  0  0\n", x, y, 0.0, symbol)
	}

	for i := 1; i < len(atoms); i++ {
		fmt.Fprintf(&b, "%3d%3d%3d  0\n", i, i+1, 1)
	}

	b.WriteString("M  END\n")
	return b.String(), nil
}

// normalizeAtomSymbol maps SMILES aromatic lowercase symbols to their element
// symbol for the MOL atom block.
func normalizeAtomSymbol(atom string) string {
	if atom == "Cl" || atom == "Br" {
		return atom
	}
	return strings.ToUpper(atom)
}
