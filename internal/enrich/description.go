package enrich

import (
	"fmt"
	"math/rand/v2"
)

var descriptionTemplates = []string{
	"Official %[1]s %[2]s jersey for the %[3]s season. Premium quality with authentic team colors and design.",
	"Authentic %[1]s %[2]s shirt featuring the latest %[3]s design. Made with high-quality materials for comfort and durability.",
	"Official %[1]s %[2]s kit for %[3]s. Features the team's signature colors and authentic design elements.",
	"Premium %[1]s %[2]s jersey from the %[3]s season. Authentic team branding and superior craftsmanship.",
	"Official %[1]s %[2]s uniform for %[3]s. High-quality fabric with authentic team details and design.",
}

// Description picks one of the copy templates with rng.
func Description(club, category, season string, rng *rand.Rand) string {
	tmpl := descriptionTemplates[rng.IntN(len(descriptionTemplates))]
	return fmt.Sprintf(tmpl, club, category, season)
}
