package plantid

import (
	"strings"

	"github.com/plantpal/plantpal-go/internal/model"
)

// flowerKeywords lists cut-flower and flowering-plant genus and common names
// that place a subject in the flowers collection. Matching is
// case-insensitive substring.
var flowerKeywords = []string{
	// Cut flowers
	"rosa", "rose", "tulip", "daffodil", "narcissus", "iris",
	"peony", "paeonia", "sunflower", "helianthus", "carnation", "dianthus",
	"lily", "lilium", "orchid", "orchidaceae", "dahlia",
	"chrysanthemum", "chrysanth", "gerbera", "ranunculus",
	"lavender", "lavandula", "lilac", "syringa", "hydrangea",
	"bouquet", "arrangement", "floral",
	"jasmine", "jasminum", "poppy", "papaver", "anemone", "aster",
	"bluebell", "freesia", "gladiolus", "hyacinth", "lisianthus",
	"snapdragon", "stephanotis", "stock", "sweet pea", "thistle", "waxflower",
	// Temporary flowering plants
	"pansy", "viola", "petunia", "antirrhinum", "zinnia", "cosmos",
	"marigold", "tagetes", "impatiens", "begonia", "camellia", "clematis",
	"foxglove", "fuchsia", "geranium", "hollyhock", "magnolia", "phlox",
	"verbena",
}

// ClassifyCollection decides which collection a species name belongs to.
// Unknown or empty species default to the plants collection.
func ClassifyCollection(speciesName string) model.SubjectType {
	if speciesName == "" {
		return model.SubjectTypePlant
	}
	speciesLower := strings.ToLower(speciesName)
	for _, keyword := range flowerKeywords {
		if strings.Contains(speciesLower, keyword) {
			return model.SubjectTypeFlower
		}
	}
	return model.SubjectTypePlant
}
