package plantid

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/plantpal/plantpal-go/internal/model"
)

func TestClassifyCollection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		species string
		want    model.SubjectType
	}{
		{"Rosa gallica", model.SubjectTypeFlower},
		{"Tulipa gesneriana", model.SubjectTypeFlower},
		{"Sunflower", model.SubjectTypeFlower},
		{"LAVANDULA ANGUSTIFOLIA", model.SubjectTypeFlower},
		{"Mixed bouquet arrangement", model.SubjectTypeFlower},
		{"Monstera deliciosa", model.SubjectTypePlant},
		{"Epipremnum aureum", model.SubjectTypePlant},
		{"Ficus lyrata", model.SubjectTypePlant},
		{"", model.SubjectTypePlant},
		{"Unknown", model.SubjectTypePlant},
	}

	for _, tt := range tests {
		t.Run(tt.species, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ClassifyCollection(tt.species))
		})
	}
}
