package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/asarum-backend/pkg/db/models"
	"github.com/angelmondragon/asarum-backend/pkg/enums"
	"github.com/angelmondragon/asarum-backend/pkg/types"
)

const (
	seedCategory   = "Arreglos Premium"
	unsplashParams = "?auto=format&fit=crop&q=80&w=800"
)

type seedProduct struct {
	name        string
	photo       string
	description string
	notes       string
	variants    []seedVariant
}

type seedVariant struct {
	name  string
	price int64
}

var seedCatalog = []seedProduct{
	{"Daniela", "photo-1526047932273-341f2a7631f9", "Canasta vibrante con gerberas, rosas y follaje variado.", "",
		[]seedVariant{{"Único Tamaño", 1500}}},
	{"Elisa", "photo-1561181286-d3fee7d55364", "Elegante arreglo de tulipanes y hortensias.", "Tono de tulipán a elección.",
		[]seedVariant{{"Mediano", 1850}, {"Grande", 2500}}},
	{"Olivia", "photo-1582794543139-8ac9cb0f7b11", "Clásico ramo de rosas rojas con toques de follaje plateado.", "",
		[]seedVariant{{"12 Rosas", 1250}, {"24 Rosas", 1800}, {"50 Rosas", 2849}}},
	{"Alma", "photo-1590650153855-d9e808231d41", "Mix de rosas rojas y flores blancas en base de cristal.", "Base disponible en blanco, negro o cristalina.",
		[]seedVariant{{"Único Tamaño", 1600}}},
	{"Ale", "photo-1518709766631-a6a7f45921c3", "Arreglo romántico en caja circular (box-flower).", "La caja puede variar de acuerdo a stock.",
		[]seedVariant{{"Chico", 999}, {"Mediano", 1500}, {"Grande", 2500}, {"Jumbo", 5000}}},
	{"Mia", "photo-1494333102632-3bb620443697", "Explosión de mini-rosas rojas densas.", "",
		[]seedVariant{{"Chico", 999}, {"Mediano", 2500}, {"Grande", 3500}, {"Jumbo", 5000}, {"Extra", 10000}}},
	{"Melissa", "photo-1533616688419-b7a585564566", "Arreglo alto de rosas premium en florero de cristal.", "",
		[]seedVariant{{"Chico", 1850}, {"Mediano", 2650}, {"Grande", 5000}}},
	{"Emilia", "photo-1550989460-0adf9ea622e2", "Diseño artístico maximalista con mix de flores exóticas.", "Color de base de acuerdo a stock.",
		[]seedVariant{{"Único Tamaño", 6000}}},
	{"Luciana", "photo-1597843798133-e1529b21f1de", "Alegre ramo de girasoles envuelto en papel craft premium.", "El papel puede variar de acuerdo a stock.",
		[]seedVariant{{"6 Girasoles + Follaje", 950}}},
	{"Elena", "photo-1562601519-19443b392bbb", "El regalo definitivo. Cientos de rosas compactadas en domo.", "Tono de rosa a elección.",
		[]seedVariant{{"500 Rosas", 20500}, {"1,000 Rosas", 38000}}},
	{"Amalia", "photo-1519225421980-715cb0215aed", "Delicado ramo de rosas con flores de acompañamiento.", "El papel puede variar de acuerdo a stock.",
		[]seedVariant{{"6 Rosas", 600}, {"12 Rosas", 950}, {"18 Rosas", 1250}}},
	{"Sofía", "photo-1516339901600-2e1a62d0edb7", "Ramo romántico envuelto en seda blanca.", "El papel puede variar de acuerdo a stock.",
		[]seedVariant{{"24 Rosas", 1650}, {"36 Rosas", 2750}, {"50 Rosas", 2950}}},
	{"Laura", "photo-1587314168485-3236d6710814", "Espectacular domo de rosas rojas premium.", "El papel puede variar de acuerdo a stock.",
		[]seedVariant{{"100 Rosas", 4500}, {"200 Rosas", 8500}, {"300 Rosas", 13500}}},
}

// SeedProducts builds the initial catalog rows. The first variant of each
// product is its default and matches the base price.
func SeedProducts() []models.Product {
	out := make([]models.Product, 0, len(seedCatalog))
	for _, sp := range seedCatalog {
		variants := make([]types.ProductVariant, len(sp.variants))
		for i, v := range sp.variants {
			variants[i] = types.ProductVariant{
				Name:      v.name,
				Price:     decimal.NewFromInt(v.price),
				IsDefault: i == 0,
			}
		}
		product := models.Product{
			ID:          Slugify(sp.name),
			Name:        sp.name,
			Description: sp.description,
			BasePrice:   variants[0].Price,
			Images:      []string{"https://images.unsplash.com/" + sp.photo + unsplashParams},
			Category:    seedCategory,
			Variants:    variants,
			Seasons:     types.SeasonSet{enums.SeasonValentines, enums.SeasonRegular},
		}
		if sp.notes != "" {
			notes := sp.notes
			product.Notes = &notes
		}
		out = append(out, product)
	}
	return out
}
