// Package catalog defines the canonical product catalog and its publishers.
package catalog

import "time"

// Category is the garment category of a product.
type Category string

// Category values recognized by the storefront.
const (
	CategoryHome      Category = "Home"
	CategoryAway      Category = "Away"
	CategoryThird     Category = "Third"
	CategoryFourth    Category = "Fourth"
	CategoryGK        Category = "GK"
	CategoryTraining  Category = "Training"
	CategoryAccessory Category = "Accessory"
)

// Product is one storefront listing derived from a crawled album.
type Product struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Club     string   `json:"club,omitempty"`
	League   string   `json:"league"`
	Category Category `json:"category"`
	Season   string   `json:"season"`
	// Price is the stored base price; DisplayPrice is the hash-banded shelf price.
	Price        int      `json:"price"`
	DisplayPrice int      `json:"displayPrice"`
	Sizes        []string `json:"sizes"`
	Images       []string `json:"images"`
	Description  string   `json:"description"`
	Tags         []string `json:"tags"`
	IsNew        bool     `json:"isNew"`
	IsOnSale     bool     `json:"isOnSale"`
	InStock      bool     `json:"inStock"`
	Brand        string   `json:"brand"`
	Material     string   `json:"material"`
}

// Catalog is a fully regenerated set of products plus the filter enumerations.
type Catalog struct {
	GeneratedAt time.Time `json:"generatedAt"`
	Source      string    `json:"source,omitempty"`
	Products    []Product `json:"products"`
	Categories  []string  `json:"categories"`
	Brands      []string  `json:"brands"`
	Sizes       []string  `json:"sizes"`
}

// Filter enumerations exported alongside the products.
var (
	DefaultCategories = []string{
		"All", "Premier League", "La Liga", "Bundesliga", "Ligue 1",
		"Serie A", "Champions League", "National Teams", "Other",
	}
	DefaultBrands = []string{"All", "Adidas", "Nike", "Puma", "Under Armour"}
	DefaultSizes  = []string{"S", "M", "L", "XL", "XXL"}
)

// New builds a catalog with the default enumerations.
func New(generatedAt time.Time, source string, products []Product) Catalog {
	if products == nil {
		products = []Product{}
	}
	return Catalog{
		GeneratedAt: generatedAt.UTC(),
		Source:      source,
		Products:    products,
		Categories:  append([]string(nil), DefaultCategories...),
		Brands:      append([]string(nil), DefaultBrands...),
		Sizes:       append([]string(nil), DefaultSizes...),
	}
}
