package domain

// Category is the storage-side (plural) name of an indexed object kind.
type Category string

// The fixed set of indexed object categories.
const (
	CategoryContacts      Category = "contacts"
	CategoryEngagements   Category = "engagements"
	CategoryTransactions  Category = "transactions"
	CategoryProfessionals Category = "professionals"
)

// categories is the canonical ordering used for bucket iteration.
var categories = []Category{
	CategoryContacts,
	CategoryEngagements,
	CategoryTransactions,
	CategoryProfessionals,
}

// singulars maps storage-side plural names to citation-side singular types.
var singulars = map[Category]string{
	CategoryContacts:      "contact",
	CategoryEngagements:   "engagement",
	CategoryTransactions:  "transaction",
	CategoryProfessionals: "professional",
}

// Categories returns all categories in canonical order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// NumCategories is the size of the fixed category set.
func NumCategories() int { return len(categories) }

// Singular returns the citation-side type token for the category.
func (c Category) Singular() string { return singulars[c] }

// IsValid reports whether c is one of the fixed categories.
func (c Category) IsValid() bool {
	_, ok := singulars[c]
	return ok
}

// HasRichText reports whether the category carries long free-text fields
// worth re-fetching as full snippets during fusion.
func (c Category) HasRichText() bool {
	return c == CategoryContacts || c == CategoryEngagements
}

// ParseCategory resolves a category token in either plural or singular form.
func ParseCategory(s string) (Category, bool) {
	if Category(s).IsValid() {
		return Category(s), true
	}
	return CategoryFromSingular(s)
}

// CategoryFromSingular resolves a citation-side singular type token.
func CategoryFromSingular(s string) (Category, bool) {
	for c, sing := range singulars {
		if sing == s {
			return c, true
		}
	}
	return "", false
}
