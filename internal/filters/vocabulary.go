package filters

// Name is a filter field understood by the search engine.
type Name string

const (
	Length       Name = "length_uFilter"
	Color        Name = "color_uFilter"
	Fit          Name = "fit_uFilter"
	Size         Name = "size_uFilter"
	Category     Name = "categoryType_uFilter"
	Type         Name = "type_uFilter"
	Gender       Name = "gender_uFilter"
	LegShape     Name = "legShape_uFilter"
	SleeveLength Name = "sleeveLength_uFilter"
	Occasion     Name = "occasion_uFilter"
	Style        Name = "styleRefinement_uFilter"
	Rise         Name = "rise_uFilter"
	PriceRange   Name = "sortPrice"
)

// Vocabulary is the closed set of filter names, in prompt order.
var Vocabulary = []Name{
	Length, Color, Fit, PriceRange, Size, Category, Type,
	Gender, LegShape, SleeveLength, Occasion, Style, Rise,
}

var vocabulary = func() map[Name]struct{} {
	m := make(map[Name]struct{}, len(Vocabulary))
	for _, n := range Vocabulary {
		m[n] = struct{}{}
	}
	return m
}()

// Known reports whether n belongs to the vocabulary.
func Known(n Name) bool {
	_, ok := vocabulary[n]
	return ok
}

// IsRange reports whether n takes an inclusive range expression.
func (n Name) IsRange() bool {
	return n == PriceRange
}
