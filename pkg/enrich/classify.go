package enrich

import "strings"

type industryRule struct {
	tag      string
	keywords []string
}

// industryRules are checked in order against the lower-cased category, then the title
var industryRules = []industryRule{
	{"plumbing", []string{"plumb", "heating engineer", "boiler"}},
	{"electrical", []string{"electrician", "electrical"}},
	{"roofing", []string{"roof"}},
	{"construction", []string{"builder", "construction", "contractor", "carpent"}},
	{"dental", []string{"dentist", "dental", "orthodont"}},
	{"healthcare", []string{"clinic", "doctor", "medical", "physio", "pharmac", "hospital"}},
	{"beauty", []string{"salon", "barber", "spa", "beauty", "nail", "hairdress"}},
	{"fitness", []string{"gym", "fitness", "yoga", "pilates"}},
	{"food & drink", []string{"restaurant", "cafe", "café", "coffee", "bakery", "bar", "pub", "takeaway", "pizza"}},
	{"hospitality", []string{"hotel", "guest house", "bed & breakfast", "hostel"}},
	{"legal", []string{"lawyer", "solicitor", "attorney", "law firm", "notary"}},
	{"accounting", []string{"accountant", "accounting", "bookkeep", "tax "}},
	{"real estate", []string{"real estate", "estate agent", "letting agent", "realtor", "property"}},
	{"automotive", []string{"car repair", "mechanic", "garage", "auto ", "tyre", "tire", "car dealer"}},
	{"retail", []string{"store", "shop", "boutique", "supermarket"}},
	{"education", []string{"school", "tutor", "academy", "college"}},
}

// IndustryByKeyword tags a place by keywords in its category, falling back to its title
func IndustryByKeyword(f Fields) string {
	for _, text := range []string{f.Category, f.Title} {
		text = strings.ToLower(text)
		if text == "" {
			continue
		}
		for _, rule := range industryRules {
			for _, kw := range rule.keywords {
				if strings.Contains(text, kw) {
					return rule.tag
				}
			}
		}
	}
	return "general"
}

// SentimentByRating buckets the numeric star rating
func SentimentByRating(f Fields) string {
	r := ParseRating(f.Rating)
	switch {
	case r == 0:
		return "unrated"
	case r >= 4.5:
		return "very positive"
	case r >= 4.0:
		return "positive"
	case r >= 3.0:
		return "mixed"
	default:
		return "negative"
	}
}
