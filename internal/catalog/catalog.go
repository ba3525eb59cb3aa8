// Package catalog holds the static, versioned table of named detectors.
// All regex definitions live here; the matcher and redactor only walk
// the table.
package catalog

import "regexp"

// Category identifies one violation category from the fixed taxonomy.
type Category string

const (
	CategoryPIINationalID Category = "pii_national_id"
	CategoryPIIIBAN       Category = "pii_iban"
	CategoryPIIPhone      Category = "pii_phone"
	CategoryPIIEmail      Category = "pii_email"
	CategoryPIIPassport   Category = "pii_passport"

	CategoryToxicity    Category = "toxicity"
	CategoryThreat      Category = "threat"
	CategoryRelInsult   Category = "religious_insult"
	CategoryRelFabric   Category = "religious_fabrication"
	CategoryPromptInj   Category = "prompt_injection"
	CategoryDataExfil   Category = "data_exfiltration"
	CategoryPolDisinfo  Category = "political_disinformation"
	CategoryCodeInj     Category = "code_injection"
)

// Detector is one declarative catalog entry. Critical entries force a
// block on any hit from either layer; Placeholder is set only for PII
// entries and is the token the redactor substitutes.
type Detector struct {
	Category    Category
	Critical    bool
	Placeholder string
	Patterns    []*regexp.Regexp
}

// Catalog is the loaded detector table. Built once at startup and
// read-only afterwards.
type Catalog struct {
	id       string
	version  string
	entries  []Detector
	critical map[Category]bool
	byCat    map[Category]*Detector
}

// New builds the catalog. Go's regexp engine is RE2 (no backtracking),
// so every detector runs in time linear in the input.
func New() *Catalog {
	entries := []Detector{
		{
			Category:    CategoryPIINationalID,
			Placeholder: "[REDACTED-NATIONAL-ID]",
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`\b\d{10}\b`),
			},
		},
		{
			Category:    CategoryPIIIBAN,
			Placeholder: "[REDACTED-IBAN]",
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{11,30}\b`),
			},
		},
		{
			Category:    CategoryPIIPhone,
			Placeholder: "[REDACTED-PHONE]",
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?:\+|00)\d{10,14}\b`),
				regexp.MustCompile(`\b\d{3}[\s.\-]\d{3}[\s.\-]\d{2,4}\b`),
			},
		},
		{
			Category:    CategoryPIIEmail,
			Placeholder: "[REDACTED-EMAIL]",
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`),
			},
		},
		{
			Category:    CategoryPIIPassport,
			Placeholder: "[REDACTED-PASSPORT]",
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`\b[A-Z]{1,2}\d{7,8}\b`),
			},
		},
		{
			Category: CategoryToxicity,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(idiot|moron|stupid|worthless|scum)\b`),
				regexp.MustCompile(`(?i)\bi\s+hate\s+(you|him|her|them)\b`),
			},
		},
		{
			Category: CategoryThreat,
			Critical: true,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(kill|murder|massacre|shoot|bomb)\b[^.]{0,40}\b(you|him|her|them|everyone|people)\b`),
				regexp.MustCompile(`(?i)\bdeath\s+to\b`),
			},
		},
		{
			Category: CategoryRelInsult,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(mock|insult|ridicule|curse)\b[^.]{0,40}\b(religion|faith|prophet|scripture|sacred|holy)\b`),
			},
		},
		{
			Category: CategoryRelFabric,
			Critical: true,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(invent|fabricate|make\s+up|forge)\b[^.]{0,40}\b(hadith|verse|ayah|fatwa|scripture|prophecy)\b`),
				regexp.MustCompile(`(?i)\b(fake|false|counterfeit)\s+(hadith|fatwa|verse|scripture)\b`),
			},
		},
		{
			Category: CategoryPromptInj,
			Critical: true,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above)\s+instructions`),
				regexp.MustCompile(`(?i)forget\s+(all\s+)?(your|prev\w*)\s+\w*\s*instructions`),
				regexp.MustCompile(`(?i)you\s+are\s+no\s+longer\s+bound\s+by`),
				regexp.MustCompile(`(?i)(bypass|disable)\s+(all\s+)?safety(\s+(rules|filters|checks))?`),
				regexp.MustCompile(`(?i)\b(do\s+anything\s+now|jailbreak|no\s+restrictions\s+mode)\b`),
			},
		},
		{
			Category: CategoryDataExfil,
			Critical: true,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)(reveal|print|show|dump|leak|exfiltrate)\b[^.]{0,50}\b(system\s+prompt|api\s+key|credentials|secret|training\s+data)`),
				regexp.MustCompile(`(?i)send\b[^.]{0,50}\b(data|contents|conversation)\b[^.]{0,30}\bto\s+https?://`),
			},
		},
		{
			Category: CategoryPolDisinfo,
			Critical: true,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(election|vote|ballot)s?\b[^.]{0,40}\b(rigged|stolen|falsified)\b`),
				regexp.MustCompile(`(?i)\b(spread|amplify|plant)\b[^.]{0,40}\b(disinformation|fake\s+news|propaganda|rumors?)\b`),
			},
		},
		{
			Category: CategoryCodeInj,
			Critical: true,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)(union\s+select|or\s+1=1|drop\s+table|information_schema|xp_cmdshell)`),
				regexp.MustCompile(`(?i)(rm\s+-rf|chmod\s+777|wget\s+http|curl\s+http\S*\s*\|\s*(ba)?sh|bash\s+-c|powershell\s+-command)`),
				regexp.MustCompile(`<script[^>]*>`),
			},
		},
	}

	c := &Catalog{
		id:       "kalkan-catalog",
		version:  "1.0.0",
		entries:  entries,
		critical: make(map[Category]bool, len(entries)),
		byCat:    make(map[Category]*Detector, len(entries)),
	}
	for i := range entries {
		c.critical[entries[i].Category] = entries[i].Critical
		c.byCat[entries[i].Category] = &c.entries[i]
	}
	return c
}

// ID returns the catalog identifier.
func (c *Catalog) ID() string { return c.id }

// Version returns the catalog version.
func (c *Catalog) Version() string { return c.version }

// Detectors returns the detector table in declaration order.
func (c *Catalog) Detectors() []Detector { return c.entries }

// IsCritical reports whether a category forces a block on any hit.
func (c *Catalog) IsCritical(cat Category) bool { return c.critical[cat] }

// IsPII reports whether a category carries a redaction placeholder.
func (c *Catalog) IsPII(cat Category) bool {
	d, ok := c.byCat[cat]
	return ok && d.Placeholder != ""
}

// Detector looks up a catalog entry by category.
func (c *Catalog) Detector(cat Category) (Detector, bool) {
	d, ok := c.byCat[cat]
	if !ok {
		return Detector{}, false
	}
	return *d, true
}

// Known reports whether the category is part of the taxonomy. The
// classifier adapter uses it to drop categories an upstream model
// invented.
func (c *Catalog) Known(cat Category) bool {
	_, ok := c.byCat[cat]
	return ok
}

// Categories returns the full taxonomy in declaration order.
func (c *Catalog) Categories() []Category {
	out := make([]Category, 0, len(c.entries))
	for _, d := range c.entries {
		out = append(out, d.Category)
	}
	return out
}
