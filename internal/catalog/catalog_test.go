package catalog

import "testing"

func TestCatalog_CriticalSet(t *testing.T) {
	c := New()

	critical := []Category{
		CategoryThreat,
		CategoryRelFabric,
		CategoryPromptInj,
		CategoryDataExfil,
		CategoryPolDisinfo,
		CategoryCodeInj,
	}
	for _, cat := range critical {
		if !c.IsCritical(cat) {
			t.Errorf("expected %s to be critical", cat)
		}
	}

	nonCritical := []Category{
		CategoryPIINationalID,
		CategoryPIIEmail,
		CategoryToxicity,
		CategoryRelInsult,
	}
	for _, cat := range nonCritical {
		if c.IsCritical(cat) {
			t.Errorf("expected %s to be non-critical", cat)
		}
	}
}

func TestCatalog_PIIEntriesCarryPlaceholders(t *testing.T) {
	c := New()
	for _, d := range c.Detectors() {
		if c.IsPII(d.Category) && d.Placeholder == "" {
			t.Errorf("PII category %s has no placeholder", d.Category)
		}
		if !c.IsPII(d.Category) && d.Placeholder != "" {
			t.Errorf("non-PII category %s has placeholder %q", d.Category, d.Placeholder)
		}
	}
}

func TestCatalog_Known(t *testing.T) {
	c := New()
	if !c.Known(CategoryToxicity) {
		t.Fatal("expected toxicity to be known")
	}
	if c.Known(Category("made_up_category")) {
		t.Fatal("expected invented category to be unknown")
	}
}

func TestCatalog_DetectorLookup(t *testing.T) {
	c := New()
	d, ok := c.Detector(CategoryPIIPhone)
	if !ok {
		t.Fatal("expected phone detector to exist")
	}
	if d.Category != CategoryPIIPhone {
		t.Fatalf("wrong detector returned: %s", d.Category)
	}
	if len(d.Patterns) == 0 {
		t.Fatal("phone detector has no patterns")
	}

	if _, ok := c.Detector(Category("nope")); ok {
		t.Fatal("expected lookup miss for unknown category")
	}
}

func TestCatalog_CategoriesCoverAllDetectors(t *testing.T) {
	c := New()
	cats := c.Categories()
	if len(cats) != len(c.Detectors()) {
		t.Fatalf("categories len %d != detectors len %d", len(cats), len(c.Detectors()))
	}
}
