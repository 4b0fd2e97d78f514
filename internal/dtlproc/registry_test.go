package dtlproc

import "testing"

func TestDefaultRegistry_Valid(t *testing.T) {
	registry := DefaultRegistry()
	if err := registry.Validate(); err != nil {
		t.Fatalf("DefaultRegistry().Validate() = %v", err)
	}
	if len(registry) != 14 {
		t.Errorf("len(DefaultRegistry()) = %d, want 14", len(registry))
	}
}

func TestRegistry_Match(t *testing.T) {
	registry := DefaultRegistry()

	tests := []struct {
		filename string
		wantType string
		wantOK   bool
	}{
		{"SiteA_DataLogCO2Days.dtl", "co2days", true},
		{"DataLogCO2Days.dtl", "co2days", true},
		{"Fridge12DataLogCO2Months.dtl", "co2months", true},
		{"XDataLogCO2Year.dtl", "co2year", true},
		{"XDataLogDoorClose.dtl", "doorclose", true},
		{"XDataLogDoorDays.dtl", "doordays", true},
		{"XDataLogDoorMonth.dtl", "doormonth", true},
		{"XDataLogDoorOpen.dtl", "dooropen", true},
		{"XDataLogDoorYear.dtl", "dooryear", true},
		{"XDataLogWasteDays.dtl", "wastedays", true},
		{"XDataLogWasteMont.dtl", "wastemont", true},
		{"XDataLogWasteYear.dtl", "wasteyear", true},
		{"XDataLogWeighDiff.dtl", "weightdiff", true},
		{"XTrendTemperature.dtl", "trendtemp", true},
		{"XWeightDay.dtl", "weightday", true},
		{"random.dtl", "", false},
		{"DataLogCO2Days.txt", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			def, ok := registry.Match(tt.filename)
			if ok != tt.wantOK {
				t.Fatalf("Match(%q) ok = %v, want %v", tt.filename, ok, tt.wantOK)
			}
			if ok && def.ID != tt.wantType {
				t.Errorf("Match(%q) type = %s, want %s", tt.filename, def.ID, tt.wantType)
			}
		})
	}
}

func TestRegistry_DoorTypesUseIntegerEncoding(t *testing.T) {
	registry := DefaultRegistry()

	for _, def := range registry {
		wantInt := def.ID == "doorclose" || def.ID == "doordays" ||
			def.ID == "doormonth" || def.ID == "dooropen" || def.ID == "dooryear"
		gotInt := def.Encoding == EncodingInt
		if gotInt != wantInt {
			t.Errorf("type %s encoding = %v, want integer=%v", def.ID, def.Encoding, wantInt)
		}
	}
}

func TestRegistry_HeaderLengths(t *testing.T) {
	registry := DefaultRegistry()

	for _, def := range registry {
		if def.HeaderLength < 39 || def.HeaderLength > 46 {
			t.Errorf("type %s header length = %d, want within [39, 46]", def.ID, def.HeaderLength)
		}
	}
}

func TestRegistry_Lookup(t *testing.T) {
	registry := DefaultRegistry()

	def, ok := registry.Lookup("trendtemp")
	if !ok {
		t.Fatal("Lookup(trendtemp) not found")
	}
	if def.Pattern != "*TrendTemperature.dtl" {
		t.Errorf("Lookup(trendtemp).Pattern = %q", def.Pattern)
	}

	if _, ok := registry.Lookup("nope"); ok {
		t.Error("Lookup(nope) found = true, want false")
	}
}

func TestRegistry_ValidateRejectsBadRegistries(t *testing.T) {
	tests := []struct {
		name     string
		registry Registry
	}{
		{
			name:     "empty id",
			registry: Registry{{ID: " ", Pattern: "*.dtl", ValueLabel: "V"}},
		},
		{
			name: "duplicate id",
			registry: Registry{
				{ID: "a", Pattern: "*a.dtl", ValueLabel: "V"},
				{ID: "a", Pattern: "*b.dtl", ValueLabel: "V"},
			},
		},
		{
			name:     "empty pattern",
			registry: Registry{{ID: "a", Pattern: "", ValueLabel: "V"}},
		},
		{
			name:     "malformed pattern",
			registry: Registry{{ID: "a", Pattern: "[", ValueLabel: "V"}},
		},
		{
			name:     "negative header",
			registry: Registry{{ID: "a", Pattern: "*.dtl", HeaderLength: -1, ValueLabel: "V"}},
		},
		{
			name:     "empty value label",
			registry: Registry{{ID: "a", Pattern: "*.dtl"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.registry.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}
