package store

// Settings are the small auxiliary preferences kept next to the record
// mappings: grid column count, print text size, customers exempted from
// price display and the last-used export date.
type Settings struct {
	GridColumns        int      `json:"gridColumns"`
	TextSize           int      `json:"textSize"`
	HidePriceCustomers []string `json:"hidePriceCustomers"`
	LastExportDate     string   `json:"lastExportDate"`
}

func DefaultSettings() Settings {
	return Settings{GridColumns: 6, TextSize: 14}
}

// HidePriceFor reports whether the customer is exempted from price display
// on printed labels.
func (s Settings) HidePriceFor(customer string) bool {
	for _, c := range s.HidePriceCustomers {
		if c == customer {
			return true
		}
	}
	return false
}

// LoadSettings returns the stored settings, falling back to defaults for a
// slot that was never written.
func (s *RecordStore) LoadSettings() (Settings, error) {
	settings := DefaultSettings()
	if err := s.slots.Load(SlotSettings, &settings); err != nil {
		return settings, err
	}
	if settings.GridColumns <= 0 {
		settings.GridColumns = 6
	}
	if settings.TextSize <= 0 {
		settings.TextSize = 14
	}
	return settings, nil
}

// StoreSettings persists the settings slot.
func (s *RecordStore) StoreSettings(settings Settings) error {
	return s.slots.Store(SlotSettings, settings)
}
